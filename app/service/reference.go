package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	referencePrefix = "user_"
	referenceInfix  = "_course_purchase_"
)

var ErrInvalidReference = errors.New("invalid purchase reference")

// PurchaseReference correlates a provider payment with the user who started
// the checkout. It travels as the preference external_reference.
type PurchaseReference struct {
	UserID   uint64
	IssuedAt time.Time
}

func NewPurchaseReference(userID uint64, issuedAt time.Time) PurchaseReference {
	return PurchaseReference{UserID: userID, IssuedAt: issuedAt}
}

func (r PurchaseReference) String() string {
	return referencePrefix + strconv.FormatUint(r.UserID, 10) + referenceInfix + strconv.FormatInt(r.IssuedAt.UnixMilli(), 10)
}

type ReferenceError struct {
	Reference string
	Reason    string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrInvalidReference.Error(), e.Reference, e.Reason)
}

func (e *ReferenceError) Unwrap() error {
	return ErrInvalidReference
}

// ParsePurchaseReference accepts only user_<id>_course_purchase_<millis>,
// with a canonical positive decimal id.
func ParsePurchaseReference(raw string) (PurchaseReference, error) {
	fail := func(reason string) (PurchaseReference, error) {
		return PurchaseReference{}, &ReferenceError{Reference: raw, Reason: reason}
	}

	if !strings.HasPrefix(raw, referencePrefix) {
		return fail("missing user prefix")
	}

	idPart, issuedPart, found := strings.Cut(strings.TrimPrefix(raw, referencePrefix), referenceInfix)
	if !found {
		return fail("missing purchase marker")
	}

	if !allDigits(idPart) {
		return fail("user id is not numeric")
	}
	userID, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil || userID == 0 || strconv.FormatUint(userID, 10) != idPart {
		return fail("user id is not a canonical positive integer")
	}

	if !allDigits(issuedPart) {
		return fail("timestamp is not numeric")
	}
	millis, err := strconv.ParseInt(issuedPart, 10, 64)
	if err != nil {
		return fail("timestamp is out of range")
	}

	return PurchaseReference{UserID: userID, IssuedAt: time.UnixMilli(millis)}, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
