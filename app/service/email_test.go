package service_test

import (
	"testing"

	"github.com/vibast-solutions/ms-go-course/app/service"
)

func TestCanonicalizeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "  Student@Example.com ", want: "student@example.com"},
		{in: "student+course@example.com", want: "student+course@example.com"},
		{in: "Jane.Doe+promo@gmail.com", want: "janedoe@gmail.com"},
		{in: "jane.doe@googlemail.com", want: "janedoe@gmail.com"},
		{in: "jane.doe+news@outlook.com", want: "jane.doe@outlook.com"},
		{in: "not-an-email", want: "not-an-email"},
		{in: "@gmail.com", want: "@gmail.com"},
	}

	for _, tc := range cases {
		if got := service.CanonicalizeEmail(tc.in); got != tc.want {
			t.Fatalf("CanonicalizeEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
