package service

import "strings"

type mailboxRules struct {
	domain     string
	ignoreDots bool
	subaddress bool
}

// Providers whose mailboxes ignore dots or "+tag" suffixes, keyed by domain.
// Aliased domains collapse onto one canonical domain.
var mailboxProviders = map[string]mailboxRules{
	"gmail.com":      {domain: "gmail.com", ignoreDots: true, subaddress: true},
	"googlemail.com": {domain: "gmail.com", ignoreDots: true, subaddress: true},
	"outlook.com":    {domain: "outlook.com", subaddress: true},
	"hotmail.com":    {domain: "hotmail.com", subaddress: true},
}

// CanonicalizeEmail maps every spelling of a mailbox to one key so a person
// cannot register the same inbox twice. Addresses are lowercased; known
// providers also drop dots and "+tag" suffixes where they are ignored.
func CanonicalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))

	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return email
	}

	rules, known := mailboxProviders[domain]
	if !known {
		return email
	}

	if rules.subaddress {
		local, _, _ = strings.Cut(local, "+")
	}
	if rules.ignoreDots {
		local = strings.ReplaceAll(local, ".", "")
	}

	return local + "@" + rules.domain
}
