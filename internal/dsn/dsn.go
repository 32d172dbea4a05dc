// Package dsn implements the read-only safety envelope around PostgreSQL
// connection strings: normalizing DSNs so every opened session rejects
// writes, and redacting secrets before a DSN is logged or displayed.
package dsn

import (
	"net/url"
	"regexp"
	"strings"
)

var readOnlyOptionRe = regexp.MustCompile(`(?i)-c\s+default_transaction_read_only\s*=\s*on`)

// secretParamKeys are query parameter names (case-insensitive) masked by
// RedactDSN.
var secretParamKeys = map[string]bool{
	"password": true,
	"passwd":   true,
	"pwd":      true,
	"token":    true,
	"secret":   true,
	"apikey":   true,
	"api_key":  true,
}

// EnforceReadOnlyDSN parses a postgres[ql]:// URL, merges any existing
// options query parameter, and appends
// "-c default_transaction_read_only=on" unless already present. It is
// idempotent: EnforceReadOnlyDSN(EnforceReadOnlyDSN(d)) == EnforceReadOnlyDSN(d).
func EnforceReadOnlyDSN(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	q := u.Query()
	existing := q.Get("options")
	if !readOnlyOptionRe.MatchString(existing) {
		if existing != "" {
			existing = strings.TrimRight(existing, " ") + " -c default_transaction_read_only=on"
		} else {
			existing = "-c default_transaction_read_only=on"
		}
		q.Set("options", existing)
	}
	u.RawQuery = strings.ReplaceAll(q.Encode(), "+", "%20")
	return u.String(), nil
}

// RedactDSN masks the password in the userinfo component (to "***") and
// masks any query parameter whose key is a known secret name.
func RedactDSN(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}

	q := u.Query()
	for key := range q {
		if secretParamKeys[strings.ToLower(key)] {
			q.Set(key, "***")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RedactSecret keeps a 3-char prefix and 2-char suffix, masking the middle.
// Returns an all-asterisk string of the same length if s is no longer than
// the visible budget (5 characters).
func RedactSecret(s string) string {
	const prefixLen, suffixLen = 3, 2
	if len(s) <= prefixLen+suffixLen {
		return strings.Repeat("*", len(s))
	}
	middle := strings.Repeat("*", len(s)-prefixLen-suffixLen)
	return s[:prefixLen] + middle + s[len(s)-suffixLen:]
}

// DSNHasPassword reports whether the DSN's userinfo already carries a
// password.
func DSNHasPassword(raw string) (bool, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return false, err
	}
	if u.User == nil {
		return false, nil
	}
	_, ok := u.User.Password()
	return ok, nil
}

// DSNWithPassword sets a percent-encoded password on a passwordless DSN.
// It is a user error to call this on a DSN that already carries a password.
func DSNWithPassword(raw, password string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	hasPassword, err := DSNHasPassword(raw)
	if err != nil {
		return "", err
	}
	if hasPassword {
		return "", &ErrPasswordAlreadySet{}
	}
	username := ""
	if u.User != nil {
		username = u.User.Username()
	}
	u.User = url.UserPassword(username, password)
	return u.String(), nil
}

// ErrPasswordAlreadySet is returned by DSNWithPassword when the target DSN
// already has a password set.
type ErrPasswordAlreadySet struct{}

func (e *ErrPasswordAlreadySet) Error() string {
	return "dsn already has a password; refusing to overwrite"
}
