// Package redact masks credentials before they reach logs or error
// messages.
package redact

import (
	"net/url"
	"sort"
	"strings"
)

const mask = "[REDACTED]"

// sensitiveParams are query parameters masked in URLs even when no secret
// was registered for them.
var sensitiveParams = []string{"access_token", "api_key", "apikey", "key", "sig", "signature", "token"}

// Redactor replaces configured secrets in strings.
type Redactor struct {
	secrets []string
}

func NewRedactor() *Redactor {
	return &Redactor{}
}

// AddSecrets registers secrets to mask. Longer secrets are replaced first
// so a secret containing another is masked whole.
func (r *Redactor) AddSecrets(secrets []string) {
	for _, s := range secrets {
		if s == "" {
			continue
		}
		r.secrets = append(r.secrets, s)
	}
	sort.SliceStable(r.secrets, func(i, j int) bool { return len(r.secrets[i]) > len(r.secrets[j]) })
}

func (r *Redactor) Redact(input string) string {
	if r == nil {
		return input
	}
	out := input
	for _, secret := range r.secrets {
		out = strings.ReplaceAll(out, secret, mask)
	}
	return out
}

// URL masks the password of the userinfo and sensitive query parameters
// of location, then applies Redact. Non-URL input is only passed through
// Redact.
func (r *Redactor) URL(location string) string {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return r.Redact(location)
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), mask)
		}
	}
	if u.RawQuery != "" {
		q := u.Query()
		for name := range q {
			if isSensitive(name) {
				q.Set(name, mask)
			}
		}
		u.RawQuery = q.Encode()
	}
	// Encoding escapes the brackets of the mask.
	out := strings.ReplaceAll(u.String(), url.QueryEscape(mask), mask)
	out = strings.ReplaceAll(out, url.PathEscape(mask), mask)
	return r.Redact(out)
}

func isSensitive(name string) bool {
	name = strings.ToLower(name)
	for _, s := range sensitiveParams {
		if name == s {
			return true
		}
	}
	return false
}
