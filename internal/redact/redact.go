// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package redact masks credentials in text bound for logs and persisted
// records.
package redact

import (
	"regexp"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// Rule is a named credential pattern.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

var (
	defaultRulesOnce sync.Once
	defaultRules     []Rule
)

// DefaultRules returns the credential shapes Warden masks without being told
// the secret: provider API keys, bearer tokens and URLs with passwords.
func DefaultRules() []Rule {
	defaultRulesOnce.Do(func() {
		defaultRules = []Rule{
			{Name: "bearer_token", Pattern: regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_\-.]{20,}`)},
			{Name: "anthropic_api_key", Pattern: regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`)},
			{Name: "openai_api_key", Pattern: regexp.MustCompile(`sk-[A-Za-z0-9_-]{16,}`)},
			{Name: "google_api_key", Pattern: regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`)},
			{Name: "url_password", Pattern: regexp.MustCompile(`(?i)\b[a-z][a-z0-9+.-]*://[^\s:@/]*:[^\s@/]+@[^\s/]+`)},
		}
	})
	return defaultRules
}

// minSecretLength keeps short configured values from masking ordinary words.
const minSecretLength = 8

// Redactor masks pattern matches and a set of known secret values.
type Redactor struct {
	rules   []Rule
	secrets []string
}

// New returns a Redactor using DefaultRules plus the given literal secrets.
// Empty and very short secrets are ignored.
func New(secrets ...string) *Redactor {
	r := &Redactor{rules: DefaultRules()}
	for _, s := range secrets {
		if len(s) >= minSecretLength {
			r.secrets = append(r.secrets, s)
		}
	}
	return r
}

// invisibleChars are stripped before matching so a key split by zero-width
// characters is still found.
var invisibleChars = strings.NewReplacer(
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\ufeff", "",
	"\u00ad", "",
	"\u2060", "",
)

type span struct{ start, end int }

// String returns s with every credential replaced by its Mask. Matching runs
// on the NFKC form of s with invisible characters removed; when nothing
// matches, s is returned unchanged.
func (r *Redactor) String(s string) string {
	if s == "" {
		return s
	}
	orig := s
	s = norm.NFKC.String(invisibleChars.Replace(s))

	var spans []span
	for _, secret := range r.secrets {
		for off := 0; ; {
			i := strings.Index(s[off:], secret)
			if i < 0 {
				break
			}
			spans = append(spans, span{off + i, off + i + len(secret)})
			off += i + len(secret)
		}
	}
	for _, rule := range r.rules {
		for _, loc := range rule.Pattern.FindAllStringIndex(s, -1) {
			spans = append(spans, span{loc[0], loc[1]})
		}
	}
	if len(spans) == 0 {
		return orig
	}

	slices.SortFunc(spans, func(a, b span) int { return a.start - b.start })
	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start <= last.end {
			last.end = max(last.end, sp.end)
			continue
		}
		merged = append(merged, sp)
	}

	var b strings.Builder
	b.Grow(len(s))
	pos := 0
	for _, sp := range merged {
		b.WriteString(s[pos:sp.start])
		b.WriteString(Mask(s[sp.start:sp.end]))
		pos = sp.end
	}
	b.WriteString(s[pos:])
	return b.String()
}

// Mask shortens a secret to its first three and last four characters,
// e.g. "sk-…abcd". Values too short to keep any of them become "****".
func Mask(secret string) string {
	runes := []rune(secret)
	if len(runes) < 12 {
		if secret == "" {
			return ""
		}
		return "****"
	}
	return string(runes[:3]) + "…" + string(runes[len(runes)-4:])
}
