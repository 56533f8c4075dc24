package verify

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxCandidates caps how many addresses a single lead can generate.
const MaxCandidates = 15

// CommonPatterns are the standard first/last name patterns, in the
// order exposed to workspaces for per-index selection.
var CommonPatterns = []string{
	"{first}@{domain}",
	"{last}@{domain}",
	"{first}.{last}@{domain}",
	"{f}.{last}@{domain}",
	"{f}{last}@{domain}",
	"{first}{last}@{domain}",
	"{last}.{first}@{domain}",
	"{last}{f}@{domain}",
	"{first}_{last}@{domain}",
	"{last}_{first}@{domain}",
}

// firstOnlyPatterns apply when a lead has no last name: the first name
// alone plus common generic mailboxes.
var firstOnlyPatterns = []string{
	"{first}@{domain}",
	"info@{domain}",
	"contact@{domain}",
	"contacto@{domain}",
	"hello@{domain}",
	"hola@{domain}",
}

// CandidateOptions adjusts generation per workspace.
type CandidateOptions struct {
	// MaxCandidates caps the result; 0 means MaxCandidates.
	MaxCandidates int
	// EnabledPatternIndices selects entries of CommonPatterns, in the
	// given order. nil means all patterns. Out-of-range indices are
	// skipped.
	EnabledPatternIndices []int
	// AllowNoLastname enables the generic mailbox fallback for leads
	// without a last name; otherwise such leads produce no candidates.
	AllowNoLastname bool
	// CustomPatterns are workspace-defined templates appended after the
	// standard ones. Placeholders: {first} {last} {f} {l} {domain}.
	CustomPatterns []string
}

// slugifyName lowercases a name and reduces it to ASCII letters and
// digits, decomposing accented characters first so "Núñez" becomes
// "nunez".
func slugifyName(name string) string {
	s := norm.NFKD.String(strings.ToLower(strings.TrimSpace(name)))
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// GenerateCandidates expands name patterns into deduplicated candidate
// addresses for the domain. An empty domain, or a missing last name
// without AllowNoLastname, yields no candidates.
func GenerateCandidates(firstName, lastName, domain string, opts CandidateOptions) []string {
	first := slugifyName(firstName)
	last := slugifyName(lastName)
	if domain == "" {
		return nil
	}
	domain = strings.ToLower(strings.TrimSpace(domain))

	maxN := opts.MaxCandidates
	if maxN <= 0 {
		maxN = MaxCandidates
	}

	vars := map[string]string{
		"first":  first,
		"last":   last,
		"f":      initial(first),
		"l":      initial(last),
		"domain": domain,
	}

	if last == "" {
		if !opts.AllowNoLastname {
			return nil
		}
		var raw []string
		for _, pat := range firstOnlyPatterns {
			if strings.Contains(pat, "{first}") && first == "" {
				continue
			}
			if email, ok := expandPattern(pat, vars); ok {
				raw = append(raw, email)
			}
		}
		return dedupe(raw, maxN)
	}

	patterns := CommonPatterns
	if opts.EnabledPatternIndices != nil {
		patterns = nil
		for _, i := range opts.EnabledPatternIndices {
			if i >= 0 && i < len(CommonPatterns) {
				patterns = append(patterns, CommonPatterns[i])
			}
		}
	}
	if len(opts.CustomPatterns) > 0 {
		patterns = append(append([]string{}, patterns...), opts.CustomPatterns...)
	}

	var raw []string
	for _, pat := range patterns {
		if skipForEmptyPlaceholder(pat, vars) {
			continue
		}
		email, ok := expandPattern(pat, vars)
		if !ok {
			continue
		}
		raw = append(raw, email)
	}
	return dedupe(raw, maxN)
}

func initial(s string) string {
	if s == "" {
		return ""
	}
	return s[:1]
}

// skipForEmptyPlaceholder rejects patterns that reference a name part
// the lead does not have, so "a.@example.com"-style artifacts never
// appear.
func skipForEmptyPlaceholder(pat string, vars map[string]string) bool {
	for _, k := range []string{"first", "last", "f", "l"} {
		if vars[k] == "" && strings.Contains(pat, "{"+k+"}") {
			return true
		}
	}
	return false
}

// expandPattern substitutes the known placeholders. A leftover brace
// means the pattern used an unknown placeholder; it is skipped rather
// than emitted half-expanded.
func expandPattern(pat string, vars map[string]string) (string, bool) {
	out := pat
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	if strings.Contains(out, "{") {
		return "", false
	}
	return out, true
}

func dedupe(raw []string, maxN int) []string {
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, e := range raw {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
		if len(out) >= maxN {
			break
		}
	}
	return out
}
