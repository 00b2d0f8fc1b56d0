package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern represents a compiled filter condition supporting substring and regex matching.
type Pattern struct {
	raw   string
	regex *regexp.Regexp
	lower string
}

// Compile transforms raw pattern strings into Pattern values. A pattern
// wrapped in slashes is a regular expression; anything else is a
// case-insensitive substring.
func Compile(patterns []string) ([]Pattern, error) {
	result := make([]Pattern, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") && len(raw) >= 2 {
			expr := raw[1 : len(raw)-1]
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("compile regexp %q: %w", raw, err)
			}
			result = append(result, Pattern{raw: raw, regex: re})
			continue
		}
		result = append(result, Pattern{raw: raw, lower: strings.ToLower(raw)})
	}
	return result, nil
}

// Match reports whether the pattern matches the supplied string.
func (p Pattern) Match(s string) bool {
	if s == "" {
		return false
	}
	if p.regex != nil {
		return p.regex.MatchString(s)
	}
	return strings.Contains(strings.ToLower(s), p.lower)
}

func (p Pattern) String() string { return p.raw }

// Filter keeps the suites whose name, description or required features match
// any pattern. No patterns keeps everything. Order is preserved.
func Filter(suites []Suite, patterns []Pattern) []Suite {
	if len(patterns) == 0 {
		return suites
	}
	result := make([]Suite, 0, len(suites))
	for _, s := range suites {
		if matchesSuite(s, patterns) {
			result = append(result, s)
		}
	}
	return result
}

func matchesSuite(s Suite, patterns []Pattern) bool {
	for _, pattern := range patterns {
		if pattern.Match(s.Name) || pattern.Match(s.Description) {
			return true
		}
		for _, tag := range s.Requires {
			if pattern.Match(tag) {
				return true
			}
		}
	}
	return false
}
