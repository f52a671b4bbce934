package main

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// SearchCriteria is the OR filter behind GET /search: subject or location matches
// Pattern case-insensitively, or price equals Price, or space equals Space.
type SearchCriteria struct {
	Query   string
	Pattern string
	Price   *float64
	Space   *int
}

// NewSearchCriteria builds the criteria for a raw query. ok is false when the
// trimmed query is empty, meaning every lesson matches.
func NewSearchCriteria(raw string) (criteria SearchCriteria, ok bool) {
	// bytes that are not UTF-8 are searched as U+FFFD instead of failing the regex
	query := strings.ToValidUTF8(strings.TrimSpace(raw), "\uFFFD")
	if query == "" {
		return SearchCriteria{}, false
	}

	criteria = SearchCriteria{
		Query:   query,
		Pattern: regexp.QuoteMeta(query),
	}
	if price, isNumber := canonicalFloat(query); isNumber {
		criteria.Price = &price
	}
	if space, isInt := canonicalInt(query); isInt {
		criteria.Space = &space
	}
	return criteria, true
}

func (c SearchCriteria) matches(re *regexp.Regexp, l Lesson) bool {
	if re.MatchString(l.Subject) || re.MatchString(l.Location) {
		return true
	}
	if c.Price != nil && l.Price == *c.Price {
		return true
	}
	if c.Space != nil && l.Space == *c.Space {
		return true
	}
	return false
}

// canonicalFloat accepts the query only when writing the parsed number back gives
// exactly the same text, so "100abc", "1e5" or "0.50" never count as prices.
func canonicalFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	// "-0" parses but is not how zero is written back
	if f == 0 && math.Signbit(f) {
		return 0, false
	}
	if formatNumber(f) != s {
		return 0, false
	}
	return f, true
}

// formatNumber writes f the way browsers print numbers: plain decimals between
// 1e-6 and 1e21, exponent form ("1e-7", "1.5e+21") outside that range.
func formatNumber(f float64) string {
	abs := math.Abs(f)
	if abs == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + digits
}

func canonicalInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || strconv.Itoa(n) != s {
		return 0, false
	}
	return n, true
}
