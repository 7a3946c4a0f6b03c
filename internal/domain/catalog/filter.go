package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

// Matches reports whether query occurs, ignoring case, in the item's name,
// HSN code, category name or brand name. Missing fields never match.
func Matches(item Item, query string) bool {
	return newMatcher(query).match(item)
}

// Filter returns the items matching query, in their original order.
// The result is never nil.
func Filter(items []Item, query string) []Item {
	m := newMatcher(query)
	out := make([]Item, 0)
	for _, it := range items {
		if m.match(it) {
			out = append(out, it)
		}
	}
	return out
}

type matcher struct {
	caser  cases.Caser
	needle string
}

func newMatcher(query string) *matcher {
	m := &matcher{caser: cases.Fold()}
	m.needle = m.caser.String(query)
	return m
}

func (m *matcher) match(it Item) bool {
	for _, field := range []string{it.Name, it.HSN, it.CategoryName(), it.BrandName()} {
		if m.contains(field) {
			return true
		}
	}
	return false
}

func (m *matcher) contains(field string) bool {
	if field == "" {
		return false
	}
	return strings.Contains(m.caser.String(field), m.needle)
}
