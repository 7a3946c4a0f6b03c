package party

import (
	"encoding/json"
	"slices"
	"strings"
)

// TagSet is an ordered set of tags. Tags are compared case-sensitively and
// keep the order in which they were added.
type TagSet struct {
	tags []string
}

// NewTagSet builds a set from tags, dropping blanks and duplicates
func NewTagSet(tags ...string) TagSet {
	var s TagSet
	for _, t := range tags {
		s.Add(t)
	}
	return s
}

// Add inserts the trimmed tag. It reports false when the tag is blank or already present.
func (s *TagSet) Add(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || s.Contains(tag) {
		return false
	}
	s.tags = append(s.tags, tag)
	return true
}

// Remove deletes tag, reporting whether it was present
func (s *TagSet) Remove(tag string) bool {
	i := slices.Index(s.tags, tag)
	if i < 0 {
		return false
	}
	s.tags = slices.Delete(s.tags, i, i+1)
	return true
}

// Contains reports whether tag is in the set
func (s TagSet) Contains(tag string) bool {
	return slices.Contains(s.tags, tag)
}

// Len returns the number of tags
func (s TagSet) Len() int { return len(s.tags) }

// Values returns the tags in insertion order. The result is never nil.
func (s TagSet) Values() []string {
	out := make([]string, len(s.tags))
	copy(out, s.tags)
	return out
}

// Clone returns an independent copy
func (s TagSet) Clone() TagSet {
	return TagSet{tags: s.Values()}
}

// MarshalJSON encodes the set as an array, [] when empty
func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON decodes an array of tags, dropping blanks and duplicates. null yields an empty set.
func (s *TagSet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	*s = NewTagSet(tags...)
	return nil
}

// MarshalYAML encodes the set as a sequence
func (s TagSet) MarshalYAML() (any, error) {
	return s.Values(), nil
}
