package domain

import "strings"

// MaxGeneratedTags caps the number of AI suggested tags
const MaxGeneratedTags = 5

// AddTag appends tag unless it is blank or already present (exact match).
// The input slice is never modified.
func AddTag(tags []string, tag string) []string {
	tag = strings.TrimSpace(tag)
	result := append([]string{}, tags...)
	if tag == "" {
		return result
	}
	for _, t := range tags {
		if t == tag {
			return result
		}
	}
	return append(result, tag)
}

// RemoveTag removes every occurrence of tag
func RemoveTag(tags []string, tag string) []string {
	result := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != tag {
			result = append(result, t)
		}
	}
	return result
}

// ParseTagList splits a comma separated list, trims each entry, drops empty
// ones and keeps at most limit entries. A limit <= 0 keeps everything.
func ParseTagList(text string, limit int) []string {
	parts := strings.Split(strings.TrimSpace(text), ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		tags = append(tags, p)
		if limit > 0 && len(tags) == limit {
			break
		}
	}
	return tags
}
