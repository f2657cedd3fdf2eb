package service

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/sakif/snippet-oracle/internal/apperror"
)

const (
	MaxTags      = 20
	MaxTagLength = 50
)

// ParseTagList splits the comma-separated form a snippet form submits,
// e.g. "go, http ,go" → ["go" "http"].
func ParseTagList(raw string) []string {
	return NormalizeTags(strings.Split(raw, ","))
}

// NormalizeTags removes all whitespace inside each tag, drops tags that end up
// empty, and keeps the first occurrence of each repeated tag. Case is kept:
// "Go" and "go" are different tags.
//
// Stripping whitespace matters for search: the query is split on whitespace,
// so a tag containing a space could never be matched by ":tag".
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func validateTags(tags []string) error {
	if len(tags) > MaxTags {
		return apperror.ValidationFailed("tags", fmt.Sprintf("a snippet can have at most %d tags", MaxTags))
	}
	for _, tag := range tags {
		if len(tag) > MaxTagLength {
			return apperror.ValidationFailed("tags",
				fmt.Sprintf("tag %q is longer than %d characters", tag, MaxTagLength))
		}
	}
	return nil
}
