// Package parser turns raw user text into safe markup, resolving @mentions
// to identities and #hashtags to tags.
//
// Text is split on whitespace and re-joined with single spaces. Every token
// that is not a recognized mention or hashtag is HTML-escaped, quotes included.
// Processing never fails on its input; only Resolver errors are returned.
package parser

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Hashtag tokens are recognized when their length in runes, marker
// included, lies in [MinTagLength, MaxTagLength].
const (
	MinTagLength = 2
	MaxTagLength = 101
)

var (
	handleDisallowed = regexp.MustCompile(`[^A-Za-z0-9_\p{Cyrillic}]`)
	tagDisallowed    = regexp.MustCompile(`[^A-Za-z0-9\p{Cyrillic}]`)
)

// Resolver is the storage the parser consults. Implementations run inside
// the caller's transaction.
type Resolver interface {
	FindByHandle(ctx context.Context, handle string) (int64, bool, error)
	// UpsertTag returns the id of the named tag, creating it if absent.
	UpsertTag(ctx context.Context, name string) (int64, error)
}

type Tag struct {
	ID   int64
	Name string
}

// Result holds the rendered text plus tags and mentioned identity ids in
// order of appearance. Duplicates are kept.
type Result struct {
	Rendered   string
	Tags       []Tag
	Recipients []int64
}

// NormalizeHandle reduces a handle to its canonical lookup form.
func NormalizeHandle(handle string) string {
	return strings.ToLower(handleDisallowed.ReplaceAllString(handle, ""))
}

// NormalizeTag reduces a tag name to its canonical stored form.
func NormalizeTag(name string) string {
	return strings.ToLower(tagDisallowed.ReplaceAllString(name, ""))
}

func Parse(ctx context.Context, raw string, r Resolver) (Result, error) {
	words := strings.Fields(raw)
	result := Result{
		Tags:       []Tag{},
		Recipients: []int64{},
	}
	out := make([]string, 0, len(words))

	for _, word := range words {
		switch {
		case strings.HasPrefix(word, "@"):
			rendered, err := mention(ctx, word, r, &result)
			if err != nil {
				return Result{}, err
			}
			out = append(out, rendered)
		case isHashtag(word):
			rendered, err := hashtag(ctx, word, r, &result)
			if err != nil {
				return Result{}, err
			}
			out = append(out, rendered)
		default:
			out = append(out, html.EscapeString(word))
		}
	}

	result.Rendered = strings.Join(out, " ")
	return result, nil
}

func isHashtag(word string) bool {
	if !strings.HasPrefix(word, "#") {
		return false
	}
	n := utf8.RuneCountInString(word)
	return n >= MinTagLength && n <= MaxTagLength
}

func mention(ctx context.Context, word string, r Resolver, result *Result) (string, error) {
	handle := NormalizeHandle(word[1:])
	if handle == "" {
		return html.EscapeString(word), nil
	}
	id, found, err := r.FindByHandle(ctx, handle)
	if err != nil {
		return "", fmt.Errorf("resolve mention %q: %w", handle, err)
	}
	if !found {
		return html.EscapeString(word), nil
	}
	result.Recipients = append(result.Recipients, id)
	return fmt.Sprintf(`<a href="/user/%d">%s</a>`, id, html.EscapeString(word)), nil
}

func hashtag(ctx context.Context, word string, r Resolver, result *Result) (string, error) {
	name := NormalizeTag(word[1:])
	if name == "" {
		return html.EscapeString(word), nil
	}
	id, err := r.UpsertTag(ctx, name)
	if err != nil {
		return "", fmt.Errorf("upsert tag %q: %w", name, err)
	}
	result.Tags = append(result.Tags, Tag{ID: id, Name: name})
	return html.EscapeString(word), nil
}
