// Package identity builds and splits the graph-wide node identifiers.
//
// An identifier is "scope:kind:key". Scope is the owning codebase, kind is the
// entity kind tag and key is unique within (scope, kind). Scope and kind are
// escaped so they never contain the delimiter; the key is kept verbatim and may
// contain it (file paths, relationship endpoint pairs).
package identity

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates the three identifier segments.
const Delimiter = ":"

// ErrMalformed is returned when an identifier has fewer than two segments.
var ErrMalformed = errors.New("malformed identifier")

var (
	escaper   = strings.NewReplacer("%", "%25", Delimiter, "%3A")
	unescaper = strings.NewReplacer("%3A", Delimiter, "%25", "%")
)

// ID is a decomposed identifier. Scope and Kind hold the sanitized segments.
type ID struct {
	Scope string
	Kind  string
	Key   string
}

// String recomposes the identifier without sanitizing again.
func (id ID) String() string {
	return id.Scope + Delimiter + id.Kind + Delimiter + id.Key
}

// Sanitize escapes a scope or kind segment. The mapping is injective, so two
// different raw values never produce the same segment.
func Sanitize(segment string) string {
	return escaper.Replace(segment)
}

// Unsanitize reverses Sanitize.
func Unsanitize(segment string) string {
	return unescaper.Replace(segment)
}

// Compose builds the identifier for key inside (scope, kind).
func Compose(scope, kind, key string) string {
	return ID{Scope: Sanitize(scope), Kind: Sanitize(kind), Key: key}.String()
}

// Decompose splits an identifier produced by Compose. Everything after the
// second delimiter belongs to the key. A two-segment identifier has an empty key.
func Decompose(id string) (ID, error) {
	parts := strings.SplitN(id, Delimiter, 3)
	if len(parts) < 2 {
		return ID{}, fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	out := ID{Scope: parts[0], Kind: parts[1]}
	if len(parts) == 3 {
		out.Key = parts[2]
	}
	return out, nil
}

// OwnedBy reports whether id belongs to the given codebase scope.
func OwnedBy(id, scope string) bool {
	d, err := Decompose(id)
	if err != nil {
		return false
	}
	return d.Scope == Sanitize(scope)
}

// Scope returns the sanitized scope segment of id.
func Scope(id string) (string, error) {
	d, err := Decompose(id)
	if err != nil {
		return "", err
	}
	return d.Scope, nil
}

// Kind returns the sanitized kind segment of id.
func Kind(id string) (string, error) {
	d, err := Decompose(id)
	if err != nil {
		return "", err
	}
	return d.Kind, nil
}

// Key returns the in-scope key of id.
func Key(id string) (string, error) {
	d, err := Decompose(id)
	if err != nil {
		return "", err
	}
	return d.Key, nil
}

// Codebase returns the raw (unescaped) codebase id that owns id.
func Codebase(id string) (string, error) {
	scope, err := Scope(id)
	if err != nil {
		return "", err
	}
	return Unsanitize(scope), nil
}
