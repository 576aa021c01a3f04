package core

import (
	"fmt"
	"strings"
)

// Entry maps a database name to the script that provisions it.
type Entry struct {
	Name       string
	ScriptPath string
}

// Registry is an immutable, insertion-ordered set of entries with unique
// names. The zero value is an empty registry.
type Registry struct {
	entries []Entry
}

// NewRegistry builds a Registry from entries in order. A repeated name keeps
// the position of its first occurrence and takes the later script path.
// Entries with an empty name or path are rejected with ErrMalformedEntry.
func NewRegistry(entries ...Entry) (Registry, error) {
	var r Registry
	for _, e := range entries {
		if e.Name == "" || e.ScriptPath == "" {
			return Registry{}, fmt.Errorf("entry %q@%q: %w", e.Name, e.ScriptPath, ErrMalformedEntry)
		}
		r.entries = put(r.entries, e)
	}
	return r, nil
}

// put inserts e, or replaces the path of an existing entry with the same
// name in place.
func put(entries []Entry, e Entry) []Entry {
	for i := range entries {
		if entries[i].Name == e.Name {
			entries[i].ScriptPath = e.ScriptPath
			return entries
		}
	}
	return append(entries, e)
}

// ParseRegistry parses a comma-separated list of name@scriptPath pairs.
// Pairs are trimmed. A blank last pair, such as from a trailing comma, is
// ignored; any other blank pair is malformed. A pair without exactly one "@"
// or with an empty side is excluded and reported as an error wrapping
// ErrMalformedEntry; the rest are kept.
func ParseRegistry(s string) (Registry, []error) {
	var (
		r    Registry
		errs []error
	)
	pairs := strings.Split(s, ",")
	for i, raw := range pairs {
		pair := strings.TrimSpace(raw)
		if pair == "" && i == len(pairs)-1 {
			continue
		}
		tokens := strings.Split(pair, "@")
		if len(tokens) != 2 || tokens[0] == "" || tokens[1] == "" {
			errs = append(errs, fmt.Errorf("entry %q: %w", pair, ErrMalformedEntry))
			continue
		}
		r.entries = put(r.entries, Entry{Name: tokens[0], ScriptPath: tokens[1]})
	}
	return r, errs
}

// Entries returns a copy of the entries in insertion order.
func (r Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Len returns the number of entries.
func (r Registry) Len() int {
	return len(r.entries)
}

// Lookup returns the script path registered for name.
func (r Registry) Lookup(name string) (string, bool) {
	for _, e := range r.entries {
		if e.Name == name {
			return e.ScriptPath, true
		}
	}
	return "", false
}
