package docstore

import (
	"fmt"
	"strings"
)

// Path is a slash separated path. Document paths have an even number of
// segments ("users/abc"), collection paths an odd number ("users").
type Path string

// Doc builds a path from segments, e.g. Doc("users", uid).
func Doc(segments ...string) Path {
	return Path(strings.Join(segments, "/"))
}

// Segments splits the path.
func (p Path) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), "/")
}

// ID returns the last segment.
func (p Path) ID() string {
	s := string(p)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Parent returns the path without its last segment. For a document that is
// the collection containing it.
func (p Path) Parent() Path {
	s := string(p)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return Path(s[:i])
	}
	return ""
}

// Child appends segments.
func (p Path) Child(segments ...string) Path {
	if p == "" {
		return Doc(segments...)
	}
	return Path(string(p) + "/" + strings.Join(segments, "/"))
}

// IsDocument reports whether p names a document.
func (p Path) IsDocument() bool {
	n := len(p.Segments())
	return n > 0 && n%2 == 0
}

// IsCollection reports whether p names a collection.
func (p Path) IsCollection() bool {
	return len(p.Segments())%2 == 1
}

// Validate checks that every segment is usable as a document or collection id.
func (p Path) Validate() error {
	segs := p.Segments()
	if len(segs) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for _, s := range segs {
		if s == "" || s == "." || s == ".." {
			return fmt.Errorf("%w: bad segment in %q", ErrInvalidPath, string(p))
		}
		if strings.HasPrefix(s, "__") && strings.HasSuffix(s, "__") {
			return fmt.Errorf("%w: reserved id %q", ErrInvalidPath, s)
		}
	}
	return nil
}

// ValidateDocument is Validate plus the even segment count check.
func (p Path) ValidateDocument() error {
	if err := p.Validate(); err != nil {
		return err
	}
	if !p.IsDocument() {
		return fmt.Errorf("%w: %q is not a document path", ErrInvalidPath, string(p))
	}
	return nil
}

// ValidateCollection is Validate plus the odd segment count check.
func (p Path) ValidateCollection() error {
	if err := p.Validate(); err != nil {
		return err
	}
	if !p.IsCollection() {
		return fmt.Errorf("%w: %q is not a collection path", ErrInvalidPath, string(p))
	}
	return nil
}

// ValidateID checks a single document id taken from user input.
func ValidateID(id string) error {
	if strings.Contains(id, "/") {
		return fmt.Errorf("%w: id %q contains a slash", ErrInvalidPath, id)
	}
	return Path(id).Validate()
}
