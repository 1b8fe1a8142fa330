package query

import (
	"fmt"
	"strings"
)

// Field is a typed reference to a packet header field. Priority orders the
// pipeline layout (lowest first); Width is the field's size in bits and is
// carried through to the target for value encoding.
type Field struct {
	Header   string
	Field    string
	Priority int
	Width    int
}

// FieldKey is the identity of a field: equality is structural on
// (header, field) only.
type FieldKey struct {
	Header string
	Field  string
}

// Key returns the field's identity for use as a map key.
func (f Field) Key() FieldKey { return FieldKey{Header: f.Header, Field: f.Field} }

// Name returns the dotted "header.field" form.
func (f Field) Name() string { return f.Header + "." + f.Field }

// Equal reports structural equality on (header, field).
func (f Field) Equal(o Field) bool { return f.Key() == o.Key() }

// Compare orders fields for pipeline layout: by priority, then by name so
// that the order stays a strict total order when priorities collide.
func (f Field) Compare(o Field) int {
	if f.Priority != o.Priority {
		if f.Priority < o.Priority {
			return -1
		}
		return 1
	}
	if c := strings.Compare(f.Header, o.Header); c != 0 {
		return c
	}
	return strings.Compare(f.Field, o.Field)
}

func (f Field) String() string { return f.Name() }

// Assignment maps fields to concrete packet values, for evaluating a
// predicate against a hypothetical packet.
type Assignment map[FieldKey]Const

// Bind adds a field binding and returns the assignment for chaining.
func (a Assignment) Bind(f Field, c Const) Assignment {
	a[f.Key()] = c
	return a
}

// Lookup returns the value bound to f, or an error when the assignment has
// no binding for it.
func (a Assignment) Lookup(f Field) (Const, error) {
	c, ok := a[f.Key()]
	if !ok {
		return Const{}, fmt.Errorf("no binding for field %s", f.Name())
	}
	return c, nil
}
