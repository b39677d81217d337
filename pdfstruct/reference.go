package pdfstruct

import (
	"fmt"
)

// GetDict gets the dict object specified by the reference.
func (d *Document) GetDict(r Reference) (dict Dict, err error) {
	var obj Object

	if obj, err = d.Get(r); err != nil {
		return nil, err
	}
	switch obj := obj.(type) {
	case Dict:
		return obj, nil
	default:
		return nil, fmt.Errorf("object (#%d,%d) is %T, not a Dict", r.Number, r.Generation, obj)
	}
}

// GetStream gets the stream object specified by the reference.
func (d *Document) GetStream(r Reference) (stream Stream, err error) {
	var obj Object

	if obj, err = d.Get(r); err != nil {
		return Stream{}, err
	}
	switch obj := obj.(type) {
	case Stream:
		return obj, nil
	default:
		return Stream{}, fmt.Errorf("object (#%d,%d) is %T, not a Stream", r.Number, r.Generation, obj)
	}
}

// Get returns the object specified by the reference.  A reference that names
// no object yields a *ResolveError wrapping ErrNotFound.
func (d *Document) Get(r Reference) (obj Object, err error) {
	var ok bool

	if obj, ok = d.objects[r]; !ok {
		return nil, &ResolveError{Ref: r, Err: ErrNotFound}
	}
	return obj, nil
}

// Resolve returns obj itself unless it is a Reference, in which case it
// returns the object the reference names.  Only one level of indirection is
// followed: if the named object is itself a Reference, that Reference is
// returned.
func (d *Document) Resolve(obj Object) (Object, error) {
	if ref, ok := obj.(Reference); ok {
		return d.Get(ref)
	}
	return obj, nil
}
