// Package pdfstruct provides methods for reading, updating, and writing the
// basic structure of a PDF.  It doesn't understand the semantics of the PDF at
// all; it just knows how to load every indirect object into a table keyed by
// object number and generation, let the caller get, replace, add, and remove
// objects, and write the whole table back out as a new file.
package pdfstruct

import (
	"fmt"
	"sort"
)

// An Object is an object as defined by the PDF specification.  While an Object
// is defined as "any", it will in fact be one of the following:
//   - nil (a null object)
//   - bool
//   - int
//   - float64
//   - string (a literal string)
//   - []byte (a hex string)
//   - Name
//   - Array
//   - Dict
//   - Stream
//   - Reference
type Object any

// A Name is a PDF/Postscript name, without the leading slash.
type Name string

// An Array is an array of objects.
type Array []Object

// A Dict is a map from Name to Object.
type Dict map[Name]Object

// Clone returns a shallow copy of the dict.  Values are shared with the
// original; only the key set is independent.
func (d Dict) Clone() Dict {
	if d == nil {
		return nil
	}
	var c = make(Dict, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

// A Stream is a Dict followed by a block of arbitrary data.  Stream data is
// kept as stored in the file (still encoded per its /Filter); call Decompress
// on a copy to get at the decoded bytes.
type Stream struct {
	Dict Dict
	Data []byte
}

// A Reference is an indirect reference to an Object.  It is also the key
// under which the object is stored in a Document.
type Reference struct {
	Number     int
	Generation int
}

func (r Reference) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

// A Document is an in-memory PDF: a table of indirect objects plus the trailer
// dictionary that points into it.  References inside objects are plain
// Reference values resolved through the table, so cyclic graphs (such as page
// tree parent links) need no special handling.
type Document struct {
	// Version is the version from the file header, e.g. "1.7".
	Version string
	// Trailer is the trailer dictionary.  For files with multiple
	// cross-reference sections, it is the merge of all of them with the
	// latest section winning.  Bookkeeping keys (Prev, XRefStm) are not
	// included.
	Trailer Dict

	objects map[Reference]Object
	next    int
	pending []objStmEntry
}

// New returns an empty document with the specified header version.
func New(version string) *Document {
	if version == "" {
		version = "1.7"
	}
	return &Document{
		Version: version,
		Trailer: make(Dict),
		objects: make(map[Reference]Object),
		next:    1,
	}
}

// NewObjectID allocates a new object reference.  Allocated numbers are never
// handed out twice by the same Document, even if the object stored under them
// is later deleted.
func (d *Document) NewObjectID() (ref Reference) {
	ref.Number = d.next
	d.next++
	return ref
}

// UpdateObject registers new content for the object with the specified
// reference, replacing whatever was stored there.  The new content will be
// written if Save is called.
func (d *Document) UpdateObject(ref Reference, obj Object) {
	if ref.Number >= d.next {
		d.next = ref.Number + 1
	}
	d.objects[ref] = obj
}

// CreateObject creates a new object with the specified content, and returns a
// reference to it.
func (d *Document) CreateObject(obj Object) (ref Reference) {
	ref = d.NewObjectID()
	d.objects[ref] = obj
	return ref
}

// DeleteObject removes the object with the specified reference.  Its number
// is not reused.
func (d *Document) DeleteObject(ref Reference) {
	delete(d.objects, ref)
}

// Refs returns the references of all objects in the document, in ascending
// order.
func (d *Document) Refs() []Reference {
	var refs = make([]Reference, 0, len(d.objects))
	for ref := range d.objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Number != refs[j].Number {
			return refs[i].Number < refs[j].Number
		}
		return refs[i].Generation < refs[j].Generation
	})
	return refs
}

// Len returns the number of objects in the document.
func (d *Document) Len() int {
	return len(d.objects)
}

// IsEncrypted returns whether the trailer carries an /Encrypt entry.  It
// becomes false once the document has been decrypted.
func (d *Document) IsEncrypted() bool {
	return d.Trailer["Encrypt"] != nil
}

// Catalog returns the document catalog (the /Root dictionary).
func (d *Document) Catalog() (catalog Dict, err error) {
	switch root := d.Trailer["Root"].(type) {
	case Reference:
		if catalog, err = d.GetDict(root); err != nil {
			return nil, fmt.Errorf("reading document catalog: %w", err)
		}
		return catalog, nil
	case Dict:
		return root, nil
	default:
		return nil, fmt.Errorf("document Root is %T, not Reference", root)
	}
}
