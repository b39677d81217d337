// Package pdfinfo reads and writes the document information dictionary (the
// trailer's /Info entry) of a pdfstruct.Document.
package pdfinfo

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfstruct"
)

// ErrInfoType is returned when the trailer's /Info entry, or the object it
// refers to, is not a dictionary.
var ErrInfoType = errors.New("/Info is not a dictionary")

// debugDump formats composite values for display.  The output is meant for
// people and is not stable across versions.
var debugDump = spew.ConfigState{Indent: " ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}

// InfoDict returns the document information dictionary.  ok is false if the
// trailer has no /Info entry.  The result is always a copy; changes reach the
// document only through SetValues.
func InfoDict(doc *pdfstruct.Document) (info pdfstruct.Dict, ok bool, err error) {
	switch iv := doc.Trailer["Info"].(type) {
	case nil:
		return nil, false, nil
	case pdfstruct.Reference:
		var obj pdfstruct.Object
		if obj, err = doc.Get(iv); err != nil {
			return nil, false, err
		}
		if info, ok = obj.(pdfstruct.Dict); !ok {
			return nil, false, fmt.Errorf("%w: %s is %T", ErrInfoType, iv, obj)
		}
		return info.Clone(), true, nil
	case pdfstruct.Dict:
		return iv.Clone(), true, nil
	default:
		return nil, false, fmt.Errorf("%w: trailer entry is %T", ErrInfoType, iv)
	}
}

// Value returns the display string for key in the document information
// dictionary.  ok is false if there is no information dictionary or the key
// is not in it.
func Value(doc *pdfstruct.Document, key string) (value string, ok bool, err error) {
	var (
		info pdfstruct.Dict
		obj  pdfstruct.Object
	)
	if info, ok, err = InfoDict(doc); err != nil || !ok {
		return "", false, err
	}
	if obj, ok = info[pdfstruct.Name(key)]; !ok {
		return "", false, nil
	}
	if value, err = Stringify(doc, obj); err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Stringify returns the display form of obj.  A reference is followed once;
// whatever it names is formatted as-is, even if that is another reference.
// Strings and names are decoded as UTF-8 with invalid sequences replaced by
// U+FFFD.  Anything else gets a debug dump.  Only a dangling reference is an
// error.
func Stringify(doc *pdfstruct.Document, obj pdfstruct.Object) (_ string, err error) {
	if obj, err = doc.Resolve(obj); err != nil {
		return "", err
	}
	switch obj := obj.(type) {
	case nil:
		return "null", nil
	case bool:
		return strconv.FormatBool(obj), nil
	case int:
		return strconv.Itoa(obj), nil
	case float64:
		return strconv.FormatFloat(obj, 'f', -1, 64), nil
	case string:
		return strings.ToValidUTF8(obj, "�"), nil
	case []byte:
		return strings.ToValidUTF8(string(obj), "�"), nil
	case pdfstruct.Name:
		return strings.ToValidUTF8(string(obj), "�"), nil
	default:
		return strings.TrimSpace(debugDump.Sdump(obj)), nil
	}
}

// Keys returns the keys of the document information dictionary in sorted
// order.
func Keys(doc *pdfstruct.Document) (keys []string, err error) {
	var info pdfstruct.Dict
	var ok bool

	if info, ok, err = InfoDict(doc); err != nil || !ok {
		return nil, err
	}
	for k := range info {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys, nil
}
