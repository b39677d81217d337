package pdfinfo

import (
	"fmt"
	"log/slog"

	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfstruct"
)

// EnsureInfoObject makes the trailer's /Info entry an indirect reference and
// returns it.  An existing reference is returned unchanged without looking at
// what it names.  A direct dictionary is moved into a new indirect object.
// Anything else, including no entry at all, is replaced by a new empty
// dictionary.
func EnsureInfoObject(doc *pdfstruct.Document) (ref pdfstruct.Reference, err error) {
	switch iv := doc.Trailer["Info"].(type) {
	case pdfstruct.Reference:
		return iv, nil
	case pdfstruct.Dict:
		ref = doc.CreateObject(iv)
	case nil:
		ref = doc.CreateObject(make(pdfstruct.Dict))
	default:
		slog.Warn("replacing malformed /Info entry", "type", fmt.Sprintf("%T", iv))
		ref = doc.CreateObject(make(pdfstruct.Dict))
	}
	doc.Trailer["Info"] = ref
	return ref, nil
}

// SetValue sets key to value, as a literal string, in the document
// information dictionary, creating the dictionary if needed.
func SetValue(doc *pdfstruct.Document, key, value string) error {
	return SetValues(doc, map[string]string{key: value})
}

// SetValues sets several keys in the document information dictionary at once.
// The stored dictionary is replaced by an updated copy.
func SetValues(doc *pdfstruct.Document, values map[string]string) (err error) {
	var (
		ref  pdfstruct.Reference
		obj  pdfstruct.Object
		info pdfstruct.Dict
		ok   bool
	)
	if ref, err = EnsureInfoObject(doc); err != nil {
		return err
	}
	if obj, err = doc.Get(ref); err != nil {
		return err
	}
	if info, ok = obj.(pdfstruct.Dict); !ok {
		return fmt.Errorf("%w: %s is %T", ErrInfoType, ref, obj)
	}
	info = info.Clone()
	for k, v := range values {
		info[pdfstruct.Name(k)] = v
	}
	doc.UpdateObject(ref, info)
	return nil
}
