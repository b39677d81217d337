package pdfcrypt

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfstruct"
)

// DecryptInPlace removes Standard security handler encryption from doc using
// password, which may be either the user or the owner password.  Every string
// and stream in the document is decrypted, object streams are unpacked, and
// the Encrypt dictionary is dropped.  On error the document may have been
// partly rewritten and should be discarded.
func DecryptInPlace(doc *pdfstruct.Document, password string) (err error) {
	var (
		encRef pdfstruct.Reference
		isRef  bool
		enc    pdfstruct.Dict
		h      *standardHandler
	)
	switch ev := doc.Trailer["Encrypt"].(type) {
	case nil:
		return nil
	case pdfstruct.Reference:
		encRef, isRef = ev, true
		if enc, err = doc.GetDict(ev); err != nil {
			return fmt.Errorf("reading Encrypt dictionary: %w", err)
		}
	case pdfstruct.Dict:
		enc = ev
	default:
		return fmt.Errorf("trailer /Encrypt is %T, not a Dict", ev)
	}
	if h, err = newStandardHandler(enc, doc.Trailer); err != nil {
		return err
	}
	if err = h.authenticate(password); err != nil {
		return err
	}
	slog.Debug("authenticated", "V", h.v, "R", h.r, "keybits", len(h.key)*8)
	for _, ref := range doc.Refs() {
		var obj pdfstruct.Object
		if isRef && ref == encRef {
			continue
		}
		if obj, err = doc.Get(ref); err != nil {
			return err
		}
		if obj, err = h.decryptObject(ref, obj); err != nil {
			return fmt.Errorf("decrypting object %s: %w", ref, err)
		}
		doc.UpdateObject(ref, obj)
	}
	delete(doc.Trailer, "Encrypt")
	if isRef {
		doc.DeleteObject(encRef)
	}
	if err = doc.ExpandObjectStreams(); err != nil {
		return err
	}
	return nil
}

// decryptObject returns a decrypted copy of obj, which is (or is contained in)
// the indirect object ref.
func (h *standardHandler) decryptObject(ref pdfstruct.Reference, obj pdfstruct.Object) (_ pdfstruct.Object, err error) {
	switch obj := obj.(type) {
	case string:
		var out []byte
		if out, err = h.decrypt(h.strF, ref.Number, ref.Generation, []byte(obj)); err != nil {
			return nil, err
		}
		return string(out), nil
	case []byte:
		return h.decrypt(h.strF, ref.Number, ref.Generation, obj)
	case pdfstruct.Array:
		var na = make(pdfstruct.Array, len(obj))
		for i, o := range obj {
			if na[i], err = h.decryptObject(ref, o); err != nil {
				return nil, err
			}
		}
		return na, nil
	case pdfstruct.Dict:
		var nd = make(pdfstruct.Dict, len(obj))
		for k, v := range obj {
			if nd[k], err = h.decryptObject(ref, v); err != nil {
				return nil, err
			}
		}
		return nd, nil
	case pdfstruct.Stream:
		return h.decryptStream(ref, obj)
	default:
		return obj, nil
	}
}

func (h *standardHandler) decryptStream(ref pdfstruct.Reference, s pdfstruct.Stream) (_ pdfstruct.Stream, err error) {
	var (
		out    pdfstruct.Stream
		dict   pdfstruct.Object
		method = h.stmF
	)
	if dict, err = h.decryptObject(ref, s.Dict); err != nil {
		return out, err
	}
	out.Dict, _ = dict.(pdfstruct.Dict)
	if out.Dict == nil {
		out.Dict = make(pdfstruct.Dict)
	}
	if s.Dict["Type"] == pdfstruct.Name("Metadata") && !h.encryptMetadata {
		method = methodIdentity
	}
	if m, found, err := h.streamCryptFilter(out.Dict); err != nil {
		return out, err
	} else if found {
		method = m
	}
	if out.Data, err = h.decrypt(method, ref.Number, ref.Generation, s.Data); err != nil {
		return out, err
	}
	return out, nil
}

// streamCryptFilter looks for a /Crypt entry at the head of the stream's
// filter list.  If there is one, it is removed from dict and the method it
// names is returned.
func (h *standardHandler) streamCryptFilter(dict pdfstruct.Dict) (m cryptMethod, found bool, err error) {
	var (
		name  pdfstruct.Object = pdfstruct.Name("Identity")
		parms pdfstruct.Object
		rest  pdfstruct.Array
		prest pdfstruct.Array
	)
	switch f := dict["Filter"].(type) {
	case pdfstruct.Name:
		if f != "Crypt" {
			return 0, false, nil
		}
		parms = dict["DecodeParms"]
	case pdfstruct.Array:
		if len(f) == 0 || f[0] != pdfstruct.Name("Crypt") {
			return 0, false, nil
		}
		rest = f[1:]
		if pa, ok := dict["DecodeParms"].(pdfstruct.Array); ok && len(pa) > 0 {
			parms, prest = pa[0], pa[1:]
		}
	default:
		return 0, false, nil
	}
	if pd, ok := parms.(pdfstruct.Dict); ok && pd["Name"] != nil {
		name = pd["Name"]
	}
	if h.filters == nil {
		return 0, false, errors.New("/Crypt stream filter used without crypt filters")
	}
	if m, err = h.namedMethod(name); err != nil {
		return 0, false, err
	}
	delete(dict, "Filter")
	delete(dict, "DecodeParms")
	if len(rest) != 0 {
		dict["Filter"] = rest
		if len(prest) != 0 {
			dict["DecodeParms"] = prest
		}
	}
	return m, true, nil
}
