package pdfcrypt

import (
	"bytes"
	"crypto/md5"
	"errors"
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfstruct"
)

// cryptMethod is the cipher applied by a crypt filter.
type cryptMethod int

const (
	methodIdentity cryptMethod = iota
	methodRC4
	methodAES
)

// standardHandler holds the parsed Encrypt dictionary of a document protected
// with the Standard security handler, and after authentication, the file key.
type standardHandler struct {
	v, r            int
	keyLen          int // bytes
	o, u, oe, ue    []byte
	p               int32
	id              []byte
	encryptMetadata bool
	stmF, strF      cryptMethod
	filters         map[pdfstruct.Name]cryptMethod
	key             []byte
}

// newStandardHandler parses an Encrypt dictionary.  The trailer supplies the
// file identifier.
func newStandardHandler(enc, trailer pdfstruct.Dict) (h *standardHandler, err error) {
	var ok bool

	if f, _ := enc["Filter"].(pdfstruct.Name); f != "Standard" {
		return nil, fmt.Errorf("unsupported security handler /%s", f)
	}
	h = &standardHandler{encryptMetadata: true}
	switch v := enc["V"].(type) {
	case nil:
		h.v = 0
	case int:
		h.v = v
	default:
		return nil, fmt.Errorf("/V is %T, not an integer", v)
	}
	if h.r, ok = enc["R"].(int); !ok {
		return nil, errors.New("missing or invalid /R")
	}
	switch h.v {
	case 0, 1:
		h.keyLen = 5
	case 2:
		h.keyLen = 5
	case 4:
		h.keyLen = 16
	case 5:
		h.keyLen = 32
	default:
		return nil, fmt.Errorf("unsupported encryption version /V %d", h.v)
	}
	if h.v == 2 || h.v == 4 {
		if length, ok := enc["Length"].(int); ok {
			if length%8 != 0 || length < 40 || length > 128 {
				return nil, fmt.Errorf("invalid key /Length %d", length)
			}
			h.keyLen = length / 8
		}
	}
	switch {
	case h.r >= 2 && h.r <= 4 && h.v < 5:
	case (h.r == 5 || h.r == 6) && h.v == 5:
	default:
		return nil, fmt.Errorf("unsupported revision /R %d for /V %d", h.r, h.v)
	}
	h.o, _ = stringBytes(enc["O"])
	h.u, _ = stringBytes(enc["U"])
	minLen := 32
	if h.r >= 5 {
		minLen = 48
		h.oe, _ = stringBytes(enc["OE"])
		h.ue, _ = stringBytes(enc["UE"])
		if len(h.oe) < 32 || len(h.ue) < 32 {
			return nil, errors.New("missing or short /OE or /UE")
		}
	}
	if len(h.o) < minLen || len(h.u) < minLen {
		return nil, errors.New("missing or short /O or /U")
	}
	if p, ok := enc["P"].(int); ok {
		h.p = int32(p)
	} else {
		return nil, errors.New("missing or invalid /P")
	}
	if em, ok := enc["EncryptMetadata"].(bool); ok {
		h.encryptMetadata = em
	}
	if ids, ok := trailer["ID"].(pdfstruct.Array); ok && len(ids) > 0 {
		h.id, _ = stringBytes(ids[0])
	}
	if h.v < 4 {
		h.stmF, h.strF = methodRC4, methodRC4
		return h, nil
	}
	if err = h.readCryptFilters(enc); err != nil {
		return nil, err
	}
	return h, nil
}

// readCryptFilters reads the /CF dictionary and the default stream and string
// filters used from version 4 on.
func (h *standardHandler) readCryptFilters(enc pdfstruct.Dict) (err error) {
	h.filters = map[pdfstruct.Name]cryptMethod{"Identity": methodIdentity}
	if cf, ok := enc["CF"].(pdfstruct.Dict); ok {
		for name, fv := range cf {
			fd, ok := fv.(pdfstruct.Dict)
			if !ok {
				return fmt.Errorf("crypt filter /%s is %T, not a Dict", name, fv)
			}
			switch cfm, _ := fd["CFM"].(pdfstruct.Name); cfm {
			case "", "None":
				h.filters[name] = methodIdentity
			case "V2":
				h.filters[name] = methodRC4
			case "AESV2", "AESV3":
				h.filters[name] = methodAES
			default:
				return fmt.Errorf("crypt filter /%s has unsupported method /%s", name, cfm)
			}
		}
	}
	if h.stmF, err = h.namedMethod(enc["StmF"]); err != nil {
		return err
	}
	if h.strF, err = h.namedMethod(enc["StrF"]); err != nil {
		return err
	}
	return nil
}

func (h *standardHandler) namedMethod(obj pdfstruct.Object) (cryptMethod, error) {
	switch name := obj.(type) {
	case nil:
		return methodIdentity, nil
	case pdfstruct.Name:
		if m, ok := h.filters[name]; ok {
			return m, nil
		}
		return methodIdentity, fmt.Errorf("crypt filter /%s is not defined", name)
	default:
		return methodIdentity, fmt.Errorf("crypt filter name is %T, not a Name", obj)
	}
}

// authenticate tries password first as the user password and then as the
// owner password.  On success the file key is set.
func (h *standardHandler) authenticate(password string) error {
	if h.r >= 5 {
		return h.authenticateAES256(password)
	}
	pwd, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(password))
	if err != nil {
		// Not representable in Latin-1; the raw bytes are the best
		// guess at what the writer used.
		pwd = []byte(password)
	}
	if key := h.computeKey(padPassword(pwd)); h.checkUserKey(key) {
		h.key = key
		return nil
	}
	if key := h.computeKey(h.recoverUserPassword(pwd)); h.checkUserKey(key) {
		h.key = key
		return nil
	}
	return ErrInvalidPassword
}

// computeKey derives the file key from a padded user password.
func (h *standardHandler) computeKey(padded []byte) []byte {
	d := md5.New()
	d.Write(padded)
	d.Write(h.o[:32])
	d.Write([]byte{byte(h.p), byte(h.p >> 8), byte(h.p >> 16), byte(h.p >> 24)})
	d.Write(h.id)
	if h.r >= 4 && !h.encryptMetadata {
		d.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	sum := d.Sum(nil)
	if h.r >= 3 {
		for i := 0; i < 50; i++ {
			s := md5.Sum(sum[:h.keyLen])
			sum = s[:]
		}
	}
	return sum[:h.keyLen]
}

// checkUserKey reports whether key reproduces the /U entry.
func (h *standardHandler) checkUserKey(key []byte) bool {
	if h.r == 2 {
		u, err := rc4Crypt(key, passwordPadding)
		return err == nil && bytes.Equal(u, h.u[:32])
	}
	d := md5.New()
	d.Write(passwordPadding)
	d.Write(h.id)
	u := d.Sum(nil)
	if u, err := xorRounds(key, u, false); err != nil || !bytes.Equal(u, h.u[:16]) {
		return false
	}
	return true
}

// recoverUserPassword decrypts /O with a key made from the owner password,
// which yields the padded user password.
func (h *standardHandler) recoverUserPassword(owner []byte) []byte {
	sum := md5.Sum(padPassword(owner))
	if h.r >= 3 {
		for i := 0; i < 50; i++ {
			sum = md5.Sum(sum[:])
		}
	}
	key := sum[:h.keyLen]
	if h.r == 2 {
		user, _ := rc4Crypt(key, h.o[:32])
		return user
	}
	user, _ := xorRounds(key, h.o[:32], true)
	return user
}

// xorRounds applies RC4 twenty times, each with the key XORed with the round
// number.  Rounds run 0 to 19, or 19 down to 0 when reverse is set.
func xorRounds(key, data []byte, reverse bool) (_ []byte, err error) {
	tmp := make([]byte, len(key))
	for n := 0; n < 20; n++ {
		i := n
		if reverse {
			i = 19 - n
		}
		for j := range key {
			tmp[j] = key[j] ^ byte(i)
		}
		if data, err = rc4Crypt(tmp, data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// authenticateAES256 handles revisions 5 and 6, where the password is UTF-8
// and the file key is stored encrypted under a key derived from it.
func (h *standardHandler) authenticateAES256(password string) error {
	pwd := []byte(password)
	if len(pwd) > 127 {
		pwd = pwd[:127]
	}
	var zeroIV [16]byte
	if hh, err := hardenedHash(pwd, h.u[32:40], nil, h.r); err == nil && bytes.Equal(hh, h.u[:32]) {
		ik, err := hardenedHash(pwd, h.u[40:48], nil, h.r)
		if err != nil {
			return err
		}
		if h.key, err = aesNoPad(ik, zeroIV[:], h.ue[:32], false); err != nil {
			return err
		}
		return nil
	}
	if hh, err := hardenedHash(pwd, h.o[32:40], h.u[:48], h.r); err == nil && bytes.Equal(hh, h.o[:32]) {
		ik, err := hardenedHash(pwd, h.o[40:48], h.u[:48], h.r)
		if err != nil {
			return err
		}
		if h.key, err = aesNoPad(ik, zeroIV[:], h.oe[:32], false); err != nil {
			return err
		}
		return nil
	}
	return ErrInvalidPassword
}

// decrypt decrypts one string or stream body of the object num/gen.
func (h *standardHandler) decrypt(m cryptMethod, num, gen int, data []byte) ([]byte, error) {
	switch m {
	case methodRC4:
		return rc4Crypt(objectKey(h.key, num, gen, h.r, false), data)
	case methodAES:
		return aesDecrypt(objectKey(h.key, num, gen, h.r, true), data)
	default:
		return data, nil
	}
}

// stringBytes returns the bytes of a literal or hex string.
func stringBytes(obj pdfstruct.Object) ([]byte, bool) {
	switch s := obj.(type) {
	case string:
		return []byte(s), true
	case []byte:
		return s, true
	default:
		return nil, false
	}
}
