package pdfsample

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/rc4"
	"encoding/binary"
	"fmt"

	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfstruct"
)

// permPrint grants printing and nothing else.  Bits 7 and 8 are reserved and
// must be set; the top bits of the 32-bit value are set too.
const permPrint = -60

var passwordPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

func padPassword(pwd string) []byte {
	padded := make([]byte, 32)
	n := copy(padded, pwd)
	copy(padded[n:], passwordPadding)
	return padded
}

func rc4Crypt(key, data []byte) []byte {
	c, err := rc4.NewCipher(key)
	if err != nil {
		// Keys here are 5 or 10 bytes, always in range.
		panic(err)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

// seal encrypts doc in place with the standard security handler, revision 2
// (40-bit RC4).  Every string and stream gets its own per-object key.
func seal(doc *pdfstruct.Document, userPassword, ownerPassword string) error {
	if ownerPassword == "" {
		var buf [16]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return fmt.Errorf("choosing owner password: %w", err)
		}
		ownerPassword = string(buf[:])
	}
	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		return fmt.Errorf("choosing file ID: %w", err)
	}

	ownerKey := md5.Sum(padPassword(ownerPassword))
	o := rc4Crypt(ownerKey[:5], padPassword(userPassword))

	var p [4]byte
	perm := int32(permPrint)
	binary.LittleEndian.PutUint32(p[:], uint32(perm))
	d := md5.New()
	d.Write(padPassword(userPassword))
	d.Write(o)
	d.Write(p[:])
	d.Write(id)
	fileKey := d.Sum(nil)[:5]
	u := rc4Crypt(fileKey, passwordPadding)

	for _, ref := range doc.Refs() {
		obj, err := doc.Get(ref)
		if err != nil {
			return err
		}
		if s, ok := obj.(pdfstruct.Stream); ok && s.Dict["Type"] == pdfstruct.Name("XRef") {
			continue
		}
		doc.UpdateObject(ref, encryptObject(obj, objectKey(fileKey, ref)))
	}
	doc.Trailer["Encrypt"] = doc.CreateObject(pdfstruct.Dict{
		"Filter": pdfstruct.Name("Standard"),
		"V":      1,
		"R":      2,
		"Length": 40,
		"O":      o,
		"U":      u,
		"P":      permPrint,
	})
	doc.Trailer["ID"] = pdfstruct.Array{id, id}
	return nil
}

// objectKey derives the RC4 key for one indirect object from the file key.
func objectKey(fileKey []byte, ref pdfstruct.Reference) []byte {
	d := md5.New()
	d.Write(fileKey)
	d.Write([]byte{byte(ref.Number), byte(ref.Number >> 8), byte(ref.Number >> 16)})
	d.Write([]byte{byte(ref.Generation), byte(ref.Generation >> 8)})
	return d.Sum(nil)[:min(16, len(fileKey)+5)]
}

// encryptObject returns a copy of obj with every string and stream body
// encrypted under key.  Each string starts a fresh keystream.
func encryptObject(obj pdfstruct.Object, key []byte) pdfstruct.Object {
	switch obj := obj.(type) {
	case string:
		return rc4Crypt(key, []byte(obj))
	case []byte:
		return rc4Crypt(key, obj)
	case pdfstruct.Array:
		out := make(pdfstruct.Array, len(obj))
		for i, v := range obj {
			out[i] = encryptObject(v, key)
		}
		return out
	case pdfstruct.Dict:
		out := make(pdfstruct.Dict, len(obj))
		for k, v := range obj {
			out[k] = encryptObject(v, key)
		}
		return out
	case pdfstruct.Stream:
		return pdfstruct.Stream{
			Dict: encryptObject(obj.Dict, key).(pdfstruct.Dict),
			Data: rc4Crypt(key, obj.Data),
		}
	default:
		return obj
	}
}
