package pdfcrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/md5"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/phpdave11/gofpdf"

	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfinfo"
	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfsample"
	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfstruct"
)

func strptr(s string) *string { return &s }

func TestDecryptPlaintextIsNoop(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	if err := pdfsample.Minimal(in); err != nil {
		t.Fatal(err)
	}
	doc, err := pdfstruct.Load(in)
	if err != nil {
		t.Fatal(err)
	}
	n := doc.Len()
	if err = Decrypt(doc, strptr("whatever")); err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if doc.Len() != n || IsEncrypted(doc) {
		t.Errorf("plaintext document changed: len %d -> %d", n, doc.Len())
	}
	out := filepath.Join(dir, "out.pdf")
	if err = DecryptFile(in, out, nil); err != nil {
		t.Fatalf("DecryptFile: %v", err)
	}
	if enc, err := IsEncryptedFile(out); err != nil || enc {
		t.Errorf("IsEncryptedFile(out) = %v, %v", enc, err)
	}
}

// makeProtected writes a gofpdf sample protected with user password "secret"
// and owner password "owner".
func makeProtected(t *testing.T, dir string) string {
	t.Helper()
	in := filepath.Join(dir, "locked.pdf")
	opts := pdfsample.Options{Title: "Secret Doc", Author: "Agent", Lines: []string{"Hello from gofpdf"}}
	if err := pdfsample.Protected(in, "secret", "owner", opts); err != nil {
		t.Fatalf("Protected: %v", err)
	}
	if enc, err := IsEncryptedFile(in); err != nil || !enc {
		t.Fatalf("IsEncryptedFile(in) = %v, %v", enc, err)
	}
	return in
}

// checkDecrypted verifies the metadata and page text of a decrypted sample.
func checkDecrypted(t *testing.T, path string) {
	t.Helper()
	doc, err := pdfstruct.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.IsEncrypted() {
		t.Fatal("output is still encrypted")
	}
	for key, want := range map[string]string{"Title": "Secret Doc", "Author": "Agent"} {
		if got, ok, err := pdfinfo.Value(doc, key); err != nil || !ok || got != want {
			t.Errorf("%s = %q, %v, %v; want %q", key, got, ok, err, want)
		}
	}
	var found bool
	for _, ref := range doc.Refs() {
		s, err := doc.GetStream(ref)
		if err != nil {
			continue
		}
		if err = s.Decompress(0); err != nil {
			t.Errorf("stream %s does not decompress: %v", ref, err)
			continue
		}
		if bytes.Contains(s.Data, []byte("Hello from gofpdf")) {
			found = true
		}
	}
	if !found {
		t.Error("page text not found in any decrypted stream")
	}
}

func TestDecryptUserPassword(t *testing.T) {
	dir := t.TempDir()
	in := makeProtected(t, dir)
	out := filepath.Join(dir, "out.pdf")
	if err := DecryptFile(in, out, strptr("secret")); err != nil {
		t.Fatalf("DecryptFile: %v", err)
	}
	checkDecrypted(t, out)
}

func TestDecryptOwnerPassword(t *testing.T) {
	dir := t.TempDir()
	in := makeProtected(t, dir)
	out := filepath.Join(dir, "out.pdf")
	if err := DecryptFile(in, out, strptr("owner")); err != nil {
		t.Fatalf("DecryptFile: %v", err)
	}
	checkDecrypted(t, out)
}

// gofpdf's own protection runs all strings of an object through one RC4
// keystream, so only the first string of each dictionary (the Producer in the
// Info dictionary) and the stream bodies come out readable.
func TestDecryptGofpdfProtection(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "gofpdf.pdf")
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetProtection(gofpdf.CnProtectPrint, "secret", "owner")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(20, 20, "Hello from gofpdf")
	if err := pdf.OutputFileAndClose(in); err != nil {
		t.Fatal(err)
	}
	for _, pw := range []string{"secret", "owner"} {
		doc, err := pdfstruct.Load(in)
		if err != nil {
			t.Fatal(err)
		}
		if err = Decrypt(doc, &pw); err != nil {
			t.Fatalf("Decrypt(%q): %v", pw, err)
		}
		info, _, err := pdfinfo.InfoDict(doc)
		if err != nil {
			t.Fatal(err)
		}
		producer, _ := stringBytes(info["Producer"])
		if !bytes.HasPrefix(producer, []byte("\xfe\xff\x00F\x00P\x00D\x00F")) {
			t.Errorf("Producer = %q", producer)
		}
		var found bool
		for _, ref := range doc.Refs() {
			if s, err := doc.GetStream(ref); err == nil && s.Decompress(0) == nil && bytes.Contains(s.Data, []byte("Hello from gofpdf")) {
				found = true
			}
		}
		if !found {
			t.Errorf("page text not found after decrypting with %q", pw)
		}
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	dir := t.TempDir()
	in := makeProtected(t, dir)
	for _, pw := range []*string{strptr("wrong"), nil} {
		out := filepath.Join(dir, "out.pdf")
		err := DecryptFile(in, out, pw)
		var de *DecryptError
		if !errors.As(err, &de) || !errors.Is(err, ErrInvalidPassword) {
			t.Errorf("DecryptFile = %v, want DecryptError(ErrInvalidPassword)", err)
		}
		if _, err := os.Stat(out); !os.IsNotExist(err) {
			t.Errorf("output exists after failed decrypt: %v", err)
		}
	}
}

func TestDecryptEmptyUserPassword(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "open.pdf")
	if err := pdfsample.Protected(in, "", "owner", pdfsample.Options{Title: "Open"}); err != nil {
		t.Fatal(err)
	}
	doc, err := pdfstruct.Load(in)
	if err != nil {
		t.Fatal(err)
	}
	if err = Decrypt(doc, nil); err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if IsEncrypted(doc) {
		t.Error("document still encrypted")
	}
	if v, _, _ := pdfinfo.Value(doc, "Title"); v != "Open" {
		t.Errorf("Title = %q", v)
	}
}

func TestEncryptAlwaysRejected(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	if err := pdfsample.Minimal(in); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.pdf")
	for _, owner := range []*string{nil, strptr("own")} {
		if err := Encrypt(in, out, "user", owner); !errors.Is(err, ErrEncryptUnsupported) {
			t.Errorf("Encrypt = %v, want ErrEncryptUnsupported", err)
		}
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("Encrypt created output: %v", err)
	}
}

// The tests below encrypt documents by hand, one security handler revision
// at a time, and check that decryption recovers the plain values.

func aesEncrypt(t *testing.T, key, plain []byte) []byte {
	t.Helper()
	pad := aes.BlockSize - len(plain)%aes.BlockSize
	padded := append(append([]byte(nil), plain...), bytes.Repeat([]byte{byte(pad)}, pad)...)
	iv := make([]byte, aes.BlockSize)
	rand.Read(iv)
	body, err := aesNoPad(key, iv, padded, true)
	if err != nil {
		t.Fatal(err)
	}
	return append(iv, body...)
}

type fixture struct {
	name    string
	v, r    int
	keyLen  int
	method  cryptMethod
	cfm     pdfstruct.Name
	metaEnc bool
}

// buildEncrypted returns a document encrypted with the fixture's parameters
// for user password "user" and owner password "owner", and the plain content
// it should decrypt to.
func buildEncrypted(t *testing.T, fx fixture) *pdfstruct.Document {
	t.Helper()
	var (
		doc     = pdfstruct.New("1.7")
		id      = []byte("0123456789ABCDEF")
		fileKey []byte
		enc     = pdfstruct.Dict{"Filter": pdfstruct.Name("Standard"), "V": fx.v, "R": fx.r, "P": -4}
		user    = []byte("user")
		owner   = []byte("owner")
	)
	if fx.r >= 5 {
		fileKey = make([]byte, 32)
		rand.Read(fileKey)
		var zero [16]byte
		salts := make([]byte, 32)
		rand.Read(salts)
		uh, _ := hardenedHash(user, salts[0:8], nil, fx.r)
		u := append(append(uh, salts[0:8]...), salts[8:16]...)
		uk, _ := hardenedHash(user, salts[8:16], nil, fx.r)
		ue, _ := aesNoPad(uk, zero[:], fileKey, true)
		oh, _ := hardenedHash(owner, salts[16:24], u, fx.r)
		o := append(append(oh, salts[16:24]...), salts[24:32]...)
		ok, _ := hardenedHash(owner, salts[24:32], u, fx.r)
		oe, _ := aesNoPad(ok, zero[:], fileKey, true)
		enc["U"], enc["O"], enc["UE"], enc["OE"] = u, o, ue, oe
		enc["Length"] = 256
	} else if fx.r == 2 {
		h := &standardHandler{v: fx.v, r: fx.r, keyLen: fx.keyLen, p: -4, id: id, encryptMetadata: true}
		sum := md5.Sum(padPassword(owner))
		h.o, _ = rc4Crypt(sum[:fx.keyLen], padPassword(user))
		fileKey = h.computeKey(padPassword(user))
		u, _ := rc4Crypt(fileKey, passwordPadding)
		enc["O"], enc["U"] = h.o, u
		enc["Length"] = fx.keyLen * 8
	} else {
		h := &standardHandler{v: fx.v, r: fx.r, keyLen: fx.keyLen, p: -4, id: id, encryptMetadata: fx.metaEnc}
		sum := md5.Sum(padPassword(owner))
		for i := 0; i < 50; i++ {
			sum = md5.Sum(sum[:])
		}
		h.o, _ = xorRounds(sum[:fx.keyLen], padPassword(user), false)
		fileKey = h.computeKey(padPassword(user))
		d := md5.New()
		d.Write(passwordPadding)
		d.Write(id)
		u, _ := xorRounds(fileKey, d.Sum(nil), false)
		enc["O"], enc["U"] = h.o, append(u, make([]byte, 16)...)
		enc["Length"] = fx.keyLen * 8
	}
	if fx.v >= 4 {
		enc["CF"] = pdfstruct.Dict{"StdCF": pdfstruct.Dict{"CFM": fx.cfm, "AuthEvent": pdfstruct.Name("DocOpen")}}
		enc["StmF"] = pdfstruct.Name("StdCF")
		enc["StrF"] = pdfstruct.Name("StdCF")
	}
	if !fx.metaEnc {
		enc["EncryptMetadata"] = false
	}
	seal := func(ref pdfstruct.Reference, plain string) []byte {
		key := objectKey(fileKey, ref.Number, ref.Generation, fx.r, fx.method == methodAES)
		if fx.method == methodAES {
			return aesEncrypt(t, key, []byte(plain))
		}
		out, _ := rc4Crypt(key, []byte(plain))
		return out
	}
	info := doc.NewObjectID()
	doc.UpdateObject(info, pdfstruct.Dict{
		"Title":    string(seal(info, "Hand Sealed")),
		"Keywords": pdfstruct.Array{seal(info, "hex one")},
	})
	content := doc.NewObjectID()
	doc.UpdateObject(content, pdfstruct.Stream{Dict: pdfstruct.Dict{}, Data: seal(content, "BT (sealed text) Tj ET")})
	meta := doc.NewObjectID()
	metaData := []byte("<x:xmpmeta/>")
	if fx.metaEnc {
		metaData = seal(meta, "<x:xmpmeta/>")
	}
	doc.UpdateObject(meta, pdfstruct.Stream{Dict: pdfstruct.Dict{"Type": pdfstruct.Name("Metadata"), "Subtype": pdfstruct.Name("XML")}, Data: metaData})
	pages := doc.CreateObject(pdfstruct.Dict{"Type": pdfstruct.Name("Pages"), "Kids": pdfstruct.Array{}, "Count": 0})
	doc.Trailer["Root"] = doc.CreateObject(pdfstruct.Dict{"Type": pdfstruct.Name("Catalog"), "Pages": pages, "Metadata": meta})
	doc.Trailer["Info"] = info
	doc.Trailer["Encrypt"] = doc.CreateObject(enc)
	doc.Trailer["ID"] = pdfstruct.Array{id, id}
	return doc
}

func TestDecryptHandBuilt(t *testing.T) {
	fixtures := []fixture{
		{name: "RC4 40 R2", v: 1, r: 2, keyLen: 5, method: methodRC4, metaEnc: true},
		{name: "RC4 128 R3", v: 2, r: 3, keyLen: 16, method: methodRC4, metaEnc: true},
		{name: "AESV2 R4", v: 4, r: 4, keyLen: 16, method: methodAES, cfm: "AESV2", metaEnc: true},
		{name: "AESV2 R4 clear metadata", v: 4, r: 4, keyLen: 16, method: methodAES, cfm: "AESV2", metaEnc: false},
		{name: "RC4 V4 R4", v: 4, r: 4, keyLen: 16, method: methodRC4, cfm: "V2", metaEnc: true},
		{name: "AESV3 R6", v: 5, r: 6, keyLen: 32, method: methodAES, cfm: "AESV3", metaEnc: true},
		{name: "AESV3 R5", v: 5, r: 5, keyLen: 32, method: methodAES, cfm: "AESV3", metaEnc: true},
	}
	for _, fx := range fixtures {
		t.Run(fx.name, func(t *testing.T) {
			for _, pw := range []string{"user", "owner"} {
				// Round-trip through a file so the parser sees the
				// binary strings.
				path := filepath.Join(t.TempDir(), "enc.pdf")
				if err := buildEncrypted(t, fx).Save(path); err != nil {
					t.Fatal(err)
				}
				doc, err := pdfstruct.Load(path)
				if err != nil {
					t.Fatal(err)
				}
				encRef := doc.Trailer["Encrypt"].(pdfstruct.Reference)
				if err = Decrypt(doc, &pw); err != nil {
					t.Fatalf("Decrypt(%q): %v", pw, err)
				}
				if doc.IsEncrypted() {
					t.Fatal("still encrypted")
				}
				if _, err = doc.Get(encRef); !errors.Is(err, pdfstruct.ErrNotFound) {
					t.Errorf("Encrypt dictionary still present: %v", err)
				}
				if v, _, err := pdfinfo.Value(doc, "Title"); err != nil || v != "Hand Sealed" {
					t.Errorf("Title = %q, %v", v, err)
				}
				info, _, _ := pdfinfo.InfoDict(doc)
				if kw := info["Keywords"].(pdfstruct.Array); string(kw[0].([]byte)) != "hex one" {
					t.Errorf("Keywords = %#v", kw)
				}
				catalog, _ := doc.Catalog()
				meta, _ := doc.GetStream(catalog["Metadata"].(pdfstruct.Reference))
				if string(meta.Data) != "<x:xmpmeta/>" {
					t.Errorf("metadata = %q", meta.Data)
				}
				for _, ref := range doc.Refs() {
					if s, err := doc.GetStream(ref); err == nil && s.Dict["Type"] == nil {
						if string(s.Data) != "BT (sealed text) Tj ET" {
							t.Errorf("content = %q", s.Data)
						}
					}
				}
			}
			wrong := "nobody"
			if err := Decrypt(buildEncrypted(t, fx), &wrong); !errors.Is(err, ErrInvalidPassword) {
				t.Errorf("wrong password: %v", err)
			}
		})
	}
}

func TestDecryptRejectsUnknownHandler(t *testing.T) {
	doc := pdfstruct.New("")
	doc.Trailer["Encrypt"] = doc.CreateObject(pdfstruct.Dict{"Filter": pdfstruct.Name("Adobe.PubSec"), "V": 4, "R": 4})
	err := Decrypt(doc, nil)
	var de *DecryptError
	if !errors.As(err, &de) || errors.Is(err, ErrInvalidPassword) {
		t.Errorf("Decrypt = %v, want a non-password DecryptError", err)
	}
	if !doc.IsEncrypted() {
		t.Error("failed decrypt cleared the Encrypt entry")
	}
}
