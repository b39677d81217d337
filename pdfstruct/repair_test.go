package pdfstruct

import (
	"bytes"
	"fmt"
	"regexp"
	"testing"
)

// savedMinimal returns the bytes of newMinimalDocument with an Info dict.
func savedMinimal(t *testing.T) []byte {
	t.Helper()
	d := newMinimalDocument()
	d.Trailer["Info"] = d.CreateObject(Dict{"Title": "Repaired"})
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// checkReadable verifies that src loads and still has its catalog, page tree,
// and Info title.
func checkReadable(t *testing.T, src []byte) *Document {
	t.Helper()
	d, err := Read(bytes.NewReader(src))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	catalog, err := d.Catalog()
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if _, err = d.GetDict(catalog["Pages"].(Reference)); err != nil {
		t.Errorf("pages: %v", err)
	}
	if info, ok := d.Trailer["Info"].(Reference); ok {
		if dict, err := d.GetDict(info); err != nil || dict["Title"] != "Repaired" {
			t.Errorf("info = %#v, %v", dict, err)
		}
	}
	return d
}

var startxrefRE = regexp.MustCompile(`startxref\n(\d+)\n`)

func TestRebuildBadStartXRef(t *testing.T) {
	src := startxrefRE.ReplaceAll(savedMinimal(t), []byte("startxref\n9\n"))
	d := checkReadable(t, src)
	if d.Trailer["Info"] == nil {
		t.Error("trailer Info lost in rebuild")
	}
}

func TestRebuildWithoutTrailer(t *testing.T) {
	src := savedMinimal(t)
	src = src[:bytes.Index(src, []byte("xref\n"))]
	d := checkReadable(t, src)
	if _, ok := d.Trailer["Root"].(Reference); !ok {
		t.Errorf("Root not recovered: %#v", d.Trailer["Root"])
	}
}

func TestPrevLoopDoesNotHang(t *testing.T) {
	src := savedMinimal(t)
	m := startxrefRE.FindSubmatch(src)
	src = bytes.Replace(src, []byte("trailer\n<<"), []byte(fmt.Sprintf("trailer\n<</Prev %s", m[1])), 1)
	r := &reader{fh: bytes.NewReader(src), trailer: make(Dict)}
	if err := r.readXRef(); err == nil {
		t.Error("readXRef accepted a looping /Prev chain")
	}
	checkReadable(t, src)
}

func TestWrongStreamLength(t *testing.T) {
	src := bytes.Replace(savedMinimal(t), []byte("<</Length 5>>"), []byte("<</Length 3>>"), 1)
	d := checkReadable(t, src)
	s, err := d.GetStream(Reference{Number: 1})
	if err != nil {
		t.Fatalf("content stream: %v", err)
	}
	if string(s.Data) != "BT ET" {
		t.Errorf("content = %q, want %q", s.Data, "BT ET")
	}
}

func TestTrailingGarbageAfterEOF(t *testing.T) {
	src := append(savedMinimal(t), "\r\n\n  \n"...)
	r := &reader{fh: bytes.NewReader(src), trailer: make(Dict)}
	if err := r.readXRef(); err != nil {
		t.Errorf("readXRef with trailing whitespace: %v", err)
	}
	if _, err := Read(bytes.NewReader([]byte("%PDF-1.4\n"))); err == nil {
		t.Error("Read accepted a file with no objects")
	}
}

func TestRebuildIgnoresHugeObjectNumber(t *testing.T) {
	src := savedMinimal(t)
	src = append(src[:bytes.Index(src, []byte("xref\n"))], "99999999 0 obj\n<<>>\nendobj\n"...)
	r := &reader{fh: bytes.NewReader(src), trailer: make(Dict)}
	if err := r.rebuildXRef(); err != nil {
		t.Fatalf("rebuildXRef: %v", err)
	}
	if len(r.xref) > 2048 {
		t.Errorf("table sized to %d entries by one bad header", len(r.xref))
	}
	d := checkReadable(t, src)
	if _, err := d.Get(Reference{Number: 99999999}); err == nil {
		t.Error("implausible object was loaded")
	}
}
