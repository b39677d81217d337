package pdfinfo

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfstruct"
)

func TestNewDocumentTitle(t *testing.T) {
	doc := pdfstruct.New("")
	if err := SetValue(doc, "Title", "Hello"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	ref, ok := doc.Trailer["Info"].(pdfstruct.Reference)
	if !ok {
		t.Fatalf("trailer Info = %#v, want a reference", doc.Trailer["Info"])
	}
	info, err := doc.GetDict(ref)
	if err != nil {
		t.Fatalf("GetDict: %v", err)
	}
	if len(info) != 1 || info["Title"] != "Hello" {
		t.Errorf("info = %#v", info)
	}
	if v, ok, err := Value(doc, "Title"); err != nil || !ok || v != "Hello" {
		t.Errorf("Value = %q, %v, %v", v, ok, err)
	}
}

func TestRoundTripThroughFile(t *testing.T) {
	dir := t.TempDir()
	doc := pdfstruct.New("1.5")
	doc.Trailer["Root"] = doc.CreateObject(pdfstruct.Dict{"Type": pdfstruct.Name("Catalog")})
	if err := SetValue(doc, "Title", "MyTitle"); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "out.pdf")
	if err := doc.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := pdfstruct.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok, err := Value(loaded, "Title"); err != nil || !ok || v != "MyTitle" {
		t.Errorf("Value = %q, %v, %v", v, ok, err)
	}
}

func TestAbsentKey(t *testing.T) {
	doc := pdfstruct.New("")
	if _, ok, err := Value(doc, "Title"); ok || err != nil {
		t.Errorf("Value with no Info = %v, %v", ok, err)
	}
	if err := SetValue(doc, "Author", "Ann"); err != nil {
		t.Fatal(err)
	}
	before := doc.Len()
	if _, ok, err := Value(doc, "Title"); ok || err != nil {
		t.Errorf("Value of absent key = %v, %v", ok, err)
	}
	if doc.Len() != before {
		t.Error("reading a value changed the document")
	}
}

func TestPromotionPreservesSiblings(t *testing.T) {
	doc := pdfstruct.New("")
	direct := pdfstruct.Dict{"Author": "A", "Rev": 3}
	doc.Trailer["Info"] = direct
	if err := SetValue(doc, "Title", "T"); err != nil {
		t.Fatal(err)
	}
	ref, ok := doc.Trailer["Info"].(pdfstruct.Reference)
	if !ok {
		t.Fatalf("Info was not promoted: %#v", doc.Trailer["Info"])
	}
	info, _ := doc.GetDict(ref)
	if info["Author"] != "A" || info["Rev"] != 3 || info["Title"] != "T" {
		t.Errorf("info = %#v", info)
	}
	if _, ok := direct["Title"]; ok {
		t.Error("the original direct dict was modified")
	}
}

func TestEnsureIdempotent(t *testing.T) {
	doc := pdfstruct.New("")
	first, err := EnsureInfoObject(doc)
	if err != nil {
		t.Fatal(err)
	}
	n := doc.Len()
	second, err := EnsureInfoObject(doc)
	if err != nil {
		t.Fatal(err)
	}
	if first != second || doc.Len() != n {
		t.Errorf("second ensure returned %v (first %v), len %d -> %d", second, first, n, doc.Len())
	}
}

func TestEnsureReplacesMalformed(t *testing.T) {
	doc := pdfstruct.New("")
	doc.Trailer["Info"] = 42
	ref, err := EnsureInfoObject(doc)
	if err != nil {
		t.Fatal(err)
	}
	info, err := doc.GetDict(ref)
	if err != nil || len(info) != 0 {
		t.Errorf("replacement info = %#v, %v", info, err)
	}
	// Reading is strict even though ensuring is lenient.
	doc.Trailer["Info"] = pdfstruct.Name("Oops")
	if _, _, err := Value(doc, "Title"); !errors.Is(err, ErrInfoType) {
		t.Errorf("Value with malformed Info = %v, want ErrInfoType", err)
	}
}

func TestInfoTypeErrors(t *testing.T) {
	doc := pdfstruct.New("")
	doc.Trailer["Info"] = doc.CreateObject(pdfstruct.Array{1, 2})
	if _, _, err := InfoDict(doc); !errors.Is(err, ErrInfoType) {
		t.Errorf("InfoDict = %v, want ErrInfoType", err)
	}
	if err := SetValue(doc, "Title", "x"); !errors.Is(err, ErrInfoType) {
		t.Errorf("SetValue = %v, want ErrInfoType", err)
	}
}

func TestDanglingInfo(t *testing.T) {
	doc := pdfstruct.New("")
	doc.Trailer["Info"] = pdfstruct.Reference{Number: 99}
	_, _, err := Value(doc, "Title")
	var re *pdfstruct.ResolveError
	if !errors.As(err, &re) || re.Ref.Number != 99 || !errors.Is(err, pdfstruct.ErrNotFound) {
		t.Errorf("Value = %v, want ResolveError for object 99", err)
	}
}

func TestStringify(t *testing.T) {
	doc := pdfstruct.New("")
	target := doc.CreateObject("indirect")
	hop := doc.CreateObject(target)
	tests := []struct {
		name string
		obj  pdfstruct.Object
		want string
	}{
		{"null", nil, "null"},
		{"bool", true, "true"},
		{"int", -12, "-12"},
		{"real", 0.25, "0.25"},
		{"whole real", 3.0, "3"},
		{"literal", "héllo", "héllo"},
		{"invalid utf8", "a\xffb", "a�b"},
		{"hex", []byte("hex"), "hex"},
		{"name", pdfstruct.Name("Name"), "Name"},
		{"reference", target, "indirect"},
	}
	for _, tt := range tests {
		got, err := Stringify(doc, tt.obj)
		if err != nil || got != tt.want {
			t.Errorf("%s: Stringify = %q, %v; want %q", tt.name, got, err, tt.want)
		}
	}
	// A reference to a reference is followed only once.
	got, err := Stringify(doc, hop)
	if err != nil || !strings.Contains(got, target.String()) {
		t.Errorf("two-hop Stringify = %q, %v", got, err)
	}
	got, err = Stringify(doc, pdfstruct.Array{1, pdfstruct.Name("X")})
	if err != nil || !strings.Contains(got, "X") {
		t.Errorf("array Stringify = %q, %v", got, err)
	}
	// Values outside the object model are dumped, not rejected.
	got, err = Stringify(doc, int64(7))
	if err != nil || !strings.Contains(got, "7") {
		t.Errorf("int64 Stringify = %q, %v", got, err)
	}
}

func TestInfoDictIsACopy(t *testing.T) {
	doc := pdfstruct.New("")
	if err := SetValue(doc, "Title", "Kept"); err != nil {
		t.Fatal(err)
	}
	info, ok, err := InfoDict(doc)
	if err != nil || !ok {
		t.Fatalf("InfoDict = %v, %v", ok, err)
	}
	info["Title"] = "Changed"
	info["Extra"] = "x"
	if v, _, _ := Value(doc, "Title"); v != "Kept" {
		t.Errorf("Title = %q after editing the returned dict", v)
	}
	if _, ok, _ := Value(doc, "Extra"); ok {
		t.Error("key added to the returned dict reached the document")
	}
}

func TestSetValuesAndKeys(t *testing.T) {
	doc := pdfstruct.New("")
	if err := SetValues(doc, map[string]string{"Title": "T", "Author": "A", "Subject": "S"}); err != nil {
		t.Fatal(err)
	}
	if doc.Len() != 1 {
		t.Errorf("Len = %d, want 1", doc.Len())
	}
	keys, err := Keys(doc)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(keys, ",") != "Author,Subject,Title" {
		t.Errorf("Keys = %v", keys)
	}
}
