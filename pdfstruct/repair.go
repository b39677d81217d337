package pdfstruct

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strconv"
)

// maxObjectNumber is the largest object number a conforming file may use.
const maxObjectNumber = 8388607

// objHeaderRE matches an indirect object header at the start of a line.
var objHeaderRE = regexp.MustCompile(`(?:^|[\r\n])[ \t]*(\d+)[ \t\r\n\f\x00]+(\d+)[ \t\r\n\f\x00]+obj[ \t\r\n\f\x00<\[(/%]`)

// rebuildXRef reconstructs the cross-reference table of a file whose xref
// sections are missing or damaged.  It scans the whole file for "n g obj"
// headers; a later header for the same object number wins, as it would in an
// incremental update.  The trailer comes from the last "trailer" dictionary
// in the file or, failing that, the last cross-reference stream.
func (r *reader) rebuildXRef() (err error) {
	var (
		size int64
		data []byte
	)
	if size, err = r.fh.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	data = make([]byte, size)
	if n, err := r.fh.ReadAt(data, 0); err != nil && (err != io.EOF || int64(n) != size) {
		return err
	}
	matches := objHeaderRE.FindAllSubmatchIndex(data, -1)
	// Object numbers far beyond the number of headers found are taken to
	// be damage, so that one bad header cannot size the table.
	limit := min(maxObjectNumber, 8*len(matches)+1024)
	for _, m := range matches {
		num, err := strconv.Atoi(string(data[m[2]:m[3]]))
		if err != nil || num == 0 || num > limit {
			slog.Warn("ignoring implausible object header", "offset", m[2], "number", string(data[m[2]:m[3]]))
			continue
		}
		gen, _ := strconv.Atoi(string(data[m[4]:m[5]]))
		r.grow(num + 1)
		r.xref[num] = xrefDirect{offset: m[2], gen: gen}
	}
	if len(r.xref) == 0 {
		return errors.New("no objects found")
	}
	r.repaired = true
	if idx := bytes.LastIndex(data, []byte("trailer")); idx >= 0 {
		if obj, err := r.readObjectAt(idx + len("trailer")); err == nil {
			if dict, ok := obj.(Dict); ok {
				r.mergeTrailer(dict)
				return nil
			}
		}
	}
	for num := len(r.xref) - 1; num > 0; num-- {
		xe, ok := r.xref[num].(xrefDirect)
		if !ok {
			continue
		}
		if obj, err := r.readObjectAt(xe.offset); err == nil {
			if s, ok := obj.(Stream); ok && s.Dict["Type"] == Name("XRef") {
				r.mergeTrailer(s.Dict)
				return nil
			}
		}
	}
	slog.Warn("no trailer found while rebuilding cross-reference data")
	return nil
}

// findCatalog points the trailer /Root at the document catalog, for a
// repaired file whose trailer lost it.
func (d *Document) findCatalog() {
	for _, ref := range d.Refs() {
		if dict, ok := d.objects[ref].(Dict); ok && dict["Type"] == Name("Catalog") {
			d.Trailer["Root"] = ref
			slog.Warn("recovered document catalog", "ref", ref.String())
			return
		}
	}
}
