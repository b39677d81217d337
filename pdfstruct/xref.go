package pdfstruct

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

// xrefFree is a free-list entry in the cross-reference table.
type xrefFree struct {
	next int
	gen  int
}

// xrefDirect is a direct object entry in the cross-reference table.
type xrefDirect struct {
	offset int
	gen    int
}

// xrefStream is a cross-reference entry for an object within a stream.
type xrefStream struct {
	stream int
	index  int
}

// xrefOnlyKeys are the keys of a trailer or cross-reference stream dictionary
// that describe the cross-reference data itself rather than the document.
var xrefOnlyKeys = map[Name]bool{
	"Prev": true, "XRefStm": true, "Type": true, "Index": true, "W": true,
	"Length": true, "Filter": true, "DecodeParms": true, "DL": true,
	"F": true, "FFilter": true, "FDecodeParms": true,
}

// readXRef reads all of the cross reference sections from the PDF and builds a
// merged cross-reference table.
func (r *reader) readXRef() (err error) {
	var seen = make(map[int]bool)

	if err = r.readStartXRef(); err != nil {
		return fmt.Errorf(`reading "startxref": %w`, err)
	}
	for addr := r.start; addr != 0; {
		var prev int

		if seen[addr] {
			return fmt.Errorf("cross-reference sections loop back to offset %d", addr)
		}
		seen[addr] = true
		if prev, err = r.readXRefSection(addr); err != nil {
			return fmt.Errorf("reading xref section at offset %d: %w", addr, err)
		}
		addr = prev
	}
	return nil
}

var xrefAddrRE = regexp.MustCompile(`(?:\r|\n)startxref[ \t]*(?:\r\n|\r|\n)(\d+)[ \t]*(?:\r\n|\r|\n)%%EOF\s*$`)

// readStartXRef finds the "startxref" keyword at the end of the file and reads
// the integer on the line after it, which is the offset to the first cross
// reference section.
func (r *reader) readStartXRef() (err error) {
	var (
		end   int64
		from  int64
		buf   []byte
		n     int
		match [][]byte
	)
	if end, err = r.fh.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	if from = end - 1024; from < 0 {
		from = 0
	}
	buf = make([]byte, end-from)
	if n, err = r.fh.ReadAt(buf, from); err != nil && (err != io.EOF || n != len(buf)) {
		return err
	}
	if match = xrefAddrRE.FindSubmatch(buf); match == nil {
		return errors.New(`no "startxref" found at end of file`)
	}
	if r.start, err = strconv.Atoi(string(match[1])); err != nil || r.start <= 0 || int64(r.start) >= end {
		return fmt.Errorf("startxref offset %s is outside the file", match[1])
	}
	return nil
}

// readXRefSection reads the cross reference section at the specified address
// into the table.  Because the sections are read in reverse "chronological"
// order, only those entries not already existing in the table are added to it.
// readXRefSection returns the address of the next earlier section, which is
// zero for the earliest section.
func (r *reader) readXRefSection(addr int) (prev int, err error) {
	var (
		buf [5]byte
		n   int
	)
	if n, err = r.fh.ReadAt(buf[:], int64(addr)); n < len(buf) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	// Tables start with the word "xref"; anything else should be a
	// cross-reference stream object.
	if bytes.Equal(buf[:4], []byte("xref")) && (buf[4] == '\r' || buf[4] == '\n') {
		return r.readXRefTable(addr)
	}
	return r.readXRefStream(addr)
}

// grow extends the cross-reference table to hold at least size entries.
func (r *reader) grow(size int) {
	if len(r.xref) < size {
		t := make([]any, size)
		copy(t, r.xref)
		r.xref = t
	}
}

// mergeTrailer adds the document-level entries of a trailer or
// cross-reference stream dictionary to the merged trailer.  Entries already
// present came from a later section and win.
func (r *reader) mergeTrailer(d Dict) {
	for key, val := range d {
		if xrefOnlyKeys[key] {
			continue
		}
		if _, ok := r.trailer[key]; !ok {
			r.trailer[key] = val
		}
	}
}

// intEntry returns the integer value of d[key], and whether it was present.
func intEntry(d Dict, key Name) (v int, present bool, err error) {
	switch val := d[key].(type) {
	case nil:
		return 0, false, nil
	case int:
		return val, true, nil
	default:
		return 0, true, fmt.Errorf("value of /%s should be an integer, not %T", key, val)
	}
}

// intsEntry returns the value of d[key], which must be an array of
// non-negative integers.
func intsEntry(d Dict, key Name) (vals []int, err error) {
	switch val := d[key].(type) {
	case nil:
		return nil, nil
	case Array:
		for _, elt := range val {
			if i, ok := elt.(int); ok && i >= 0 {
				vals = append(vals, i)
			} else {
				return nil, fmt.Errorf("elements of /%s should be non-negative integers", key)
			}
		}
		return vals, nil
	default:
		return nil, fmt.Errorf("value of /%s should be an array, not %T", key, val)
	}
}

var (
	xrefSubsectionRE = regexp.MustCompile(`^(\d+) +(\d+)[ \t]*(?:\r\n|\r|\n)`)
	xrefLineRE       = regexp.MustCompile(`^(\d{10}) (\d{5}) ([nf])`)
)

// readXRefTable reads an old-style cross-reference table, followed by its
// trailer dictionary.
func (r *reader) readXRefTable(addr int) (prev int, err error) {
	var (
		buf  [32]byte
		obj  Object
		dict Dict
		ok   bool
		n    int
		stm  int
		hyb  bool
	)
	// Skip the "xref" line.
	if _, err = r.fh.ReadAt(buf[:6], int64(addr)); err != nil {
		return 0, err
	}
	if buf[4] == '\r' && buf[5] == '\n' {
		addr += 6
	} else {
		addr += 5
	}
	// Repeat reading subsections until we see "trailer".
	for {
		if n, err = r.fh.ReadAt(buf[:], int64(addr)); err != nil && (err != io.EOF || n == 0) {
			return 0, err
		}
		if bytes.HasPrefix(buf[:n], []byte("trailer")) {
			addr += len("trailer")
			break
		}
		match := xrefSubsectionRE.FindSubmatch(buf[:n])
		if match == nil {
			return 0, fmt.Errorf("invalid cross-reference subsection header at offset %d", addr)
		}
		start, _ := strconv.Atoi(string(match[1]))
		count, _ := strconv.Atoi(string(match[2]))
		if addr, err = r.readXRefEntries(addr+len(match[0]), start, count); err != nil {
			return 0, err
		}
	}
	if obj, err = r.readObjectAt(addr); err != nil {
		return 0, fmt.Errorf("reading trailer dict at offset %d: %w", addr, err)
	}
	if dict, ok = obj.(Dict); !ok {
		return 0, fmt.Errorf(`expected dict after "trailer" at offset %d`, addr)
	}
	if prev, _, err = intEntry(dict, "Prev"); err != nil {
		return 0, fmt.Errorf("trailer dict at offset %d: %w", addr, err)
	}
	// A hybrid file also has a cross-reference stream for the objects
	// that only newer readers know about.  Its entries fill the gaps the
	// table leaves; its own /Prev is ignored.
	if stm, hyb, err = intEntry(dict, "XRefStm"); err != nil {
		return 0, fmt.Errorf("trailer dict at offset %d: %w", addr, err)
	} else if hyb {
		if _, err = r.readXRefStream(stm); err != nil {
			return 0, err
		}
	}
	r.mergeTrailer(dict)
	return prev, nil
}

// readXRefEntries reads count 20-byte table entries starting at addr for the
// objects numbered from start.  It returns the address following them.
func (r *reader) readXRefEntries(addr, start, count int) (_ int, err error) {
	var line [20]byte

	r.grow(start + count)
	for i := 0; i < count; i, addr = i+1, addr+len(line) {
		var match [][]byte

		if r.xref[start+i] != nil {
			continue
		}
		if _, err = r.fh.ReadAt(line[:], int64(addr)); err != nil {
			return 0, fmt.Errorf("reading cross-reference table entry at offset %d: %w", addr, err)
		}
		if match = xrefLineRE.FindSubmatch(line[:]); match == nil {
			return 0, fmt.Errorf("invalid cross-reference table entry at offset %d", addr)
		}
		first, _ := strconv.Atoi(string(match[1]))
		gen, _ := strconv.Atoi(string(match[2]))
		if match[3][0] == 'n' {
			r.xref[start+i] = xrefDirect{offset: first, gen: gen}
		} else {
			r.xref[start+i] = xrefFree{next: first, gen: gen}
		}
	}
	return addr, nil
}

// readXRefStream reads a cross-reference stream and adds its entries to the
// table.
func (r *reader) readXRefStream(addr int) (prev int, err error) {
	var (
		obj     Object
		str     Stream
		ok      bool
		size    int
		hasSize bool
		index   []int
		w       []int
		entries int
	)
	if obj, err = r.readObjectAt(addr); err != nil {
		return 0, fmt.Errorf("reading xref stream at offset %d: %w", addr, err)
	}
	if str, ok = obj.(Stream); !ok || str.Dict["Type"] != Name("XRef") {
		return 0, fmt.Errorf("expected xref stream at offset %d", addr)
	}
	if prev, _, err = intEntry(str.Dict, "Prev"); err != nil {
		return 0, fmt.Errorf("xref stream at offset %d: %w", addr, err)
	}
	if size, hasSize, err = intEntry(str.Dict, "Size"); err != nil {
		return 0, fmt.Errorf("xref stream at offset %d: %w", addr, err)
	}
	if index, err = intsEntry(str.Dict, "Index"); err != nil {
		return 0, fmt.Errorf("xref stream at offset %d: %w", addr, err)
	}
	if index == nil {
		if !hasSize {
			return 0, fmt.Errorf("missing both /Index and /Size in xref stream at offset %d", addr)
		}
		index = []int{0, size}
	}
	if len(index)%2 != 0 {
		return 0, fmt.Errorf("odd number of elements in /Index in xref stream at offset %d", addr)
	}
	if w, err = intsEntry(str.Dict, "W"); err != nil {
		return 0, fmt.Errorf("xref stream at offset %d: %w", addr, err)
	}
	if len(w) != 3 {
		return 0, fmt.Errorf("value of /W should be array of length 3 in xref stream at offset %d", addr)
	}
	r.mergeTrailer(str.Dict)
	rowsize := w[0] + w[1] + w[2]
	if err = str.Decompress(rowsize); err != nil {
		return 0, fmt.Errorf("decompressing xref stream at offset %d: %w", addr, err)
	}
	for i := 1; i < len(index); i += 2 {
		entries += index[i]
	}
	if rowsize == 0 || len(str.Data) != entries*rowsize {
		return 0, fmt.Errorf("xref stream at offset %d has %d bytes of data for %d entries of %d bytes", addr, len(str.Data), entries, rowsize)
	}
	data := str.Data
	for len(index) != 0 {
		var start, count int

		start, count, index = index[0], index[1], index[2:]
		r.grow(start + count)
		for i := start; i < start+count; i++ {
			var a, b, c int

			a, data = streamField(data, w[0], 1)
			b, data = streamField(data, w[1], 0)
			c, data = streamField(data, w[2], 0)
			// An entry from a later (i.e., previously read) section
			// takes precedence.
			if r.xref[i] != nil {
				continue
			}
			switch a {
			case 0:
				r.xref[i] = xrefFree{next: b, gen: c}
			case 1:
				r.xref[i] = xrefDirect{offset: b, gen: c}
			case 2:
				r.xref[i] = xrefStream{stream: b, index: c}
			default:
				return 0, fmt.Errorf("invalid type %d in xref stream at offset %d, index %d", a, addr, i)
			}
		}
	}
	return prev, nil
}

// streamField reads one big-endian field of a cross-reference stream entry.
// A zero-width field has the default value def.  The caller guarantees that
// data holds at least size bytes.
func streamField(data []byte, size int, def int) (v int, rest []byte) {
	if size == 0 {
		return def, data
	}
	for _, b := range data[:size] {
		v = v<<8 | int(b)
	}
	return v, data[size:]
}
