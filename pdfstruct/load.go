package pdfstruct

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
)

// Reader is the interface that must be satisfied by any file passed to Read.
type Reader interface {
	io.Seeker
	io.ReaderAt
}

// reader holds the state needed while a file is being loaded.
type reader struct {
	fh      Reader
	start   int
	xref    []any
	trailer Dict
	// repaired is set when the cross-reference table was rebuilt by
	// scanning the file rather than read from its xref sections.
	repaired bool
}

// objStmEntry records an object that lives inside an object stream and has not
// yet been extracted from it.  A number of -1 stands for every object in the
// stream; the stream header supplies the numbers.
type objStmEntry struct {
	number int
	stream int
	index  int
}

// Load reads the PDF file at the specified path into memory.  Any error
// returned is a *LoadError.
func Load(path string) (d *Document, err error) {
	var fh *os.File

	if fh, err = os.Open(path); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer fh.Close()
	if d, err = Read(fh); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	slog.Debug("loaded document", "path", path, "version", d.Version, "objects", d.Len(), "encrypted", d.IsEncrypted())
	return d, nil
}

// Read reads a complete PDF from the supplied file handle.  Every object in the
// cross-reference table is loaded; the file handle is not used after Read
// returns.
//
// Objects stored inside object streams are extracted immediately unless the
// document is encrypted, in which case the containing streams must first be
// decrypted and ExpandObjectStreams called.
func Read(fh Reader) (d *Document, err error) {
	var r = &reader{fh: fh, trailer: make(Dict)}
	var version string

	if version, err = r.readHeader(); err != nil {
		return nil, err
	}
	if err = r.readXRef(); err != nil {
		slog.Warn("cross-reference data is damaged, rebuilding it by scanning the file", "error", err)
		r.xref, r.trailer = nil, make(Dict)
		if rerr := r.rebuildXRef(); rerr != nil {
			return nil, fmt.Errorf("%w (and rebuilding failed: %v)", err, rerr)
		}
	}
	d = New(version)
	d.Trailer = r.trailer
	for num, xe := range r.xref {
		switch xe := xe.(type) {
		case xrefDirect:
			var obj Object
			if num == 0 {
				continue
			}
			if obj, err = r.readObjectAt(xe.offset); err != nil {
				if r.repaired {
					slog.Warn("skipping unreadable object", "number", num, "offset", xe.offset, "error", err)
					continue
				}
				return nil, fmt.Errorf("reading object number %d: %w", num, err)
			}
			if s, ok := obj.(Stream); ok {
				switch s.Dict["Type"] {
				case Name("XRef"):
					// Cross-reference streams are regenerated
					// on save; they are not document content.
					continue
				case Name("ObjStm"):
					if r.repaired {
						d.pending = append(d.pending, objStmEntry{number: -1, stream: num})
					}
				}
			}
			d.objects[Reference{Number: num, Generation: xe.gen}] = obj
		case xrefStream:
			d.pending = append(d.pending, objStmEntry{number: num, stream: xe.stream, index: xe.index})
		}
	}
	d.next = len(r.xref)
	if size, ok := d.Trailer["Size"].(int); ok && size > d.next {
		d.next = size
	}
	if d.next < 1 {
		d.next = 1
	}
	if !d.IsEncrypted() {
		if err = d.ExpandObjectStreams(); err != nil {
			return nil, err
		}
	}
	if r.repaired && d.Trailer["Root"] == nil {
		d.findCatalog()
	}
	return d, nil
}

var headerRE = regexp.MustCompile(`^%PDF-([0-9]+\.[0-9]+)`)

// readHeader verifies the file signature and returns the header version.
func (r *reader) readHeader() (version string, err error) {
	var buf [16]byte
	var n int

	if n, err = r.fh.ReadAt(buf[:], 0); err != nil && (err != io.EOF || n == 0) {
		return "", fmt.Errorf("verify signature: %w", err)
	}
	if !bytes.HasPrefix(buf[:n], []byte("%PDF-")) {
		return "", errors.New("not a PDF file")
	}
	if match := headerRE.FindSubmatch(buf[:n]); match != nil {
		return string(match[1]), nil
	}
	return "", errors.New("invalid PDF header")
}

// streamLength resolves an indirect stream /Length while the file is still
// being parsed.
func (r *reader) streamLength(ref Reference) (length int, err error) {
	var obj Object

	if ref.Number < 1 || ref.Number >= len(r.xref) {
		return 0, fmt.Errorf("object number %d is out of range for document (max %d)", ref.Number, len(r.xref)-1)
	}
	switch xe := r.xref[ref.Number].(type) {
	case xrefDirect:
		if xe.gen != ref.Generation {
			return 0, fmt.Errorf("object number %d has generation %d but %d was requested", ref.Number, xe.gen, ref.Generation)
		}
		if obj, err = r.readObjectAt(xe.offset); err != nil {
			return 0, fmt.Errorf("reading object number %d: %w", ref.Number, err)
		}
	default:
		return 0, fmt.Errorf("stream length object %d is not a direct object", ref.Number)
	}
	if length, ok := obj.(int); ok {
		return length, nil
	}
	return 0, fmt.Errorf("stream length object %d is %T, not an integer", ref.Number, obj)
}
