package pdfstruct

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// SaveOptions controls how Save writes a file.
type SaveOptions struct {
	// Mode is the permission mode of the written file.  Zero means 0644.
	Mode fs.FileMode
	// CompressStreams flate-encodes every stream that has no /Filter.
	// Metadata streams are left alone so that XMP stays readable.
	CompressStreams bool
}

// Save writes the document to the specified path with default options.
func (d *Document) Save(path string) error {
	return d.SaveWith(path, SaveOptions{})
}

// SaveWith writes the document to the specified path.  The file is written
// to a temporary file in the same directory and then renamed into place, so a
// failed save leaves whatever was at path untouched.  This also makes it safe
// to save over the file the document was loaded from.  Any error returned is a
// *SaveError.
func (d *Document) SaveWith(path string, opts SaveOptions) (err error) {
	var (
		tmp  *os.File
		bw   *bufio.Writer
		mode = opts.Mode
	)
	if mode == 0 {
		mode = 0644
	}
	if len(d.pending) != 0 {
		return &SaveError{Path: path, Err: errors.New("document still has unexpanded object streams")}
	}
	if tmp, err = os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*"); err != nil {
		return &SaveError{Path: path, Err: err}
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			err = &SaveError{Path: path, Err: err}
		}
	}()
	bw = bufio.NewWriter(tmp)
	if _, err = d.writeTo(bw, opts); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Chmod(mode); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	slog.Debug("saved document", "path", path, "objects", d.Len())
	return nil
}

// randRead fills the regenerated half of the file ID.
var randRead = rand.Read

// countWriter tracks the offset reached in the output, which the
// cross-reference table needs.
type countWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (cw *countWriter) Write(by []byte) (n int, err error) {
	if cw.err != nil {
		return 0, cw.err
	}
	n, err = cw.w.Write(by)
	cw.n += int64(n)
	cw.err = err
	return n, err
}

// WriteTo writes the complete document, with a classic cross-reference table,
// to w.  It implements io.WriterTo.
func (d *Document) WriteTo(w io.Writer) (n int64, err error) {
	return d.writeTo(w, SaveOptions{})
}

func (d *Document) writeTo(w io.Writer, opts SaveOptions) (n int64, err error) {
	var (
		cw      = &countWriter{w: w}
		refs    = d.Refs()
		offsets = make(map[int]Reference)
		where   = make(map[int]int64)
		size    = 1
		xref    int64
	)
	if len(d.pending) != 0 {
		return 0, errors.New("document still has unexpanded object streams")
	}
	// The binary comment on the second line marks the file as binary for
	// transfer tools that care.
	fmt.Fprintf(cw, "%%PDF-%s\n%%\xE2\xE3\xCF\xD3\n", d.Version)
	for _, ref := range refs {
		if _, dup := offsets[ref.Number]; dup {
			// Only one generation of a number can appear in a
			// classic table; the highest wins.
			slog.Warn("dropping duplicate object number", "object", ref.String())
		}
		offsets[ref.Number] = ref
		where[ref.Number] = cw.n
		obj := d.objects[ref]
		if opts.CompressStreams {
			if obj, err = compressForWrite(obj); err != nil {
				return cw.n, fmt.Errorf("compressing object %s: %w", ref, err)
			}
		}
		if err = writeObject(cw, ref, obj); err != nil {
			return cw.n, err
		}
		if ref.Number+1 > size {
			size = ref.Number + 1
		}
	}
	if cw.err != nil {
		return cw.n, cw.err
	}
	xref = cw.n
	fmt.Fprintf(cw, "xref\n0 %d\n", size)
	fmt.Fprint(cw, "0000000000 65535 f\r\n")
	for num := 1; num < size; num++ {
		if ref, ok := offsets[num]; ok {
			fmt.Fprintf(cw, "%010d %05d n\r\n", where[num], ref.Generation)
		} else {
			fmt.Fprint(cw, "0000000000 00000 f\r\n")
		}
	}
	fmt.Fprint(cw, "trailer\n")
	if err = writeRawObject(cw, d.writeTrailer(size)); err != nil {
		return cw.n, err
	}
	fmt.Fprintf(cw, "\nstartxref\n%d\n%%%%EOF\n", xref)
	return cw.n, cw.err
}

// writeTrailer returns the trailer dictionary as it should be written: the
// document trailer with a fresh /Size and without cross-reference bookkeeping.
// The second /ID element is regenerated, since this is a new revision of the
// file.
func (d *Document) writeTrailer(size int) Dict {
	var td = d.Trailer.Clone()
	if td == nil {
		td = make(Dict)
	}
	for _, key := range []Name{"Prev", "XRefStm", "Type", "Index", "W", "Length", "Filter", "DecodeParms"} {
		delete(td, key)
	}
	td["Size"] = size
	if a, ok := td["ID"].(Array); ok && len(a) == 2 {
		var id2 [16]byte
		if _, err := randRead(id2[:]); err != nil {
			slog.Warn("keeping previous file ID", "error", err)
		} else {
			td["ID"] = Array{a[0], id2[:]}
		}
	}
	return td
}

// compressForWrite returns a flate-encoded copy of obj if it is a stream that
// should be compressed on save, and obj itself otherwise.
func compressForWrite(obj Object) (Object, error) {
	s, ok := obj.(Stream)
	if !ok || s.Dict["Filter"] != nil || s.Dict["Type"] == Name("Metadata") || len(s.Data) == 0 {
		return obj, nil
	}
	if err := s.Compress(); err != nil {
		return nil, err
	}
	return s, nil
}

func writeObject(wr io.Writer, ref Reference, obj Object) (err error) {
	if _, err = fmt.Fprintf(wr, "%d %d obj\n", ref.Number, ref.Generation); err != nil {
		return err
	}
	if err = writeRawObject(wr, obj); err != nil {
		return fmt.Errorf("writing object %s: %w", ref, err)
	}
	if _, err = fmt.Fprint(wr, "\nendobj\n"); err != nil {
		return err
	}
	return nil
}

func writeRawObject(wr io.Writer, obj Object) (err error) {
	switch obj := obj.(type) {
	case nil:
		_, err = fmt.Fprint(wr, "null")
	case bool, int:
		_, err = fmt.Fprint(wr, obj)
	case float64:
		_, err = fmt.Fprint(wr, strconv.FormatFloat(obj, 'f', -1, 64))
	case string:
		_, err = fmt.Fprint(wr, encodeString(obj))
	case []byte:
		_, err = fmt.Fprint(wr, encodeHexString(obj))
	case Name:
		_, err = fmt.Fprint(wr, encodeName(obj))
	case Array:
		if _, err = fmt.Fprint(wr, "["); err != nil {
			return err
		}
		for i, o := range obj {
			if i != 0 {
				if _, err = fmt.Fprint(wr, " "); err != nil {
					return err
				}
			}
			if err = writeRawObject(wr, o); err != nil {
				return err
			}
		}
		_, err = fmt.Fprint(wr, "]")
	case Dict:
		err = writeDict(wr, obj)
	case Stream:
		var sd = obj.Dict.Clone()
		if sd == nil {
			sd = make(Dict)
		}
		sd["Length"] = len(obj.Data)
		if err = writeDict(wr, sd); err != nil {
			return err
		}
		if _, err = fmt.Fprint(wr, "\nstream\n"); err != nil {
			return err
		}
		if _, err = wr.Write(obj.Data); err != nil {
			return err
		}
		_, err = fmt.Fprint(wr, "\nendstream")
	case Reference:
		_, err = fmt.Fprint(wr, obj.String())
	default:
		return fmt.Errorf("unsupported object type %T", obj)
	}
	return err
}

// writeDict writes the dict with its keys in sorted order, so that the same
// document always produces the same bytes.
func writeDict(wr io.Writer, d Dict) (err error) {
	var keys = make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	if _, err = fmt.Fprint(wr, "<<"); err != nil {
		return err
	}
	for _, k := range keys {
		if _, err = fmt.Fprintf(wr, "%s ", encodeName(Name(k))); err != nil {
			return err
		}
		if err = writeRawObject(wr, d[Name(k)]); err != nil {
			return err
		}
	}
	_, err = fmt.Fprint(wr, ">>")
	return err
}

func encodeString(s string) string {
	var sb strings.Builder
	var by = []byte(s)
	sb.WriteByte('(')
	for _, b := range by {
		switch b {
		case '\r':
			sb.WriteByte('\\')
			sb.WriteByte('r')
		case '\\', '(', ')':
			sb.WriteByte('\\')
			sb.WriteByte(b)
		default:
			sb.WriteByte(b)
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

func encodeHexString(by []byte) string {
	return "<" + hex.EncodeToString(by) + ">"
}

func encodeName(n Name) string {
	var by = []byte(string(n))
	var sb strings.Builder
	sb.WriteByte('/')
	for _, b := range by {
		if isRegularChar(b) && b > ' ' && b < 0x7F && b != '#' {
			sb.WriteByte(b)
		} else {
			fmt.Fprintf(&sb, "#%02X", b)
		}
	}
	return sb.String()
}
