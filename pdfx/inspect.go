package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"

	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfcrypt"
	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfstruct"
)

func (a *app) inspectCommand() *command {
	var (
		fs       *pflag.FlagSet
		password string
	)
	return &command{
		name:    "inspect",
		summary: "Dump objects from a PDF",
		usage:   "pdfx inspect [--password <pw>] <file> <path/to/object>",
		description: `Dump one or more objects from a PDF file.

The path is a slash-separated list of Dict keys or Array indexes leading to
the object in question.  If it starts with a /, it starts in the trailer
dictionary; otherwise it starts in the document catalog, as if the current
directory were /Root.  A "*" component lists every Dict entry or Array
element at that level.  Encrypted files are decrypted in memory first.`,
		examples: []string{
			"pdfx inspect report.pdf /Info",
			"pdfx inspect report.pdf 'Pages/Kids/*/MediaBox'",
		},
		flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("inspect", pflag.ContinueOnError)
			fs.StringVar(&password, "password", "", "password for encrypted input")
			return fs
		},
		run: func(args []string) error {
			var (
				root   pdfstruct.Object
				prefix string
			)
			if err := exactArgs(args, 2, "a file and an object path"); err != nil {
				return err
			}
			if err := a.setup(); err != nil {
				return err
			}
			doc, err := pdfstruct.Load(args[0])
			if err != nil {
				return err
			}
			if err = pdfcrypt.Decrypt(doc, a.password(fs, password)); err != nil {
				return err
			}
			path := strings.Split(args[1], "/")
			if path[0] == "" {
				path, root = path[1:], doc.Trailer
			} else {
				if root, err = doc.Catalog(); err != nil {
					return err
				}
				prefix = "/Root"
			}
			if len(path) > 0 && path[len(path)-1] == "" {
				path = path[:len(path)-1]
			}
			in := &inspector{doc: doc, w: a.stdout}
			in.find(root, prefix, path)
			return in.err
		},
	}
}

// inspector walks an object path and dumps what it finds.  Lookup problems
// are reported inline and remembered in err; the walk continues with the
// remaining wildcard matches.
type inspector struct {
	doc *pdfstruct.Document
	w   io.Writer
	err error
}

func (in *inspector) fail(format string, args ...any) {
	in.err = fmt.Errorf(format, args...)
	fmt.Fprintf(in.w, "ERROR: %v\n", in.err)
}

func (in *inspector) find(root pdfstruct.Object, prefix string, path []string) {
	var err error

	if len(path) == 0 {
		in.dump(root, prefix, 0)
		return
	}
	if ref, ok := root.(pdfstruct.Reference); ok {
		if root, err = in.doc.Get(ref); err != nil {
			in.fail("%s: %v", prefix, err)
			return
		}
	}
	if str, ok := root.(pdfstruct.Stream); ok {
		root = str.Dict
	}
	switch root := root.(type) {
	case pdfstruct.Array:
		if path[0] == "*" {
			for i := range root {
				in.find(root[i], fmt.Sprintf("%s/%d", prefix, i), path[1:])
			}
			return
		}
		idx, err := strconv.Atoi(path[0])
		if err != nil || idx < 0 {
			in.fail("%s is an Array but %q is not a valid array index", prefix, path[0])
			return
		}
		if idx >= len(root) {
			in.fail("index %d is out of bounds for %s (length %d)", idx, prefix, len(root))
			return
		}
		in.find(root[idx], fmt.Sprintf("%s/%d", prefix, idx), path[1:])
	case pdfstruct.Dict:
		if path[0] == "*" {
			for _, key := range sortedKeys(root) {
				in.find(root[key], fmt.Sprintf("%s/%s", prefix, key), path[1:])
			}
			return
		}
		if obj, ok := root[pdfstruct.Name(path[0])]; ok {
			in.find(obj, fmt.Sprintf("%s/%s", prefix, path[0]), path[1:])
		} else {
			in.fail("key %q does not exist in %s", path[0], prefix)
		}
	default:
		in.fail("%s is a %T, not a Dict, Stream, or Array", prefix, root)
	}
}

func (in *inspector) dump(obj pdfstruct.Object, path string, indent int) {
	if ref, ok := obj.(pdfstruct.Reference); ok && indent == 0 {
		var err error
		if obj, err = in.doc.Get(ref); err != nil {
			in.fail("%s: %v", path, err)
			return
		}
		fmt.Fprintf(in.w, "%s = (#%d,%d) -> ", path, ref.Number, ref.Generation)
	} else {
		fmt.Fprintf(in.w, "%s = ", path)
	}
	switch obj := obj.(type) {
	case nil:
		fmt.Fprintln(in.w, "null")
	case bool, int:
		fmt.Fprintf(in.w, "%v\n", obj)
	case float64:
		fmt.Fprintln(in.w, strconv.FormatFloat(obj, 'f', -1, 64))
	case string:
		fmt.Fprintf(in.w, "%q\n", obj)
	case []byte:
		fmt.Fprintf(in.w, "<%s>\n", hex.EncodeToString(obj))
	case pdfstruct.Name:
		fmt.Fprintf(in.w, "/%s\n", string(obj))
	case pdfstruct.Array:
		fmt.Fprintln(in.w, "Array[")
		for i := range obj {
			in.dump(obj[i], fmt.Sprintf("%*s[%d]", indent*4+4, "", i), indent+1)
		}
		fmt.Fprintf(in.w, "%*s]\n", indent*4, "")
	case pdfstruct.Dict:
		fmt.Fprintln(in.w, "Dict<<")
		in.dumpDict(obj, indent)
		fmt.Fprintf(in.w, "%*s>>\n", indent*4, "")
	case pdfstruct.Stream:
		fmt.Fprintln(in.w, "Stream<<")
		in.dumpDict(obj.Dict, indent)
		fmt.Fprintf(in.w, "%*s>>\n", indent*4, "")
		if err := obj.Decompress(0); err != nil {
			fmt.Fprintf(in.w, "%*s(data not decoded: %v)\n", indent*4, "", err)
		}
		spew.Fdump(in.w, obj.Data)
	case pdfstruct.Reference:
		fmt.Fprintf(in.w, "(#%d,%d)\n", obj.Number, obj.Generation)
	default:
		in.fail("%s: unknown object type %T", path, obj)
	}
}

func (in *inspector) dumpDict(d pdfstruct.Dict, indent int) {
	for _, key := range sortedKeys(d) {
		in.dump(d[key], fmt.Sprintf("%*s/%s", indent*4+4, "", string(key)), indent+1)
	}
}

func sortedKeys(d pdfstruct.Dict) []pdfstruct.Name {
	var keys = make([]pdfstruct.Name, 0, len(d))
	for key := range d {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
