package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfcrypt"
	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfinfo"
	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfstruct"
)

func (a *app) metaCommand() *command {
	return &command{
		name:    "meta",
		summary: "Read and write the document information dictionary",
		subcommands: []*command{
			a.metaGetCommand(),
			a.metaSetCommand(),
			a.metaListCommand(),
		},
	}
}

// loadForReading loads a document and, if it is encrypted, decrypts it in
// memory so its metadata can be read.
func (a *app) loadForReading(path string, password *string) (*pdfstruct.Document, error) {
	doc, err := pdfstruct.Load(path)
	if err != nil {
		return nil, err
	}
	if err = pdfcrypt.Decrypt(doc, password); err != nil {
		return nil, err
	}
	return doc, nil
}

func (a *app) metaGetCommand() *command {
	var (
		fs       *pflag.FlagSet
		input    string
		password string
	)
	return &command{
		name:    "get",
		summary: "Print one metadata value",
		usage:   "pdfx meta get --input <file> [--password <pw>] <key>",
		description: `Print the value of one key of the document information dictionary,
followed by a newline.  Nothing is printed if the key is not set.
Encrypted input is decrypted in memory first.`,
		examples: []string{"pdfx meta get -i report.pdf Title"},
		flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("get", pflag.ContinueOnError)
			fs.StringVarP(&input, "input", "i", "", "input PDF file")
			fs.StringVar(&password, "password", "", "password for encrypted input")
			return fs
		},
		run: func(args []string) error {
			if err := requireFlags(fs, "input"); err != nil {
				return err
			}
			if err := exactArgs(args, 1, "a key"); err != nil {
				return err
			}
			if err := a.setup(); err != nil {
				return err
			}
			doc, err := a.loadForReading(input, a.password(fs, password))
			if err != nil {
				return err
			}
			value, ok, err := pdfinfo.Value(doc, args[0])
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintln(a.stdout, value)
			}
			return nil
		},
	}
}

func (a *app) metaSetCommand() *command {
	var (
		fs     *pflag.FlagSet
		input  string
		output string
		pairs  []string
	)
	return &command{
		name:    "set",
		summary: "Set metadata values and write a new file",
		usage:   "pdfx meta set --input <file> --output <file> (<key> <value> | --set Key=Value ...)",
		description: `Set keys of the document information dictionary and write the result
to a new file.  Values are stored as literal strings.  Encrypted input
is refused; decrypt it first with "pdfx crypto decrypt".`,
		examples: []string{
			`pdfx meta set -i in.pdf -o out.pdf Title "Quarterly Report"`,
			`pdfx meta set -i in.pdf -o out.pdf --set Title=Report --set Author=Finance`,
		},
		flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("set", pflag.ContinueOnError)
			fs.StringVarP(&input, "input", "i", "", "input PDF file")
			fs.StringVarP(&output, "output", "o", "", "output PDF file")
			fs.StringArrayVar(&pairs, "set", nil, "Key=Value pair to set (repeatable)")
			return fs
		},
		run: func(args []string) error {
			if err := requireFlags(fs, "input", "output"); err != nil {
				return err
			}
			values, err := metaSetValues(args, pairs)
			if err != nil {
				return err
			}
			if err = a.setup(); err != nil {
				return err
			}
			doc, err := pdfstruct.Load(input)
			if err != nil {
				return err
			}
			if pdfcrypt.IsEncrypted(doc) {
				return errors.New(`input is encrypted and cannot be re-encrypted after editing; run "pdfx crypto decrypt" first`)
			}
			if err = pdfinfo.SetValues(doc, values); err != nil {
				return err
			}
			return a.save(doc, output)
		},
	}
}

// metaSetValues collects the keys to set from either the positional key and
// value or the --set pairs.
func metaSetValues(args, pairs []string) (map[string]string, error) {
	values := make(map[string]string)
	switch {
	case len(args) == 2 && len(pairs) == 0:
		values[args[0]] = args[1]
	case len(args) == 0 && len(pairs) > 0:
		for _, pair := range pairs {
			key, value, ok := strings.Cut(pair, "=")
			if !ok || key == "" {
				return nil, usagef("invalid --set %q: want Key=Value", pair)
			}
			values[key] = value
		}
	default:
		return nil, usagef("expected <key> <value> or --set Key=Value")
	}
	return values, nil
}

func (a *app) metaListCommand() *command {
	var (
		fs       *pflag.FlagSet
		input    string
		password string
	)
	return &command{
		name:    "list",
		summary: "Print all metadata values",
		usage:   "pdfx meta list --input <file> [--password <pw>]",
		flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("list", pflag.ContinueOnError)
			fs.StringVarP(&input, "input", "i", "", "input PDF file")
			fs.StringVar(&password, "password", "", "password for encrypted input")
			return fs
		},
		run: func(args []string) error {
			if err := requireFlags(fs, "input"); err != nil {
				return err
			}
			if err := exactArgs(args, 0, "no arguments"); err != nil {
				return err
			}
			if err := a.setup(); err != nil {
				return err
			}
			doc, err := a.loadForReading(input, a.password(fs, password))
			if err != nil {
				return err
			}
			keys, err := pdfinfo.Keys(doc)
			if err != nil {
				return err
			}
			for _, key := range keys {
				value, _, err := pdfinfo.Value(doc, key)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "%s: %s\n", key, value)
			}
			return nil
		},
	}
}

// save writes doc to path with the configured file mode.
func (a *app) save(doc *pdfstruct.Document, path string) error {
	opts, err := a.saveOptions()
	if err != nil {
		return err
	}
	return doc.SaveWith(path, opts)
}

func (a *app) saveOptions() (opts pdfstruct.SaveOptions, err error) {
	opts.Mode, err = a.cfg.Write.Mode()
	opts.CompressStreams = a.cfg.Write.CompressStreams
	return opts, err
}
