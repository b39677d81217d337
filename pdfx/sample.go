package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfsample"
)

func (a *app) sampleCommand() *command {
	var (
		fs            *pflag.FlagSet
		opts          pdfsample.Options
		minimal       bool
		userPassword  string
		ownerPassword string
	)
	return &command{
		name:    "sample",
		summary: "Write a small sample PDF",
		usage:   "pdfx sample [--title T] [--author A] [--line text ...] [--user-password pw [--owner-password pw]] <output>",
		description: `Write a one-page sample PDF for trying the other commands.  With
--user-password the file is protected with 40-bit RC4.  With --minimal a
bare 200x200 page with no metadata is written instead.`,
		examples: []string{
			"pdfx sample --title Demo --line 'Hello' demo.pdf",
			"pdfx sample --title Locked --user-password secret locked.pdf",
		},
		flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("sample", pflag.ContinueOnError)
			fs.StringVar(&opts.Title, "title", "", "document title")
			fs.StringVar(&opts.Author, "author", "", "document author")
			fs.StringVar(&opts.Subject, "subject", "", "document subject")
			fs.StringArrayVar(&opts.Lines, "line", nil, "line of page text (repeatable)")
			fs.BoolVar(&minimal, "minimal", false, "write a minimal file with no text or metadata")
			fs.StringVar(&userPassword, "user-password", "", "protect the file with this open password")
			fs.StringVar(&ownerPassword, "owner-password", "", "owner password for a protected file")
			return fs
		},
		run: func(args []string) error {
			if err := exactArgs(args, 1, "an output file"); err != nil {
				return err
			}
			if err := a.setup(); err != nil {
				return err
			}
			protect := fs.Changed("user-password") || fs.Changed("owner-password")
			switch {
			case minimal && protect:
				return usagef("--minimal cannot be combined with passwords")
			case minimal:
				return pdfsample.Minimal(args[0])
			case protect:
				if err := pdfsample.Protected(args[0], userPassword, ownerPassword, opts); err != nil {
					return fmt.Errorf("writing %s: %w", args[0], err)
				}
			default:
				if err := pdfsample.Text(args[0], opts); err != nil {
					return fmt.Errorf("writing %s: %w", args[0], err)
				}
			}
			return nil
		},
	}
}
