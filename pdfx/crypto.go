package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfcrypt"
)

func (a *app) cryptoCommand() *command {
	return &command{
		name:    "crypto",
		summary: "Decrypt PDF files and report their encryption state",
		subcommands: []*command{
			a.decryptCommand(),
			a.encryptCommand(),
			a.statusCommand(),
		},
	}
}

func (a *app) decryptCommand() *command {
	var (
		fs       *pflag.FlagSet
		input    string
		output   string
		password string
	)
	return &command{
		name:    "decrypt",
		summary: "Write a decrypted copy of a PDF",
		usage:   "pdfx crypto decrypt --input <file> --output <file> [--password <pw>]",
		description: `Decrypt a PDF protected with the standard security handler and write
the result.  Either the user or the owner password is accepted; without
--password the empty password is tried.  Unencrypted input is copied.`,
		examples: []string{"pdfx crypto decrypt -i locked.pdf -o open.pdf --password secret"},
		flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("decrypt", pflag.ContinueOnError)
			fs.StringVarP(&input, "input", "i", "", "input PDF file")
			fs.StringVarP(&output, "output", "o", "", "output PDF file")
			fs.StringVar(&password, "password", "", "user or owner password")
			return fs
		},
		run: func(args []string) error {
			if err := requireFlags(fs, "input", "output"); err != nil {
				return err
			}
			if err := exactArgs(args, 0, "no arguments"); err != nil {
				return err
			}
			if err := a.setup(); err != nil {
				return err
			}
			opts, err := a.saveOptions()
			if err != nil {
				return err
			}
			return pdfcrypt.DecryptFileWith(input, output, a.password(fs, password), opts)
		},
	}
}

func (a *app) encryptCommand() *command {
	var (
		fs            *pflag.FlagSet
		input         string
		output        string
		userPassword  string
		ownerPassword string
	)
	return &command{
		name:    "encrypt",
		summary: "Encrypt a PDF (not supported)",
		usage:   "pdfx crypto encrypt --input <file> --output <file> --user-password <pw> [--owner-password <pw>]",
		flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("encrypt", pflag.ContinueOnError)
			fs.StringVarP(&input, "input", "i", "", "input PDF file")
			fs.StringVarP(&output, "output", "o", "", "output PDF file")
			fs.StringVar(&userPassword, "user-password", "", "password required to open the file")
			fs.StringVar(&ownerPassword, "owner-password", "", "password granting full access")
			return fs
		},
		run: func(args []string) error {
			if err := requireFlags(fs, "input", "output", "user-password"); err != nil {
				return err
			}
			if err := a.setup(); err != nil {
				return err
			}
			var owner *string
			if fs.Changed("owner-password") {
				owner = &ownerPassword
			}
			return pdfcrypt.Encrypt(input, output, userPassword, owner)
		},
	}
}

func (a *app) statusCommand() *command {
	var (
		fs    *pflag.FlagSet
		input string
	)
	return &command{
		name:    "status",
		summary: "Report whether a PDF is encrypted",
		usage:   "pdfx crypto status --input <file>",
		flags: func() *pflag.FlagSet {
			fs = pflag.NewFlagSet("status", pflag.ContinueOnError)
			fs.StringVarP(&input, "input", "i", "", "input PDF file")
			return fs
		},
		run: func(args []string) error {
			if err := requireFlags(fs, "input"); err != nil {
				return err
			}
			if err := a.setup(); err != nil {
				return err
			}
			encrypted, err := pdfcrypt.IsEncryptedFile(input)
			if err != nil {
				return err
			}
			if encrypted {
				fmt.Fprintln(a.stdout, "encrypted")
			} else {
				fmt.Fprintln(a.stdout, "not encrypted")
			}
			return nil
		},
	}
}
