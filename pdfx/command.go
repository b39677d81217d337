package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// command is one node of the pdfx command tree.  Subcommands are chosen by
// the first positional argument; a leaf parses its flags and calls run.
type command struct {
	name        string
	summary     string
	description string
	usage       string
	examples    []string
	flags       func() *pflag.FlagSet
	subcommands []*command
	run         func(args []string) error

	parent *command
	out    io.Writer // help output; inherited from the root
}

// usageError marks errors caused by a malformed command line.  They exit
// with status 2.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// execute parses args and dispatches to the matching subcommand or run.
func (c *command) execute(args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.printHelp(c.helpOut())
		return nil
	}
	if len(c.subcommands) > 0 && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return c.dispatch(args)
	}
	if len(c.subcommands) > 0 && c.run == nil {
		c.printHelp(c.helpOut())
		return usagef("%s: subcommand required", c.fullName())
	}
	if c.flags != nil {
		fs := c.flags()
		fs.SetOutput(io.Discard)
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, pflag.ErrHelp) {
				c.printHelp(c.helpOut())
				return nil
			}
			return usagef("%s: %v\n\nRun '%s --help' for usage.", c.fullName(), err, c.fullName())
		}
		args = fs.Args()
	}
	if c.run != nil {
		return c.run(args)
	}
	c.printHelp(c.helpOut())
	return usagef("no action defined for %q", c.fullName())
}

// dispatch runs the subcommand named by args[0].
func (c *command) dispatch(args []string) error {
	for _, sub := range c.subcommands {
		if sub.name == args[0] {
			sub.parent = c
			return sub.execute(args[1:])
		}
	}
	if suggestion := suggestCommand(args[0], c.subcommands); suggestion != "" {
		return usagef("unknown command %q (did you mean %q?)\n\nRun '%s --help' for usage.", args[0], suggestion, c.fullName())
	}
	return usagef("unknown command %q\n\nRun '%s --help' for usage.", args[0], c.fullName())
}

func (c *command) printHelp(w io.Writer) {
	if c.description != "" {
		fmt.Fprintf(w, "%s\n\n", c.description)
	} else if c.summary != "" {
		fmt.Fprintf(w, "%s\n\n", c.summary)
	}
	switch {
	case c.usage != "":
		fmt.Fprintf(w, "Usage:\n  %s\n", c.usage)
	case len(c.subcommands) > 0:
		fmt.Fprintf(w, "Usage:\n  %s <command> [flags]\n", c.fullName())
	default:
		fmt.Fprintf(w, "Usage:\n  %s [flags]\n", c.fullName())
	}
	if len(c.subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.subcommands {
			fmt.Fprintf(tw, "  %s\t%s\n", sub.name, sub.summary)
		}
		tw.Flush()
	}
	if c.flags != nil {
		if defaults := c.flags().FlagUsages(); defaults != "" {
			fmt.Fprintf(w, "\nFlags:\n%s", defaults)
		}
	}
	if len(c.examples) > 0 {
		fmt.Fprintf(w, "\nExamples:\n")
		for _, ex := range c.examples {
			fmt.Fprintf(w, "  %s\n", ex)
		}
	}
	if len(c.subcommands) > 0 {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for more information on a command.\n", c.fullName())
	}
}

func (c *command) fullName() string {
	if c.parent == nil {
		return c.name
	}
	return c.parent.fullName() + " " + c.name
}

func (c *command) helpOut() io.Writer {
	for p := c; p != nil; p = p.parent {
		if p.out != nil {
			return p.out
		}
	}
	return io.Discard
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}

// suggestCommand returns the subcommand name closest to unknown, if any is
// within an edit distance of 2.
func suggestCommand(unknown string, commands []*command) string {
	best, bestDistance := "", 3
	for _, c := range commands {
		if d := levenshtein(unknown, c.name); d < bestDistance {
			best, bestDistance = c.name, d
		}
	}
	return best
}

func levenshtein(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// requireFlags returns a usage error naming the first of the flags that was
// not given on the command line.
func requireFlags(fs *pflag.FlagSet, names ...string) error {
	for _, name := range names {
		if f := fs.Lookup(name); f != nil && !f.Changed {
			return usagef("--%s is required", name)
		}
	}
	return nil
}

// exactArgs checks the number of positional arguments.
func exactArgs(args []string, n int, what string) error {
	if len(args) != n {
		return usagef("expected %s, got %d argument(s)", what, len(args))
	}
	return nil
}
