package main

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// version is set at link time with -ldflags "-X main.version=...".
var version = ""

// versionString describes the running binary.  Without a link-time version
// it falls back to the module version and VCS revision recorded by the Go
// toolchain.
func versionString() string {
	v, rev := version, ""
	if info, ok := debug.ReadBuildInfo(); ok {
		if v == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 12 {
				rev = s.Value[:12]
			}
		}
	}
	if v == "" {
		v = "dev"
	}
	if rev != "" {
		return fmt.Sprintf("pdfx %s (%s, %s)", v, rev, runtime.Version())
	}
	return fmt.Sprintf("pdfx %s (%s)", v, runtime.Version())
}

func (a *app) versionCommand() *command {
	return &command{
		name:    "version",
		summary: "Print the version",
		run: func(args []string) error {
			fmt.Fprintln(a.stdout, versionString())
			return nil
		},
	}
}
