package main

import (
	"fmt"
	"os"

	"github.com/offlinefirst/motiontrack/internal/buildinfo"
	"github.com/offlinefirst/motiontrack/internal/cmd"
)

// version is set at link time with -ldflags "-X main.version=...".
var version string

func main() {
	buildinfo.SetVersion(version)
	root := cmd.NewRootCommand()
	if err := root.Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "motiontrack:", err)
		os.Exit(1)
	}
}
