package main

import (
	"io"
	"os"

	"github.com/spf13/afero"
)

func main() {
	if err := execute(os.Args[1:], os.Stdout, os.Stderr, afero.NewOsFs()); err != nil {
		os.Exit(1)
	}
}

// execute runs the CLI once with the given arguments and streams.
func execute(args []string, stdout, stderr io.Writer, fsys afero.Fs) error {
	a := newApp(fsys)
	defer a.close()

	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.Execute()
}
