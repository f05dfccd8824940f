package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/1broseidon/nog/internal/config"
	"github.com/1broseidon/nog/internal/script"
)

func runCheck(args []string) int {
	fs := newFlagSet("check", "check [--path P]", "Execute the configuration script in a scratch interpreter and report errors.\nThe running daemon is not affected.")
	path := fs.String("path", "", "script to check (default: the configured script)")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "check takes no arguments")
		fs.Usage()
		return 2
	}

	target := *path
	if target == "" {
		res, err := config.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		target, err = res.Config.ScriptPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if res.File != "" {
			fmt.Fprintf(os.Stdout, "settings: %s\n", res.File)
		}
	}

	if err := checkScript(target, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, script.ErrorMessage(err))
		return 1
	}
	return 0
}

// checkScript runs path in a fresh runtime as a first load would and
// prints what it registered.
func checkScript(path string, w io.Writer) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := script.New(script.WithLogger(logger), script.WithOutput(w))
	defer rt.Close()

	if err := rt.DisableSetup(); err != nil {
		return err
	}
	if err := rt.ExecuteFile(path); err != nil {
		return err
	}

	fmt.Fprintf(w, "script: %s ok\n", path)
	if err := rt.PrintCallbacks(w); err != nil {
		return err
	}
	for _, b := range rt.Bindings() {
		fmt.Fprintf(w, "bind %s -> %d\n", b.Keys, b.CallbackID)
	}
	return nil
}
