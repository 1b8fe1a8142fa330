// camus-cli is the interactive rule shell: enter rules, inspect the
// compiled tables, commit and roll back.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/camuslang/camus/pkg/repl"
	"github.com/camuslang/camus/pkg/rules"
	"github.com/camuslang/camus/pkg/store"
)

func main() {
	rulesFile := flag.String("rules", "", "rule file backing the store")
	headersFile := flag.String("headers", "", "header catalog TOML file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logLevel := slog.LevelWarn
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	catalog := rules.DefaultCatalog()
	if *headersFile != "" {
		if err := catalog.LoadTOML(*headersFile); err != nil {
			fmt.Fprintf(os.Stderr, "camus-cli: %v\n", err)
			os.Exit(1)
		}
	}

	st := store.New(*rulesFile, catalog)
	if *rulesFile != "" {
		if err := st.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "camus-cli: %v\n", err)
			os.Exit(1)
		}
	}

	if err := repl.New(st).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "camus-cli: %v\n", err)
		os.Exit(1)
	}
}
