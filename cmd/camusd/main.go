// camusd is the rule-compile service daemon.
//
// It holds a candidate/active rule store and serves compilation over HTTP,
// with Prometheus metrics on /metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/camuslang/camus/pkg/api"
	"github.com/camuslang/camus/pkg/rules"
	"github.com/camuslang/camus/pkg/store"
)

func main() {
	rulesFile := flag.String("rules", "", "rule file to load on startup")
	headersFile := flag.String("headers", "", "header catalog TOML file")
	listenAddr := flag.String("listen", "127.0.0.1:8080", "HTTP listen address")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Set up structured logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	catalog := rules.DefaultCatalog()
	if *headersFile != "" {
		if err := catalog.LoadTOML(*headersFile); err != nil {
			fmt.Fprintf(os.Stderr, "camusd: %v\n", err)
			os.Exit(1)
		}
	}

	st := store.New(*rulesFile, catalog)
	if *rulesFile != "" {
		if err := st.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "camusd: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(api.Config{Addr: *listenAddr, Store: st})
	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "camusd: %v\n", err)
		os.Exit(1)
	}
}
