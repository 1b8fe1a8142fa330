package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/camuslang/camus/pkg/p4"
	"github.com/camuslang/camus/pkg/pipeline"
	"github.com/camuslang/camus/pkg/rules"
)

var compileCmd = &cobra.Command{
	Use:   "compile <rules-file>",
	Short: "Compile a rule file to table entries.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(cmd)

		outPath, _ := cmd.Flags().GetString("output")
		jsonPath, _ := cmd.Flags().GetString("json")
		mcastPath, _ := cmd.Flags().GetString("mcast")

		prog, err := compileFile(cmd, args[0])
		if err != nil {
			return err
		}

		// Render everything before writing anything, so a failure leaves
		// no partial output behind.
		var commands, jsonOut, mcast bytes.Buffer
		if err := p4.WriteCommands(&commands, prog); err != nil {
			return err
		}
		if err := p4.WriteJSON(&jsonOut, prog); err != nil {
			return err
		}
		if err := p4.WriteMulticast(&mcast, prog); err != nil {
			return err
		}

		if err := writeOutput(outPath, commands.Bytes()); err != nil {
			return err
		}
		if jsonPath != "" {
			if err := writeOutput(jsonPath, jsonOut.Bytes()); err != nil {
				return err
			}
		}
		if mcastPath != "" {
			if err := writeOutput(mcastPath, mcast.Bytes()); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	compileCmd.Flags().StringP("output", "o", "", "command output file (default stdout)")
	compileCmd.Flags().String("json", "", "JSON output file")
	compileCmd.Flags().String("mcast", "", "multicast-group output file")
}

// compileFile runs the full pipeline on one rule file.
func compileFile(cmd *cobra.Command, path string) (*p4.Program, error) {
	catalog, err := loadCatalog(cmd)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	rs, err := rules.Compile(string(data), catalog)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p, err := pipeline.Compile(rs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p4.Lower(p)
}

func loadCatalog(cmd *cobra.Command) (*rules.Catalog, error) {
	catalog := rules.DefaultCatalog()
	if path, _ := cmd.Flags().GetString("headers"); path != "" {
		if err := catalog.LoadTOML(path); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

func setupLogging(cmd *cobra.Command) {
	level := slog.LevelInfo
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}
