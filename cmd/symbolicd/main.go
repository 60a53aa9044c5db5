// Package main is the symbolicd entry point: a cobra CLI exposing the
// three ways this service runs (serve, validate-only, sweep), grounded
// on the teacher's cmd/nerd root-command wiring (persistent flags,
// rootCmd.Execute() exit-code handling). Config loading and logger
// setup happen in loadConfig, which each subcommand's RunE calls.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"symbolicd/internal/config"
	"symbolicd/internal/engine"
	"symbolicd/internal/governor"
	"symbolicd/internal/isolation"
	"symbolicd/internal/logging"
	"symbolicd/internal/orchestrator"
	"symbolicd/internal/transport"
	"symbolicd/internal/validator"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "symbolicd",
	Short: "Symbolic execution analysis service",
	Long: `symbolicd validates untrusted Python-subset source against
contracts using a bounded symbolic execution engine, exposed over MCP.`,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")

	rootCmd.AddCommand(serveCmd, validateOnlyCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Logging.DebugMode = true
	}
	if err := logging.Configure(cfg.Logging.DebugMode, cfg.Logging.Format, cfg.Logging.Dir); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	return cfg, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logging.CloseAll()

		if err := governor.ApplyMemoryLimit(cfg); err != nil {
			return fmt.Errorf("apply memory limit: %w", err)
		}
		defer isolation.Sweep()

		orch := orchestrator.New(cfg, engine.NewMangleEngine())
		srv := transport.NewServer(cfg, orch)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		logging.Get(logging.CategoryTransport).Info("symbolicd serving on stdio")
		return srv.ServeStdio(ctx)
	},
}

var validateOnlyCmd = &cobra.Command{
	Use:   "validate-only [file]",
	Short: "Run only the static validator against a source file and print the verdict",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logging.CloseAll()

		source, err := readSource(args[0])
		if err != nil {
			return err
		}

		report := validator.Validate(cmd.Context(), source, cfg)
		if report.OK {
			fmt.Println("ok")
			return nil
		}
		fmt.Printf("rejected: %s: %s\n", report.Kind, report.Message)
		os.Exit(1)
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Force-release every live isolation unit (operator recovery tool)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		defer logging.CloseAll()

		before := isolation.Count()
		isolation.Sweep()
		fmt.Printf("released %d isolation unit(s)\n", before)
		return nil
	},
}

func readSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
