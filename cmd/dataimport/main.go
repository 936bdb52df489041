// Command dataimport runs the imports described by a pipeline file: every
// import streams a CSV file, an S3 object or a SQL query into a database
// table in batches.
//
//	dataimport run -c pipeline.yaml
//	dataimport run -c pipeline.yaml sales returns
//	dataimport validate -c pipeline.yaml
//	dataimport backends
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dataimport/internal/config"
	"dataimport/internal/storage"

	// register all backends with the storage factory.
	_ "dataimport/internal/storage/all"
)

// Version is set at build time.
var Version = "dev"

// flags holds the global command-line flags. They override the pipeline
// file's logging and metrics sections.
type flags struct {
	config    string
	envFiles  []string
	logLevel  string
	logFormat string
	logFile   string
	metrics   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "dataimport",
		Short: "Batched bulk import of CSV files and query results into database tables",
		Long: `dataimport streams rows from CSV files (local or S3) and SQL queries into
database tables. Each import probes its destination table, converts every row
to the table's column types, and writes rows in batches using the backend's
bulk path (SQL Server bulk copy, Postgres COPY).`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(f.envFiles...)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.config, "config", "c", "pipeline.yaml", "pipeline file (JSON, or YAML for .yaml/.yml)")
	pf.StringSliceVar(&f.envFiles, "env-file", []string{".env"}, "KEY=VALUE files loaded before the pipeline is read")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides logging.level)")
	pf.StringVar(&f.logFormat, "log-format", "", "log format: text or json (overrides logging.format)")
	pf.StringVar(&f.logFile, "log-file", "", "also write JSON logs to this file (overrides logging.file)")
	pf.StringVar(&f.metrics, "metrics", "", "metrics backend: none, prompush, datadog (overrides metrics.backend)")

	root.AddCommand(newRunCmd(f), newValidateCmd(f), newBackendsCmd())
	return root
}

func newRunCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "run [import...]",
		Short: "Run all imports, or only the named ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(f)
			if err != nil {
				return err
			}
			return runPipeline(cmd.Context(), cmd.OutOrStdout(), p, args)
		},
	}
}

func newValidateCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the pipeline file and print any issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.Load(f.config)
			if err != nil {
				return err
			}
			issues := config.ValidatePipeline(p)
			for _, iss := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if err := config.Errors(issues); err != nil {
				return fmt.Errorf("configuration is invalid: %s", f.config)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: %s\n", f.config)
			return nil
		},
	}
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the destination kinds compiled into this binary",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, k := range storage.ListKinds() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
		},
	}
}

// loadPipeline reads the pipeline file, applies flag overrides and rejects
// configurations with errors.
func loadPipeline(f *flags) (config.Pipeline, error) {
	p, err := config.Load(f.config)
	if err != nil {
		return config.Pipeline{}, err
	}
	if f.logLevel != "" {
		p.Logging.Level = f.logLevel
	}
	if f.logFormat != "" {
		p.Logging.Format = f.logFormat
	}
	if f.logFile != "" {
		p.Logging.File = f.logFile
	}
	if f.metrics != "" {
		p.Metrics.Backend = f.metrics
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		if iss.Severity == config.SeverityWarning {
			fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		}
	}
	if err := config.Errors(issues); err != nil {
		return config.Pipeline{}, fmt.Errorf("configuration is invalid: %w", err)
	}
	return p, nil
}
