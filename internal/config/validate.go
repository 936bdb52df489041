// Package config provides configuration models and helpers for import
// pipelines.
//
// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dataimport/internal/storage"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "imports[0].destination.table").
// Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Errors joins the error-severity issues into one error, or returns nil when
// there are none.
func Errors(issues []Issue) error {
	var errs []error
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	return errors.Join(errs...)
}

var (
	knownSources      = map[string]struct{}{"file": {}, "s3": {}, "http": {}, "sql": {}}
	knownDatabases    = map[string]struct{}{"postgres": {}, "mysql": {}, "mssql": {}, "sqlite": {}}
	knownTruncateMode = map[string]struct{}{"": {}, string(storage.ClearDelete): {}, string(storage.ClearTruncate): {}}
	knownPolicies     = map[string]struct{}{"": {}, "continue": {}, "stop": {}}
	knownLevels       = map[string]struct{}{"": {}, "debug": {}, "info": {}, "warn": {}, "error": {}}
	knownFormats      = map[string]struct{}{"": {}, "text": {}, "json": {}}
)

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Instead it returns a slice of Issue values.
// Callers may decide whether to treat warnings as fatal or not.
//
// Example:
//
//	p, err := config.Load("pipeline.yaml")
//	if err != nil { ... }
//	for _, iss := range config.ValidatePipeline(p) {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateLogging(p.Logging)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	issues = append(issues, validateRuntime(p.Runtime)...)

	if len(p.Imports) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "imports",
			Message:  "at least one import is required",
		})
		return issues
	}

	names := map[string]int{}
	clearing := map[string]int{}
	for i, imp := range p.Imports {
		path := fmt.Sprintf("imports[%d]", i)
		issues = append(issues, validateImport(path, imp)...)

		if imp.Name != "" {
			if prev, dup := names[imp.Name]; dup {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + ".name",
					Message:  fmt.Sprintf("duplicate import name %q (also imports[%d])", imp.Name, prev),
				})
			} else {
				names[imp.Name] = i
			}
		}

		if imp.Truncate {
			key := imp.Destination.Kind + "|" + imp.Destination.DSN + "|" + imp.Destination.Table
			if prev, dup := clearing[key]; dup {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     path + ".truncate",
					Message:  fmt.Sprintf("imports[%d] also truncates this table; the later import clears the earlier one's rows", prev),
				})
			} else {
				clearing[key] = i
			}
		}
	}

	return issues
}

func validateLogging(l Logging) []Issue {
	var issues []Issue
	if _, ok := knownLevels[strings.ToLower(l.Level)]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "logging.level",
			Message:  fmt.Sprintf("unknown log level %q; info will be used", l.Level),
		})
	}
	if _, ok := knownFormats[strings.ToLower(l.Format)]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "logging.format",
			Message:  fmt.Sprintf("unknown log format %q; text will be used", l.Format),
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
	case "prompush":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "prompush backend requires pushgateway_url",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires datadog_addr",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q (want none|prompush|datadog)", m.Backend),
		})
	}
	return issues
}

// validateRuntime validates RuntimeConfig for obvious misconfigurations.
func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.Parallel < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.parallel",
			Message:  "parallel must not be negative",
		})
	}
	return issues
}

func validateImport(path string, imp Import) []Issue {
	var issues []Issue

	if strings.TrimSpace(imp.Name) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     path + ".name",
			Message:  "import has no name; the destination table will be used in logs",
		})
	}
	issues = append(issues, validateSource(path+".source", imp.Source)...)
	issues = append(issues, validateDestination(path+".destination", imp.Destination)...)

	if imp.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".batch_size",
			Message:  fmt.Sprintf("batch_size=%d; must be positive, or 0 for the default", imp.BatchSize),
		})
	}
	if _, ok := knownTruncateMode[imp.TruncateMode]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".truncate_mode",
			Message:  fmt.Sprintf("unknown truncate_mode %q (want delete|truncate)", imp.TruncateMode),
		})
	}
	if imp.TruncateMode == string(storage.ClearTruncate) && imp.Destination.Kind == "sqlite" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".truncate_mode",
			Message:  "sqlite has no TRUNCATE TABLE; use truncate_mode delete",
		})
	}
	if imp.TruncateMode != "" && !imp.Truncate {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     path + ".truncate_mode",
			Message:  "truncate_mode is set but truncate is false; the destination will not be cleared",
		})
	}
	if _, ok := knownPolicies[imp.OnBatchError]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".on_batch_error",
			Message:  fmt.Sprintf("unknown on_batch_error %q (want continue|stop)", imp.OnBatchError),
		})
	}
	if imp.MaxRowsPerSecond < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".max_rows_per_second",
			Message:  "max_rows_per_second must not be negative",
		})
	}

	dests := map[string]int{}
	for i, m := range imp.Mappings {
		mp := fmt.Sprintf("%s.mappings[%d]", path, i)
		if strings.TrimSpace(m.Source) == "" || strings.TrimSpace(m.Destination) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     mp,
				Message:  "mapping needs both source and destination",
			})
			continue
		}
		key := strings.ToLower(m.Destination)
		if prev, dup := dests[key]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     mp + ".destination",
				Message:  fmt.Sprintf("destination %q is already mapped by mappings[%d]", m.Destination, prev),
			})
			continue
		}
		dests[key] = i
	}

	return issues
}

// validateSource validates Source configuration.
func validateSource(path string, s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".kind",
			Message:  "source.kind must not be empty",
		})
		return issues
	}
	if _, ok := knownSources[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".kind",
			Message:  fmt.Sprintf("unknown source kind %q (want file|s3|http|sql)", s.Kind),
		})
		return issues
	}

	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".file.path",
				Message:  "file source requires a non-empty path",
			})
		}
	case "s3":
		if strings.TrimSpace(s.S3.Endpoint) == "" || strings.TrimSpace(s.S3.Bucket) == "" || strings.TrimSpace(s.S3.Key) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".s3",
				Message:  "s3 source requires endpoint, bucket and key",
			})
		}
		if (s.S3.AccessKey == "") != (s.S3.SecretKey == "") {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".s3",
				Message:  "access_key and secret_key must be set together",
			})
		}
	case "http":
		if u := strings.TrimSpace(s.HTTP.URL); !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".http.url",
				Message:  fmt.Sprintf("http source requires an http(s) url, got %q", s.HTTP.URL),
			})
		}
		if s.HTTP.Timeout != "" {
			if d, err := time.ParseDuration(s.HTTP.Timeout); err != nil || d <= 0 {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + ".http.timeout",
					Message:  fmt.Sprintf("timeout %q is not a positive duration", s.HTTP.Timeout),
				})
			}
		}
		if s.HTTP.MaxRetries < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".http.max_retries",
				Message:  "max_retries must not be negative",
			})
		}
		if s.HTTP.InsecureSkipVerify {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".http.insecure_skip_verify",
				Message:  "TLS certificate verification is disabled",
			})
		}
	case "sql":
		if _, ok := knownDatabases[s.SQL.Kind]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".sql.kind",
				Message:  fmt.Sprintf("unknown sql source kind %q", s.SQL.Kind),
			})
		}
		if strings.TrimSpace(s.SQL.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".sql.dsn",
				Message:  "sql source requires a dsn",
			})
		}
		if strings.TrimSpace(s.SQL.Query) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".sql.query",
				Message:  "sql source requires a query",
			})
		}
	}

	if s.Kind != "sql" {
		if c := s.Options.String("comma", ""); len([]rune(c)) > 1 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".options.comma",
				Message:  fmt.Sprintf("comma must be a single character, got %q", c),
			})
		}
	}

	return issues
}

// validateDestination validates the destination table settings.
func validateDestination(path string, d Destination) []Issue {
	var issues []Issue

	if strings.TrimSpace(d.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".kind",
			Message:  "destination.kind must not be empty",
		})
	} else if _, ok := knownDatabases[d.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     path + ".kind",
			Message:  fmt.Sprintf("unknown destination kind %q; ensure a matching backend is registered", d.Kind),
		})
	}
	if strings.TrimSpace(d.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".dsn",
			Message:  "destination.dsn must not be empty",
		})
	}
	if _, err := storage.ParseTable(storage.DoubleQuotes, d.Table); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".table",
			Message:  err.Error(),
		})
	}
	if d.Tablock && d.Kind != "mssql" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     path + ".tablock",
			Message:  "tablock only applies to mssql destinations",
		})
	}

	return issues
}
