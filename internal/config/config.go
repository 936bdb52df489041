// Package config defines the configuration model for dataimport pipelines.
//
// A pipeline file lists one or more imports; each import names a source (a
// local or S3-hosted CSV file, or a SQL query), a destination table and the
// batching options for the import engine. Files are JSON, or YAML when the
// name ends in .yaml or .yml. ${VAR} references are expanded from the
// environment before decoding.
//
// Example (trimmed):
//
//	{
//	  "job": "nightly",
//	  "imports": [{
//	    "name": "sales",
//	    "source": { "kind": "file", "file": { "path": "sales.csv" }, "options": { "trim_space": true } },
//	    "destination": { "kind": "mssql", "dsn": "${SALES_DSN}", "table": "dbo.Sales" },
//	    "batch_size": 50000,
//	    "truncate": true,
//	    "mappings": [{ "source": "Order ID", "destination": "order_id" }]
//	  }]
//	}
package config

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run; it labels logs and metrics.
	Job string `json:"job" yaml:"job"`

	Logging Logging       `json:"logging" yaml:"logging"`
	Metrics Metrics       `json:"metrics" yaml:"metrics"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`

	// Imports run independently; each has its own source and destination.
	Imports []Import `json:"imports" yaml:"imports"`
}

// Logging configures the process logger. Command-line flags override it.
type Logging struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level"`
	// Format is text or json.
	Format string `json:"format" yaml:"format"`
	// File, when set, receives a JSON copy of every log line.
	File string `json:"file" yaml:"file"`
}

// Metrics selects a metrics backend.
type Metrics struct {
	// Backend is "", "none", "prompush" or "datadog".
	Backend        string   `json:"backend" yaml:"backend"`
	PushgatewayURL string   `json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr    string   `json:"datadog_addr" yaml:"datadog_addr"`
	Namespace      string   `json:"namespace" yaml:"namespace"`
	Tags           []string `json:"tags" yaml:"tags"`
}

// RuntimeConfig controls how imports are scheduled.
type RuntimeConfig struct {
	// Parallel is the number of imports run at once; 0 or 1 runs them in
	// order.
	Parallel int `json:"parallel" yaml:"parallel"`
}

// Import is one source-to-table import.
type Import struct {
	Name        string      `json:"name" yaml:"name"`
	Source      Source      `json:"source" yaml:"source"`
	Destination Destination `json:"destination" yaml:"destination"`

	// BatchSize is the number of rows per bulk write; 0 uses the engine
	// default.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Truncate clears the destination before the first batch.
	Truncate bool `json:"truncate" yaml:"truncate"`
	// TruncateMode is "delete" (default) or "truncate".
	TruncateMode string `json:"truncate_mode" yaml:"truncate_mode"`

	// Mappings route source columns to destination columns. When empty,
	// columns are matched by name.
	Mappings []Mapping `json:"mappings" yaml:"mappings"`

	// OnBatchError is "continue" (default) or "stop".
	OnBatchError string `json:"on_batch_error" yaml:"on_batch_error"`

	// MaxRowsPerSecond throttles bulk writes; 0 disables throttling.
	MaxRowsPerSecond float64 `json:"max_rows_per_second" yaml:"max_rows_per_second"`
}

// Mapping routes one source column to one destination column.
type Mapping struct {
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination" yaml:"destination"`
}

// Source identifies where rows come from.
type Source struct {
	// Kind is "file", "s3", "http" or "sql".
	Kind string `json:"kind" yaml:"kind"`

	File SourceFile `json:"file" yaml:"file"`
	S3   SourceS3   `json:"s3" yaml:"s3"`
	HTTP SourceHTTP `json:"http" yaml:"http"`
	SQL  SourceSQL  `json:"sql" yaml:"sql"`

	// Options configures CSV parsing for file, s3 and http sources. Keys:
	//   comma (string), lazy_quotes (bool), trim_space (bool),
	//   empty_as_null (bool), normalize_headers (bool), header_map (object)
	Options Options `json:"options" yaml:"options"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is a local path; "-" reads stdin and a .gz suffix is decompressed.
	Path string `json:"path" yaml:"path"`
}

// SourceS3 holds configuration for the "s3" source kind. Empty credentials
// fall back to the standard AWS environment variables.
type SourceS3 struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Region    string `json:"region" yaml:"region"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	Key       string `json:"key" yaml:"key"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	URL     string            `json:"url" yaml:"url"`
	Headers map[string]string `json:"headers" yaml:"headers"`
	// Timeout is a Go duration such as "90s"; empty uses the default.
	Timeout            string `json:"timeout" yaml:"timeout"`
	MaxRetries         int    `json:"max_retries" yaml:"max_retries"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// SourceSQL holds configuration for the "sql" source kind.
type SourceSQL struct {
	// Kind is the database kind: postgres, mssql, mysql or sqlite.
	Kind  string `json:"kind" yaml:"kind"`
	DSN   string `json:"dsn" yaml:"dsn"`
	Query string `json:"query" yaml:"query"`
}

// Destination selects the table rows are written to.
type Destination struct {
	// Kind is a registered storage backend: mssql, postgres, mysql, sqlite.
	Kind string `json:"kind" yaml:"kind"`
	DSN  string `json:"dsn" yaml:"dsn"`
	// Table is the destination, optionally schema-qualified.
	Table string `json:"table" yaml:"table"`
	// Tablock requests a table lock for bulk writes (mssql).
	Tablock bool `json:"tablock" yaml:"tablock"`
}

// Options is a small helper to fetch typed values from decoded JSON or YAML
// maps. It performs only minimal type coercion and returns provided defaults
// when a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64
// and YAML integers as int; both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. This is useful for single-character parser settings such as
// a CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty map
// when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of strings
// (or an array of interface values containing strings). Returns nil when the
// key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Any returns the raw value for key (which may itself be a nested
// map[string]any, []any, or primitive). This is useful for retrieving nested
// configuration blocks that will be unmarshaled into a typed struct by the
// caller.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null "options"
// object in JSON decodes to a non-nil, empty Options map. This simplifies call
// sites by removing the need to nil-check Options values.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}

// UnmarshalYAML decodes a YAML mapping into Options.
func (o *Options) UnmarshalYAML(n *yaml.Node) error {
	var tmp map[string]any
	if err := n.Decode(&tmp); err != nil {
		return err
	}
	if tmp == nil {
		tmp = map[string]any{}
	}
	*o = Options(tmp)
	return nil
}
