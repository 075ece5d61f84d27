// Package common holds helpers shared by the CLI actions.
package common

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Exit codes returned by every command.
const (
	ExitOK      = 0
	ExitNoWork  = 1 // nothing to do or bad input
	ExitFailure = 2 // the run could not complete
)

// NewLogger builds the JSON logger written to stderr. quiet wins over verbose.
func NewLogger(quiet, verbose bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	switch {
	case quiet:
		level = zapcore.ErrorLevel
	case verbose:
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// FilterFields converts v to a map keeping only the comma separated fields.
// An empty fields string keeps everything.
func FilterFields(v any, fields string) map[string]any {
	full := structToMap(v)
	if strings.TrimSpace(fields) == "" {
		return full
	}

	filtered := make(map[string]any)
	for _, field := range strings.Split(fields, ",") {
		field = strings.TrimSpace(field)
		if value, ok := full[field]; ok {
			filtered[field] = value
		}
	}
	return filtered
}

// structToMap converts a struct to map[string]any using JSON marshaling.
func structToMap(obj any) map[string]any {
	data, _ := json.Marshal(obj)
	var result map[string]any
	_ = json.Unmarshal(data, &result)
	return result
}

// WriteFormatted writes v to w as "yaml" or "json".
func WriteFormatted(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "", "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s (use: yaml or json)", format)
	}
}
