package log

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestToFields(t *testing.T) {
	now := time.Now()
	err := errors.New("boom")

	tests := []struct {
		name  string
		input []any
		want  int
	}{
		{"empty input", []any{}, 0},
		{"string-int-bool", []any{"driverID", "d-1", "count", 3, "online", true}, 3},
		{"time and duration", []any{"updatedAt", now, "age", 59 * time.Second}, 2},
		{"coordinates", []any{"lat", -23.55, "lng", -46.63}, 2},
		{"bytes", []any{"payload", []byte("xyz")}, 1},
		{"string slice", []any{"topics", []string{"a", "b"}}, 1},
		{"error only", []any{err}, 1},
		{"multiple errors", []any{err, errors.New("again")}, 2},
		{"mixed field types", []any{"msg", "ok", zap.String("x", "y"), "num", 42}, 3},
		{"odd number of args", []any{"key1", "val1", "key2"}, 2},
		{"non-string key", []any{123, "value", true, 99}, 2},
		{"nil values", []any{"a", nil, "b", (*int)(nil)}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.input...)

			if len(fields) != tt.want {
				t.Fatalf("got %d fields, want %d: %+v", len(fields), tt.want, fields)
			}

			for _, f := range fields {
				if f.Key == "" {
					t.Errorf("field has empty key: %+v", f)
				}
			}
		})
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr int
	}{
		{"defaults", func(o *Options) {}, 0},
		{"json debug", func(o *Options) { o.Format = "json"; o.Level = "debug" }, 0},
		{"bad level", func(o *Options) { o.Level = "loud" }, 1},
		{"bad format", func(o *Options) { o.Format = "xml" }, 1},
		{"both bad", func(o *Options) { o.Level = "loud"; o.Format = "xml" }, 2},
		{"no output", func(o *Options) { o.OutputPaths = nil }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			tt.mutate(o)
			if errs := o.Validate(); len(errs) != tt.wantErr {
				t.Fatalf("Validate() = %v, want %d errors", errs, tt.wantErr)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	if got := parseLevel("warn"); got != zapcore.WarnLevel {
		t.Errorf("parseLevel(warn) = %v", got)
	}
	if got := parseLevel("nonsense"); got != zapcore.InfoLevel {
		t.Errorf("parseLevel(nonsense) = %v, want info", got)
	}
}
