// Package runctx carries the identity of the current ingest or maintenance run.
package runctx

import (
	"context"

	"github.com/google/uuid"
)

type ContextKey string

var (
	RunIDKey  = ContextKey("X-Run-Id")
	SourceKey = ContextKey("X-Source")
	PassKey   = ContextKey("X-Pass")
)

func SetRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

func GetRunID(ctx context.Context) string {
	value, ok := ctx.Value(RunIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

// EnsureRunID returns ctx with a run id, minting a uuid when ctx has none.
func EnsureRunID(ctx context.Context) (context.Context, string) {
	if id := GetRunID(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return SetRunID(ctx, id), id
}

func SetSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}

func GetSource(ctx context.Context) string {
	value, ok := ctx.Value(SourceKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetPass(ctx context.Context, pass string) context.Context {
	return context.WithValue(ctx, PassKey, pass)
}

func GetPass(ctx context.Context) string {
	value, ok := ctx.Value(PassKey).(string)
	if !ok {
		return ""
	}
	return value
}

// Fields returns the run values present in ctx, for structured log lines.
func Fields(ctx context.Context) map[string]any {
	fields := make(map[string]any, 3)
	if v := GetRunID(ctx); v != "" {
		fields["run_id"] = v
	}
	if v := GetSource(ctx); v != "" {
		fields["source"] = v
	}
	if v := GetPass(ctx); v != "" {
		fields["pass"] = v
	}
	return fields
}
