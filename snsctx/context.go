// Package snsctx carries request-scoped switches for bus transports.
package snsctx

import (
	"context"
	"encoding/hex"
	"log/slog"
)

type ctxIndex int

const (
	ctxIndexVerbose ctxIndex = iota
	ctxIndexDevice
)

func IsVerbose(ctx context.Context) bool {
	val, ok := ctx.Value(ctxIndexVerbose).(bool)
	return ok && val
}

// SetVerbose turns on frame dumps in the transports for calls made with the returned context.
func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexVerbose, value)
}

// WithDevice tags frame dumps with a device name.
func WithDevice(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxIndexDevice, name)
}

func Device(ctx context.Context) string {
	name, _ := ctx.Value(ctxIndexDevice).(string)
	return name
}

// Dump logs frame at debug level when ctx is verbose.
func Dump(ctx context.Context, msg string, frame []byte) {
	if !IsVerbose(ctx) {
		return
	}
	attrs := []any{"len", len(frame), "frame", hex.EncodeToString(frame)}
	if name := Device(ctx); name != "" {
		attrs = append(attrs, "device", name)
	}
	slog.DebugContext(ctx, msg, attrs...)
}
