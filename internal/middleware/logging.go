package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor logs each handled call once it finishes: procedure,
// caller, duration and, on failure, the Connect code. Internal errors are
// logged at error level, everything else the caller caused at warn.
// Install it after RequireAuth so the person ID is known.
func LoggingInterceptor() connect.Interceptor {
	return &loggingInterceptor{}
}

type loggingInterceptor struct{}

func (l *loggingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		start := time.Now()
		resp, err := next(ctx, req)
		logCall(ctx, req.Spec().Procedure, start, err)
		return resp, err
	}
}

func (l *loggingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (l *loggingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		start := time.Now()
		err := next(ctx, conn)
		logCall(ctx, conn.Spec().Procedure, start, err)
		return err
	}
}

func logCall(ctx context.Context, procedure string, start time.Time, err error) {
	attrs := []any{
		"procedure", procedure,
		"person_id", GetPersonID(ctx),
		"duration_ms", time.Since(start).Milliseconds(),
	}

	var connectErr *connect.Error
	switch {
	case err == nil:
		slog.Info("RPC ok", attrs...)
	case errors.As(err, &connectErr) && connectErr.Code() != connect.CodeInternal:
		slog.Warn("RPC failed", append(attrs, "code", connectErr.Code(), "error", connectErr.Message())...)
	default:
		slog.Error("RPC failed", append(attrs, "error", err)...)
	}
}
