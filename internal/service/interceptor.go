package service

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/sirupsen/logrus"
)

// LoggingInterceptor logs every unary call with its procedure, outcome and
// duration. Server-side failures are logged at error level.
func LoggingInterceptor(logger *logrus.Entry) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			entry := logger.WithFields(logrus.Fields{
				"procedure":   req.Spec().Procedure,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			if err == nil {
				entry.Info("rpc completed")
				return resp, nil
			}

			code := connect.CodeOf(err)
			entry = entry.WithField("code", code.String()).WithError(err)
			if code == connect.CodeInternal || code == connect.CodeUnknown {
				entry.Error("rpc failed")
			} else {
				entry.Warn("rpc rejected")
			}
			return resp, err
		}
	}
}
