package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry wires error capture; a missing DSN disables it silently.
func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureErr reports non-nil errors. Used for best-effort side effects whose
// failures are swallowed by the request path.
func CaptureErr(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}
