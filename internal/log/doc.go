// Package log builds docmirror's slog loggers.
//
// NewLogger writes to the console at Warn (Debug with Verbose) and, when a
// file is given, to a log file at Info. Every record passes through a
// SecureHandler first, which masks:
//   - well-known secret attributes (Authorization, Cookie, tokens, passwords)
//   - values that look like credentials (bearer and basic auth, JWTs)
//   - userinfo and credential query parameters inside URLs
//   - the literal values of user-supplied request headers
//
// # Usage
//
//	logger := log.NewLogger(log.Options{
//	    Console: os.Stderr,
//	    File:    logFile, // optional
//	    Secrets: []string{"token-from-header"},
//	})
//
//	logger.Info("fetch succeeded",
//	    "url", "https://user:pw@docs.example.com/guide?token=abc", // logged as https://docs.example.com/guide?token=***REDACTED***
//	    "status", 200,
//	)
package log
