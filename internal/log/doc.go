// Package log builds the application's slog loggers.
//
// Every logger is wrapped in a SecureHandler that masks credentials before
// they are written: publisher bearer tokens, proxy passwords, cookies and
// custom auth headers configured per source. Masking applies in verbose mode
// too, since run logs are often attached to bug reports.
//
//	logger := log.New(os.Stderr, log.Options{Verbose: true, JSON: false})
//	logger.Debug("publishing", "endpoint", url, "token", token) // token is masked
//	slog.SetDefault(logger)
package log
