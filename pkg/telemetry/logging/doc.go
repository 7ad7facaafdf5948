// Package logging configures the process wide slog logger.
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	slog.SetDefault(logger.Slog())
//
// The level lives in a slog.LevelVar, so SetLevel changes it for every
// logger derived from the default, including ones created with With.
//
// Sweep and request ids travel in the context and are added to records by
// FromContext.
package logging
