/*
Package log provides structured logging for hutch using zerolog.

The package wraps zerolog behind a global Logger initialized once via
Init, with JSON output for production and a console writer for
development. Each package takes a child logger naming itself and
attaches the fields that matter in a fleet as it goes:

	buildLog := log.WithComponent("builder")
	buildLog.Info().Str("image", "demo").Msg("build started")

Use .Err(err) for errors rather than formatting them into the message.
*/
package log
