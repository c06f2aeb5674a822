/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/friendsincode/courseboard/internal/logbuffer"
)

// Setup configures zerolog for the process. When buf is non-nil every log
// line is also captured in the ring buffer for the admin log endpoint.
func Setup(environment string, buf *logbuffer.Buffer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	if environment == "development" {
		level = zerolog.DebugLevel
	}

	// Console writer for human-readable output
	var writer io.Writer = zerolog.ConsoleWriter{Out: os.Stdout}
	if buf != nil {
		writer = logbuffer.NewWriter(buf, writer)
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(level)
	log.Logger = logger
	return logger
}
