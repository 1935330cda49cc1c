// SPDX-License-Identifier: MIT
// Command ebmf-sim runs one end-to-end factorization experiment: it draws a
// synthetic low-rank dataset, fits it with the chunked empirical-Bayes loop,
// and grades the fit against the generative truth.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, logger); err != nil {
		logger.Error().Err(err).Msg("experiment failed")
		os.Exit(1)
	}
}
