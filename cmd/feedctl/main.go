package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/tradefeed/internal/config"
	"github.com/danmuck/tradefeed/internal/feed"
	"github.com/danmuck/tradefeed/internal/logging"
	"github.com/danmuck/tradefeed/internal/observability"
	"github.com/danmuck/tradefeed/internal/output"
	"github.com/rs/zerolog/log"
)

const (
	exitOK      = 0
	exitProblem = 1
)

func main() {
	logging.ConfigureRuntime()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one fetch and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := parseArgs(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "feedctl: %v\n", err)
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(stderr, errUsage)
		}
		return exitProblem
	}
	if cfg.LogLevel != "" {
		logging.SetLevel(cfg.LogLevel)
	}

	code := fetch(ctx, cfg, stdout)
	if cfg.MetricsFile != "" {
		if err := observability.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn().Err(err).Str("path", cfg.MetricsFile).Msg("metrics textfile")
		}
	}
	return code
}

func fetch(ctx context.Context, cfg config.Settings, stdout io.Writer) int {
	client, err := feed.NewClient(cfg.Feed, nil)
	if err != nil {
		log.Error().Err(err).Msg("feedctl")
		return exitProblem
	}

	res, err := client.Run(ctx)
	if err != nil {
		log.Error().Err(err).Str("addr", cfg.Feed.Addr()).Msg("feedctl: stream fetch failed")
		return exitProblem
	}

	if err := output.WritePackets(cfg.Output, res.Packets); err != nil {
		log.Error().Err(err).Msg("feedctl")
		return exitProblem
	}
	fmt.Fprintf(stdout, "wrote %d packets to %s\n", len(res.Packets), cfg.Output)

	if !res.Complete() {
		gaps := make([]string, 0, len(res.Gaps))
		for _, g := range res.Gaps {
			gaps = append(gaps, g.String())
		}
		log.Warn().Strs("missing", gaps).Int64("count", res.MissingCount()).Msg("some sequences are missing")
		return exitProblem
	}
	return exitOK
}
