package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/danmuck/tradefeed/internal/config"
)

var errUsage = errors.New("usage: feedctl [-config path] [-output path] [-metrics path] [-log-level level] <host> <port>")

type cliFlags struct {
	configPath  string
	output      string
	metricsFile string
	logLevel    string
}

// parseArgs resolves flags, the optional config file and the two positional
// arguments into run settings. Positional host and port always win.
func parseArgs(args []string, stderr io.Writer) (config.Settings, error) {
	fs := flag.NewFlagSet("feedctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f cliFlags
	fs.StringVar(&f.configPath, "config", "", "optional TOML config file")
	fs.StringVar(&f.output, "output", "", "output JSON path (default packets.json)")
	fs.StringVar(&f.metricsFile, "metrics", "", "write prometheus textfile metrics to this path")
	fs.StringVar(&f.logLevel, "log-level", "", "trace|debug|info|warn|error|off")
	if err := fs.Parse(args); err != nil {
		return config.Settings{}, errUsage
	}
	if fs.NArg() != 2 {
		return config.Settings{}, errUsage
	}

	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Settings{}, err
		}
		cfg = loaded
	}

	host := strings.TrimSpace(fs.Arg(0))
	port, err := parsePort(fs.Arg(1))
	if err != nil {
		return config.Settings{}, err
	}
	cfg.Feed.Host = host
	cfg.Feed.Port = port
	if f.output != "" {
		cfg.Output = f.output
	}
	if f.metricsFile != "" {
		cfg.MetricsFile = f.metricsFile
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}

	if err := config.Validate(cfg); err != nil {
		return config.Settings{}, err
	}
	return cfg, nil
}

func parsePort(raw string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid port number %q: %w", raw, err)
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port number %d: out of range", port)
	}
	return port, nil
}
