package main

import (
	"flag"

	"github.com/danmuck/tradefeed/internal/config"
	"github.com/danmuck/tradefeed/internal/logging"
	"github.com/rs/zerolog/log"
)

const defaultConfigPath = "cmd/feedctl/config.toml"

func main() {
	output := flag.String("output", defaultConfigPath, "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", defaultConfigPath, "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	logging.ConfigureRuntime()

	if *validate {
		cfg, err := config.Load(*input)
		if err != nil {
			log.Fatal().Err(err).Str("path", *input).Msg("invalid feedctl config")
		}
		log.Info().Str("path", *input).Str("addr", cfg.Feed.Addr()).Msg("validated feedctl config")
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal().Err(err).Msg("write config template")
	}
	log.Info().Str("path", *output).Msg("wrote feedctl config template")
}
