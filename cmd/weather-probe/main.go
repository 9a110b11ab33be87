package main

import (
	"context"
	"flag"
	"os"
	"time"

	"weather-agent/internal/config"
)

func main() {
	envFile := flag.String("env", "", "dotenv file to load (default .env when present)")
	city := flag.String("city", "Moscow", "city passed to get_weather")
	timeout := flag.Duration("timeout", 30*time.Second, "overall probe timeout")
	flag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}

	cfg, err := config.Load(files...)
	if err == nil {
		err = cfg.ValidateProbe()
	}
	if err != nil {
		fallback := config.Default()
		logger := fallback.Logger(os.Stderr)
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger := cfg.Logger(os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := probe(ctx, cfg.Agent.MCPURL, *city, logger); err != nil {
		logger.Fatal().Err(err).Str("url", cfg.Agent.MCPURL).Msg("Probe failed")
	}
}
