package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"weather-agent/internal/agent"
	"weather-agent/internal/cli"
	"weather-agent/internal/config"
	"weather-agent/internal/llm"
	"weather-agent/pkg/tools"
)

func main() {
	envFile := flag.String("env", "", "dotenv file to load (default .env when present)")
	graph := flag.Bool("graph", false, "print the agent pipeline as a Mermaid flowchart and exit")
	flag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}

	cfg, err := config.Load(files...)
	if err != nil {
		fallback := config.Default()
		logger := fallback.Logger(os.Stderr)
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger := cfg.Logger(os.Stderr)

	if *graph {
		fmt.Print(agent.New(nil, nil, logger).Pipeline().Mermaid())
		return
	}

	if err := cfg.ValidateAgent(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	model, err := llm.New(cfg.LLM, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create language model")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := agent.New(model, tools.NewWeatherTool(cfg.Agent.MCPURL, logger), logger)
	if err := cli.New(a, os.Stdin, os.Stdout, logger).Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Agent loop failed")
	}
}
