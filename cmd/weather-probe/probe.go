package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"weather-agent/pkg/tools"
)

var heading = color.New(color.Bold)

func probe(ctx context.Context, url, city string, logger zerolog.Logger) error {
	s, err := tools.Dial(ctx, url, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Ping(ctx); err != nil {
		return err
	}
	color.Green("Server is reachable: %s %s (protocol %s)",
		s.Server().ServerInfo.Name, s.Server().ServerInfo.Version, s.Server().ProtocolVersion)

	list, err := s.ListTools(ctx)
	if err != nil {
		return err
	}
	heading.Printf("\nTools available: %d\n", len(list))
	for _, t := range list {
		fmt.Printf("  • %s: %s\n", t.Name, t.Description)
	}

	resources, err := s.ListResources(ctx)
	if err != nil {
		return err
	}
	heading.Printf("\nResources available: %d\n", len(resources))
	for _, r := range resources {
		fmt.Printf("  • %s\n", r.URI)
	}

	prompts, err := s.ListPrompts(ctx)
	if err != nil {
		return err
	}
	heading.Printf("\nPrompts available: %d\n", len(prompts))
	for _, p := range prompts {
		fmt.Printf("  • %s\n", p.Name)
	}

	res, err := s.CallTool(ctx, "get_weather", map[string]any{"city_name": city})
	if err != nil {
		return err
	}
	heading.Printf("\nget_weather(%q):\n", city)
	if res.IsError {
		color.Red("%s", tools.Text(res))
	} else {
		fmt.Println(tools.Text(res))
	}
	return nil
}
