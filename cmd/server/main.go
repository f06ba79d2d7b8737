package main

import (
	"context"
	"flag"
	"log"

	"github.com/david/tender-scout/internal/api"
	"github.com/david/tender-scout/internal/app"
	"github.com/david/tender-scout/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	deps, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer deps.Close()

	srv := api.NewServer(api.Options{
		Opportunities: deps.Opportunities,
		Daily:         deps.Daily,
		Predictions:   deps.Predictions,
		CORSOrigins:   cfg.Server.CORSOrigins,
	})
	log.Printf("Server starting on port %s with %d tenders...", cfg.Server.Port, len(deps.Opportunities))
	if err := srv.Start(cfg.Server.Port); err != nil {
		log.Fatal(err)
	}
}
