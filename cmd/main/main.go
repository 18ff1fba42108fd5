package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"streambot/internal/app/infrastructure/config"
	"streambot/internal/pkg/app"
)

func main() {
	configPath := flag.String("config", "settings.json", "path to the settings document")
	envPath := flag.String("env", ".env", "path to an optional .env file with secret overrides")
	flag.Parse()

	if err := config.LoadDotEnv(*envPath); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.New(ctx, *configPath); err != nil {
		log.Fatal(err)
	}
}
