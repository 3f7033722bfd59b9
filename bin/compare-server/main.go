package main

import (
	"context"
	"flag"
	"image-comparator/internal/env"
	"image-comparator/internal/runnable"
	"log"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	flag.BoolVar(&runnable.Debug, "debug", env.OrDefault("DEBUG", false), "Serve pprof endpoints and log as text")
	flag.Parse()

	if err := runnable.NewServer().Start(context.Background()); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
