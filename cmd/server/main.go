package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/notekeeper/internal/server"
	"github.com/dmitrijs2005/notekeeper/internal/server/config"
	"github.com/joho/godotenv"
)

func main() {

	// .env is optional; real deployments configure through the environment
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
