package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/linkdeck/internal/server"
	"github.com/dmitrijs2005/linkdeck/internal/server/config"
)

func main() {

	// optional .env overlay; absence is not an error
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
