package main

import (
	"github.com/dmitrijs2005/linkdeck/internal/client/cli"
	"github.com/dmitrijs2005/linkdeck/internal/client/config"
	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()

	cfg := config.LoadConfig()
	cli.Execute(cfg)
}
