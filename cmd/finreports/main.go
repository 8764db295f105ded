package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/yannmerakeb/nlp-financial-reports/internal/cmd"
)

func main() {
	// API keys and the bot token usually arrive through .env in development;
	// a missing file is fine.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
