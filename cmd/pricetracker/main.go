package main

import (
	"github.com/joho/godotenv"

	"price-tracker/internal/cli"
)

func main() {
	// Optional local overrides, e.g. EMAIL_PASSWORD. Missing file is fine.
	_ = godotenv.Load()

	cli.Execute()
}
