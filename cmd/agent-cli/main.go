package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; existing variables are never overridden
	_ = godotenv.Load()

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, newModel))
}
