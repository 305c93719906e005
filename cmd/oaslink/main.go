package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/mark3labs/oaslink/internal/cli"
)

func main() {
	// A .env file may set OASLINK_CONFIG.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
