package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Credentials (RapidAPI key, webhook URL) usually live in a local .env;
	// a missing file is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
