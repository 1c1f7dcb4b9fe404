// Package main implements the tidecrawl command line client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// main is the entry point of the application. It defers all execution to
// the Cobra CLI library.
func main() {
	// A .env file is a convenience for local use; absence is fine.
	_ = godotenv.Load()

	viper.SetEnvPrefix("TIDECRAWL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "tidecrawl: %v\n", err)
		os.Exit(1)
	}
}
