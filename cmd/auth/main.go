package main

import (
	"log"
	"os"

	"github.com/kommerce/tradegate/internal/auth/app"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	// A .env in the working directory seeds the environment; real env vars win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("failed to load .env: %v", err)
	}

	cfg := app.LoadConfig()
	parseFlags(&cfg, os.Args[1:])

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

// parseFlags lets the most common settings be overridden on the command
// line; everything else stays environment-only.
func parseFlags(cfg *app.Config, args []string) {
	fs := pflag.NewFlagSet("tradegate-auth", pflag.ExitOnError)

	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP server port")
	fs.StringVarP(&cfg.DatabaseFile, "database", "d", cfg.DatabaseFile, "SQLite database file")
	fs.StringVarP(&cfg.LogLevel, "log-level", "l", cfg.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&cfg.Env, "environment", "e", cfg.Env, "Environment (dev, staging, prod)")
	fs.StringVar(&cfg.Network, "network", cfg.Network, "Network identifier stamped into session tokens")

	_ = fs.Parse(args)
}
