// cmd/obx/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/semmidev/obx/internal/app"
	"github.com/semmidev/obx/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	flags := pflag.NewFlagSet("obx", pflag.ContinueOnError)
	flags.String("host", "", "PostgreSQL host (prompted when omitted)")
	flags.Int("port", 0, "PostgreSQL port (prompted when omitted)")
	flags.String("user", "", "PostgreSQL user (prompted when omitted)")
	flags.String("password", "", "PostgreSQL password (prompted when omitted)")
	flags.String("database", "", "database to back up (prompted when omitted)")
	flags.String("filestore-path", "", "filestore directory (detected when omitted)")
	flags.String("output-path", "", "directory for backup archives")
	flags.Bool("setup-cron", false, "set up a recurring cron backup")
	flags.Bool("non-interactive", false, "never prompt, use flags and defaults")
	flags.String("cron-schedule", config.DefaultSchedule, "cron schedule for recurring backups")
	flags.String("config", "", "path to a config file")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "also log to this file")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Resolve(flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return application.Run(ctx)
}
