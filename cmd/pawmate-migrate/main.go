// Command pawmate-migrate applies or rolls back the database schema.
//
//	pawmate-migrate [-dsn DSN] up|down [steps]|version
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pawmate/pawmate/internal/config"
	"github.com/pawmate/pawmate/internal/platform/migrations"
	"github.com/pawmate/pawmate/pkg/logger"
)

// dsnEnv matches the server's database.dsn override.
var dsnEnv = config.EnvPrefix + "_DATABASE_DSN"

func main() {
	dsn := flag.String("dsn", "", "database DSN (defaults to $"+dsnEnv+")")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-dsn DSN] up|down [steps]|version\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log := logger.NewDefault("migrate")
	if err := run(*dsn, flag.Args(), log); err != nil {
		log.WithError(err).Error("migration failed")
		os.Exit(1)
	}
}

func run(dsn string, args []string, log *logger.Logger) error {
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("missing command")
	}
	if dsn == "" {
		dsn = os.Getenv(dsnEnv)
	}
	if dsn == "" {
		return fmt.Errorf("no database DSN; pass -dsn or set %s", dsnEnv)
	}

	mg, err := migrations.Open(dsn)
	if err != nil {
		return err
	}
	defer mg.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "up":
		if err := mg.Up(ctx); err != nil {
			return err
		}
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("steps must be a positive integer")
			}
			steps = n
		}
		if err := mg.Down(steps); err != nil {
			return err
		}
	case "version":
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", args[0])
	}

	version, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	log.WithField("version", version).WithField("dirty", dirty).Info("schema version")
	return nil
}
