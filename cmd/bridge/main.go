// Command bridge is the entrypoint: a CLI that, given a config path and a
// role subcommand, wires and runs exactly one of the four roles (econ,
// handler, bot-reader, bot-writer) until it receives a termination
// signal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/teeworlds-nats/bridge/internal/config"
	"github.com/teeworlds-nats/bridge/internal/otel"
	"github.com/teeworlds-nats/bridge/internal/role"
	"github.com/teeworlds-nats/bridge/internal/telemetry"
)

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [-c config.yaml] <role>

ROLES:
  econ         run the console-bridge role
  handler      run the transformer role
  bot-reader   relay bus messages to chat
  bot-writer   relay chat updates to the bus

FLAGS:
`, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("c", "config.yaml", "path to the role's YAML config file")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		printUsage()
		return 2
	}
	roleName := args[0]

	cfg, err := config.Load(*configPath)
	if err != nil {
		var wrote *config.WroteDefault
		if errors.As(err, &wrote) {
			fmt.Fprintf(os.Stderr, "wrote default config to %s; edit it and run again\n", wrote.Path)
			return 0
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[0], err)
		return 1
	}

	quiet := !isatty.IsTerminal(os.Stdout.Fd())
	logger, closer, err := telemetry.NewLogger(homeDir(cfg), cfg.Logging, quiet)
	if err != nil {
		fatalStartup(nil, err)
		return 1
	}
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := otel.Init(ctx, cfg.Otel)
	if err != nil {
		fatalStartup(logger, err)
		return 1
	}
	defer provider.Shutdown(ctx)

	runFn, ok := roles[roleName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", roleName)
		printUsage()
		return 2
	}

	logger.Info("starting role", "role", roleName, "config", *configPath)
	if err := runFn(ctx, cfg, logger, provider); err != nil && ctx.Err() == nil {
		logger.Error("role exited with error", "role", roleName, "error", err)
		return 1
	}
	logger.Info("role stopped", "role", roleName)
	return 0
}

type roleFunc func(ctx context.Context, cfg config.Config, logger *slog.Logger, provider *otel.Provider) error

var roles = map[string]roleFunc{
	"econ":       role.RunEcon,
	"handler":    role.RunHandler,
	"bot-reader": role.RunBotReader,
	"bot-writer": role.RunBotWriter,
}

// homeDir derives a logs directory from the config file's own location,
// falling back to the current directory when no config path is known.
func homeDir(cfg config.Config) string {
	if cfg.ConfigPath == "" {
		return "."
	}
	return filepath.Dir(cfg.ConfigPath)
}

func fatalStartup(logger *slog.Logger, err error) {
	if logger != nil {
		logger.Error("startup failure", "error", err)
		return
	}
	fmt.Fprintf(os.Stderr, "%s: startup failure: %v\n", os.Args[0], err)
}
