package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tbxark/healthagent/config"
	"github.com/tbxark/healthagent/types"
)

func main() {
	conf := flag.String("config", "config.yaml", "path to config file (yaml or json)")
	mode := flag.String("mode", "repl", "repl or serve")
	kind := flag.String("kind", string(types.RecordExercise), "initial record kind for the repl: exercise or diet")
	flag.Parse()

	cfg, err := config.Load(*conf)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	setupLogger(cfg, *mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "serve":
		err = startServer(ctx, cfg)
	case "repl":
		err = startREPL(ctx, cfg, types.RecordKind(*kind))
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
	if err != nil {
		slog.Error("healthagent stopped", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config, mode string) {
	level, _ := config.ParseLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if mode == "serve" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
