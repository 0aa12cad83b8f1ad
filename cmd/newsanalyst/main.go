package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"NewsAnalyst/internal/app"
	"NewsAnalyst/internal/config"
	"NewsAnalyst/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to YAML config (overrides NEWSANALYST_CONFIG)")
	topic := flag.String("topic", "", "topic to analyze")
	stages := flag.String("stages", "", "comma separated stages to run: research,analyze,factcheck,report")
	watch := flag.Bool("watch", false, "re-analyze configured topics on the schedule")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			return 2
		}
		cfg = loaded
	}
	if *stages != "" {
		cfg.Pipeline.EnabledStages = strings.Split(*stages, ",")
	}

	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		return 1
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("close application", "error", err)
		}
	}()

	if *watch {
		if err := application.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("application stopped", "error", err)
			return 1
		}
		return 0
	}

	if strings.TrimSpace(*topic) == "" {
		fmt.Fprintln(os.Stderr, `usage: newsanalyst -topic "renewable energy policy" [-config path] [-stages list] [-watch]`)
		return 2
	}

	outcome, err := application.Analyze(ctx, *topic)
	if err != nil {
		logger.Error("post-run step failed", "error", err)
	}
	if !outcome.Done() {
		if outcome.Aborted != nil {
			fmt.Fprintf(os.Stderr, "analysis aborted: %s\n", outcome.Aborted.Reason)
		}
		return 1
	}
	fmt.Print(outcome.Report.Markdown())
	return 0
}
