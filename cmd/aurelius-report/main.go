// Command aurelius-report runs one analytics or learning operation against the log store and
// prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/davidleathers/aurelius-backend/internal/domain/records"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/config"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/logstore"
	"github.com/davidleathers/aurelius-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/aurelius-backend/internal/service"
	"github.com/davidleathers/aurelius-backend/internal/service/analytics"
)

type options struct {
	configPath string
	period     string
	learn      bool
	status     bool
	trends     int
	draft      string
	platform   string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("aurelius-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.period, "period", "", "Generate and print the report of this period (daily, weekly, monthly)")
	fs.BoolVar(&opts.learn, "learn", false, "Run one learning cycle and print its summary")
	fs.BoolVar(&opts.status, "status", false, "Print the learning status")
	fs.IntVar(&opts.trends, "trends", 0, "Print the historical trends of the last N days")
	fs.StringVar(&opts.draft, "draft", "", "Draft a post about this topic")
	fs.StringVar(&opts.platform, "platform", "twitter", "Platform to draft for")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	selected := 0
	for _, set := range []bool{opts.period != "", opts.learn, opts.status, opts.trends > 0, opts.draft != ""} {
		if set {
			selected++
		}
	}
	if selected != 1 {
		fs.Usage()
		return opts, errors.New("exactly one of -period, -learn, -status, -trends or -draft is required")
	}

	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		slog.Error("failed to setup logger", "error", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := logstore.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open log store", zap.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	services := service.NewServices(ctx, cfg, store, logger, nil)
	if err := execute(ctx, opts, services, os.Stdout); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

func execute(ctx context.Context, opts options, services *service.Services, w io.Writer) error {
	switch {
	case opts.period != "":
		report, err := services.Analytics.GenerateReport(ctx, analytics.ParsePeriod(opts.period))
		if err != nil {
			return err
		}
		export, err := services.Analytics.ExportReport(report)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", export.Content)
		return err

	case opts.learn:
		summary, err := services.Learning.RunLearningCycle(ctx)
		if err != nil {
			return err
		}
		return printJSON(w, summary)

	case opts.status:
		return printJSON(w, services.Learning.Status())

	case opts.trends > 0:
		trends, err := services.Analytics.HistoricalTrends(ctx, opts.trends)
		if err != nil {
			return err
		}
		return printJSON(w, trends)

	case opts.draft != "":
		if services.Content == nil {
			return errors.New("drafting needs openai.api_key to be configured")
		}
		post, err := services.Content.Post(ctx, opts.draft, records.Platform(opts.platform))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, post)
		return err
	}

	return errors.New("nothing to do")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
