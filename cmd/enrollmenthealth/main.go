package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"EnrollmentHealth/internal/app"
	"EnrollmentHealth/internal/config"
	"EnrollmentHealth/internal/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to the YAML config file")
		once       = flag.Bool("once", false, "run a single refresh batch and exit")
		doReport   = flag.Bool("report", false, "export the health report CSVs and exit")
		complete   = flag.String("complete", "", "mark the assessment for this record id completed")
		assessor   = flag.String("assessor", "", "assessor name for --complete")
		reopen     = flag.String("reopen", "", "reopen the completed assessment for this record id")
		resetAll   = flag.Bool("reset-reminders", false, "clear all reminder tracking and exit")
	)
	flag.Parse()

	cfg := config.Load(*configPath)
	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	switch {
	case *complete != "":
		err = application.CompleteAssessment(ctx, *complete, *assessor)
	case *reopen != "":
		err = application.ReopenAssessment(ctx, *reopen)
	case *resetAll:
		err = application.ResetReminders(ctx)
	case *doReport:
		err = application.Report(ctx)
	case *once:
		err = application.RunOnce(ctx)
	default:
		err = application.Run(ctx)
	}

	if err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
