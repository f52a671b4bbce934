package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"
)

const usage = `usage: lessonctl <command> [flags]

commands:
  restock   [-space 5]                     give every sold-out lesson new spaces
  set-space -subject <s> -space <n>        set the spaces of one lesson
  export    [-out lessons.json]            write all lessons as JSON ("-" for stdout)

environment:
  LESSONS_API_URL   lessons-service base URL (default http://localhost:5000)
`

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := NewLessonsClient(getEnv("LESSONS_API_URL", "http://localhost:5000"), 10*time.Second)

	if err := run(ctx, os.Args[1:], client, logger); err != nil {
		logger.Error("❌ lessonctl failed", zap.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, client *LessonsClient, logger *zap.Logger) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}

	command, rest := args[0], args[1:]
	fs := flag.NewFlagSet(command, flag.ContinueOnError)

	switch command {
	case "restock":
		space := fs.Int("space", 5, "spaces given to each sold-out lesson")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		n, err := restock(ctx, client, *space, logger)
		if err != nil {
			return err
		}
		logger.Info("🎉 Restock finished", zap.Int("lessons", n))
		return nil

	case "set-space":
		subject := fs.String("subject", "", "exact lesson subject")
		space := fs.Int("space", -1, "new number of spaces")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		_, err := setSpace(ctx, client, *subject, *space, logger)
		return err

	case "export":
		path := fs.String("out", "lessons.json", "output file, - for stdout")
		if err := fs.Parse(rest); err != nil {
			return err
		}

		var out io.Writer = os.Stdout
		if *path != "-" {
			f, err := os.Create(*path)
			if err != nil {
				return fmt.Errorf("create %s: %w", *path, err)
			}
			defer f.Close()
			out = f
		}

		n, err := export(ctx, client, out)
		if err != nil {
			return err
		}
		logger.Info("📦 Lessons exported", zap.Int("count", n), zap.String("out", *path))
		return nil
	}

	return fmt.Errorf("unknown command %q\n%s", command, usage)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
