package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/user/lifetest_analyzer_go/internal/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	input := flag.String("input", "", "life test log (overrides config input)")
	pdfPath := flag.String("pdf", "", "PDF report path (overrides report.pdf)")
	watch := flag.Bool("watch", false, "re-run when the config or input log changes")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("lifetest-analyzer starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := NewApp(*configPath, cfg, Overrides{Input: *input, PDF: *pdfPath})
	if in, _ := app.Paths(); in == "" {
		slog.Error("no input log: set input in the config or pass -input")
		os.Exit(1)
	}
	if err := app.Run(ctx); err != nil {
		slog.Error("report generation failed", "err", err)
		if !*watch {
			os.Exit(1)
		}
	}
	if !*watch {
		return
	}

	// The watcher is restarted whenever a reload points input at another
	// log, so the new file is the one being watched.
	for {
		watched, _ := app.Paths()
		watchCtx, stop := context.WithCancel(ctx)
		moved := false
		onChange := func(path string) {
			if path == *configPath {
				if err := app.Reload(); err != nil {
					slog.Error("config reload failed", "err", err)
					return
				}
				if in, _ := app.Paths(); in != watched {
					moved = true
					stop()
				}
			} else if err := app.Import(path); err != nil {
				slog.Error("new file import failed", "path", path, "err", err)
				return
			}
			if err := app.Run(ctx); err != nil {
				slog.Error("report generation failed", "err", err)
			}
		}
		err := config.Watch(watchCtx, onChange, *configPath, watched)
		stop()
		if err != nil {
			slog.Error("watcher stopped", "err", err)
			os.Exit(1)
		}
		if !moved {
			break
		}
		in, _ := app.Paths()
		slog.Info("input moved, watching new log", "path", in)
	}
	slog.Info("lifetest-analyzer shutting down")
}
