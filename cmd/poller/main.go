// main runs a terminal notification client against a shiplog server: it
// polls for pending notifications, renders them to the console, and
// acknowledges what it showed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"shiplog/internal/platform/config"
	"shiplog/internal/platform/logger"
	"shiplog/internal/poller"
)

// consoleEffects renders effects as terminal output. Tones ring the bell.
type consoleEffects struct{}

func (consoleEffects) PlayTone(tone poller.Tone) error {
	fmt.Printf("\a[%s]\n", tone)
	return nil
}

func (consoleEffects) DesktopAlert(title, body string) error {
	fmt.Printf("!! %s\n   %s\n", title, body)
	return nil
}

func (consoleEffects) ShowToast(title, body string) error {
	fmt.Printf("-- %s: %s\n", title, body)
	return nil
}

func (consoleEffects) SetBadge(pending int) error {
	if pending > 0 {
		fmt.Printf("(%d pending)\n", pending)
	}
	return nil
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	token := os.Getenv("SHIPLOG_POLLER_TOKEN")
	if token == "" {
		log.Error("SHIPLOG_POLLER_TOKEN is required")
		os.Exit(1)
	}
	baseURL := os.Getenv("SHIPLOG_POLLER_SERVER")
	if baseURL == "" {
		baseURL = "http://localhost" + cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := poller.NewHTTPSource(http.DefaultClient, baseURL, token)
	p := poller.New(source, consoleEffects{}, log,
		poller.WithTiming(cfg.Poller.Interval, cfg.Poller.RequestTimeout),
		poller.WithPageSize(cfg.Poller.PageSize),
	)

	log.Info("polling", "server", baseURL, "interval", cfg.Poller.Interval)
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("poller exited", "error", err)
		os.Exit(1)
	}
}
