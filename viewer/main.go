package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"example.com/stream_viewer/client"
	"example.com/stream_viewer/pkg/config"
	"example.com/stream_viewer/pkg/display"
	"example.com/stream_viewer/pkg/display/mqtt"
	"example.com/stream_viewer/pkg/display/tui"
	"example.com/stream_viewer/pkg/history"
	"example.com/stream_viewer/pkg/logging"
	"example.com/stream_viewer/pkg/status"
	"example.com/stream_viewer/pkg/transcript"
)

// tuiLogFile receives logs when the terminal belongs to the TUI
const tuiLogFile = "viewer.log"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	page := flag.String("page", cfg.PageURL, "URL of the page hosting the stream (or STREAM_PAGE_URL env)")
	streamURL := flag.String("url", cfg.StreamURL, "Explicit stream URL, overrides -page (or STREAM_URL env)")
	statusAddr := flag.String("status-addr", cfg.StatusAddr, "Status API listen address, empty disables it (or STATUS_ADDR env)")
	mode := flag.String("display", cfg.DisplayMode, "Display mode: tui or plain (or DISPLAY_MODE env)")
	id := flag.String("id", "", "Viewer ID (default: random UUID)")
	flag.Parse()

	cfg.PageURL = *page
	cfg.StreamURL = *streamURL
	cfg.StatusAddr = *statusAddr
	cfg.DisplayMode = *mode
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid flags: %v\n", err)
		os.Exit(2)
	}

	logFile := cfg.LogFile
	if logFile == "" && cfg.DisplayMode == config.DisplayTUI {
		logFile = tuiLogFile
	}
	logger, closer, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, File: logFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	memory := display.NewMemory()
	sinks := display.Multi{memory}

	var term *tui.Display
	if cfg.DisplayMode == config.DisplayTUI {
		term = tui.New("Stream Viewer", tea.WithAltScreen())
		sinks = append(sinks, term)
	} else {
		sinks = append(sinks, display.NewWriter(os.Stdout))
	}

	if cfg.MQTTBrokerURL != "" {
		mirror := mqtt.NewMirror(mqtt.MirrorConfig{
			BrokerURL:   cfg.MQTTBrokerURL,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
		}, logger)
		if err := mirror.Start(ctx); err != nil {
			logger.Error("start mqtt mirror failed", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, mirror)
	}

	manager := client.NewManager(client.Config{
		ID:               *id,
		PageURL:          cfg.PageURL,
		StreamURL:        cfg.StreamURL,
		HandshakeTimeout: cfg.HandshakeTimeout,
		Retry:            cfg.Retry,
		Logger:           logger,
	}, sinks)

	hist := history.New(cfg.HistoryLimit)
	manager.OnTranscription(func(msg transcript.Message) {
		hist.Record(msg, time.Now())
	})
	manager.OnStateChange(func(state client.State) {
		logger.Debug("stream state changed", "state", state.String())
	})

	var httpServer *http.Server
	if cfg.StatusAddr != "" {
		httpServer = &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           status.NewRouter(manager.ID, manager, memory, hist),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("status api started", "addr", cfg.StatusAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
				cancel()
			}
		}()
	}

	// The TUI consumes updates only once it runs, so connect in the background
	go func() {
		if err := manager.Connect(ctx); err != nil && !errors.Is(err, client.ErrSuperseded) {
			logger.Error("connect failed", "url", manager.StreamURL(), "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if term != nil {
		go func() {
			select {
			case <-sigCh:
				logger.Info("received shutdown signal")
			case <-ctx.Done():
			}
			term.Quit()
		}()
		if err := term.Run(); err != nil {
			logger.Error("terminal display failed", "error", err)
		}
	} else {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal")
		case <-ctx.Done():
		}
	}

	shutdown(manager, httpServer, logger)
}

func shutdown(manager *client.Manager, httpServer *http.Server, logger *slog.Logger) {
	if err := manager.Disconnect(); err != nil {
		logger.Error("disconnect failed", "error", err)
	}
	if httpServer == nil {
		return
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
}
