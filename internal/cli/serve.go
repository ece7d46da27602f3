package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/server"
	"github.com/tessro/nocturne/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the kiosk API for the browser front-end",
	Long: `Serve the kiosk's HTTP and websocket API.

The browser front-end connects to /ws for toasts, overlays, navigation,
playback events and lyric changes, and calls /api for keys, buttons,
settings, library pages and playback.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default: server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	session, st, err := openSession(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("flush settings", zap.Error(err))
		}
		_ = st.Close()
	}()

	if f, ok := st.(*store.File); ok {
		err := f.Watch(ctx, func() {
			logger.Info("settings reloaded", zap.String("path", f.Path()))
		})
		if err != nil {
			logger.Warn("settings watch unavailable", zap.Error(err))
		}
	}

	srv := server.New(session, logger)

	go func() {
		if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("session stopped", zap.Error(err))
		}
	}()

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if !JSONOutput() {
		fmt.Printf("Kiosk API listening on http://%s\n", addr)
	}
	logger.Info("serving kiosk", zap.String("addr", addr))

	if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
