package kiosk

import (
	"time"

	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/buttons"
	"github.com/tessro/nocturne/internal/config"
	"github.com/tessro/nocturne/internal/core"
	"github.com/tessro/nocturne/internal/library"
	"github.com/tessro/nocturne/internal/lyrics"
	"github.com/tessro/nocturne/internal/scene"
	"github.com/tessro/nocturne/internal/spotify/client"
	"github.com/tessro/nocturne/internal/spotify/player"
	"github.com/tessro/nocturne/internal/store"
	"github.com/tessro/nocturne/internal/tail"
)

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// Build assembles a session from configuration around an authenticated
// Spotify client and an open settings store.
func Build(cfg *config.Config, c *client.Client, st store.Store, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := store.NewSettings(st)
	if err := settings.Init(store.Defaults{
		Shuffle:    cfg.Defaults.Shuffle,
		Repeat:     core.ParseRepeatMode(cfg.Defaults.Repeat),
		LyricsMenu: cfg.LyricsMenuEnabled(),
	}); err != nil {
		return nil, err
	}

	dispatcher := scene.New(c, settings,
		scene.WithTiming(scene.Timing{
			TokenGrace: ms(cfg.Kiosk.TokenGraceMS),
			Settle:     ms(cfg.Kiosk.SettleMS),
			MixCleanup: ms(cfg.Kiosk.MixCleanupMS),
		}),
		scene.WithDefaultDevice(cfg.Kiosk.DefaultDevice),
		scene.WithLogger(logger),
	)

	tracker := lyrics.NewTracker(
		lyrics.NewClient(cfg.Lyrics.BaseURL, nil, logger),
		lyrics.WithLead(ms(cfg.Lyrics.LeadMS)),
		lyrics.WithLogger(logger),
	)

	pl := player.New(c)
	watcher := tail.NewWatcher(pl, ms(cfg.TUI.RefreshInterval), tail.WithLogger(logger))

	return New(Components{
		Settings:   settings,
		Dispatcher: dispatcher,
		Library:    library.New(c, logger),
		Lyrics:     tracker,
		Watcher:    watcher,
		Player:     pl,
	}, Options{
		Viewport: Viewport{Width: cfg.Kiosk.Width, Height: cfg.Kiosk.Height},
		Buttons: buttons.Timing{
			Hold:    ms(cfg.Kiosk.HoldMS),
			Toast:   ms(cfg.Kiosk.ToastMS),
			Overlay: ms(cfg.Kiosk.OverlayMS),
		},
		LyricsPoll: ms(cfg.Lyrics.PollMS),
		Logger:     logger,
	}), nil
}
