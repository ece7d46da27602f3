package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/config"
	nerrors "github.com/tessro/nocturne/internal/errors"
	"github.com/tessro/nocturne/internal/kiosk"
	"github.com/tessro/nocturne/internal/logging"
	"github.com/tessro/nocturne/internal/spotify/auth"
	"github.com/tessro/nocturne/internal/spotify/client"
	"github.com/tessro/nocturne/internal/store"
)

var (
	cfgFile string
	jsonOut bool
	verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "nocturne",
	Short: "Spotify remote controller for an 800x480 kiosk",
	Long: `Nocturne runs a kiosk as a custom Spotify remote: four preset buttons
mapped to playlists, mixes or Liked Songs, synced lyrics, and library browsing.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.nocturnerc)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initConfig() error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", nerrors.ErrInvalidConfig, err)
	}

	return nil
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, nerrors.Format(err))
		os.Exit(1)
	}
}

// Config returns the loaded configuration.
func Config() *config.Config {
	return cfg
}

// JSONOutput returns true if JSON output is requested.
func JSONOutput() bool {
	return jsonOut
}

// Verbose returns true if verbose output is requested.
func Verbose() bool {
	return verbose
}

// configPath is where config writes go: the --config file, or the file Load
// read, or the default location.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.Path()
}

// newLogger builds the command's logger. Console lines go to console only in
// verbose mode; a nil console keeps the screen clear for the terminal UI.
func newLogger(console io.Writer) (*zap.Logger, error) {
	if !Verbose() {
		console = nil
	}
	return logging.New(cfg.Log, logging.Options{Console: console, Verbose: Verbose()})
}

func newTokenStore() (auth.TokenStore, error) {
	storage, err := auth.NewTokenStore(cfg.Spotify.TokenStore, config.DataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token storage: %w", err)
	}
	return storage, nil
}

// newClient returns a Spotify client with the stored token loaded. A client
// whose token expired is still returned when it can be refreshed.
func newClient(logger *zap.Logger) (*client.Client, error) {
	if cfg.Spotify.ClientID == "" {
		return nil, nerrors.WithSuggestion(
			fmt.Errorf("spotify.client_id not configured"),
			"Set it in ~/.nocturnerc or via NOCTURNE_SPOTIFY_CLIENT_ID",
		)
	}

	storage, err := newTokenStore()
	if err != nil {
		return nil, err
	}

	c := client.New(cfg.Spotify.ClientID, storage, client.Options{
		BaseURL: cfg.Spotify.BaseURL,
		Logger:  logger,
	})
	if err := c.LoadToken(); err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if !c.IsAuthenticated() && !c.HasRefreshToken() {
		return nil, nerrors.ErrNotAuthenticated
	}
	return c, nil
}

// openSession opens the settings store and assembles a kiosk session. The
// caller closes the session and then the store.
func openSession(ctx context.Context, logger *zap.Logger) (*kiosk.Session, store.Store, error) {
	c, err := newClient(logger)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	session, err := kiosk.Build(cfg, c, st, logger)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return session, st, nil
}
