package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/browser"
	nerrors "github.com/tessro/nocturne/internal/errors"
	"github.com/tessro/nocturne/internal/spotify/auth"
	"github.com/tessro/nocturne/internal/spotify/client"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Spotify authentication",
	Long:  `Commands for managing Spotify OAuth authentication.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with Spotify",
	Long:  `Opens a browser to authenticate with Spotify using OAuth PKCE flow.`,
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored Spotify credentials",
	Long:  `Removes the stored Spotify OAuth tokens from the local machine.`,
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long:  `Shows the current Spotify authentication status.`,
	RunE:  runAuthStatus,
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	if cfg.Spotify.ClientID == "" {
		return nerrors.WithSuggestion(
			fmt.Errorf("spotify.client_id not configured"),
			"Set it in ~/.nocturnerc or via NOCTURNE_SPOTIFY_CLIENT_ID",
		)
	}

	pkce, err := auth.NewPKCE()
	if err != nil {
		return fmt.Errorf("failed to generate PKCE: %w", err)
	}

	authConfig := auth.NewConfig(cfg.Spotify.ClientID, cfg.Spotify.RedirectURI)
	addr, path, err := authConfig.CallbackAddr()
	if err != nil {
		return err
	}

	callbackServer, err := auth.NewCallbackServer(addr, path)
	if err != nil {
		return fmt.Errorf("failed to start callback server: %w", err)
	}
	callbackServer.Start()
	defer func() { _ = callbackServer.Shutdown(context.Background()) }()

	authURL := authConfig.BuildAuthURL(pkce)

	fmt.Println("Opening browser for Spotify authentication...")
	if err := browser.Open(authURL); err != nil {
		fmt.Printf("Could not open browser automatically.\n")
		fmt.Printf("Please open this URL in your browser:\n\n%s\n\n", authURL)
	}

	fmt.Println("Waiting for authentication...")
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	result, err := callbackServer.Wait(ctx)
	if err != nil {
		return fmt.Errorf("authentication timed out: %w", err)
	}
	if result.Error != "" {
		return nerrors.WithCode(nerrors.CodeAuth, fmt.Errorf("authentication failed: %s", result.Error))
	}
	if result.State != pkce.State {
		return nerrors.WithCode(nerrors.CodeAuth, fmt.Errorf("state mismatch: possible CSRF attack"))
	}

	fmt.Println("Exchanging code for tokens...")
	token, err := auth.ExchangeCode(ctx, cfg.Spotify.ClientID, result.Code, authConfig.RedirectURI, pkce.Verifier)
	if err != nil {
		return nerrors.WithCode(nerrors.CodeAuth, fmt.Errorf("failed to exchange code: %w", err))
	}

	storage, err := newTokenStore()
	if err != nil {
		return err
	}
	if err := storage.Save(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	spotifyClient := client.New(cfg.Spotify.ClientID, storage, client.Options{
		BaseURL: cfg.Spotify.BaseURL,
		Logger:  logger,
	})
	if err := spotifyClient.LoadToken(); err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}

	user, err := spotifyClient.GetCurrentUser(ctx)
	if err != nil {
		logger.Debug("profile lookup failed", zap.Error(err))
		fmt.Printf("Authentication successful! Token stored in %s.\n", storage.Location())
		return nil
	}

	if JSONOutput() {
		return printJSON(map[string]any{
			"status":       "authenticated",
			"user_id":      user.ID,
			"display_name": user.DisplayName,
			"product":      user.Product,
			"token_store":  storage.Location(),
		})
	}
	fmt.Printf("Successfully authenticated as %s (%s)\n", user.DisplayName, user.ID)
	if user.Product != "premium" {
		fmt.Println("Note: playback control requires Spotify Premium.")
	}
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	storage, err := newTokenStore()
	if err != nil {
		return err
	}

	token, err := storage.Load()
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}
	if token == nil {
		if JSONOutput() {
			return printJSON(map[string]string{"status": "not_authenticated"})
		}
		fmt.Println("Not authenticated with Spotify.")
		return nil
	}

	if err := storage.Delete(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	if JSONOutput() {
		return printJSON(map[string]string{"status": "logged_out"})
	}
	fmt.Println("Logged out of Spotify.")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	storage, err := newTokenStore()
	if err != nil {
		return err
	}

	token, err := storage.Load()
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}

	if token == nil {
		if JSONOutput() {
			return printJSON(map[string]any{"authenticated": false})
		}
		fmt.Println("Not authenticated with Spotify.")
		fmt.Println("Run 'nocturne auth login' to authenticate.")
		return nil
	}

	if cfg.Spotify.ClientID == "" {
		if JSONOutput() {
			return printJSON(map[string]any{
				"authenticated": true,
				"expired":       token.IsExpired(),
				"expires_at":    token.ExpiresAt,
			})
		}
		if token.IsExpired() {
			fmt.Println("Authenticated but token expired.")
		} else {
			fmt.Println("Authenticated with Spotify.")
		}
		return nil
	}

	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	spotifyClient := client.New(cfg.Spotify.ClientID, storage, client.Options{
		BaseURL: cfg.Spotify.BaseURL,
		Logger:  logger,
	})
	if err := spotifyClient.LoadToken(); err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}

	user, err := spotifyClient.GetCurrentUser(cmd.Context())
	if err != nil {
		if JSONOutput() {
			return printJSON(map[string]any{
				"authenticated": true,
				"expired":       true,
				"error":         err.Error(),
			})
		}
		fmt.Printf("Token may be expired or invalid: %v\n", err)
		fmt.Println("Run 'nocturne auth login' to re-authenticate.")
		return nil
	}

	if JSONOutput() {
		return printJSON(map[string]any{
			"authenticated": true,
			"expired":       false,
			"user_id":       user.ID,
			"display_name":  user.DisplayName,
			"product":       user.Product,
			"expires_at":    token.ExpiresAt,
			"token_store":   storage.Location(),
		})
	}
	fmt.Printf("Authenticated as: %s (%s)\n", user.DisplayName, user.ID)
	fmt.Printf("Account type: %s\n", user.Product)
	fmt.Printf("Token store: %s\n", storage.Location())
	fmt.Printf("Token expires: %s\n", token.ExpiresAt.Format(time.RFC3339))
	return nil
}
