package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tessro/nocturne/internal/config"
	nerrors "github.com/tessro/nocturne/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Commands for viewing and editing nocturne configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration, including defaults and environment overrides.`,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long:  `Create a new configuration file with default values.`,
	RunE:  runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Keys are written as section.key, for example:
  kiosk.default_device   Device used when none is active
  kiosk.hold_ms          Long-press duration for mapping a button
  defaults.shuffle       Initial shuffle setting (true/false)
  defaults.repeat        Initial repeat mode (off/track/context)
  lyrics.menu_enabled    Whether the lyrics panel can be opened
  store.backend          Settings store (file/redis/memory)
  server.addr            Kiosk API listen address

Examples:
  nocturne config set kiosk.default_device "Pi Kiosk"
  nocturne config set store.backend redis`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configSetDeviceCmd = &cobra.Command{
	Use:   "set-device",
	Short: "Interactively select default device",
	Long:  `Shows a picker to select the playback device scenes fall back to.`,
	RunE:  runConfigSetDevice,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetDeviceCmd)
	rootCmd.AddCommand(configCmd)
}

// Typed config keys. Everything else is a string.
var (
	intKeys = []string{
		"kiosk.hold_ms", "kiosk.toast_ms", "kiosk.overlay_ms", "kiosk.settle_ms",
		"kiosk.token_grace_ms", "kiosk.mix_cleanup_ms", "kiosk.width", "kiosk.height",
		"lyrics.poll_ms", "lyrics.lead_ms", "store.redis_db",
		"tui.refresh_interval", "tui.release_ms",
		"log.max_size_mb", "log.max_backups", "log.max_age_days",
	}
	boolKeys = []string{"defaults.shuffle", "lyrics.menu_enabled", "log.compress"}
)

func runConfigShow(cmd *cobra.Command, args []string) error {
	if JSONOutput() {
		return printJSON(cfg)
	}

	encoder := toml.NewEncoder(os.Stdout)
	encoder.Indent = "  "
	return encoder.Encode(cfg)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = filepath.Join(filepath.Dir(config.Path()), "config.toml")
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := config.Save(config.Default(), path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if JSONOutput() {
		return printJSON(map[string]string{
			"status": "created",
			"path":   path,
		})
	}
	fmt.Printf("Created config file: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set your Spotify client ID in the config file or via NOCTURNE_SPOTIFY_CLIENT_ID")
	fmt.Println("  2. Run 'nocturne auth login' to authenticate with Spotify")
	fmt.Println("  3. Run 'nocturne config set-device' to pick the kiosk's playback device")
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	path := configPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w at %s", nerrors.ErrConfigNotFound, path)
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	out, err := setConfigValue(data, key, value)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if JSONOutput() {
		return printJSON(map[string]string{
			"status": "updated",
			"key":    key,
			"value":  value,
		})
	}
	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}

// setConfigValue sets key in the TOML document data and returns the new
// document. The result must still be a valid configuration.
func setConfigValue(data []byte, key, value string) ([]byte, error) {
	section, field, ok := strings.Cut(key, ".")
	if !ok || section == "" || field == "" || strings.Contains(field, ".") {
		return nil, fmt.Errorf("invalid key format. Use 'section.key' (e.g., kiosk.default_device)")
	}

	raw := map[string]any{}
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	sectionMap, ok := raw[section].(map[string]any)
	if !ok {
		sectionMap = map[string]any{}
		raw[section] = sectionMap
	}

	switch {
	case slices.Contains(intKeys, key):
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("value must be an integer for %s", key)
		}
		sectionMap[field] = n
	case slices.Contains(boolKeys, key):
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("value must be true or false for %s", key)
		}
		sectionMap[field] = b
	default:
		sectionMap[field] = value
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	encoder.Indent = "  "
	if err := encoder.Encode(raw); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	var check config.Config
	md, err := toml.Decode(buf.String(), &check)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %s", undecoded[0])
	}
	check.ApplyDefaults()
	if err := check.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", nerrors.ErrInvalidConfig, err)
	}
	return buf.Bytes(), nil
}

func runConfigSetDevice(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	spotifyClient, err := newClient(logger)
	if err != nil {
		return err
	}

	devices, err := spotifyClient.GetDevices(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get devices: %w", err)
	}
	if len(devices) == 0 {
		return nerrors.WithSuggestion(
			fmt.Errorf("no devices found"),
			"Make sure Spotify is open on the kiosk's playback device",
		)
	}

	var options []huh.Option[string]
	for _, d := range devices {
		label := d.Name
		if d.Type != "" {
			label = fmt.Sprintf("%s (%s)", d.Name, d.Type)
		}
		if d.IsActive {
			label += " [active]"
		}
		options = append(options, huh.NewOption(label, d.Name))
	}

	selected := cfg.Kiosk.DefaultDevice
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select default device").
				Description("Scenes start here when no device is active").
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.RunWithContext(cmd.Context()); err != nil {
		return fmt.Errorf("selection cancelled: %w", err)
	}

	return runConfigSet(cmd, []string{"kiosk.default_device", selected})
}
