package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/core"
	nerrors "github.com/tessro/nocturne/internal/errors"
	"github.com/tessro/nocturne/internal/library"
	"github.com/tessro/nocturne/internal/scene"
	"github.com/tessro/nocturne/internal/store"
)

var buttonsImage string

var buttonsCmd = &cobra.Command{
	Use:   "buttons",
	Short: "Manage the preset buttons",
	Long:  `Commands for listing, mapping and pressing the four preset buttons.`,
}

var buttonsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List button mappings",
	RunE:  runButtonsList,
}

var buttonsMapCmd = &cobra.Command{
	Use:   "map <button> [route]",
	Short: "Map a button to a playlist, mix or Liked Songs",
	Long: `Map a preset button to a scene, as a long press on the kiosk would.

The route is a kiosk page path such as /playlist/<id> or /mix/<id>, or
liked-songs. Without a route, a picker lists the library and radio mixes.

Examples:
  nocturne buttons map 1 /playlist/37i9dQZF1DXcBWIGoYBM5M
  nocturne buttons map 2 liked-songs
  nocturne buttons map 3`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runButtonsMap,
}

var buttonsPressCmd = &cobra.Command{
	Use:   "press <button>",
	Short: "Start the scene mapped to a button",
	Args:  cobra.ExactArgs(1),
	RunE:  runButtonsPress,
}

func init() {
	buttonsMapCmd.Flags().StringVar(&buttonsImage, "image", "", "cover image URL shown on the button")
	buttonsCmd.AddCommand(buttonsListCmd)
	buttonsCmd.AddCommand(buttonsMapCmd)
	buttonsCmd.AddCommand(buttonsPressCmd)
	rootCmd.AddCommand(buttonsCmd)
}

func parseButtonArg(arg string) (core.ButtonID, error) {
	b, ok := core.ParseButton(arg)
	if !ok {
		return 0, fmt.Errorf("%w: %q", nerrors.ErrInvalidButton, arg)
	}
	return b, nil
}

func runButtonsList(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	st, err := store.Open(cmd.Context(), cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	settings := store.NewSettings(st)
	mappings := settings.Mappings()

	if JSONOutput() {
		return printJSON(mappings)
	}

	byButton := map[core.ButtonID]core.ButtonMapping{}
	for _, m := range mappings {
		byButton[m.Button] = m
	}

	t := NewTable("BUTTON", "KIND", "ROUTE", "IMAGE")
	for _, b := range core.Buttons {
		m, ok := byButton[b]
		if !ok {
			t.Row(b.String(), "-", "(unmapped)", "")
			continue
		}
		t.Row(b.String(), routeKind(m.Route).String(), m.Route, TruncateString(m.ImageURL, 40))
	}
	t.Flush()
	return nil
}

func routeKind(route string) core.PageKind {
	if route == core.LikedSongsRoute {
		return core.PageLikedSongs
	}
	return core.ClassifyPage(route)
}

func runButtonsMap(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	b, err := parseButtonArg(args[0])
	if err != nil {
		return err
	}

	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	mapping := core.ButtonMapping{Button: b, ImageURL: buttonsImage}
	if len(args) == 2 {
		mapping.Route = args[1]
	} else {
		item, err := pickScene(cmd, logger)
		if err != nil {
			return err
		}
		mapping.Route = item.Route
		if mapping.ImageURL == "" {
			mapping.ImageURL = item.ImageURL
		}
	}

	if _, err := core.TargetForRoute(mapping.Route); err != nil {
		return fmt.Errorf("%w: %v", nerrors.ErrUnplayableRoute, err)
	}

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	settings := store.NewSettings(st)
	if err := settings.SetMapping(mapping); err != nil {
		return err
	}
	if err := st.Flush(ctx); err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}

	if JSONOutput() {
		return printJSON(mapping)
	}
	fmt.Printf("%s mapped to Button %d\n", routeKind(mapping.Route), b)
	return nil
}

// pickScene shows a picker over Liked Songs, the user's playlists and the
// radio mixes.
func pickScene(cmd *cobra.Command, logger *zap.Logger) (library.Item, error) {
	if !IsTerminal() {
		return library.Item{}, fmt.Errorf("a route is required when not running in a terminal")
	}

	c, err := newClient(logger)
	if err != nil {
		return library.Item{}, err
	}

	res := library.New(c, logger).Load(cmd.Context())
	if res.HasErrors() {
		logger.Warn("library partially loaded", zap.String("errors", res.ErrorSummary()))
	}

	items := []library.Item{{Title: "Liked Songs", Route: core.LikedSongsRoute}}
	items = append(items, res.Data.Library...)
	items = append(items, res.Data.Radio...)

	options := make([]huh.Option[int], len(items))
	for i, it := range items {
		label := it.Title
		if it.Subtitle != "" {
			label = fmt.Sprintf("%s  (%s)", it.Title, it.Subtitle)
		}
		options[i] = huh.NewOption(label, i)
	}

	var selected int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Select a scene").
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.RunWithContext(cmd.Context()); err != nil {
		return library.Item{}, fmt.Errorf("selection cancelled: %w", err)
	}
	return items[selected], nil
}

func runButtonsPress(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	b, err := parseButtonArg(args[0])
	if err != nil {
		return err
	}

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
		_ = session.Close()
		_ = st.Close()
	}()

	m, ok := session.Settings().Mapping(b)
	if !ok {
		return nerrors.WithSuggestion(
			fmt.Errorf("button %d is not mapped", b),
			fmt.Sprintf("Run 'nocturne buttons map %d' to map it", b),
		)
	}

	result, err := session.Dispatcher().Dispatch(ctx, m.Route)
	if JSONOutput() {
		if jerr := printJSON(pressView(result, err)); jerr != nil {
			return jerr
		}
		return err
	}

	if result != nil && Verbose() {
		printSteps(result)
	}
	if err != nil {
		return err
	}
	if result.State != nil && result.State.Track != nil {
		fmt.Printf("▶ %s — %s\n", result.State.Track.Artist, result.State.Track.Title)
	} else {
		fmt.Printf("Started button %d\n", b)
	}
	return nil
}

type stepView struct {
	Name     string `json:"name"`
	Skipped  bool   `json:"skipped,omitempty"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

func pressView(result *scene.Result, err error) map[string]any {
	out := map[string]any{"ok": err == nil}
	if err != nil {
		out["error"] = nerrors.Message(err)
		out["code"] = nerrors.CodeOf(err)
	}
	if result == nil {
		return out
	}
	steps := make([]stepView, len(result.Steps))
	for i, s := range result.Steps {
		steps[i] = stepView{Name: s.Name, Skipped: s.Skipped, Duration: s.Duration.String()}
		if s.Err != nil {
			steps[i].Error = s.Err.Error()
		}
	}
	out["id"] = result.ID
	out["device_id"] = result.DeviceID
	out["steps"] = steps
	if result.Offset != nil {
		out["offset"] = *result.Offset
	}
	return out
}

func printSteps(result *scene.Result) {
	t := NewTableWriter(os.Stderr, "STEP", "RESULT", "TIME")
	for _, s := range result.Steps {
		status := "ok"
		switch {
		case s.Err != nil:
			status = "failed: " + s.Err.Error()
		case s.Skipped:
			status = "skipped"
		}
		t.Row(s.Name, status, s.Duration.Round(time.Millisecond).String())
	}
	t.Flush()
}
