// Package tui is the terminal kiosk console: the same session the browser
// front-end drives, rendered with bubbletea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/core"
	nerrors "github.com/tessro/nocturne/internal/errors"
	"github.com/tessro/nocturne/internal/kiosk"
	"github.com/tessro/nocturne/internal/library"
	"github.com/tessro/nocturne/internal/lyrics"
	"github.com/tessro/nocturne/internal/spotify/client"
	"github.com/tessro/nocturne/internal/tail"
	"github.com/tessro/nocturne/internal/tui/components"
	"github.com/tessro/nocturne/internal/tui/styles"
)

type page int

const (
	pageHome page = iota
	pagePlaylist
	pageMix
	pageLikedSongs
	pageNowPlaying
)

func pageFor(path string) page {
	switch {
	case path == core.NowPlayingRoute:
		return pageNowPlaying
	case strings.HasPrefix(path, "/playlist/"):
		return pagePlaylist
	case strings.HasPrefix(path, "/mix/"):
		return pageMix
	case strings.HasPrefix(path, "/collection/"):
		return pageLikedSongs
	default:
		return pageHome
	}
}

const (
	likedSongsPath = "/collection/tracks"
	errorTTL       = 5 * time.Second
	scrollMargin   = 5
	requestTimeout = 10 * time.Second
)

// Settings rows, in display order.
const (
	rowShuffle = iota
	rowRepeat
	rowLyricsMenu
)

// Options configure the console.
type Options struct {
	// RefreshRate is how often the progress bar is redrawn.
	RefreshRate time.Duration
	// Release is the key release window; see keyTracker.
	Release time.Duration
	Logger  *zap.Logger
}

// Model is the console's bubbletea model.
type Model struct {
	session *kiosk.Session
	logger  *zap.Logger
	refresh time.Duration
	keys    *keyTracker
	now     func() time.Time

	width  int
	height int

	home    library.Home
	loading bool
	spinner spinner.Model

	filter    textinput.Model
	filtering bool

	list       *components.List
	nowPlaying *components.NowPlaying
	lyricsView *components.Lyrics

	playlist *client.Playlist
	pager    *library.TrackPager
	mix      *library.Mix

	state  *core.PlaybackState
	lyrics lyrics.Snapshot

	toast     string
	overlay   core.ButtonID
	errText   string
	errExpiry time.Time
	status    string

	quitting bool
}

// NewModel creates the console model for session.
func NewModel(session *kiosk.Session, opts Options) Model {
	if opts.RefreshRate <= 0 {
		opts.RefreshRate = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ti := textinput.New()
	ti.Placeholder = "Filter..."
	ti.CharLimit = 60
	ti.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Highlight

	return Model{
		session:    session,
		logger:     opts.Logger.Named("tui"),
		refresh:    opts.RefreshRate,
		keys:       newKeyTracker(opts.Release),
		now:        time.Now,
		spinner:    sp,
		filter:     ti,
		list:       components.NewList(),
		nowPlaying: components.NewNowPlaying(),
		lyricsView: components.NewLyrics(),
		state:      session.State(),
		loading:    true,
	}
}

// Messages
type (
	tickMsg     time.Time
	homeMsg     struct{ res *nerrors.PartialResult[library.Home] }
	playlistMsg struct {
		playlist *client.Playlist
		pager    *library.TrackPager
		err      error
	}
	mixMsg struct {
		mix *library.Mix
		err error
	}
	// actionMsg reports a finished command. Errors the session already
	// surfaced through the display are not repeated.
	actionMsg struct {
		err   error
		shown bool
	}
	lyricsToggledMsg bool
	statusMsg        string
)

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// run executes fn off the event loop. Session calls may emit display
// effects, which are delivered back into the program and must not be sent
// from within Update.
func run(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return actionMsg{err: fn(ctx)}
	}
}

func (m Model) loadHome() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return homeMsg{m.session.Library().Load(ctx)}
	}
}

func (m Model) openPlaylist(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		p, pager, err := m.session.OpenPlaylist(ctx, id)
		return playlistMsg{playlist: p, pager: pager, err: err}
	}
}

func (m Model) openMix(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		mix, err := m.session.OpenMix(ctx, id)
		return mixMsg{mix: mix, err: err}
	}
}

func (m Model) loadMore() tea.Cmd {
	pager := m.pager
	return run(func(ctx context.Context) error {
		_, err := pager.LoadMore(ctx)
		return nerrors.WithCode(nerrors.CodeFetchPlaylist, err)
	})
}

func (m Model) play(index *int) tea.Cmd {
	session := m.session
	switch {
	case m.playlist != nil && pageFor(session.Path()) == pagePlaylist:
		id := m.playlist.ID
		return func() tea.Msg {
			return actionMsg{err: session.PlayPlaylist(context.Background(), id, index), shown: true}
		}
	case m.mix != nil && pageFor(session.Path()) == pageMix:
		mix := m.mix
		return func() tea.Msg {
			return actionMsg{err: session.PlayMix(context.Background(), mix, index), shown: true}
		}
	}
	return nil
}

func (m Model) toggleLyrics() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		if !session.Settings().LyricsMenuEnabled() {
			return statusMsg("Lyrics menu is disabled")
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return lyricsToggledMsg(session.ToggleLyrics(ctx))
	}
}

func (m Model) toggleSetting(row int) tea.Cmd {
	st := m.session.Settings()
	return run(func(ctx context.Context) error {
		var err error
		switch row {
		case rowShuffle:
			err = st.SetShuffle(!st.Shuffle())
		case rowRepeat:
			err = st.SetRepeat(nextRepeat(st.Repeat()))
		case rowLyricsMenu:
			err = st.SetLyricsMenuEnabled(!st.LyricsMenuEnabled())
		default:
			return nil
		}
		if err != nil {
			return err
		}
		return st.Store().Flush(ctx)
	})
}

func nextRepeat(mode core.RepeatMode) core.RepeatMode {
	switch mode {
	case core.RepeatOff:
		return core.RepeatContext
	case core.RepeatContext:
		return core.RepeatTrack
	default:
		return core.RepeatOff
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.loadHome(), m.spinner.Tick)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if !m.errExpiry.IsZero() && m.now().After(m.errExpiry) {
			m.errText = ""
		}
		return m, m.tick()

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case homeMsg:
		m.loading = false
		m.home = msg.res.Data
		if msg.res.HasErrors() {
			m.setError(msg.res.ErrorSummary())
		}
		return m, nil

	case playlistMsg:
		m.loading = false
		if msg.err == nil {
			m.playlist, m.pager, m.mix = msg.playlist, msg.pager, nil
			m.list.Reset()
		}
		return m, nil

	case mixMsg:
		m.loading = false
		if msg.err == nil {
			m.mix, m.playlist, m.pager = msg.mix, nil, nil
			m.list.Reset()
		}
		return m, nil

	case actionMsg:
		if msg.err != nil && !msg.shown {
			m.setError(nerrors.Message(msg.err))
		}
		return m, nil

	case lyricsToggledMsg:
		if bool(msg) {
			m.status = "Lyrics open"
		} else {
			m.status = ""
		}
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case releaseCheckMsg:
		released, wait := m.keys.check(msg.key, msg.gen, m.now())
		if released {
			key := msg.key
			return m, run(func(context.Context) error { return m.session.KeyUp(key) })
		}
		if wait > 0 {
			return m, m.keys.schedule(msg.key, msg.gen, wait)
		}
		return m, nil

	case toastMsg:
		m.toast = string(msg)
		return m, nil
	case hideToastMsg:
		m.toast = ""
		return m, nil
	case overlayMsg:
		m.overlay = core.ButtonID(msg)
		return m, nil
	case hideOverlayMsg:
		m.overlay = 0
		return m, nil
	case navigateMsg:
		m.list.Reset()
		m.status = ""
		return m, nil
	case kioskErrorMsg:
		m.setError(msg.message)
		return m, nil

	case playbackMsg:
		if msg.Current != nil || msg.Type == tail.EventStopped {
			m.state = msg.Current
		}
		return m, nil

	case lyricsMsg:
		m.lyrics = lyrics.Snapshot(msg)
		return m, nil
	}

	if m.filtering {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) setError(text string) {
	m.errText = text
	m.errExpiry = m.now().Add(errorTTL)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.filtering {
		switch msg.String() {
		case "esc":
			m.filtering = false
			m.filter.Blur()
			m.filter.SetValue("")
		case "enter":
			m.filtering = false
			m.filter.Blur()
		default:
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.list.Reset()
			return m, cmd
		}
		return m, nil
	}

	key := msg.String()
	if _, ok := core.ParseButton(key); ok {
		return m.pressPreset(key)
	}

	session := m.session
	p := pageFor(session.Path())

	switch key {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "esc":
		return m, run(func(context.Context) error {
			session.Escape()
			return nil
		})
	case "tab", "shift+tab":
		if p == pageHome {
			m.cycleSection(key == "tab")
		}
		return m, nil
	case "/":
		if p == pageHome {
			m.filtering = true
			m.filter.Focus()
			return m, textinput.Blink
		}
		return m, nil
	case "r":
		m.loading = true
		return m, tea.Batch(m.loadHome(), m.spinner.Tick)
	case "L":
		return m, run(func(context.Context) error {
			session.Navigate(likedSongsPath)
			return nil
		})
	case "N":
		return m, run(func(context.Context) error {
			session.Navigate(core.NowPlayingRoute)
			return nil
		})
	case "l":
		return m, m.toggleLyrics()
	case " ":
		return m, m.transport("toggle")
	case "n":
		return m, m.transport("next")
	case "b":
		return m, m.transport("prev")
	case "P":
		return m, m.play(nil)
	case "j", "down":
		n := len(m.rows())
		m.list.Down(n)
		if p == pagePlaylist && m.pager != nil && m.list.NearEnd(n, scrollMargin) &&
			m.pager.HasMore() && !m.pager.Loading() {
			return m, m.loadMore()
		}
		return m, nil
	case "k", "up":
		m.list.Up()
		return m, nil
	case "enter":
		return m.activate(p)
	}
	return m, nil
}

func (m Model) transport(action string) tea.Cmd {
	session := m.session
	return run(func(ctx context.Context) error {
		return session.Transport(ctx, action)
	})
}

// pressPreset turns terminal key repeats into a key-down and, once the
// repeats stop, a key-up.
func (m Model) pressPreset(key string) (tea.Model, tea.Cmd) {
	first, gen := m.keys.press(key, m.now())
	if !first {
		return m, nil
	}
	session := m.session
	return m, tea.Batch(
		run(func(context.Context) error { return session.KeyDown(key, false) }),
		m.keys.schedule(key, gen, m.keys.release),
	)
}

func (m *Model) cycleSection(forward bool) {
	cur := m.session.Section()
	idx := 0
	for i, s := range library.Sections {
		if s == cur {
			idx = i
		}
	}
	n := len(library.Sections)
	if forward {
		idx = (idx + 1) % n
	} else {
		idx = (idx + n - 1) % n
	}
	m.session.SetSection(library.Sections[idx])
	m.list.Reset()
}

func (m Model) activate(p page) (tea.Model, tea.Cmd) {
	cursor := m.list.Cursor()
	switch p {
	case pageHome:
		if m.session.Section() == library.SectionSettings {
			return m, m.toggleSetting(cursor)
		}
		items := m.sectionItems()
		if cursor < 0 || cursor >= len(items) {
			return m, nil
		}
		route := items[cursor].Route
		switch pageFor(route) {
		case pagePlaylist:
			m.loading = true
			return m, tea.Batch(m.openPlaylist(items[cursor].ID), m.spinner.Tick)
		case pageMix:
			m.loading = true
			return m, tea.Batch(m.openMix(items[cursor].ID), m.spinner.Tick)
		default:
			m.status = "Only playlists and mixes open here"
			return m, nil
		}
	case pagePlaylist, pageMix:
		if cursor < 0 || cursor >= len(m.rows()) {
			return m, nil
		}
		idx := cursor
		return m, m.play(&idx)
	}
	return m, nil
}

func (m Model) sectionItems() []library.Item {
	return library.Filter(m.home.Section(m.session.Section()), m.filter.Value())
}

func (m Model) settingsRows() []components.Row {
	st := m.session.Settings()
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	rows := []components.Row{
		rowShuffle:    {Title: "Shuffle", Subtitle: onOff(st.Shuffle())},
		rowRepeat:     {Title: "Repeat", Subtitle: string(st.Repeat())},
		rowLyricsMenu: {Title: "Lyrics menu", Subtitle: onOff(st.LyricsMenuEnabled())},
	}
	for _, b := range core.Buttons {
		row := components.Row{Title: "Button " + b.String(), Subtitle: "unmapped"}
		if mp, ok := st.Mapping(b); ok {
			row.Subtitle = mp.Route
		}
		rows = append(rows, row)
	}
	return rows
}

func (m Model) rows() []components.Row {
	switch pageFor(m.session.Path()) {
	case pageHome:
		if m.session.Section() == library.SectionSettings {
			return m.settingsRows()
		}
		items := m.sectionItems()
		rows := make([]components.Row, len(items))
		for i, it := range items {
			rows[i] = components.Row{Title: it.Title, Subtitle: it.Subtitle}
		}
		return rows
	case pagePlaylist:
		if m.pager == nil {
			return nil
		}
		playing := m.state.TrackID()
		tracks := m.pager.Items()
		rows := make([]components.Row, len(tracks))
		for i, t := range tracks {
			if t == nil {
				rows[i] = components.Row{Title: "Unavailable"}
				continue
			}
			rows[i] = components.Row{Title: t.Title, Subtitle: t.Artist, Active: t.ID != "" && t.ID == playing}
		}
		return rows
	case pageMix:
		if m.mix == nil {
			return nil
		}
		rows := make([]components.Row, len(m.mix.URIs))
		for i, uri := range m.mix.URIs {
			rows[i] = components.Row{Title: fmt.Sprintf("Track %d", i+1), Subtitle: uri}
		}
		return rows
	}
	return nil
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	bodyHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 3)

	var body string
	if m.overlay != 0 {
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center,
			styles.Overlay.Render("Button "+m.overlay.String()))
	} else {
		body = m.renderBody(bodyHeight)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderHeader() string {
	brand := styles.Highlight.Render("nocturne")
	if m.loading {
		brand += " " + m.spinner.View()
	}

	var title string
	switch pageFor(m.session.Path()) {
	case pageHome:
		cur := m.session.Section()
		tabs := make([]string, len(library.Sections))
		for i, s := range library.Sections {
			label := strings.ToUpper(string(s[:1])) + string(s[1:])
			if s == cur {
				tabs[i] = styles.ActiveTab.Render(label)
			} else {
				tabs[i] = styles.Tab.Render(label)
			}
		}
		title = strings.Join(tabs, "")
	case pagePlaylist:
		if m.playlist != nil {
			title = styles.Title.Render(m.playlist.Name)
		}
	case pageMix:
		if m.mix != nil {
			title = styles.Title.Render(m.mix.Name)
		}
	case pageLikedSongs:
		title = styles.Title.Render("Liked Songs")
	case pageNowPlaying:
		title = styles.Title.Render("Now Playing")
	}

	line := brand + "  " + title
	if m.filtering || m.filter.Value() != "" {
		line += "  " + m.filter.View()
	}
	return lipgloss.NewStyle().Width(m.width).Padding(0, 1).Render(line)
}

func (m Model) renderBody(height int) string {
	width := m.width
	switch pageFor(m.session.Path()) {
	case pageNowPlaying:
		if m.lyrics.Open {
			left := width / 2
			return lipgloss.JoinHorizontal(lipgloss.Top,
				m.nowPlaying.Render(m.state, m.now(), left, height-2, false),
				m.lyricsView.Render(m.lyrics, width-left-2, height-2),
			)
		}
		return m.nowPlaying.Render(m.state, m.now(), width-2, height-2, true)

	case pageLikedSongs:
		msg := styles.Muted.Render("Hold 1-4 to map Liked Songs to a button")
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, msg)

	case pagePlaylist:
		footer := ""
		if m.pager != nil {
			footer = fmt.Sprintf("%d of %d", len(m.pager.Items()), max(m.pager.Total(), 0))
			if m.pager.Loading() {
				footer += "  loading..."
			}
		}
		return m.list.Render("Tracks", m.rows(), footer, width-2, height-2, true)

	case pageMix:
		return m.list.Render("Tracks", m.rows(), "", width-2, height-2, true)
	}

	sec := m.session.Section()
	title := strings.ToUpper(string(sec[:1])) + string(sec[1:])
	return m.list.Render(title, m.rows(), "", width-2, height-2, true)
}

func (m Model) renderFooter() string {
	var line string
	switch {
	case m.toast != "":
		line = styles.Toast.Render(m.toast)
	case m.errText != "":
		line = styles.ErrorBanner.Render(m.errText)
	case m.status != "":
		line = styles.Muted.Render(m.status)
	default:
		line = styles.Dim.Render("1-4:preset (hold to map)  enter:open/play  P:play all  space:play/pause  n/b:next/prev  l:lyrics  L:liked  N:now playing  esc:back  q:quit")
	}
	return lipgloss.NewStyle().Width(m.width).Padding(0, 1).Render(line)
}

// Run starts the console for session and blocks until it exits or ctx is
// cancelled.
func Run(ctx context.Context, session *kiosk.Session, opts Options) error {
	model := NewModel(session, opts)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	detach := session.Attach(NewDisplay(p.Send))
	defer detach()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
