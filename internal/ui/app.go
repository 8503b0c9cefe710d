package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/oakley-srs/oakley/internal/gateway"
	"github.com/oakley-srs/oakley/internal/host"
	"github.com/oakley-srs/oakley/internal/prefs"
	"github.com/oakley-srs/oakley/internal/session"
	"github.com/oakley-srs/oakley/internal/state"
	"github.com/oakley-srs/oakley/internal/subscribe"
)

// Options configures the UI. Nil collaborators are replaced with inert
// ones, so a zero Options yields a working offline overlay.
type Options struct {
	Context           context.Context
	Machine           *session.Machine
	Gateway           *gateway.Gateway
	Syncer            *state.Syncer
	Manager           *subscribe.Manager
	Clipboard         gateway.Clipboard
	ThemeName         string
	OverlayStyle      string
	PrefsPath         string
	GenerationTimeout time.Duration
	LogPath           string
	BridgeLabel       string
	Logger            zerolog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Collaborators
	ctx        context.Context
	machine    *session.Machine
	gateway    *gateway.Gateway
	syncer     *state.Syncer
	manager    *subscribe.Manager
	clipboard  gateway.Clipboard
	prefsPath  string
	genTimeout time.Duration
	label      string
	log        zerolog.Logger

	// UI state
	keys   keyMap
	theme  Theme
	style  OverlayStyle
	width  int
	height int
	ready  bool
	now    time.Time
	notice string

	// Host events
	events chan host.Event
	live   bool

	// Overlay
	editor  editor
	spinner spinner.Model

	// Card list
	snapshot  state.Snapshot
	selected  int
	filter    textinput.Model
	filtering bool

	diag     diagnostics
	showHelp bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := opts.Logger.With().Str("component", "ui").Logger()

	machine := opts.Machine
	if machine == nil {
		machine = session.NewMachine(opts.Logger)
	}
	gw := opts.Gateway
	if gw == nil {
		gw = gateway.New(host.Inert{}, gateway.Options{Logger: opts.Logger})
	}
	syncer := opts.Syncer
	if syncer == nil {
		syncer = state.NewSyncer(&state.Store{}, gw, opts.Logger)
	}
	manager := opts.Manager
	if manager == nil {
		manager = subscribe.NewManager(host.Inert{}, opts.Logger)
	}
	clip := opts.Clipboard
	if clip == nil {
		clip = gateway.SystemClipboard{}
	}

	genTimeout := opts.GenerationTimeout
	if genTimeout <= 0 {
		genTimeout = DefaultGenerationTimeout
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = prefs.DefaultTheme()
	}

	filter := textinput.New()
	filter.Prompt = "/"
	filter.Placeholder = "filter cards"

	return Model{
		ctx:        ctx,
		machine:    machine,
		gateway:    gw,
		syncer:     syncer,
		manager:    manager,
		clipboard:  clip,
		prefsPath:  opts.PrefsPath,
		genTimeout: genTimeout,
		label:      opts.BridgeLabel,
		log:        log,
		keys:       DefaultKeyMap(),
		theme:      GetTheme(themeName),
		style:      ParseOverlayStyle(opts.OverlayStyle),
		now:        time.Now(),
		events:     make(chan host.Event, 16),
		editor:     newEditor(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		snapshot:   syncer.Store().Snapshot(),
		filter:     filter,
		diag:       newDiagnostics(opts.LogPath),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		activateCmd(m.ctx, m.manager, channelSink(m.ctx, m.events)),
		refreshCmd(m.ctx, m.syncer),
		tickCmd(StatusTick),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.editor.setWidth(editorWidth(m.width, m.style))
		m.filter.Width = max(m.width-4, 10)
		m.diag.resize(m.width, m.bodyHeight())
		return m, nil

	case subscribedMsg:
		return m.handleSubscribed(msg)

	case hostEventMsg:
		cmd := m.afterTransition(m.machine.HandleEvent(msg.event))
		return m, tea.Batch(cmd, waitForHostEvent(m.events))

	case hostDoneMsg:
		m.live = false
		return m, nil

	case generationResultMsg:
		cmd := m.afterTransition(m.machine.GenerationResult(msg.epoch, msg.card, msg.err))
		return m, cmd

	case saveResultMsg:
		cmd := m.afterTransition(m.machine.SaveResult(msg.epoch, msg.err))
		return m, cmd

	case discardResultMsg:
		cmd := m.afterTransition(m.machine.DiscardResult(msg.epoch, msg.err))
		return m, cmd

	case expireMsg:
		cmd := m.afterTransition(m.machine.Expire(msg.epoch))
		return m, cmd

	case refreshedMsg:
		m.snapshot = msg.snapshot
		m.selected = clampSelection(m.selected, len(m.visibleCards()))
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		m.snapshot = m.syncer.Store().Snapshot()
		m.selected = clampSelection(m.selected, len(m.visibleCards()))
		return m, tickCmd(StatusTick)

	case diagnosticsMsg:
		m.diag.apply(msg)
		return m, nil

	case spinner.TickMsg:
		if !m.spinning() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleSubscribed(msg subscribedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg("event subscription failed")
		m.notice = "Live updates unavailable"
		return m, nil
	}
	if msg.handle == nil || !msg.handle.Open() {
		return m, nil
	}
	m.live = true
	return m, waitForHostEvent(m.events)
}

// afterTransition schedules the side effects of a session transition: the
// generation watchdog, editor resets and the list refresh after a save.
func (m *Model) afterTransition(t session.Transition) tea.Cmd {
	var cmds []tea.Cmd
	if !t.Ignored {
		switch t.To {
		case session.Generating:
			cmds = append(cmds, watchdogCmd(m.genTimeout, t.Epoch), m.spinner.Tick)
		case session.Reviewing:
			if t.Reason == session.ReasonCardCreated || t.Reason == session.ReasonGenerateResult {
				cmds = append(cmds, m.editor.reset(m.machine.Session().Draft))
			}
		case session.Idle:
			m.editor.blur()
		}
	}
	if t.Persisted {
		cmds = append(cmds, refreshCmd(m.ctx, m.syncer))
	}
	return tea.Batch(cmds...)
}

func (m *Model) startGeneration() tea.Cmd {
	t := m.machine.Start(session.ReasonGenerateRequest)
	return tea.Batch(
		m.afterTransition(t),
		generateCmd(m.ctx, m.gateway, m.clipboard, t.Epoch),
	)
}

func (m Model) spinning() bool {
	s := m.machine.Session()
	return s.Phase == session.Generating || s.Pending != session.ActionNone
}

// handleKey routes a key press. A card under review owns the keyboard.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}

	switch m.machine.Phase() {
	case session.Reviewing:
		return m.handleReviewKey(msg)
	case session.Generating:
		if key.Matches(msg, m.keys.Escape) {
			cmd := m.afterTransition(m.machine.Dismiss())
			return m, cmd
		}
	}

	if m.filtering {
		return m.handleFilterKey(msg)
	}
	if m.diag.open {
		return m.handleDiagnosticsKey(msg)
	}
	return m.handleListKey(msg)
}

func (m Model) handleReviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Save):
		card, epoch, ok := m.machine.BeginSave()
		if !ok {
			return m, nil
		}
		return m, tea.Batch(saveCmd(m.ctx, m.gateway, card, epoch), m.spinner.Tick)

	case key.Matches(msg, m.keys.Discard):
		id, epoch, ok := m.machine.BeginDiscard()
		if !ok {
			return m, nil
		}
		return m, tea.Batch(discardCmd(m.ctx, m.gateway, id, epoch), m.spinner.Tick)

	case key.Matches(msg, m.keys.NextField), key.Matches(msg, m.keys.PrevField):
		cmd := m.editor.toggle()
		return m, cmd

	case key.Matches(msg, m.keys.Generate):
		cmd := m.startGeneration()
		return m, cmd
	}

	// Edits are frozen while a save or discard is in flight.
	if m.machine.Session().Pending != session.ActionNone {
		return m, nil
	}
	cmd := m.editor.update(msg)
	m.machine.Edit(m.editor.draft())
	return m, cmd
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.filtering = false
		m.filter.Reset()
		m.filter.Blur()
		m.selected = 0
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		m.filtering = false
		m.filter.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.selected = 0
	return m, cmd
}

func (m Model) handleDiagnosticsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Logs):
		m.diag.open = false
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.diag.load()
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.diag.viewport, cmd = m.diag.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.visibleCards())
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Generate):
		cmd := m.startGeneration()
		return m, cmd

	case key.Matches(msg, m.keys.Refresh):
		return m, refreshCmd(m.ctx, m.syncer)

	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		cmd := m.filter.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Logs):
		m.diag.open = true
		return m, m.diag.load()

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.CycleStyle):
		m.style = NextOverlayStyle(m.style)
		m.editor.setWidth(editorWidth(m.width, m.style))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.selected = clampSelection(m.selected-1, n)
	case key.Matches(msg, m.keys.Down):
		m.selected = clampSelection(m.selected+1, n)
	case key.Matches(msg, m.keys.Top):
		m.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selected = clampSelection(n-1, n)

	case key.Matches(msg, m.keys.Escape):
		if m.filter.Value() != "" {
			m.filter.Reset()
			m.selected = 0
			return m, nil
		}
		m.machine.ClearNotice()
		m.notice = ""
	}
	return m, nil
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{Theme: m.theme.Name, OverlayStyle: string(m.style)}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.log.Warn().Err(err).Str("path", m.prefsPath).Msg("saving preferences failed")
		m.notice = "Could not save preferences"
	}
}

func (m Model) visibleCards() []host.Card {
	return FilterCards(m.snapshot.Cards, m.filter.Value())
}

func (m Model) bodyHeight() int {
	return max(m.height-headerHeight-footerHeight, 1)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	height := m.bodyHeight()
	var body string
	switch overlay := m.renderOverlay(); {
	case overlay != "":
		body = placeCenter(m.width, height, overlay, m.theme)
	case m.diag.open:
		body = m.diag.render(m.theme)
	default:
		body = m.renderCards(height)
	}
	body = lipgloss.NewStyle().Height(height).MaxHeight(height).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left,
		renderHeader(m.statusView()),
		body,
		renderFooter(m.footerText(), m.theme, m.width),
	)
}

func (m Model) renderOverlay() string {
	s := m.machine.Session()
	v := OverlayView{
		Session: s,
		Spinner: m.spinner.View(),
		Focus:   m.editor.focus,
		Hints:   hints(m.keys.ReviewHelp(), " · "),
		Style:   m.style,
		Theme:   m.theme,
		Width:   m.width,
	}
	if s.Phase == session.Reviewing {
		v.FrontView = m.editor.front.View()
		v.BackView = m.editor.back.View()
	}
	return RenderOverlay(v)
}

func (m Model) renderCards(height int) string {
	top := ""
	if m.filtering {
		top = m.filter.View() + "\n"
		height--
	}
	return top + RenderList(ListView{
		Cards:    m.visibleCards(),
		Filter:   m.filter.Value(),
		Selected: m.selected,
		Width:    m.width,
		Height:   height,
		Loaded:   m.snapshot.Loaded,
		Theme:    m.theme,
	})
}

func (m Model) statusView() statusView {
	s := m.machine.Session()
	notice, failed := m.notice, m.notice != ""
	if notice == "" && s.Phase == session.Idle && s.Notice != "" {
		notice = s.Notice
		failed = s.Notice != "Card saved"
	}
	return statusView{
		Bridge:   bridgeState(m.gateway.Available(), m.gateway.BreakerState(), m.snapshot),
		Label:    m.label,
		Live:     m.live,
		Phase:    s.Phase,
		Cards:    len(m.snapshot.Cards),
		Shown:    len(m.visibleCards()),
		LastSync: m.snapshot.LastUpdated,
		SyncErr:  m.snapshot.LastError != nil,
		Filter:   m.filter.Value(),
		Notice:   notice,
		Failed:   failed,
		Now:      m.now,
		Theme:    m.theme,
		Width:    m.width,
	}
}

func (m Model) footerText() string {
	switch {
	case m.machine.Phase() == session.Reviewing:
		return hints(m.keys.ReviewHelp(), " · ")
	case m.filtering:
		return "enter apply · esc clear"
	case m.diag.open:
		return "j/k scroll · r reload · esc back"
	}
	return hints(m.keys.ShortHelp(), " · ")
}

// Run starts the Bubble Tea program and closes the host subscription when
// it exits.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if h := m.manager.Active(); h != nil {
		h.Close()
	}
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
