package tui

import (
	"context"
	"strings"
	"time"

	"github.com/Makepad-fr/gifboard/internal/model"
	"github.com/Makepad-fr/gifboard/internal/wallet"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
)

const (
	headerText = "🖼  GIF Portal"
	subText    = "Come and submit your favourite GIF on Solana ✨"

	installURL = "https://docs.solanalabs.com/cli/install"

	defaultTimeout = time.Minute
)

// Board is the remote program as seen by the UI.
type Board interface {
	Initialize(ctx context.Context, signer wallet.Signer) (solana.Signature, error)
	AddGif(ctx context.Context, signer wallet.Signer, link string) (solana.Signature, error)
	Entries(ctx context.Context) ([]model.Entry, error)
}

type Options struct {
	// Wallet is nil when no wallet was detected.
	Wallet     wallet.Provider
	WalletPath string
	// Board is nil when no base account is configured; BoardErr says why.
	Board    Board
	BoardErr error
	Timeout  time.Duration
	Footer   string
}

// -------------- messages ----------------

type sessionCheckedMsg struct {
	addr solana.PublicKey
	err  error
}

type connectedMsg struct {
	addr solana.PublicKey
	err  error
}

type disconnectedMsg struct{ err error }

type entriesMsg struct {
	gen     int
	entries []model.Entry
	err     error
}

type initializedMsg struct {
	sig solana.Signature
	err error
}

type gifSentMsg struct {
	link string
	sig  solana.Signature
	err  error
}

// -------------- model ----------------

type keyMap struct {
	Connect    key.Binding
	Init       key.Binding
	Submit     key.Binding
	Refresh    key.Binding
	Disconnect key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	Connect:    key.NewBinding(key.WithKeys("c", "enter"), key.WithHelp("c", "connect")),
	Init:       key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i", "initialize")),
	Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	Refresh:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh")),
	Disconnect: key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "disconnect")),
	Quit:       key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
}

type Model struct {
	wallet     wallet.Provider
	walletPath string
	board      Board
	boardErr   error
	timeout    time.Duration
	footer     string

	address  string        // empty until a wallet is connected
	entries  []model.Entry // nil: base account not initialized
	loading  bool          // a list fetch is in flight
	fetchGen int           // results of older fetches are dropped
	pending  string        // mutating call in flight, shown in the status line

	status    string
	statusErr bool

	input textinput.Model
	grid  list.Model

	width, height int
}

func New(opts Options) Model {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Enter gif link!"
	ti.CharLimit = 0
	ti.Cursor.SetMode(cursor.CursorStatic)

	w, h := widthHeight()
	m := Model{
		wallet:     opts.Wallet,
		walletPath: opts.WalletPath,
		board:      opts.Board,
		boardErr:   opts.BoardErr,
		timeout:    opts.Timeout,
		footer:     opts.Footer,
		input:      ti,
		grid:       newGrid(),
	}
	m.resize(w, h)
	return m
}

// Run starts the Bubble Tea program and blocks until the user quits.
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init checks for an already trusted wallet without prompting.
func (m Model) Init() tea.Cmd {
	if m.wallet == nil {
		log.Warn("no wallet found")
		return nil
	}
	return m.checkSession()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case sessionCheckedMsg:
		if msg.err != nil {
			log.WithError(msg.err).Info("no trusted wallet session")
			return m, nil
		}
		return m.setAddress(msg.addr.String())

	case connectedMsg:
		m.pending = ""
		if msg.err != nil {
			log.WithError(msg.err).Error("failed to connect wallet")
			m.setStatus("Could not connect wallet: "+msg.err.Error(), true)
			return m, nil
		}
		m.setStatus("Connected", false)
		return m.setAddress(msg.addr.String())

	case disconnectedMsg:
		m.pending = ""
		if msg.err != nil {
			log.WithError(msg.err).Error("failed to disconnect wallet")
		}
		m.address = ""
		m.entries = nil
		m.loading = false
		m.fetchGen++
		m.input.SetValue("")
		m.input.Blur()
		m.grid.SetItems(nil)
		m.setStatus("Disconnected", false)
		return m, nil

	case entriesMsg:
		if msg.gen != m.fetchGen {
			log.Debugf("dropping stale gif list (fetch %d, current %d)", msg.gen, m.fetchGen)
			return m, nil
		}
		m.loading = false
		if m.address == "" {
			return m, nil
		}
		if msg.err != nil {
			log.WithError(msg.err).Error("error in getGifList")
			m.entries = nil
			m.input.Blur()
			m.grid.SetItems(nil)
			return m, nil
		}
		entries := msg.entries
		if entries == nil {
			entries = []model.Entry{}
		}
		log.Infof("got the account with %d gifs", len(entries))
		m.entries = entries
		cmd := m.grid.SetItems(gridItems(entries))
		focus := m.input.Focus()
		return m, tea.Batch(cmd, focus)

	case initializedMsg:
		m.pending = ""
		if msg.err != nil {
			log.WithError(msg.err).Error("error creating base account")
			m.setStatus("Initialization failed: "+msg.err.Error(), true)
			return m, nil
		}
		m.setStatus("Base account created", false)
		cmd := m.refresh()
		return m, cmd

	case gifSentMsg:
		m.pending = ""
		if msg.err != nil {
			log.WithError(msg.err).Error("error sending gif")
			m.setStatus("Error sending GIF: "+msg.err.Error(), true)
			return m, nil
		}
		m.setStatus("GIF sent", false)
		cmd := m.refresh()
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.showForm() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		return m, tea.Quit
	}

	switch {
	case m.wallet == nil:
		if msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil

	case m.address == "":
		switch {
		case msg.String() == "q":
			return m, tea.Quit
		case key.Matches(msg, keys.Connect) && m.pending == "":
			m.pending = "connecting wallet"
			return m, m.connect()
		}
		return m, nil

	case m.board == nil:
		switch {
		case msg.String() == "q":
			return m, tea.Quit
		case (msg.String() == "x" || key.Matches(msg, keys.Disconnect)) && m.pending == "":
			m.pending = "disconnecting"
			return m, m.disconnect()
		}
		return m, nil

	case !m.showForm():
		switch {
		case msg.String() == "q":
			return m, tea.Quit
		case key.Matches(msg, keys.Init) && m.pending == "" && !m.loading:
			m.pending = "initializing base account"
			return m, m.initialize()
		case (msg.String() == "r" || key.Matches(msg, keys.Refresh)) && !m.loading:
			cmd := m.refresh()
			return m, cmd
		case (msg.String() == "x" || key.Matches(msg, keys.Disconnect)) && m.pending == "":
			m.pending = "disconnecting"
			return m, m.disconnect()
		}
		return m, nil
	}

	// form view: the text input owns every key not bound here
	switch {
	case key.Matches(msg, keys.Submit):
		return m.submit()
	case key.Matches(msg, keys.Refresh):
		if m.loading {
			return m, nil
		}
		cmd := m.refresh()
		return m, cmd
	case key.Matches(msg, keys.Disconnect):
		if m.pending != "" {
			return m, nil
		}
		m.pending = "disconnecting"
		return m, m.disconnect()
	}
	switch msg.Type {
	case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.grid, cmd = m.grid.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit clears the input before the remote call; it is not restored if
// the call fails. The link is sent as typed.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.pending != "" {
		return m, nil
	}
	link := m.input.Value()
	if strings.TrimSpace(link) == "" {
		log.Info("no gif link given")
		m.setStatus("No gif link given!", true)
		return m, nil
	}
	m.input.SetValue("")
	log.Infof("gif link: %s", link)
	m.pending = "sending gif"
	return m, m.sendGif(link)
}

// setAddress fetches the list when the wallet goes from absent to present.
func (m Model) setAddress(addr string) (tea.Model, tea.Cmd) {
	wasEmpty := m.address == ""
	m.address = addr
	if !wasEmpty || addr == "" {
		return m, nil
	}
	if m.board == nil {
		log.WithError(m.boardErr).Warn("no base account, not fetching gif list")
		return m, nil
	}
	log.Info("fetching gif list")
	cmd := m.refresh()
	return m, cmd
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m Model) showForm() bool {
	return m.wallet != nil && m.address != "" && m.board != nil && m.entries != nil
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	m.input.Width = max(w-12, 10)
	m.grid.SetSize(max(w-6, 20), max(h-16, 3))
}

// -------------- commands ----------------

func (m Model) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

func (m Model) checkSession() tea.Cmd {
	w := m.wallet
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		addr, err := w.Connect(ctx, wallet.ConnectOptions{OnlyIfTrusted: true})
		return sessionCheckedMsg{addr: addr, err: err}
	}
}

func (m Model) connect() tea.Cmd {
	w := m.wallet
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		addr, err := w.Connect(ctx, wallet.ConnectOptions{})
		return connectedMsg{addr: addr, err: err}
	}
}

func (m Model) disconnect() tea.Cmd {
	w := m.wallet
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		return disconnectedMsg{err: w.Disconnect(ctx)}
	}
}

// refresh marks the model as loading; callers return the updated model.
func (m *Model) refresh() tea.Cmd {
	m.loading = true
	m.fetchGen++
	b, gen := m.board, m.fetchGen
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		entries, err := b.Entries(ctx)
		return entriesMsg{gen: gen, entries: entries, err: err}
	}
}

func (m Model) initialize() tea.Cmd {
	b, w := m.board, m.wallet
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		sig, err := b.Initialize(ctx, w)
		return initializedMsg{sig: sig, err: err}
	}
}

func (m Model) sendGif(link string) tea.Cmd {
	b, w := m.board, m.wallet
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		sig, err := b.AddGif(ctx, w, link)
		return gifSentMsg{link: link, sig: sig, err: err}
	}
}

// -------------- view ----------------

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(headerText) + "\n")
	b.WriteString(subStyle.Render(subText) + "\n\n")

	switch {
	case m.wallet == nil:
		b.WriteString(m.installView())
	case m.address == "":
		b.WriteString(buttonStyle.Render("Connect to Wallet") + "\n\n")
		b.WriteString(helpStyle.Render("c/enter connect • q quit"))
	case m.board == nil:
		b.WriteString(m.setupView())
	case m.entries == nil && m.loading:
		b.WriteString(mutedStyle.Render("Fetching GIF list...") + "\n")
	case m.entries == nil:
		b.WriteString(buttonStyle.Render("Do One-Time Initialization For GIF Program Account") + "\n\n")
		b.WriteString(helpStyle.Render("i/enter initialize • r retry fetch • x disconnect • q quit"))
	default:
		b.WriteString(m.formView())
	}

	if line := m.statusLine(); line != "" {
		b.WriteString("\n\n" + line)
	}
	if m.footer != "" {
		b.WriteString("\n\n" + mutedStyle.Render(m.footer))
	}
	return panelString(b.String())
}

func (m Model) installView() string {
	lines := []string{
		errorStyle.Render("Wallet not found!"),
		"Install the Solana CLI and create a keypair to use as your wallet:",
		"  " + linkStyle.Render(installURL),
		"  " + accentStyle.Render("solana-keygen new"),
	}
	if m.walletPath != "" {
		lines = append(lines, mutedStyle.Render("expected at "+m.walletPath))
	}
	lines = append(lines, "", helpStyle.Render("q quit"))
	return strings.Join(lines, "\n")
}

func (m Model) setupView() string {
	lines := []string{
		mutedStyle.Render("wallet ") + accentStyle.Render(m.address),
		"",
		errorStyle.Render("Base account not configured"),
	}
	if m.boardErr != nil {
		lines = append(lines, mutedStyle.Render(m.boardErr.Error()))
	}
	lines = append(lines, "", helpStyle.Render("x disconnect • q quit"))
	return strings.Join(lines, "\n")
}

func (m Model) formView() string {
	var b strings.Builder
	b.WriteString(mutedStyle.Render("wallet ") + accentStyle.Render(m.address) + "\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
		m.input.View(), "  ", buttonStyle.Render("Submit")))
	b.WriteString("\n\n")
	if len(m.entries) == 0 {
		b.WriteString(mutedStyle.Render("no gifs yet"))
	} else {
		b.WriteString(m.grid.View())
	}
	b.WriteString("\n" + helpStyle.Render("enter submit • ↑/↓ browse • ctrl+r refresh • ctrl+x disconnect • esc quit"))
	return b.String()
}

func (m Model) statusLine() string {
	switch {
	case m.pending != "":
		return pendingStyle.Render("⏳ " + m.pending + "...")
	case m.status == "":
		return ""
	case m.statusErr:
		return errorStyle.Render("✖ " + m.status)
	default:
		return successStyle.Render("✔ " + m.status)
	}
}
