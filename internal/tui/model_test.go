package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Makepad-fr/gifboard/internal/model"
	"github.com/Makepad-fr/gifboard/internal/wallet"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

type fakeWallet struct {
	mu         sync.Mutex
	addr       solana.PublicKey
	trusted    bool
	connectErr error
	connected  bool

	silent, prompts, disconnects int
}

func (w *fakeWallet) Kind() string { return "fake" }

func (w *fakeWallet) Connect(_ context.Context, opts wallet.ConnectOptions) (solana.PublicKey, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if opts.OnlyIfTrusted {
		w.silent++
		if !w.trusted {
			return solana.PublicKey{}, wallet.ErrNotTrusted
		}
	} else {
		w.prompts++
		if w.connectErr != nil {
			return solana.PublicKey{}, w.connectErr
		}
		w.trusted = true
	}
	w.connected = true
	return w.addr, nil
}

func (w *fakeWallet) Disconnect(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disconnects++
	w.connected, w.trusted = false, false
	return nil
}

func (w *fakeWallet) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

func (w *fakeWallet) PublicKey() solana.PublicKey { return w.addr }

func (w *fakeWallet) SignTransaction(context.Context, *solana.Transaction) error { return nil }

type fakeBoard struct {
	mu          sync.Mutex
	initialized bool
	entries     []model.Entry
	fetchErr    error
	addErr      error
	initErr     error

	fetches, adds, inits int
}

var errNoAccount = errors.New("account not found")

func (b *fakeBoard) Entries(context.Context) ([]model.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetches++
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	if !b.initialized {
		return nil, errNoAccount
	}
	return append([]model.Entry{}, b.entries...), nil
}

func (b *fakeBoard) AddGif(_ context.Context, signer wallet.Signer, link string) (solana.Signature, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.adds++
	if b.addErr != nil {
		return solana.Signature{}, b.addErr
	}
	b.entries = append(b.entries, model.Entry{Link: link, Submitter: signer.PublicKey()})
	return solana.Signature{1}, nil
}

func (b *fakeBoard) Initialize(context.Context, wallet.Signer) (solana.Signature, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inits++
	if b.initErr != nil {
		return solana.Signature{}, b.initErr
	}
	b.initialized = true
	return solana.Signature{2}, nil
}

// drive runs cmd and every command produced by feeding its messages back
// into the model, the way the Bubble Tea loop would.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 100, "command loop did not settle")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		next, nc := m.Update(msg)
		m = next.(Model)
		queue = append(queue, nc)
	}
	return m
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(k)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return drive(t, m, cmd)
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	keyC  = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")}
	keyI  = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("i")}
)

func newUser() solana.PublicKey { return solana.NewWallet().PublicKey() }

func start(t *testing.T, w wallet.Provider, b *fakeBoard) Model {
	t.Helper()
	m := New(Options{Wallet: w, Board: b})
	return drive(t, m, m.Init())
}

func connectedBoard(t *testing.T, entries ...model.Entry) (Model, *fakeWallet, *fakeBoard) {
	t.Helper()
	w := &fakeWallet{addr: newUser(), trusted: true}
	b := &fakeBoard{initialized: true, entries: entries}
	m := start(t, w, b)
	require.True(t, m.showForm())
	return m, w, b
}

func TestNoWalletShowsInstallPrompt(t *testing.T) {
	b := &fakeBoard{initialized: true}
	m := New(Options{Board: b, WalletPath: "/home/u/.config/solana/id.json"})
	require.Nil(t, m.Init())

	m, cmd := press(t, m, keyC)
	require.Nil(t, cmd)
	m, cmd = press(t, m, enter)
	require.Nil(t, cmd)

	view := m.View()
	require.Contains(t, view, "Wallet not found!")
	require.Contains(t, view, "/home/u/.config/solana/id.json")
	require.NotContains(t, view, "Connect to Wallet")
	require.Zero(t, b.fetches)
}

func TestTrustedSessionConnectsWithoutPrompt(t *testing.T) {
	w := &fakeWallet{addr: newUser(), trusted: true}
	b := &fakeBoard{initialized: true}

	m := start(t, w, b)
	require.Equal(t, w.addr.String(), m.address)
	require.Equal(t, 1, w.silent)
	require.Zero(t, w.prompts)
	require.Equal(t, 1, b.fetches)
}

func TestUntrustedSessionStaysDisconnected(t *testing.T) {
	w := &fakeWallet{addr: newUser()}
	b := &fakeBoard{initialized: true}

	m := start(t, w, b)
	require.Empty(t, m.address)
	require.Zero(t, b.fetches)
	require.False(t, m.statusErr)
	require.Contains(t, m.View(), "Connect to Wallet")
}

func TestConnectFailureIsReported(t *testing.T) {
	w := &fakeWallet{addr: newUser(), connectErr: errors.New("user rejected")}
	b := &fakeBoard{initialized: true}
	m := start(t, w, b)

	m, cmd := press(t, m, keyC)
	require.True(t, m.pending != "")
	m = drive(t, m, cmd)

	require.Empty(t, m.address)
	require.Empty(t, m.pending)
	require.True(t, m.statusErr)
	require.Contains(t, m.View(), "user rejected")
	require.Zero(t, b.fetches)
}

func TestEmptySubmitMakesNoRemoteCall(t *testing.T) {
	m, _, b := connectedBoard(t)
	m = typeText(t, m, "   ")

	m, cmd := press(t, m, enter)
	require.Nil(t, cmd)
	require.Equal(t, "   ", m.input.Value())
	require.Zero(t, b.adds)
	require.True(t, m.statusErr)
}

func TestSubmitClearsInputEvenWhenSendFails(t *testing.T) {
	m, _, b := connectedBoard(t)
	b.addErr = errors.New("blockhash not found")
	m = typeText(t, m, "http://x/1.gif")

	m, cmd := press(t, m, enter)
	require.Empty(t, m.input.Value())
	require.NotNil(t, cmd)

	m = drive(t, m, cmd)
	require.Empty(t, m.input.Value())
	require.Equal(t, 1, b.adds)
	require.Equal(t, 1, b.fetches, "failed send must not refresh")
	require.True(t, m.statusErr)
	require.Contains(t, m.View(), "blockhash not found")
}

func TestSuccessfulAppendRefreshesOnce(t *testing.T) {
	m, _, b := connectedBoard(t)
	require.Equal(t, 1, b.fetches)

	m = typeText(t, m, "http://x/1.gif")
	m, cmd := press(t, m, enter)
	m = drive(t, m, cmd)

	require.Equal(t, 1, b.adds)
	require.Equal(t, 2, b.fetches)
	require.Len(t, m.entries, 1)
}

func TestLongLinkIsSentWhole(t *testing.T) {
	m, _, b := connectedBoard(t)
	link := "https://media.tenor.com/" + strings.Repeat("aB3xY9kQ", 38) + "/tenor.gif"
	require.Greater(t, len(link), 300)

	m = typeText(t, m, link)
	require.Equal(t, link, m.input.Value())

	m, cmd := press(t, m, enter)
	drive(t, m, cmd)
	require.Equal(t, 1, b.adds)
	require.Equal(t, link, b.entries[0].Link)
}

func TestLinkIsSentAsTyped(t *testing.T) {
	m, _, b := connectedBoard(t)
	m = typeText(t, m, "  http://x/1.gif ")

	m, cmd := press(t, m, enter)
	require.Empty(t, m.input.Value())
	drive(t, m, cmd)
	require.Equal(t, "  http://x/1.gif ", b.entries[0].Link)
}

func TestSubmitIgnoredWhilePending(t *testing.T) {
	m, _, b := connectedBoard(t)
	m = typeText(t, m, "http://x/1.gif")
	m, first := press(t, m, enter)
	require.NotNil(t, first)

	m = typeText(t, m, "http://x/2.gif")
	m, second := press(t, m, enter)
	require.Nil(t, second)
	require.Equal(t, "http://x/2.gif", m.input.Value())

	drive(t, m, first)
	require.Equal(t, 1, b.adds)
}

func TestFailedFetchShowsInitializeButton(t *testing.T) {
	w := &fakeWallet{addr: newUser(), trusted: true}
	b := &fakeBoard{initialized: true, fetchErr: errors.New("connection refused")}

	m := start(t, w, b)
	require.Nil(t, m.entries)
	require.False(t, m.showForm())

	view := m.View()
	require.Contains(t, view, "Do One-Time Initialization For GIF Program Account")
	require.NotContains(t, view, "no gifs yet")
	require.NotContains(t, view, "Submit")
}

func TestInitializeThenRefresh(t *testing.T) {
	w := &fakeWallet{addr: newUser(), trusted: true}
	b := &fakeBoard{}
	m := start(t, w, b)
	require.Nil(t, m.entries)

	m, cmd := press(t, m, keyI)
	m = drive(t, m, cmd)

	require.Equal(t, 1, b.inits)
	require.Equal(t, 2, b.fetches)
	require.NotNil(t, m.entries)
	require.Empty(t, m.entries)
	require.Contains(t, m.View(), "no gifs yet")
}

func TestInitializeFailureAllowsRetry(t *testing.T) {
	w := &fakeWallet{addr: newUser(), trusted: true}
	b := &fakeBoard{initErr: errors.New("insufficient funds")}
	m := start(t, w, b)

	m, cmd := press(t, m, keyI)
	m = drive(t, m, cmd)
	require.Nil(t, m.entries)
	require.Equal(t, 1, b.fetches)
	require.Contains(t, m.View(), "Do One-Time Initialization")

	b.initErr = nil
	m, cmd = press(t, m, enter)
	m = drive(t, m, cmd)
	require.Equal(t, 2, b.inits)
	require.NotNil(t, m.entries)
}

func TestDisconnect(t *testing.T) {
	m, w, _ := connectedBoard(t)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	m = drive(t, m, cmd)

	require.Equal(t, 1, w.disconnects)
	require.Empty(t, m.address)
	require.Nil(t, m.entries)
	require.Contains(t, m.View(), "Connect to Wallet")
}

func TestStaleFetchAfterDisconnectIsIgnored(t *testing.T) {
	m, _, _ := connectedBoard(t)
	next, _ := m.Update(disconnectedMsg{})
	m = next.(Model)

	next, _ = m.Update(entriesMsg{entries: []model.Entry{{Link: "http://x/1.gif"}}})
	m = next.(Model)
	require.Nil(t, m.entries)
}

func TestFetchFromEarlierSessionIsIgnored(t *testing.T) {
	m, w, b := connectedBoard(t, model.Entry{Link: "http://x/old.gif"})

	m, old := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, old)

	next, _ := m.Update(disconnectedMsg{})
	m = next.(Model)
	next, fresh := m.Update(connectedMsg{addr: w.addr})
	m = next.(Model)
	require.True(t, m.loading)
	require.NotNil(t, fresh)

	next, _ = m.Update(old())
	m = next.(Model)
	require.True(t, m.loading)
	require.Nil(t, m.entries)

	b.mu.Lock()
	b.entries = append(b.entries, model.Entry{Link: "http://x/new.gif"})
	b.mu.Unlock()

	m = drive(t, m, fresh)
	require.False(t, m.loading)
	require.Len(t, m.entries, 2)
}

func TestMissingBaseAccountScreen(t *testing.T) {
	w := &fakeWallet{addr: newUser(), trusted: true}
	m := New(Options{Wallet: w, BoardErr: errors.New("run `gifboard base-account new`")})
	m = drive(t, m, m.Init())
	require.Equal(t, w.addr.String(), m.address)
	require.False(t, m.showForm())

	view := m.View()
	require.Contains(t, view, "Base account not configured")
	require.Contains(t, view, "gifboard base-account new")
	require.NotContains(t, view, "Do One-Time Initialization")

	m, cmd := press(t, m, keyI)
	require.Nil(t, cmd)
	m, cmd = press(t, m, enter)
	require.Nil(t, cmd)

	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	m = drive(t, m, cmd)
	require.Equal(t, 1, w.disconnects)
	require.Contains(t, m.View(), "Connect to Wallet")
}

func TestEndToEnd(t *testing.T) {
	w := &fakeWallet{addr: newUser()}
	b := &fakeBoard{initialized: true}

	m := start(t, w, b)
	require.Empty(t, m.address)
	require.Contains(t, m.View(), "Connect to Wallet")

	m, cmd := press(t, m, keyC)
	m = drive(t, m, cmd)
	require.Equal(t, w.addr.String(), m.address)
	require.Equal(t, 1, b.fetches)
	require.NotNil(t, m.entries)
	require.Empty(t, m.grid.Items())
	require.True(t, m.showForm())
	require.Contains(t, m.View(), "Submit")

	const link = "http://x/1.gif"
	m = typeText(t, m, link)
	m, cmd = press(t, m, enter)
	m = drive(t, m, cmd)

	require.Equal(t, 2, b.fetches)
	items := m.grid.Items()
	require.Len(t, items, 1)
	require.Equal(t, link, items[0].(gifItem).Link)
	require.Equal(t, 1, strings.Count(m.View(), link))
}
