package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Makepad-fr/gifboard/internal/model"
	"github.com/Makepad-fr/gifboard/internal/program"
	"github.com/Makepad-fr/gifboard/internal/tui"
	"github.com/Makepad-fr/gifboard/internal/ui"
	"github.com/Makepad-fr/gifboard/internal/wallet"
	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	uiCommand = cli.Command{
		Name:   "ui",
		Usage:  "Open the interactive gif board (default)",
		Action: runUI,
	}

	connectCommand = cli.Command{
		Name:   "connect",
		Usage:  "Approve the wallet keypair for this data directory",
		Action: connect,
	}

	disconnectCommand = cli.Command{
		Name:   "disconnect",
		Usage:  "Forget the approved wallet",
		Action: disconnect,
	}

	statusCommand = cli.Command{
		Name:   "status",
		Usage:  "Show wallet, network and base account configuration",
		Action: status,
	}

	initCommand = cli.Command{
		Name:   "init",
		Usage:  "Do the one-time initialization of the base account",
		Action: initAccount,
	}

	addCommand = cli.Command{
		Name:      "add",
		Usage:     "Submit a gif link",
		ArgsUsage: "<link>",
		Action:    addGif,
	}

	lsCommand = cli.Command{
		Name:   "ls",
		Usage:  "List submitted gifs",
		Action: listGifs,
	}

	idlCommand = cli.Command{
		Name:   "idl",
		Usage:  "Fetch and print the program interface description",
		Action: showIDL,
	}

	baseAccountCommand = cli.Command{
		Name:  "base-account",
		Usage: "Manage the base account keypair",
		Subcommands: []*cli.Command{
			{
				Name:   "new",
				Usage:  "Generate a base account keypair in the data directory",
				Action: newBaseAccount,
			},
			{
				Name:   "show",
				Usage:  "Print the configured base account address",
				Action: showBaseAccount,
			},
		},
	}
)

// -------------- subcommand impls ----------------

func runUI(c *cli.Context) error {
	if c.Args().Present() {
		return usage(fmt.Sprintf("unknown subcommand: %s", c.Args().First()))
	}
	e, err := setup(c, true)
	if err != nil {
		return err
	}
	defer e.Close()

	opts := tui.Options{
		Wallet:     e.provider(),
		WalletPath: e.cfg.WalletKeypair,
		Timeout:    e.cfg.RPCTimeout,
		Footer:     e.footer(),
	}
	b, err := e.board()
	switch {
	case err == nil:
		opts.Board = b
	case errors.Is(err, program.ErrNoBaseAccount):
		log.WithError(err).Warn("starting without a base account")
		opts.BoardErr = err
	default:
		return err
	}
	return runTUI(opts)
}

func connect(c *cli.Context) error {
	e, err := setup(c, false)
	if err != nil {
		return err
	}
	defer e.Close()
	if err := requireWallet(e); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, e.cfg.RPCTimeout)
	defer cancel()
	pub, err := e.wallet.Connect(ctx, wallet.ConnectOptions{})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	ui.OK("connected with public key " + pub.String())
	return nil
}

func disconnect(c *cli.Context) error {
	e, err := setup(c, false)
	if err != nil {
		return err
	}
	defer e.Close()

	if e.wallet == nil {
		err = e.sessions.Delete()
	} else {
		ctx, cancel := context.WithTimeout(c.Context, e.cfg.RPCTimeout)
		defer cancel()
		err = e.wallet.Disconnect(ctx)
	}
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	ui.OK("disconnected")
	return nil
}

func status(c *cli.Context) error {
	e, err := setup(c, false)
	if err != nil {
		return err
	}
	defer e.Close()

	t := ui.Current()
	lines := []string{
		ui.C(t.Title, "gifboard"),
		"network:  " + e.cfg.Network + " (" + e.cfg.RPCURL + ")",
		"program:  " + e.cfg.ProgramID.String(),
	}

	switch {
	case e.wallet == nil:
		lines = append(lines, "wallet:   "+ui.C(t.Error, "not found at "+e.cfg.WalletKeypair))
	default:
		sess, err := e.sessions.Load()
		if err != nil {
			return err
		}
		if sess == nil {
			lines = append(lines, "wallet:   "+ui.C(t.Muted, "not connected"))
		} else {
			lines = append(lines, "wallet:   "+ui.C(t.Success, sess.PublicKey))
		}
	}

	base, key, err := program.LoadBaseAccount(e.cfg.BaseAccount, e.cfg.BaseAccountKeypair)
	switch {
	case err != nil:
		lines = append(lines, "base:     "+ui.C(t.Error, err.Error()))
	case key == nil:
		lines = append(lines, "base:     "+base.String()+ui.C(t.Muted, " (no keypair, init disabled)"))
	default:
		lines = append(lines, "base:     "+base.String())
	}
	lines = append(lines, "datadir:  "+e.cfg.Datadir)
	ui.Panel(lines)
	return nil
}

func initAccount(c *cli.Context) error {
	e, err := setup(c, false)
	if err != nil {
		return err
	}
	defer e.Close()

	b, err := e.board()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, e.cfg.RPCTimeout)
	defer cancel()
	signer, err := trustedWallet(ctx, e)
	if err != nil {
		return err
	}

	if _, err := b.Initialize(ctx, signer); err != nil {
		return fmt.Errorf("create base account: %w", err)
	}
	ui.OK("created base account " + b.BaseAccount().String())
	return printEntries(ctx, b)
}

func addGif(c *cli.Context) error {
	link := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(link) == "" {
		return usage("gifboard add <link>")
	}

	e, err := setup(c, false)
	if err != nil {
		return err
	}
	defer e.Close()

	b, err := e.board()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, e.cfg.RPCTimeout)
	defer cancel()
	signer, err := trustedWallet(ctx, e)
	if err != nil {
		return err
	}

	sig, err := b.AddGif(ctx, signer, link)
	if err != nil {
		return fmt.Errorf("send gif: %w", err)
	}
	ui.OK("gif sent (" + sig.String() + ")")
	return printEntries(ctx, b)
}

func listGifs(c *cli.Context) error {
	e, err := setup(c, false)
	if err != nil {
		return err
	}
	defer e.Close()

	b, err := e.board()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, e.cfg.RPCTimeout)
	defer cancel()
	return printEntries(ctx, b)
}

func showIDL(c *cli.Context) error {
	e, err := setup(c, false)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(c.Context, e.cfg.RPCTimeout)
	defer cancel()
	client := e.client(solana.PublicKey{}, nil)
	idl, err := client.IDL(ctx)
	if err != nil {
		return fmt.Errorf("fetch idl: %w", err)
	}

	t := ui.Current()
	lines := []string{
		fmt.Sprintf("%s %s", ui.C(t.Title, idl.Name), ui.C(t.Muted, idl.Version)),
		ui.C(t.Muted, "program "+client.ProgramID().String()),
		"",
	}
	lines = append(lines, ui.C(t.Accent, "Instructions"))
	for _, ix := range idl.Instructions {
		args := make([]string, 0, len(ix.Args))
		for _, a := range ix.Args {
			args = append(args, a.Name+": "+strings.Trim(string(a.Type), `"`))
		}
		lines = append(lines, fmt.Sprintf("  %s(%s)", ix.Name, strings.Join(args, ", ")))
	}
	lines = append(lines, "", ui.C(t.Accent, "Accounts"))
	for _, a := range idl.Accounts {
		lines = append(lines, "  "+a.Name)
	}
	ui.Panel(lines)
	return nil
}

func newBaseAccount(c *cli.Context) error {
	e, err := setup(c, false)
	if err != nil {
		return err
	}
	defer e.Close()

	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	if err := wallet.WriteKeygenFile(e.cfg.BaseAccountKeypair, key); err != nil {
		return err
	}
	ui.OK("base account " + key.PublicKey().String() + " written to " + e.cfg.BaseAccountKeypair)
	return nil
}

func showBaseAccount(c *cli.Context) error {
	e, err := setup(c, false)
	if err != nil {
		return err
	}
	defer e.Close()

	base, _, err := program.LoadBaseAccount(e.cfg.BaseAccount, e.cfg.BaseAccountKeypair)
	if err != nil {
		return err
	}
	ui.Println(base.String())
	return nil
}

// -------------- helpers --------------

func requireWallet(e *env) error {
	if e.wallet == nil {
		return fmt.Errorf("%w at %s. Install the Solana CLI and run `solana-keygen new`", wallet.ErrNotFound, e.cfg.WalletKeypair)
	}
	return nil
}

func trustedWallet(ctx context.Context, e *env) (wallet.Signer, error) {
	if err := requireWallet(e); err != nil {
		return nil, err
	}
	if _, err := e.wallet.Connect(ctx, wallet.ConnectOptions{OnlyIfTrusted: true}); err != nil {
		if errors.Is(err, wallet.ErrNotTrusted) {
			return nil, fmt.Errorf("%w. Run: gifboard connect", err)
		}
		return nil, err
	}
	return e.wallet, nil
}

func printEntries(ctx context.Context, b *program.Client) error {
	board, err := b.Board(ctx)
	if err != nil {
		if errors.Is(err, program.ErrAccountNotFound) {
			log.WithError(err).Debug("base account missing")
			ui.Println(ui.C(ui.Current().Muted, "base account not initialized. Run: gifboard init"))
			return nil
		}
		return fmt.Errorf("fetch gifs: %w", err)
	}
	ui.Panel(entryLines(board))
	return nil
}

func entryLines(b *model.Board) []string {
	t := ui.Current()
	lines := []string{
		fmt.Sprintf("%s  %s %d", ui.C(t.Title, "Gifs"), ui.C(t.Accent, "Total"), b.TotalGifs),
		"",
	}
	if len(b.Entries) == 0 {
		return append(lines, ui.C(t.Muted, "no gifs yet"))
	}
	for i, e := range b.Entries {
		lines = append(lines, fmt.Sprintf("%2d. %s %s %s",
			i+1,
			ui.C(t.Accent, t.SymEntry),
			ui.C(t.Link, ui.Truncate(e.Link, 80)),
			ui.C(t.Muted, "by "+e.Submitter.String())))
	}
	return lines
}
