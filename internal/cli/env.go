package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/Makepad-fr/gifboard/internal/config"
	"github.com/Makepad-fr/gifboard/internal/logging"
	"github.com/Makepad-fr/gifboard/internal/program"
	"github.com/Makepad-fr/gifboard/internal/store/jsonstore"
	"github.com/Makepad-fr/gifboard/internal/tui"
	"github.com/Makepad-fr/gifboard/internal/ui"
	"github.com/Makepad-fr/gifboard/internal/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// newRPC and runTUI are swapped in tests.
var (
	newRPC = func(url string) program.RPCClient { return rpc.New(url) }
	runTUI = tui.Run
)

type env struct {
	cfg      *config.Config
	sessions *jsonstore.Store
	wallet   *wallet.KeypairWallet // nil when no wallet was detected
	logs     io.Closer
}

func setup(c *cli.Context, logToFile bool) (*env, error) {
	ui.SetTheme(c.String(themeFlag.Name))
	if c.Bool(noColorFlag.Name) {
		ui.SetColorForcing(false, true)
	}

	cfg, err := config.LoadConfig(overrides(c))
	if err != nil {
		return nil, err
	}
	if err := cfg.InitDatadir(); err != nil {
		return nil, err
	}
	logs, err := logging.Setup(cfg.LogLevel, cfg.LogFile, logToFile)
	if err != nil {
		return nil, err
	}

	e := &env{
		cfg:      cfg,
		sessions: jsonstore.New(cfg.Datadir),
		logs:     logs,
	}
	w, err := wallet.Detect(cfg.WalletKeypair, e.sessions)
	switch {
	case err == nil:
		e.wallet = w
	case errors.Is(err, wallet.ErrNotFound):
		log.Warnf("no wallet keypair at %s", cfg.WalletKeypair)
	default:
		logs.Close()
		return nil, err
	}
	log.Debugf("rpc %s, program %s", cfg.RPCURL, cfg.ProgramID)
	return e, nil
}

func (e *env) Close() {
	if e.logs != nil {
		e.logs.Close()
	}
}

// provider avoids handing a typed nil to interface consumers.
func (e *env) provider() wallet.Provider {
	if e.wallet == nil {
		return nil
	}
	return e.wallet
}

func (e *env) board() (*program.Client, error) {
	base, key, err := program.LoadBaseAccount(e.cfg.BaseAccount, e.cfg.BaseAccountKeypair)
	if err != nil {
		if errors.Is(err, program.ErrNoBaseAccount) {
			return nil, fmt.Errorf("%w: set GIFBOARD_BASE_ACCOUNT or run `gifboard base-account new`", err)
		}
		return nil, err
	}
	return e.client(base, key), nil
}

// client builds a program client. base may be zero for calls that do not
// touch the base account.
func (e *env) client(base solana.PublicKey, key solana.PrivateKey) *program.Client {
	return program.New(newRPC(e.cfg.RPCURL), program.Options{
		ProgramID:   e.cfg.ProgramID,
		BaseAccount: base,
		BaseKey:     key,
		Commitment:  e.cfg.Commitment,
		VerifyIDL:   e.cfg.VerifyIDL,
	})
}

func (e *env) footer() string {
	return fmt.Sprintf("%s • program %s", e.cfg.Network, e.cfg.ProgramID)
}

func overrides(c *cli.Context) map[string]interface{} {
	out := map[string]interface{}{}
	set := func(flag cli.Flag, key string) {
		name := flag.Names()[0]
		if c.IsSet(name) {
			out[key] = c.Value(name)
		}
	}
	set(datadirFlag, config.Datadir)
	set(networkFlag, config.Network)
	set(rpcURLFlag, config.RPCURL)
	set(programIDFlag, config.ProgramID)
	set(walletFlag, config.WalletKeypair)
	set(baseAccountFlag, config.BaseAccount)
	set(baseAccountKeypairFlag, config.BaseAccountKeypair)
	set(logLevelFlag, config.LogLevel)
	set(timeoutFlag, config.RPCTimeout)
	set(verifyIDLFlag, config.VerifyIDL)
	return out
}
