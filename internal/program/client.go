package program

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Makepad-fr/gifboard/internal/model"
	"github.com/Makepad-fr/gifboard/internal/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidAccountData = errors.New("unexpected account data")
	ErrNoBaseAccountKey   = errors.New("base account keypair not available")
	ErrNoBaseAccount      = errors.New("base account not configured")
	ErrTransactionFailed  = errors.New("transaction failed")
	ErrMissingInstruction = errors.New("program does not expose instruction")
)

const defaultPollInterval = 500 * time.Millisecond

// RPCClient is the part of *rpc.Client the board needs.
type RPCClient interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
}

type Options struct {
	ProgramID   solana.PublicKey
	BaseAccount solana.PublicKey
	// BaseKey signs account creation; nil for append/read only use.
	BaseKey      solana.PrivateKey
	Commitment   rpc.CommitmentType
	VerifyIDL    bool
	PollInterval time.Duration
}

// Client talks to the gif board program.
type Client struct {
	rpc          RPCClient
	programID    solana.PublicKey
	baseAccount  solana.PublicKey
	baseKey      solana.PrivateKey
	commitment   rpc.CommitmentType
	verifyIDL    bool
	pollInterval time.Duration

	idlMu      sync.Mutex
	idlChecked bool
}

func New(client RPCClient, opts Options) *Client {
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentProcessed
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Client{
		rpc:          client,
		programID:    opts.ProgramID,
		baseAccount:  opts.BaseAccount,
		baseKey:      opts.BaseKey,
		commitment:   opts.Commitment,
		verifyIDL:    opts.VerifyIDL,
		pollInterval: opts.PollInterval,
	}
}

func (c *Client) ProgramID() solana.PublicKey   { return c.programID }
func (c *Client) BaseAccount() solana.PublicKey { return c.baseAccount }

// LoadBaseAccount resolves the base account from an explicit address, a
// keypair file, or both. The key is nil when the file does not exist.
func LoadBaseAccount(addr, keypairPath string) (solana.PublicKey, solana.PrivateKey, error) {
	var key solana.PrivateKey
	if keypairPath != "" {
		if _, err := os.Stat(keypairPath); err == nil {
			k, err := solana.PrivateKeyFromSolanaKeygenFile(keypairPath)
			if err != nil {
				return solana.PublicKey{}, nil, fmt.Errorf("load base account keypair: %w", err)
			}
			key = k
		} else if !errors.Is(err, os.ErrNotExist) {
			return solana.PublicKey{}, nil, fmt.Errorf("stat base account keypair: %w", err)
		}
	}

	if addr == "" {
		if key == nil {
			return solana.PublicKey{}, nil, ErrNoBaseAccount
		}
		return key.PublicKey(), key, nil
	}

	pub, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("invalid base account: %w", err)
	}
	if key != nil && !key.PublicKey().Equals(pub) {
		return solana.PublicKey{}, nil, fmt.Errorf("base account %s does not match keypair %s", pub, key.PublicKey())
	}
	return pub, key, nil
}

// -------------- remote calls ----------------

// Initialize creates the base account. It must succeed once per deployment.
func (c *Client) Initialize(ctx context.Context, signer wallet.Signer) (solana.Signature, error) {
	if c.baseKey == nil {
		return solana.Signature{}, ErrNoBaseAccountKey
	}
	user := signer.PublicKey()
	if user.IsZero() {
		return solana.Signature{}, wallet.ErrNotConnected
	}
	if err := c.ensureIDL(ctx); err != nil {
		return solana.Signature{}, err
	}

	ix, err := StartStuffOffInstruction(c.programID, c.baseAccount, user)
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := c.send(ctx, ix, user, func(tx *solana.Transaction) error {
		if err := wallet.PartialSign(tx, c.baseKey); err != nil {
			return err
		}
		return signer.SignTransaction(ctx, tx)
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("start_stuff_off: %w", err)
	}
	log.WithField("signature", sig).Infof("created base account %s", c.baseAccount)
	return sig, nil
}

func (c *Client) AddGif(ctx context.Context, signer wallet.Signer, link string) (solana.Signature, error) {
	user := signer.PublicKey()
	if user.IsZero() {
		return solana.Signature{}, wallet.ErrNotConnected
	}
	if err := c.ensureIDL(ctx); err != nil {
		return solana.Signature{}, err
	}

	ix, err := AddGifInstruction(c.programID, c.baseAccount, user, link)
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := c.send(ctx, ix, user, func(tx *solana.Transaction) error {
		return signer.SignTransaction(ctx, tx)
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("add_gif: %w", err)
	}
	log.WithField("signature", sig).Infof("gif sent to program: %s", link)
	return sig, nil
}

// Board fetches the current snapshot of the base account.
func (c *Client) Board(ctx context.Context) (*model.Board, error) {
	out, err := c.rpc.GetAccountInfoWithOpts(ctx, c.baseAccount, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("base account %s: %w", c.baseAccount, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("get base account: %w", err)
	}
	if out == nil || out.Value == nil || out.Value.Data == nil {
		return nil, fmt.Errorf("base account %s: %w", c.baseAccount, ErrAccountNotFound)
	}
	if !out.Value.Owner.Equals(c.programID) {
		return nil, fmt.Errorf("%w: owner %s is not the program", ErrInvalidAccountData, out.Value.Owner)
	}
	return DecodeBaseAccount(out.Value.Data.GetBinary())
}

// Entries returns the list in the order the program stores it.
func (c *Client) Entries(ctx context.Context) ([]model.Entry, error) {
	b, err := c.Board(ctx)
	if err != nil {
		return nil, err
	}
	log.Debugf("got base account with %d gifs", len(b.Entries))
	return b.Entries, nil
}

func (c *Client) IDL(ctx context.Context) (*IDL, error) {
	return FetchIDL(ctx, c.rpc, c.programID)
}

// -------------- helpers ----------------

func (c *Client) ensureIDL(ctx context.Context) error {
	if !c.verifyIDL {
		return nil
	}
	c.idlMu.Lock()
	defer c.idlMu.Unlock()
	if c.idlChecked {
		return nil
	}

	idl, err := FetchIDL(ctx, c.rpc, c.programID)
	if err != nil {
		return fmt.Errorf("fetch idl: %w", err)
	}
	for _, name := range []string{InstructionStartStuffOff, InstructionAddGif} {
		if !idl.HasInstruction(name) {
			return fmt.Errorf("%w: %s", ErrMissingInstruction, name)
		}
	}
	c.idlChecked = true
	return nil
}

func (c *Client) send(
	ctx context.Context, ix solana.Instruction, payer solana.PublicKey, sign func(*solana.Transaction) error,
) (solana.Signature, error) {
	bh, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	if bh == nil || bh.Value == nil {
		return solana.Signature{}, errors.New("get latest blockhash: empty response")
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		bh.Value.Blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build transaction: %w", err)
	}
	if err := sign(tx); err != nil {
		return solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	if err := c.confirm(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

// confirm polls until sig reaches the client commitment or ctx is done.
func (c *Client) confirm(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		out, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			log.WithError(err).Debugf("signature status %s", sig)
		} else if out != nil && len(out.Value) > 0 && out.Value[0] != nil {
			st := out.Value[0]
			if st.Err != nil {
				return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, sig, st.Err)
			}
			if reached(st.ConfirmationStatus, c.commitment) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("confirm %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := map[string]int{
		string(rpc.ConfirmationStatusProcessed): 1,
		string(rpc.ConfirmationStatusConfirmed): 2,
		string(rpc.ConfirmationStatusFinalized): 3,
	}
	got, ok := rank[string(status)]
	if !ok {
		return false
	}
	return got >= rank[string(want)]
}
