package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Makepad-fr/gifboard/internal/store/jsonstore"
	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
)

const KindKeypair = "keypair"

var (
	ErrNotFound     = errors.New("wallet not found")
	ErrNotTrusted   = errors.New("wallet session is not trusted")
	ErrNotConnected = errors.New("wallet not connected")
)

type ConnectOptions struct {
	// OnlyIfTrusted connects silently if the wallet was approved before,
	// and fails with ErrNotTrusted otherwise.
	OnlyIfTrusted bool
}

// Signer authorizes transactions on behalf of the connected user.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// Provider is the wallet as seen by the front end.
type Provider interface {
	Signer
	Kind() string
	Connect(ctx context.Context, opts ConnectOptions) (solana.PublicKey, error)
	Disconnect(ctx context.Context) error
	Connected() bool
}

type SessionStore interface {
	Load() (*jsonstore.Session, error)
	Save(sess jsonstore.Session) error
	Delete() error
}

// KeypairWallet is a wallet backed by a solana-keygen JSON file.
type KeypairWallet struct {
	path     string
	sessions SessionStore

	mu        sync.Mutex
	key       solana.PrivateKey
	connected bool
}

// Detect returns ErrNotFound if there is no keypair file at path.
func Detect(path string, sessions SessionStore) (*KeypairWallet, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, ErrNotFound
	}
	return &KeypairWallet{path: path, sessions: sessions}, nil
}

func (w *KeypairWallet) Kind() string { return KindKeypair }

func (w *KeypairWallet) Connect(_ context.Context, opts ConnectOptions) (solana.PublicKey, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(w.path)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("load keypair: %w", err)
	}
	pub := key.PublicKey()

	if opts.OnlyIfTrusted {
		sess, err := w.sessions.Load()
		if err != nil {
			return solana.PublicKey{}, err
		}
		if sess == nil || sess.Wallet != KindKeypair || sess.PublicKey != pub.String() {
			return solana.PublicKey{}, ErrNotTrusted
		}
	} else {
		if err := w.sessions.Save(jsonstore.Session{
			PublicKey: pub.String(),
			Wallet:    KindKeypair,
			TrustedAt: time.Now().UTC(),
		}); err != nil {
			return solana.PublicKey{}, fmt.Errorf("save session: %w", err)
		}
	}

	w.mu.Lock()
	w.key = key
	w.connected = true
	w.mu.Unlock()

	log.Infof("connected with public key: %s", pub)
	return pub, nil
}

func (w *KeypairWallet) Disconnect(_ context.Context) error {
	w.mu.Lock()
	w.key = nil
	w.connected = false
	w.mu.Unlock()

	if err := w.sessions.Delete(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (w *KeypairWallet) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

// PublicKey returns the zero key when not connected.
func (w *KeypairWallet) PublicKey() solana.PublicKey {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return solana.PublicKey{}
	}
	return w.key.PublicKey()
}

func (w *KeypairWallet) SignTransaction(_ context.Context, tx *solana.Transaction) error {
	w.mu.Lock()
	key, connected := w.key, w.connected
	w.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	return PartialSign(tx, key)
}

// PartialSign adds the signature of key to tx, leaving other signature
// slots untouched. key must be one of the message's required signers.
func PartialSign(tx *solana.Transaction, key solana.PrivateKey) error {
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pub := key.PublicKey()
	n := int(tx.Message.Header.NumRequiredSignatures)
	idx := -1
	for i := 0; i < n && i < len(tx.Message.AccountKeys); i++ {
		if tx.Message.AccountKeys[i].Equals(pub) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%s is not a required signer", pub)
	}

	sig, err := key.Sign(msg)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	if len(tx.Signatures) < n {
		sigs := make([]solana.Signature, n)
		copy(sigs, tx.Signatures)
		tx.Signatures = sigs
	}
	tx.Signatures[idx] = sig
	return nil
}

// WriteKeygenFile stores key as a solana-keygen JSON byte array. It refuses
// to overwrite an existing file.
func WriteKeygenFile(path string, key solana.PrivateKey) error {
	arr := make([]int, len(key))
	for i, b := range key {
		arr[i] = int(b)
	}
	b, err := json.Marshal(arr)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists: %w", path, err)
		}
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("write file: %w", err)
	}
	return f.Close()
}
