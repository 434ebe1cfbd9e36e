package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/viper"
)

type Config struct {
	Datadir            string
	Network            string
	RPCURL             string
	Commitment         rpc.CommitmentType
	ProgramID          solana.PublicKey
	BaseAccount        string
	BaseAccountKeypair string
	WalletKeypair      string
	LogLevel           int
	LogFile            string
	RPCTimeout         time.Duration
	VerifyIDL          bool
}

var (
	Datadir            = "DATADIR"
	Network            = "NETWORK"
	RPCURL             = "RPC_URL"
	Commitment         = "COMMITMENT"
	ProgramID          = "PROGRAM_ID"
	BaseAccount        = "BASE_ACCOUNT"
	BaseAccountKeypair = "BASE_ACCOUNT_KEYPAIR"
	WalletKeypair      = "WALLET_KEYPAIR"
	LogLevel           = "LOG_LEVEL"
	LogFile            = "LOG_FILE"
	RPCTimeout         = "RPC_TIMEOUT"
	VerifyIDL          = "VERIFY_IDL"

	defaultDatadir    = appDataDir()
	defaultNetwork    = "devnet"
	defaultCommitment = string(rpc.CommitmentProcessed)
	// deployed board program
	defaultProgramID  = "AzGMbL7E28BVH1y49FBayTSca2BJQ7P7RoazK3LoRYpj"
	defaultLogLevel   = 4
	defaultRPCTimeout = 60 * time.Second
	defaultVerifyIDL  = false

	configFileName         = "config.yaml"
	baseAccountKeypairName = "base-account.json"
	logFileName            = "gifboard.log"
)

var networks = map[string]string{
	"devnet":       rpc.DevNet_RPC,
	"testnet":      rpc.TestNet_RPC,
	"mainnet-beta": rpc.MainNetBeta_RPC,
	"localnet":     rpc.LocalNet_RPC,
}

// LoadConfig reads GIFBOARD_* env vars, an optional config.yaml in the
// datadir and the given overrides, in increasing order of precedence.
func LoadConfig(overrides map[string]interface{}) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GIFBOARD")
	v.AutomaticEnv()

	v.SetDefault(Datadir, defaultDatadir)
	v.SetDefault(Network, defaultNetwork)
	v.SetDefault(Commitment, defaultCommitment)
	v.SetDefault(ProgramID, defaultProgramID)
	v.SetDefault(LogLevel, defaultLogLevel)
	v.SetDefault(RPCTimeout, defaultRPCTimeout)
	v.SetDefault(VerifyIDL, defaultVerifyIDL)
	v.SetDefault(WalletKeypair, defaultWalletKeypair())

	for k, val := range overrides {
		v.Set(k, val)
	}

	datadir := cleanAndExpandPath(v.GetString(Datadir))
	if err := readConfigFile(v, datadir); err != nil {
		return nil, err
	}

	network := strings.ToLower(strings.TrimSpace(v.GetString(Network)))
	rpcURL := strings.TrimSpace(v.GetString(RPCURL))
	if rpcURL == "" {
		u, ok := networks[network]
		if !ok {
			return nil, fmt.Errorf("unknown network %q and no %s given", network, RPCURL)
		}
		rpcURL = u
	}

	commitment := rpc.CommitmentType(strings.ToLower(v.GetString(Commitment)))
	switch commitment {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		return nil, fmt.Errorf("invalid commitment %q", commitment)
	}

	programID, err := solana.PublicKeyFromBase58(v.GetString(ProgramID))
	if err != nil {
		return nil, fmt.Errorf("invalid program id: %w", err)
	}

	timeout := v.GetDuration(RPCTimeout)
	if timeout <= 0 {
		timeout = defaultRPCTimeout
	}

	baseKeypair := v.GetString(BaseAccountKeypair)
	if baseKeypair == "" {
		baseKeypair = filepath.Join(datadir, baseAccountKeypairName)
	}
	logFile := v.GetString(LogFile)
	if logFile == "" {
		logFile = filepath.Join(datadir, logFileName)
	}

	return &Config{
		Datadir:            datadir,
		Network:            network,
		RPCURL:             rpcURL,
		Commitment:         commitment,
		ProgramID:          programID,
		BaseAccount:        strings.TrimSpace(v.GetString(BaseAccount)),
		BaseAccountKeypair: cleanAndExpandPath(baseKeypair),
		WalletKeypair:      cleanAndExpandPath(v.GetString(WalletKeypair)),
		LogLevel:           v.GetInt(LogLevel),
		LogFile:            cleanAndExpandPath(logFile),
		RPCTimeout:         timeout,
		VerifyIDL:          v.GetBool(VerifyIDL),
	}, nil
}

// InitDatadir creates the data directory with owner-only permissions.
func (c *Config) InitDatadir() error {
	if err := os.MkdirAll(c.Datadir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.Datadir, err)
	}
	return nil
}

func readConfigFile(v *viper.Viper, datadir string) error {
	p := filepath.Join(datadir, configFileName)
	if _, err := os.Stat(p); err != nil {
		return nil
	}
	v.SetConfigFile(p)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", p, err)
	}
	return nil
}

func appDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gifboard"
	}
	return filepath.Join(home, ".gifboard")
}

func defaultWalletKeypair() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "id.json"
	}
	return filepath.Join(home, ".config", "solana", "id.json")
}

func cleanAndExpandPath(p string) string {
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return filepath.Clean(os.ExpandEnv(p))
}
