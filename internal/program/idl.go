package program

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const idlSeed = "anchor:idl"

// IDL is the subset of an Anchor interface description gifboard reads.
type IDL struct {
	Version      string           `json:"version"`
	Name         string           `json:"name"`
	Instructions []IDLInstruction `json:"instructions"`
	Accounts     []IDLAccount     `json:"accounts"`
}

type IDLInstruction struct {
	Name     string       `json:"name"`
	Accounts []IDLAccount `json:"accounts"`
	Args     []IDLField   `json:"args"`
}

type IDLAccount struct {
	Name string `json:"name"`
}

type IDLField struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

// HasInstruction matches camelCase and snake_case spellings alike.
func (idl *IDL) HasInstruction(name string) bool {
	want := normalizeName(name)
	for _, ix := range idl.Instructions {
		if normalizeName(ix.Name) == want {
			return true
		}
	}
	return false
}

func normalizeName(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}

// IDLAddress is where Anchor stores the program's interface description.
func IDLAddress(programID solana.PublicKey) (solana.PublicKey, error) {
	base, _, err := solana.FindProgramAddress([][]byte{}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("find program address: %w", err)
	}
	return solana.CreateWithSeed(base, idlSeed, programID)
}

// FetchIDL reads and inflates the IDL account of programID.
func FetchIDL(ctx context.Context, client RPCClient, programID solana.PublicKey) (*IDL, error) {
	addr, err := IDLAddress(programID)
	if err != nil {
		return nil, err
	}
	out, err := client.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
		Encoding: solana.EncodingBase64,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("idl account %s: %w", addr, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("get idl account: %w", err)
	}
	if out == nil || out.Value == nil || out.Value.Data == nil {
		return nil, fmt.Errorf("idl account %s: %w", addr, ErrAccountNotFound)
	}
	return DecodeIDLAccount(out.Value.Data.GetBinary())
}

// DecodeIDLAccount parses discriminator, authority, length-prefixed zlib
// payload.
func DecodeIDLAccount(data []byte) (*IDL, error) {
	const header = discriminatorLen + solana.PublicKeyLength + 4
	if len(data) < header {
		return nil, fmt.Errorf("%w: idl account too short", ErrInvalidAccountData)
	}
	n := binary.LittleEndian.Uint32(data[header-4 : header])
	if int(n) > len(data)-header {
		return nil, fmt.Errorf("%w: idl length %d exceeds data", ErrInvalidAccountData, n)
	}
	zr, err := zlib.NewReader(bytes.NewReader(data[header : header+int(n)]))
	if err != nil {
		return nil, fmt.Errorf("%w: idl inflate: %v", ErrInvalidAccountData, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: idl inflate: %v", ErrInvalidAccountData, err)
	}
	var idl IDL
	if err := json.Unmarshal(raw, &idl); err != nil {
		return nil, fmt.Errorf("%w: idl json: %v", ErrInvalidAccountData, err)
	}
	return &idl, nil
}
