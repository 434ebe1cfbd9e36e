package program

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/Makepad-fr/gifboard/internal/model"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Anchor names of the board program.
const (
	InstructionStartStuffOff = "start_stuff_off"
	InstructionAddGif        = "add_gif"
	AccountBaseAccount       = "BaseAccount"
)

const (
	discriminatorLen = 8
	// u32 link length + 32-byte submitter, the smallest possible item
	minItemLen = 4 + solana.PublicKeyLength
)

var (
	startStuffOffDiscriminator = discriminator("global", InstructionStartStuffOff)
	addGifDiscriminator        = discriminator("global", InstructionAddGif)
	baseAccountDiscriminator   = discriminator("account", AccountBaseAccount)
)

func discriminator(namespace, name string) [discriminatorLen]byte {
	var d [discriminatorLen]byte
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	copy(d[:], sum[:discriminatorLen])
	return d
}

type startStuffOffArgs struct {
	Discriminator [discriminatorLen]byte
}

type addGifArgs struct {
	Discriminator [discriminatorLen]byte
	GifLink       string
}

func encodeArgs(v interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, fmt.Errorf("borsh encode: %w", err)
	}
	return buf.Bytes(), nil
}

// StartStuffOffInstruction creates the base account, paid for by user.
func StartStuffOffInstruction(programID, baseAccount, user solana.PublicKey) (solana.Instruction, error) {
	data, err := encodeArgs(startStuffOffArgs{Discriminator: startStuffOffDiscriminator})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.NewAccountMeta(baseAccount, true, true),
		solana.NewAccountMeta(user, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}, data), nil
}

// AddGifInstruction appends link to the list held by baseAccount.
func AddGifInstruction(programID, baseAccount, user solana.PublicKey, link string) (solana.Instruction, error) {
	data, err := encodeArgs(addGifArgs{Discriminator: addGifDiscriminator, GifLink: link})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.NewAccountMeta(baseAccount, true, false),
		solana.NewAccountMeta(user, true, true),
	}, data), nil
}

// DecodeBaseAccount parses raw account data. Bytes past the last item are
// the unused part of the allocation and are ignored.
func DecodeBaseAccount(data []byte) (*model.Board, error) {
	if len(data) < discriminatorLen || !bytes.Equal(data[:discriminatorLen], baseAccountDiscriminator[:]) {
		return nil, fmt.Errorf("%w: discriminator mismatch", ErrInvalidAccountData)
	}
	dec := bin.NewBorshDecoder(data[discriminatorLen:])

	total, err := dec.ReadUint64(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("%w: total_gifs: %v", ErrInvalidAccountData, err)
	}
	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("%w: gif_list length: %v", ErrInvalidAccountData, err)
	}
	if int(n) > dec.Remaining()/minItemLen {
		return nil, fmt.Errorf("%w: gif_list length %d exceeds data", ErrInvalidAccountData, n)
	}

	entries := make([]model.Entry, 0, n)
	for i := uint32(0); i < n; i++ {
		l, err := dec.ReadUint32(binary.LittleEndian)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrInvalidAccountData, i, err)
		}
		if int(l) > dec.Remaining() {
			return nil, fmt.Errorf("%w: item %d: link length %d exceeds data", ErrInvalidAccountData, i, l)
		}
		link, err := dec.ReadNBytes(int(l))
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrInvalidAccountData, i, err)
		}
		addr, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrInvalidAccountData, i, err)
		}
		entries = append(entries, model.Entry{
			Link:      string(link),
			Submitter: solana.PublicKeyFromBytes(addr),
		})
	}
	return &model.Board{TotalGifs: total, Entries: entries}, nil
}

// EncodeBaseAccount is the inverse of DecodeBaseAccount, padded to size
// when size is larger than the encoded data.
func EncodeBaseAccount(b model.Board, size int) []byte {
	buf := new(bytes.Buffer)
	buf.Write(baseAccountDiscriminator[:])
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], b.TotalGifs)
	buf.Write(scratch[:8])
	binary.LittleEndian.PutUint32(scratch[:4], uint32(len(b.Entries)))
	buf.Write(scratch[:4])
	for _, e := range b.Entries {
		binary.LittleEndian.PutUint32(scratch[:4], uint32(len(e.Link)))
		buf.Write(scratch[:4])
		buf.WriteString(e.Link)
		buf.Write(e.Submitter[:])
	}
	if pad := size - buf.Len(); pad > 0 {
		buf.Write(make([]byte, pad))
	}
	return buf.Bytes()
}
