package blockchain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"unicode/utf8"

	"github.com/VeltarosLabs/powledger/internal/consensus"
	vcrypto "github.com/VeltarosLabs/powledger/internal/crypto"
)

// GenesisSentinel is both the payload and the parent hash of block 0.
const GenesisSentinel = "genesis"

// ErrInvalidText is returned for blocks whose string fields are not valid
// UTF-8. JSON encoding would replace the bad bytes before hashing.
var ErrInvalidText = errors.New("block text is not valid UTF-8")

type Block struct {
	ID            uint64 `json:"id"`
	Timestamp     int64  `json:"timestamp"`
	Data          string `json:"data"`
	PrevBlockHash string `json:"prev_block_hash"`
	Hash          string `json:"hash"`
	Nonce         uint64 `json:"nonce"`
}

// header is the hashed part of a block. Fields are declared in key order so
// the encoding is a key-sorted JSON object.
type header struct {
	Data          string  `json:"data"`
	ID            uint64  `json:"id"`
	Nonce         *uint64 `json:"nonce,omitempty"`
	PrevBlockHash string  `json:"prev_block_hash"`
	Timestamp     int64   `json:"timestamp"`
}

// HeaderBytes returns the canonical encoding that is fed to the digest:
// compact JSON, sorted keys, no HTML escaping, no trailing newline.
// The nonce key is only present when withNonce is set.
func (b Block) HeaderBytes(withNonce bool) []byte {
	h := header{
		Data:          b.Data,
		ID:            b.ID,
		PrevBlockHash: b.PrevBlockHash,
		Timestamp:     b.Timestamp,
	}
	if withNonce {
		n := b.Nonce
		h.Nonce = &n
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// strings and integers always encode
	_ = enc.Encode(h)
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
}

func (b Block) Digest(withNonce bool) [32]byte {
	return vcrypto.Sha256(b.HeaderBytes(withNonce))
}

// textValid reports whether the hashed string fields encode losslessly.
func (b Block) textValid() bool {
	return utf8.ValidString(b.Data) && utf8.ValidString(b.PrevBlockHash)
}

// Mine builds a block and seals it with engine. data and prevHash must be
// valid UTF-8; otherwise an unbounded engine only fails on ctx cancellation.
func Mine(ctx context.Context, engine consensus.Engine, id uint64, data, prevHash string, timestamp int64) (Block, error) {
	b := Block{
		ID:            id,
		Timestamp:     timestamp,
		Data:          data,
		PrevBlockHash: prevHash,
	}
	if !b.textValid() {
		return Block{}, ErrInvalidText
	}
	withNonce := engine.UsesNonce()

	seal, err := engine.Seal(ctx, func(nonce uint64) [32]byte {
		b.Nonce = nonce
		return b.Digest(withNonce)
	})
	if err != nil {
		return Block{}, err
	}

	b.Nonce = seal.Nonce
	b.Hash = vcrypto.Hex32(seal.Digest)
	return b, nil
}
