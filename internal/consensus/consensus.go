package consensus

import (
	"context"
	"errors"
)

// Engine seals block headers and checks that a sealed digest carries enough work.
type Engine interface {
	Name() string
	// UsesNonce reports whether the nonce is part of the hashed header.
	UsesNonce() bool
	Seal(ctx context.Context, digest DigestFunc) (Seal, error)
	Verify(digest [32]byte) error
}

// DigestFunc hashes the header being sealed with the given nonce.
type DigestFunc func(nonce uint64) [32]byte

type Seal struct {
	Nonce    uint64
	Digest   [32]byte
	Attempts uint64
}

var (
	ErrInvalidConsensus = errors.New("invalid consensus")
	ErrInsufficientWork = errors.New("insufficient work")
	ErrSearchExhausted  = errors.New("nonce search exhausted")
)

// None seals without any work: the digest of nonce 0 is the block hash.
type None struct{}

func NewNone() None { return None{} }

func (None) Name() string    { return "none" }
func (None) UsesNonce() bool { return false }

func (None) Seal(ctx context.Context, digest DigestFunc) (Seal, error) {
	if err := ctx.Err(); err != nil {
		return Seal{}, err
	}
	return Seal{Digest: digest(0), Attempts: 1}, nil
}

func (None) Verify(_ [32]byte) error { return nil }
