package consensus

import (
	"context"
	"fmt"

	vcrypto "github.com/VeltarosLabs/powledger/internal/crypto"
)

const (
	DefaultPrefix = "00"

	// cancellation is polled once per this many attempts
	ctxCheckInterval = 1024
)

type PoWConfig struct {
	// Prefix is the required leading bit pattern of the digest, e.g. "00".
	Prefix string
	// UnpaddedBits renders each digest byte without leading zeros before the
	// prefix test. Only for compatibility with chains mined that way.
	UnpaddedBits bool
	// MaxAttempts bounds the nonce search. Zero searches until a match is found.
	MaxAttempts uint64
}

// PoW is a leading-bits proof-of-work over the raw digest bytes.
type PoW struct {
	cfg PoWConfig
}

func NewPoW(cfg PoWConfig) (*PoW, error) {
	if !vcrypto.IsBitString(cfg.Prefix) {
		return nil, fmt.Errorf("%w: prefix %q is not a bit string", ErrInvalidConsensus, cfg.Prefix)
	}
	if len(cfg.Prefix) > vcrypto.DigestSize*8 {
		return nil, fmt.Errorf("%w: prefix longer than %d bits", ErrInvalidConsensus, vcrypto.DigestSize*8)
	}
	return &PoW{cfg: cfg}, nil
}

func (p *PoW) Name() string      { return "pow" }
func (p *PoW) UsesNonce() bool   { return true }
func (p *PoW) Config() PoWConfig { return p.cfg }

func (p *PoW) Satisfied(digest [32]byte) bool {
	return vcrypto.HasBitPrefix(digest[:], p.cfg.Prefix, !p.cfg.UnpaddedBits)
}

func (p *PoW) Verify(digest [32]byte) error {
	if !p.Satisfied(digest) {
		return fmt.Errorf("%w: digest %s does not start with bits %q", ErrInsufficientWork, vcrypto.Hex32(digest), p.cfg.Prefix)
	}
	return nil
}

// Seal searches nonces upward from zero until the digest satisfies the prefix.
// The search runs on the calling goroutine.
func (p *PoW) Seal(ctx context.Context, digest DigestFunc) (Seal, error) {
	var attempts uint64
	for nonce := uint64(0); ; nonce++ {
		if attempts%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Seal{Nonce: nonce, Attempts: attempts}, err
			}
		}
		if p.cfg.MaxAttempts > 0 && attempts >= p.cfg.MaxAttempts {
			return Seal{Nonce: nonce, Attempts: attempts}, fmt.Errorf("%w after %d attempts", ErrSearchExhausted, attempts)
		}

		d := digest(nonce)
		attempts++
		if p.Satisfied(d) {
			return Seal{Nonce: nonce, Digest: d, Attempts: attempts}, nil
		}
	}
}
