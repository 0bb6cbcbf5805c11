package consensus

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	vcrypto "github.com/VeltarosLabs/powledger/internal/crypto"
)

func nonceDigest(seed string) DigestFunc {
	return func(nonce uint64) [32]byte {
		buf := make([]byte, len(seed)+8)
		copy(buf, seed)
		binary.LittleEndian.PutUint64(buf[len(seed):], nonce)
		return vcrypto.Sha256(buf)
	}
}

func mustPoW(t *testing.T, cfg PoWConfig) *PoW {
	t.Helper()
	p, err := NewPoW(cfg)
	if err != nil {
		t.Fatalf("new pow: %v", err)
	}
	return p
}

func TestPoWSealSatisfiesPrefix(t *testing.T) {
	for _, prefix := range []string{"", "0", "00", "0000"} {
		p := mustPoW(t, PoWConfig{Prefix: prefix})
		fn := nonceDigest("block")

		s, err := p.Seal(context.Background(), fn)
		if err != nil {
			t.Fatalf("prefix %q: seal: %v", prefix, err)
		}
		if s.Digest != fn(s.Nonce) {
			t.Fatalf("prefix %q: digest does not belong to nonce %d", prefix, s.Nonce)
		}
		if err := p.Verify(s.Digest); err != nil {
			t.Fatalf("prefix %q: verify: %v", prefix, err)
		}
		if s.Attempts != s.Nonce+1 {
			t.Fatalf("prefix %q: attempts %d, nonce %d", prefix, s.Attempts, s.Nonce)
		}
	}
}

func TestPoWSealIsFirstMatch(t *testing.T) {
	p := mustPoW(t, PoWConfig{Prefix: "000"})
	fn := nonceDigest("first")
	s, err := p.Seal(context.Background(), fn)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	for n := uint64(0); n < s.Nonce; n++ {
		if p.Satisfied(fn(n)) {
			t.Fatalf("nonce %d satisfies prefix but search returned %d", n, s.Nonce)
		}
	}
}

func TestPoWVerifyRejects(t *testing.T) {
	p := mustPoW(t, PoWConfig{Prefix: "00"})
	var d [32]byte
	d[0] = 0x80
	err := p.Verify(d)
	if !errors.Is(err, ErrInsufficientWork) {
		t.Fatalf("expected ErrInsufficientWork, got %v", err)
	}
	d[0] = 0x3f
	if err := p.Verify(d); err != nil {
		t.Fatalf("0x3f should satisfy 00: %v", err)
	}
}

func TestPoWUnpaddedBits(t *testing.T) {
	p := mustPoW(t, PoWConfig{Prefix: "00", UnpaddedBits: true})
	var d [32]byte
	d[0] = 0x3f
	if p.Satisfied(d) {
		t.Fatalf("unpadded 0x3f renders as 111111 and must not satisfy 00")
	}
	d[0], d[1] = 0, 0
	if !p.Satisfied(d) {
		t.Fatalf("two zero bytes must satisfy 00 unpadded")
	}
}

func TestPoWSealCancelled(t *testing.T) {
	p := mustPoW(t, PoWConfig{Prefix: "00"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Seal(ctx, nonceDigest("x"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPoWSealExhausted(t *testing.T) {
	// 64 zero bits will not be found within 10 attempts.
	prefix := "0000000000000000000000000000000000000000000000000000000000000000"
	p := mustPoW(t, PoWConfig{Prefix: prefix, MaxAttempts: 10})
	s, err := p.Seal(context.Background(), nonceDigest("x"))
	if !errors.Is(err, ErrSearchExhausted) {
		t.Fatalf("expected ErrSearchExhausted, got %v", err)
	}
	if s.Attempts != 10 {
		t.Fatalf("attempts = %d, want 10", s.Attempts)
	}
}

func TestNewPoWRejectsBadPrefix(t *testing.T) {
	for _, prefix := range []string{"0x", "ab", "00 "} {
		if _, err := NewPoW(PoWConfig{Prefix: prefix}); !errors.Is(err, ErrInvalidConsensus) {
			t.Fatalf("prefix %q: expected ErrInvalidConsensus, got %v", prefix, err)
		}
	}
}

func TestNoneEngine(t *testing.T) {
	n := NewNone()
	if n.UsesNonce() {
		t.Fatalf("none engine must not use a nonce")
	}
	fn := nonceDigest("plain")
	s, err := n.Seal(context.Background(), fn)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if s.Nonce != 0 || s.Digest != fn(0) {
		t.Fatalf("unexpected seal %+v", s)
	}
	if err := n.Verify([32]byte{0xff}); err != nil {
		t.Fatalf("none verify: %v", err)
	}
}
