package blockchain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/VeltarosLabs/powledger/internal/consensus"
	vcrypto "github.com/VeltarosLabs/powledger/internal/crypto"
)

var (
	ErrChainNotInitialized = errors.New("chain not initialized: genesis block missing")
	ErrGenesisExists       = errors.New("genesis block already present")
	ErrInvalidGenesis      = errors.New("invalid genesis block")

	ErrPrevHashMismatch = errors.New("invalid previous-hash link")
	ErrInsufficientWork = consensus.ErrInsufficientWork
	ErrNonSequentialID  = errors.New("non-sequential id")
	ErrHashMismatch     = errors.New("hash does not match content")
)

// ValidationError describes why a candidate block was rejected.
// Reason is one of the Err* rule sentinels above.
type ValidationError struct {
	BlockID uint64
	Reason  error
	Detail  string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("block %d rejected: %v", e.BlockID, e.Reason)
	}
	return fmt.Sprintf("block %d rejected: %v (%s)", e.BlockID, e.Reason, e.Detail)
}

func (e *ValidationError) Unwrap() error { return e.Reason }

type Config struct {
	// Engine defaults to PoW with the "00" prefix.
	Engine consensus.Engine
	// Clock defaults to SystemClock.
	Clock Clock
	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

type Chain struct {
	mu sync.RWMutex

	blocks []Block

	engine consensus.Engine
	clock  Clock
	log    *slog.Logger
}

// New returns an empty chain. Call Genesis before adding blocks.
func New(cfg Config) *Chain {
	c := &Chain{
		engine: cfg.Engine,
		clock:  cfg.Clock,
		log:    cfg.Logger,
	}
	if c.engine == nil {
		pow, _ := consensus.NewPoW(consensus.PoWConfig{Prefix: consensus.DefaultPrefix})
		c.engine = pow
	}
	if c.clock == nil {
		c.clock = SystemClock{}
	}
	if c.log == nil {
		c.log = slog.New(slog.DiscardHandler)
	}
	return c
}

func (c *Chain) Engine() consensus.Engine { return c.engine }

func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// Tip returns the last block, or false on an empty chain.
func (c *Chain) Tip() (Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.blocks) == 0 {
		return Block{}, false
	}
	return c.blocks[len(c.blocks)-1], true
}

// Blocks returns a copy of the chain in order, genesis first.
func (c *Chain) Blocks() []Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Genesis mines the sentinel block and makes it the first block of the chain.
func (c *Chain) Genesis(ctx context.Context) error {
	if c.Len() != 0 {
		return ErrGenesisExists
	}

	g, err := Mine(ctx, c.engine, 0, GenesisSentinel, GenesisSentinel, c.clock.Unix())
	if err != nil {
		return fmt.Errorf("mine genesis: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.blocks) != 0 {
		return ErrGenesisExists
	}
	c.blocks = append(c.blocks, g)
	c.log.Info("genesis created", "hash", g.Hash, "nonce", g.Nonce)
	return nil
}

// MineNext mines a candidate that extends the current tip. The candidate is
// not appended; pass it to AddBlock.
func (c *Chain) MineNext(ctx context.Context, data string) (Block, error) {
	tip, ok := c.Tip()
	if !ok {
		return Block{}, ErrChainNotInitialized
	}

	b, err := Mine(ctx, c.engine, tip.ID+1, data, tip.Hash, c.clock.Unix())
	if err != nil {
		return Block{}, fmt.Errorf("mine block %d: %w", tip.ID+1, err)
	}
	c.log.Info("mined", "id", b.ID, "hash", b.Hash, "nonce", b.Nonce)
	return b, nil
}

type MineResult struct {
	Block Block
	Err   error
}

// MineAsync runs MineNext on its own goroutine. The channel receives exactly
// one result and is then closed.
func (c *Chain) MineAsync(ctx context.Context, data string) <-chan MineResult {
	out := make(chan MineResult, 1)
	go func() {
		defer close(out)
		b, err := c.MineNext(ctx, data)
		out <- MineResult{Block: b, Err: err}
	}()
	return out
}

// AddBlock validates candidate against the tip and appends it. On rejection
// the chain is unchanged and a *ValidationError is returned.
func (c *Chain) AddBlock(candidate Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) == 0 {
		return ErrChainNotInitialized
	}
	tail := c.blocks[len(c.blocks)-1]

	if err := c.Validate(candidate, tail); err != nil {
		c.log.Warn("block rejected", "id", candidate.ID, "hash", candidate.Hash, "err", err)
		return err
	}

	c.blocks = append(c.blocks, candidate)
	c.log.Info("block added", "id", candidate.ID, "hash", candidate.Hash, "height", len(c.blocks))
	return nil
}

// Validate checks candidate against tail. Rules run in a fixed order and the
// first failing rule is reported.
func (c *Chain) Validate(candidate, tail Block) error {
	reject := func(reason error, format string, args ...any) error {
		return &ValidationError{BlockID: candidate.ID, Reason: reason, Detail: fmt.Sprintf(format, args...)}
	}

	if candidate.PrevBlockHash != tail.Hash {
		return reject(ErrPrevHashMismatch, "prev %s, tip %s", candidate.PrevBlockHash, tail.Hash)
	}

	digest := candidate.Digest(c.engine.UsesNonce())
	if err := c.engine.Verify(digest); err != nil {
		return reject(ErrInsufficientWork, "%s engine, digest %s", c.engine.Name(), vcrypto.Hex32(digest))
	}

	if candidate.ID != tail.ID+1 {
		return reject(ErrNonSequentialID, "got %d, want %d", candidate.ID, tail.ID+1)
	}

	if !candidate.textValid() {
		return reject(ErrHashMismatch, "%v", ErrInvalidText)
	}
	if computed := vcrypto.Hex32(digest); !vcrypto.ConstantTimeEqual([]byte(computed), []byte(candidate.Hash)) {
		return reject(ErrHashMismatch, "stored %s, computed %s", candidate.Hash, computed)
	}
	return nil
}

func (c *Chain) IsValid(candidate, tail Block) bool {
	return c.Validate(candidate, tail) == nil
}

// validateGenesis applies the rules a block 0 must satisfy on its own.
func (c *Chain) validateGenesis(g Block) error {
	if g.ID != 0 || g.PrevBlockHash != GenesisSentinel {
		return fmt.Errorf("%w: id %d, prev %q", ErrInvalidGenesis, g.ID, g.PrevBlockHash)
	}
	digest := g.Digest(c.engine.UsesNonce())
	if err := c.engine.Verify(digest); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGenesis, err)
	}
	if !g.textValid() {
		return fmt.Errorf("%w: %w: %w", ErrInvalidGenesis, ErrHashMismatch, ErrInvalidText)
	}
	if vcrypto.Hex32(digest) != g.Hash {
		return fmt.Errorf("%w: %w", ErrInvalidGenesis, ErrHashMismatch)
	}
	return nil
}

// Verify re-checks every block already in the chain.
func (c *Chain) Verify() error {
	blocks := c.Blocks()
	if len(blocks) == 0 {
		return ErrChainNotInitialized
	}
	if err := c.validateGenesis(blocks[0]); err != nil {
		return err
	}
	for i := 1; i < len(blocks); i++ {
		if err := c.Validate(blocks[i], blocks[i-1]); err != nil {
			return fmt.Errorf("height %d: %w", i, err)
		}
	}
	return nil
}

// Restore loads blocks into an empty chain. Block 0 must be a valid genesis
// and every later block must pass Validate against its predecessor. The
// chain is only replaced once the whole list checks out.
func (c *Chain) Restore(blocks []Block) error {
	if len(blocks) == 0 {
		return ErrChainNotInitialized
	}
	if err := c.validateGenesis(blocks[0]); err != nil {
		return err
	}
	for i := 1; i < len(blocks); i++ {
		if err := c.Validate(blocks[i], blocks[i-1]); err != nil {
			c.log.Warn("restore rejected", "height", i, "err", err)
			return fmt.Errorf("height %d: %w", i, err)
		}
	}

	restored := make([]Block, len(blocks))
	copy(restored, blocks)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.blocks) != 0 {
		return ErrGenesisExists
	}
	c.blocks = restored
	c.log.Info("chain restored", "height", len(restored), "tip", restored[len(restored)-1].Hash)
	return nil
}

// Render returns the chain as indented JSON, genesis first.
func (c *Chain) Render() (string, error) {
	data, err := json.MarshalIndent(c.Blocks(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
