package blockchain

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/VeltarosLabs/powledger/internal/consensus"
	vcrypto "github.com/VeltarosLabs/powledger/internal/crypto"
)

// Snapshot is the on-disk form of an exported chain.
type Snapshot struct {
	Engine   string  `json:"engine"`
	Prefix   string  `json:"prefix,omitempty"`
	Unpadded bool    `json:"unpadded,omitempty"`
	Blocks   []Block `json:"blocks"`
}

type SnapshotStore struct {
	path string
}

func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: filepath.Clean(path)}
}

func (s *SnapshotStore) Path() string { return s.path }

func (s *SnapshotStore) Load() (Snapshot, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, err
	}
	if len(snap.Blocks) == 0 {
		return Snapshot{}, errors.New("snapshot has no blocks")
	}
	for i, b := range snap.Blocks {
		if _, err := vcrypto.ParseHash32(b.Hash); err != nil {
			return Snapshot{}, fmt.Errorf("block %d: %w", i, err)
		}
	}
	return snap, nil
}

func (s *SnapshotStore) Save(snap Snapshot) error {
	for i, b := range snap.Blocks {
		if !b.textValid() {
			return fmt.Errorf("block %d: %w", i, ErrInvalidText)
		}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	_ = os.Chmod(s.path, 0o600)
	return nil
}

// MakeSnapshot captures the current blocks together with the engine settings
// needed to verify them again.
func (c *Chain) MakeSnapshot() Snapshot {
	snap := Snapshot{
		Engine: c.engine.Name(),
		Blocks: c.Blocks(),
	}
	if pow, ok := c.engine.(*consensus.PoW); ok {
		cfg := pow.Config()
		snap.Prefix = cfg.Prefix
		snap.Unpadded = cfg.UnpaddedBits
	}
	return snap
}

// EngineFor rebuilds the engine a snapshot was mined with.
func (s Snapshot) EngineFor() (consensus.Engine, error) {
	switch s.Engine {
	case "none":
		return consensus.NewNone(), nil
	case "pow":
		return consensus.NewPoW(consensus.PoWConfig{Prefix: s.Prefix, UnpaddedBits: s.Unpadded})
	case "":
		return nil, fmt.Errorf("%w: snapshot names no engine", consensus.ErrInvalidConsensus)
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", consensus.ErrInvalidConsensus, s.Engine)
	}
}
