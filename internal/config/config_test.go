package config

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/VeltarosLabs/powledger/internal/consensus"
)

func TestParseNodeFlagsDefaults(t *testing.T) {
	p, err := ParseNodeFlags(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(p.Config, Default()) {
		t.Fatalf("defaults changed by parsing:\n got %+v\nwant %+v", p.Config, Default())
	}
}

func TestParseNodeFlags(t *testing.T) {
	p, err := ParseNodeFlags([]string{
		"-pow.prefix", "0000",
		"-pow.unpadded",
		"-pow.maxAttempts", "500",
		"-log.level", "debug",
		"-log.format", "text",
		"-data.dir", "/tmp/x",
		"-data.export",
		"-run.payloads", "a, b,,c",
		"-run.loop",
		"-run.interval", "250ms",
		"-color=false",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := p.Config
	want := ConsensusConfig{Enabled: true, Prefix: "0000", UnpaddedBits: true, MaxAttempts: 500}
	if cfg.Consensus != want {
		t.Fatalf("consensus = %+v, want %+v", cfg.Consensus, want)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Fatalf("log = %+v", cfg.Log)
	}
	if cfg.Storage.DataDir != "/tmp/x" || !cfg.Storage.Export {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if !reflect.DeepEqual(cfg.Run.Payloads, []string{"a", "b", "c"}) || !cfg.Run.Loop || cfg.Run.Interval != 250*time.Millisecond {
		t.Fatalf("run = %+v", cfg.Run)
	}
	if cfg.Console.Color {
		t.Fatalf("color should be off")
	}
}

func TestParseNodeFlagsEnv(t *testing.T) {
	t.Setenv("POWLEDGER_POW_ENABLED", "off")
	t.Setenv("POWLEDGER_LOG_FORMAT", "text")
	t.Setenv("POWLEDGER_POW_MAXATTEMPTS", "not-a-number")

	p, err := ParseNodeFlags(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Config.Consensus.Enabled {
		t.Fatalf("env should disable pow")
	}
	if p.Config.Log.Format != "text" {
		t.Fatalf("env log format ignored")
	}
	if p.Config.Consensus.MaxAttempts != 0 {
		t.Fatalf("bad env number should fall back to default")
	}

	// Flags win over environment.
	p, err = ParseNodeFlags([]string{"-pow.enabled=true"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !p.Config.Consensus.Enabled {
		t.Fatalf("flag should override env")
	}
}

func TestParseNodeFlagsInvalid(t *testing.T) {
	cases := [][]string{
		{"-pow.prefix", "0x"},
		{"-log.level", "loud"},
		{"-log.format", "xml"},
		{"-data.export", "-data.dir", ""},
		{"-run.interval", "-1s"},
		{"-no-such-flag"},
	}
	for _, args := range cases {
		if _, err := ParseNodeFlags(args); err == nil {
			t.Fatalf("args %v: expected error", args)
		}
	}
}

func TestConsensusEngine(t *testing.T) {
	e, err := ConsensusConfig{Enabled: false}.Engine()
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if _, ok := e.(consensus.None); !ok {
		t.Fatalf("disabled pow should yield None, got %T", e)
	}

	e, err = ConsensusConfig{Enabled: true, Prefix: "01"}.Engine()
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	pow, ok := e.(*consensus.PoW)
	if !ok || pow.Config().Prefix != "01" {
		t.Fatalf("unexpected engine %#v", e)
	}

	if _, err := (ConsensusConfig{Enabled: true, Prefix: "2"}).Engine(); !errors.Is(err, consensus.ErrInvalidConsensus) {
		t.Fatalf("expected ErrInvalidConsensus, got %v", err)
	}
}
