package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/VeltarosLabs/powledger/internal/consensus"
	vcrypto "github.com/VeltarosLabs/powledger/internal/crypto"
)

type Config struct {
	Consensus ConsensusConfig
	Log       LogConfig
	Storage   StorageConfig
	Run       RunConfig
	Console   ConsoleConfig
}

type ConsensusConfig struct {
	Enabled      bool
	Prefix       string
	UnpaddedBits bool
	MaxAttempts  uint64
}

type LogConfig struct {
	Level  string // debug|info|warn|error
	Format string // json|text
}

type StorageConfig struct {
	DataDir string
	Export  bool
}

type RunConfig struct {
	Payloads []string
	Loop     bool
	Interval time.Duration
}

type ConsoleConfig struct {
	Color bool
}

func Default() Config {
	return Config{
		Consensus: ConsensusConfig{
			Enabled: true,
			Prefix:  consensus.DefaultPrefix,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			DataDir: "data",
		},
		Run: RunConfig{
			Payloads: []string{"new"},
			Interval: time.Second,
		},
		Console: ConsoleConfig{
			Color: true,
		},
	}
}

// Engine builds the consensus engine described by c.
func (c ConsensusConfig) Engine() (consensus.Engine, error) {
	if !c.Enabled {
		return consensus.NewNone(), nil
	}
	pow, err := consensus.NewPoW(consensus.PoWConfig{
		Prefix:       c.Prefix,
		UnpaddedBits: c.UnpaddedBits,
		MaxAttempts:  c.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	return pow, nil
}

// BindConsensusFlags registers the pow.* flags on fs, writing into cfg.
func BindConsensusFlags(fs *flag.FlagSet, cfg *ConsensusConfig) {
	fs.BoolVar(&cfg.Enabled, "pow.enabled", envOrBool("POWLEDGER_POW_ENABLED", cfg.Enabled), "Require proof-of-work for every block")
	fs.StringVar(&cfg.Prefix, "pow.prefix", envOr("POWLEDGER_POW_PREFIX", cfg.Prefix), "Required leading bits of the block digest (e.g. 00)")
	fs.BoolVar(&cfg.UnpaddedBits, "pow.unpadded", envOrBool("POWLEDGER_POW_UNPADDED", cfg.UnpaddedBits), "Render digest bytes without zero padding before the prefix test (compatibility)")
	fs.Uint64Var(&cfg.MaxAttempts, "pow.maxAttempts", envOrUint64("POWLEDGER_POW_MAXATTEMPTS", cfg.MaxAttempts), "Give up mining after this many nonces (0 = unbounded)")
}

type Parsed struct {
	Config Config
}

func ParseNodeFlags(args []string) (Parsed, error) {
	cfg := Default()

	fs := flag.NewFlagSet("ledger-node", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	BindConsensusFlags(fs, &cfg.Consensus)

	var (
		logLevel  = fs.String("log.level", envOr("POWLEDGER_LOG_LEVEL", cfg.Log.Level), "Log level: debug|info|warn|error")
		logFormat = fs.String("log.format", envOr("POWLEDGER_LOG_FORMAT", cfg.Log.Format), "Log format: json|text")

		dataDir = fs.String("data.dir", envOr("POWLEDGER_DATA_DIR", cfg.Storage.DataDir), "Directory for exported chain snapshots")
		export  = fs.Bool("data.export", envOrBool("POWLEDGER_DATA_EXPORT", cfg.Storage.Export), "Write a chain snapshot on exit")

		payloads = fs.String("run.payloads", envOr("POWLEDGER_RUN_PAYLOADS", strings.Join(cfg.Run.Payloads, ",")), "Comma-separated block payloads to mine after genesis")
		loop     = fs.Bool("run.loop", envOrBool("POWLEDGER_RUN_LOOP", cfg.Run.Loop), "Keep mining numbered blocks until interrupted")
		interval = fs.Duration("run.interval", envOrDuration("POWLEDGER_RUN_INTERVAL", cfg.Run.Interval), "Pause between blocks in loop mode")

		useColor = fs.Bool("color", envOrBool("POWLEDGER_COLOR", cfg.Console.Color), "Colorize console output")
	)

	if err := fs.Parse(args); err != nil {
		return Parsed{}, err
	}

	cfg.Consensus.Prefix = strings.TrimSpace(cfg.Consensus.Prefix)
	cfg.Log.Level = strings.TrimSpace(*logLevel)
	cfg.Log.Format = strings.TrimSpace(*logFormat)
	cfg.Storage.DataDir = strings.TrimSpace(*dataDir)
	cfg.Storage.Export = *export
	cfg.Run.Payloads = splitCSV(*payloads)
	cfg.Run.Loop = *loop
	cfg.Run.Interval = *interval
	cfg.Console.Color = *useColor

	if err := validate(cfg); err != nil {
		return Parsed{}, err
	}

	return Parsed{Config: cfg}, nil
}

func ValidateConsensus(c ConsensusConfig) error {
	if !c.Enabled {
		return nil
	}
	if !vcrypto.IsBitString(c.Prefix) {
		return fmt.Errorf("invalid pow.prefix: %q (only 0 and 1 allowed)", c.Prefix)
	}
	if len(c.Prefix) > vcrypto.DigestSize*8 {
		return fmt.Errorf("pow.prefix longer than %d bits", vcrypto.DigestSize*8)
	}
	return nil
}

func validate(cfg Config) error {
	if err := ValidateConsensus(cfg.Consensus); err != nil {
		return err
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", cfg.Log.Level)
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log.format: %q", cfg.Log.Format)
	}

	if cfg.Storage.Export && cfg.Storage.DataDir == "" {
		return errors.New("data.dir must not be empty when data.export=true")
	}
	if cfg.Run.Interval < 0 {
		return fmt.Errorf("run.interval must not be negative: %s", cfg.Run.Interval)
	}
	return nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envOrUint64(key string, def uint64) uint64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envOrDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envOrBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func splitCSV(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		t := strings.TrimSpace(r)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
