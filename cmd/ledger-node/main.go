package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/vrecan/death/v3"

	"github.com/VeltarosLabs/powledger/internal/blockchain"
	"github.com/VeltarosLabs/powledger/internal/config"
	"github.com/VeltarosLabs/powledger/internal/logging"
	"github.com/VeltarosLabs/powledger/internal/storage"
	"github.com/VeltarosLabs/powledger/pkg/version"
)

func main() {
	parsed, err := config.ParseNodeFlags(os.Args[1:])
	if err != nil {
		os.Exit(exitWithError(err))
	}
	cfg := parsed.Config

	if !cfg.Console.Color {
		color.NoColor = true
	}

	log := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	engine, err := cfg.Consensus.Engine()
	if err != nil {
		os.Exit(exitWithError(err))
	}

	chain := blockchain.New(blockchain.Config{
		Engine: engine,
		Logger: log,
	})

	log.Info("node starting", "build", version.Get().String(), "engine", engine.Name(), "prefix", cfg.Consensus.Prefix)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, log, chain, cfg.Run)
		// ends the wait below when the run finishes on its own
		d.FallOnSword()
	}()

	d.WaitForDeathWithFunc(cancel)
	runErr := <-done

	if chain.Len() > 0 {
		if err := printChain(chain); err != nil {
			os.Exit(exitWithError(err))
		}
	}

	if cfg.Storage.Export && chain.Len() > 0 {
		if err := export(cfg.Storage.DataDir, chain); err != nil {
			log.Error("export failed", "err", err)
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		os.Exit(exitWithError(runErr))
	}
	log.Info("shutdown complete", "height", chain.Len())
}

func run(ctx context.Context, log *slog.Logger, chain *blockchain.Chain, rc config.RunConfig) error {
	if err := chain.Genesis(ctx); err != nil {
		return err
	}

	for _, p := range rc.Payloads {
		if err := mineAndAdd(ctx, chain, p); err != nil {
			return err
		}
	}

	if rc.Loop {
		for i := 1; ; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(rc.Interval):
			}
			if err := mineAndAdd(ctx, chain, fmt.Sprintf("block %d", i)); err != nil {
				return err
			}
		}
	}

	log.Debug("run finished", "height", chain.Len())
	return nil
}

// mineAndAdd only fails on mining errors; a rejected block is reported and skipped.
func mineAndAdd(ctx context.Context, chain *blockchain.Chain, data string) error {
	res := <-chain.MineAsync(ctx, data)
	if res.Err != nil {
		return res.Err
	}

	if err := chain.AddBlock(res.Block); err != nil {
		color.Red("rejected block %d: %v", res.Block.ID, err)
		return nil
	}
	color.Green("accepted block %d  hash=%s nonce=%d", res.Block.ID, res.Block.Hash, res.Block.Nonce)
	return nil
}

func printChain(chain *blockchain.Chain) error {
	out, err := chain.Render()
	if err != nil {
		return fmt.Errorf("render chain: %w", err)
	}
	color.Cyan("blockchain (%d blocks)", chain.Len())
	fmt.Println(out)
	return nil
}

func export(dataDir string, chain *blockchain.Chain) error {
	store, err := storage.New(dataDir)
	if err != nil {
		return err
	}
	snaps := blockchain.NewSnapshotStore(store.SnapshotPath())
	if err := snaps.Save(chain.MakeSnapshot()); err != nil {
		return err
	}
	color.Cyan("snapshot written to %s", snaps.Path())
	return nil
}

func exitWithError(err error) int {
	_, _ = os.Stderr.WriteString("ledger-node error: " + err.Error() + "\n")
	return 1
}
