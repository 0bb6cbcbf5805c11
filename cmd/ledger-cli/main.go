package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/VeltarosLabs/powledger/internal/blockchain"
	"github.com/VeltarosLabs/powledger/internal/config"
	vcrypto "github.com/VeltarosLabs/powledger/internal/crypto"
	"github.com/VeltarosLabs/powledger/internal/storage"
	"github.com/VeltarosLabs/powledger/pkg/version"
)

var errInvalid = errors.New("chain invalid")

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "version":
		runVersion(os.Stdout)
	case "render":
		err = runRender(os.Args[2:], os.Stdout)
	case "verify":
		err = runVerify(os.Args[2:], os.Stdout)
	case "digest":
		err = runDigest(os.Args[2:], os.Stdout)
	default:
		usage()
		os.Exit(2)
	}

	switch {
	case err == nil:
	case errors.Is(err, errInvalid):
		os.Exit(1)
	default:
		fatal(err)
	}
}

func usage() {
	fmt.Print(`powledger CLI

Usage:
  ledger-cli version
  ledger-cli render [--in <path>] [--json]
  ledger-cli verify [--in <path>]
  ledger-cli digest --id <n> --data <text> --prev <hash> --timestamp <unix> [--nonce <n>] [--pow.enabled=false]

Notes:
  - snapshots are written by ledger-node with --data.export.
  - digest prints the canonical header and its SHA-256 so a block hash can be recomputed by hand.
`)
}

func runVersion(w io.Writer) {
	fmt.Fprintln(w, version.Get().String())
}

func defaultSnapshotPath() string {
	return (&storage.Store{DataDir: "data"}).SnapshotPath()
}

func loadSnapshot(path string) (blockchain.Snapshot, error) {
	snap, err := blockchain.NewSnapshotStore(path).Load()
	if err != nil {
		return blockchain.Snapshot{}, fmt.Errorf("load %s: %w", path, err)
	}
	return snap, nil
}

func runRender(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	in := fs.String("in", defaultSnapshotPath(), "Snapshot file")
	asJSON := fs.Bool("json", false, "Print the raw indented JSON instead of a summary")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap, err := loadSnapshot(*in)
	if err != nil {
		return err
	}

	if *asJSON {
		out, err := json.MarshalIndent(snap.Blocks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(out))
		return nil
	}

	head := color.New(color.FgCyan).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	fmt.Fprintf(w, "%s engine=%s prefix=%q blocks=%d\n", head("snapshot"), snap.Engine, snap.Prefix, len(snap.Blocks))
	for _, b := range snap.Blocks {
		fmt.Fprintf(w, "%s %d  %s\n", head("#"), b.ID, b.Hash)
		fmt.Fprintf(w, "   %s %s  %s %d  %s %d\n", dim("prev"), b.PrevBlockHash, dim("ts"), b.Timestamp, dim("nonce"), b.Nonce)
		fmt.Fprintf(w, "   %s %q\n", dim("data"), b.Data)
	}
	return nil
}

func runVerify(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	in := fs.String("in", defaultSnapshotPath(), "Snapshot file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap, err := loadSnapshot(*in)
	if err != nil {
		return err
	}
	engine, err := snap.EngineFor()
	if err != nil {
		return err
	}

	c := blockchain.New(blockchain.Config{Engine: engine})
	if err := c.Restore(snap.Blocks); err != nil {
		fmt.Fprintln(w, color.RedString("INVALID: %v", err))
		return errInvalid
	}
	fmt.Fprintln(w, color.GreenString("OK %d blocks, engine=%s", c.Len(), engine.Name()))
	return nil
}

func runDigest(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("digest", flag.ContinueOnError)
	cc := config.Default().Consensus
	config.BindConsensusFlags(fs, &cc)
	id := fs.Uint64("id", 0, "Block id")
	data := fs.String("data", "", "Block payload")
	prev := fs.String("prev", blockchain.GenesisSentinel, "Previous block hash")
	ts := fs.Int64("timestamp", 0, "Block timestamp (unix seconds)")
	nonce := fs.Uint64("nonce", 0, "Block nonce (ignored when pow is disabled)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := config.ValidateConsensus(cc); err != nil {
		return err
	}
	engine, err := cc.Engine()
	if err != nil {
		return err
	}

	b := blockchain.Block{
		ID:            *id,
		Timestamp:     *ts,
		Data:          *data,
		PrevBlockHash: strings.TrimSpace(*prev),
		Nonce:         *nonce,
	}
	digest := b.Digest(engine.UsesNonce())

	fmt.Fprintf(w, "header: %s\n", b.HeaderBytes(engine.UsesNonce()))
	fmt.Fprintf(w, "hash:   %s\n", vcrypto.Hex32(digest))
	fmt.Fprintf(w, "bits:   %s\n", vcrypto.BitString(digest[:4], !cc.UnpaddedBits))
	if err := engine.Verify(digest); err != nil {
		fmt.Fprintln(w, color.YellowString("work:   insufficient for prefix %q", cc.Prefix))
		return nil
	}
	fmt.Fprintln(w, color.GreenString("work:   ok"))
	return nil
}

func fatal(err error) {
	_, _ = os.Stderr.WriteString("ledger-cli error: " + err.Error() + "\n")
	os.Exit(1)
}
