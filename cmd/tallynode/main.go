package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/vocdoni/tally-z-sandbox/api"
	"github.com/vocdoni/tally-z-sandbox/ceremony"
	"github.com/vocdoni/tally-z-sandbox/crypto/ballotproof"
	"github.com/vocdoni/tally-z-sandbox/crypto/elgamal/threshold"
	"github.com/vocdoni/tally-z-sandbox/crypto/ethereum"
	"github.com/vocdoni/tally-z-sandbox/ledger"
	"github.com/vocdoni/tally-z-sandbox/log"
	"github.com/vocdoni/tally-z-sandbox/service"
	"github.com/vocdoni/tally-z-sandbox/storage"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

func main() {
	app := &cli.App{
		Name:  "tallynode",
		Usage: "append-only vote ledger with threshold decryption ceremonies",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen-host",
				Value: "0.0.0.0",
				Usage: "IP address to listen on",
			},
			&cli.IntFlag{
				Name:  "listen-port",
				Value: 9090,
				Usage: "port for the HTTP API",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Value: defaultDataDir(),
				Usage: "directory for the node database",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "log level (debug, info, warn, error, fatal)",
			},
			&cli.DurationFlag{
				Name:  "ceremony-deadline",
				Value: time.Hour,
				Usage: "abort ceremonies that run longer than this",
			},
			&cli.DurationFlag{
				Name:  "ceremony-scan-interval",
				Value: time.Minute,
				Usage: "how often to scan for overdue ceremonies",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tallynode"
	}
	return filepath.Join(home, ".tallynode")
}

func run(cctx *cli.Context) error {
	log.Init(cctx.String("log-level"), "stdout", nil)

	database, err := metadb.New(db.TypePebble, filepath.Join(cctx.String("data-dir"), "db"))
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}
	stg := storage.New(database)
	defer stg.Close()
	ledgers := ledger.NewStore(database)

	// the reference threshold scheme serves both ceremony capabilities
	scheme := threshold.NewScheme(threshold.DefaultMaxMessage)
	coordinator := ceremony.New(stg, ledgers, scheme, scheme)

	apiService := service.NewAPI(&api.APIConfig{
		Host:        cctx.String("listen-host"),
		Port:        cctx.Int("listen-port"),
		Storage:     stg,
		Ledgers:     ledgers,
		Coordinator: coordinator,
		Credentials: ethereum.CredentialVerifier{},
		Ballots:     ballotproof.BindingVerifier{},
	})
	watcher := service.NewCeremonyWatcher(stg, coordinator,
		cctx.Duration("ceremony-scan-interval"), cctx.Duration("ceremony-deadline"))

	ctx, cancel := context.WithCancel(cctx.Context)
	defer cancel()
	if err := apiService.Start(ctx); err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		apiService.Stop()
		return err
	}
	log.Infow("tally node running", "dataDir", cctx.String("data-dir"),
		"host", cctx.String("listen-host"), "port", cctx.Int("listen-port"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Infow("shutting down")
	watcher.Stop()
	apiService.Stop()
	return nil
}
