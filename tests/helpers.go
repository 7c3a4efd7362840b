package tests

import (
	"fmt"
	"time"

	"github.com/vocdoni/tally-z-sandbox/api"
	"github.com/vocdoni/tally-z-sandbox/api/client"
	"github.com/vocdoni/tally-z-sandbox/ceremony"
	"github.com/vocdoni/tally-z-sandbox/crypto/ballotproof"
	"github.com/vocdoni/tally-z-sandbox/crypto/elgamal/threshold"
	"github.com/vocdoni/tally-z-sandbox/crypto/ethereum"
	"github.com/vocdoni/tally-z-sandbox/ledger"
	"github.com/vocdoni/tally-z-sandbox/storage"
	"github.com/vocdoni/tally-z-sandbox/util"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

// SetupAPI assembles a full node over a database in tmpDir and starts its API
// server for testing. It returns the server port.
func SetupAPI(tmpDir string) (int, error) {
	tmpPort := util.RandomInt(40000, 60000)

	database, err := metadb.New(db.TypePebble, tmpDir)
	if err != nil {
		return 0, err
	}
	stg := storage.New(database)
	ledgers := ledger.NewStore(database)
	scheme := threshold.NewScheme(threshold.DefaultMaxMessage)

	_, err = api.New(&api.APIConfig{
		Host:        "127.0.0.1",
		Port:        tmpPort,
		Storage:     stg,
		Ledgers:     ledgers,
		Coordinator: ceremony.New(stg, ledgers, scheme, scheme),
		Credentials: ethereum.CredentialVerifier{},
		Ballots:     ballotproof.BindingVerifier{},
	})
	if err != nil {
		return 0, err
	}

	// Wait for the HTTP server to start
	time.Sleep(500 * time.Millisecond)
	return tmpPort, nil
}

// NewTestSigner creates and initializes a new ethereum signer for testing.
func NewTestSigner() (*ethereum.SignKeys, error) {
	signer := ethereum.NewSignKeys()
	if err := signer.Generate(); err != nil {
		return nil, err
	}
	return signer, nil
}

// NewTestClient creates a new API client for testing.
func NewTestClient(port int) (*client.HTTPclient, error) {
	return client.New(fmt.Sprintf("http://127.0.0.1:%d", port))
}
