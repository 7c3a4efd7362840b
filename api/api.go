package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vocdoni/tally-z-sandbox/ceremony"
	"github.com/vocdoni/tally-z-sandbox/ledger"
	"github.com/vocdoni/tally-z-sandbox/log"
	stg "github.com/vocdoni/tally-z-sandbox/storage"
)

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port and the already-built node components.
type APIConfig struct {
	Host        string
	Port        int
	Storage     *stg.Storage
	Ledgers     *ledger.Store
	Coordinator *ceremony.Coordinator
	Credentials ceremony.CredentialVerifier
	Ballots     ceremony.BallotProofVerifier
}

// API type represents the API HTTP server exposing the vote ledger and the
// ceremony coordinator.
type API struct {
	router      *chi.Mux
	storage     *stg.Storage
	ledgers     *ledger.Store
	coordinator *ceremony.Coordinator
	credentials ceremony.CredentialVerifier
	ballots     ceremony.BallotProofVerifier
}

// New creates a new API instance with the given configuration and starts the
// HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	if conf.Ledgers == nil {
		return nil, fmt.Errorf("missing ledger store")
	}
	if conf.Coordinator == nil {
		return nil, fmt.Errorf("missing ceremony coordinator")
	}
	if conf.Credentials == nil || conf.Ballots == nil {
		return nil, fmt.Errorf("missing vote verification capabilities")
	}
	a := &API{
		storage:     conf.Storage,
		ledgers:     conf.Ledgers,
		coordinator: conf.Coordinator,
		credentials: conf.Credentials,
		ballots:     conf.Ballots,
	}

	// Initialize router
	a.initRouter()
	go func() {
		log.Infow("Starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", ElectionsEndpoint, "method", "POST")
	a.router.Post(ElectionsEndpoint, a.newElection)
	log.Infow("register handler", "endpoint", ElectionsEndpoint, "method", "GET")
	a.router.Get(ElectionsEndpoint, a.electionList)
	log.Infow("register handler", "endpoint", ElectionEndpoint, "method", "GET")
	a.router.Get(ElectionEndpoint, a.election)
	log.Infow("register handler", "endpoint", VotesEndpoint, "method", "POST")
	a.router.Post(VotesEndpoint, a.newVote)
	log.Infow("register handler", "endpoint", VoteEndpoint, "method", "GET")
	a.router.Get(VoteEndpoint, a.vote)
	log.Infow("register handler", "endpoint", VoteProofEndpoint, "method", "GET")
	a.router.Get(VoteProofEndpoint, a.voteProof)
	log.Infow("register handler", "endpoint", SnapshotEndpoint, "method", "GET")
	a.router.Get(SnapshotEndpoint, a.snapshot)
	log.Infow("register handler", "endpoint", VerifyProofEndpoint, "method", "POST")
	a.router.Post(VerifyProofEndpoint, a.verifyProof)
	log.Infow("register handler", "endpoint", CeremonyEndpoint, "method", "POST")
	a.router.Post(CeremonyEndpoint, a.startCeremony)
	log.Infow("register handler", "endpoint", CeremonyEndpoint, "method", "GET")
	a.router.Get(CeremonyEndpoint, a.ceremonyStatus)
	log.Infow("register handler", "endpoint", CeremonyPartialsEndpoint, "method", "POST")
	a.router.Post(CeremonyPartialsEndpoint, a.submitPartials)
	log.Infow("register handler", "endpoint", CeremonyResultEndpoint, "method", "GET")
	a.router.Get(CeremonyResultEndpoint, a.ceremonyResult)
	log.Infow("register handler", "endpoint", CeremonyHistoryEndpoint, "method", "GET")
	a.router.Get(CeremonyHistoryEndpoint, a.ceremonyHistory)
	log.Infow("register handler", "endpoint", MetricsEndpoint, "method", "GET")
	a.router.Handle(MetricsEndpoint, promhttp.Handler())
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}
