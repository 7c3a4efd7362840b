// Package service wraps the node components in Start/Stop lifecycles and
// owns the calling-layer policy (deadlines, periodic scans) that the core
// packages deliberately leave out.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/vocdoni/tally-z-sandbox/api"
)

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	conf   *api.APIConfig
	api    *api.API
	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewAPI creates a new APIService instance from the given configuration.
func NewAPI(conf *api.APIConfig) *APIService {
	return &APIService{conf: conf}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}

	_, as.cancel = context.WithCancel(ctx)

	var err error
	as.api, err = api.New(as.conf)
	if err != nil {
		as.cancel = nil
		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}

// Stop halts the API server. The storage and ledger instances are owned by
// the caller and stay open.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		as.cancel()
		as.cancel = nil
	}
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.conf.Host, as.conf.Port
}
