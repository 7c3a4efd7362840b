package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vocdoni/tally-z-sandbox/ceremony"
	"github.com/vocdoni/tally-z-sandbox/log"
)

// writeCeremonyError maps coordinator errors to their API representation.
// Tally failures stay opaque on purpose: the code tells the caller the tally
// failed and nothing else.
func writeCeremonyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ceremony.ErrElectionNotFound):
		ErrElectionNotFound.Write(w)
	case errors.Is(err, ceremony.ErrCeremonyNotFound):
		ErrCeremonyNotFound.Write(w)
	case errors.Is(err, ceremony.ErrCeremonyExists):
		ErrCeremonyExists.Write(w)
	case errors.Is(err, ceremony.ErrCeremonyTerminal):
		ErrCeremonyTerminal.Write(w)
	case errors.Is(err, ceremony.ErrInvalidShares):
		ErrInvalidShares.Write(w)
	case errors.Is(err, ceremony.ErrUnknownTrustee):
		ErrUnknownTrustee.Write(w)
	case errors.Is(err, ceremony.ErrDuplicateTrustee):
		ErrDuplicateTrustee.Write(w)
	case errors.Is(err, ceremony.ErrNoValidPartials):
		ErrNoValidPartials.Write(w)
	case errors.Is(err, ceremony.ErrNoResult):
		ErrResultNotReady.Write(w)
	case errors.Is(err, ceremony.ErrTallyFailed):
		ErrTallyFailed.Write(w)
	default:
		ErrGenericInternalServerError.WithErr(err).Write(w)
	}
}

// startCeremony opens the decryption ceremony of an election
// POST /elections/{electionId}/ceremony
func (a *API) startCeremony(w http.ResponseWriter, r *http.Request) {
	electionID, err := electionIDParam(r)
	if err != nil {
		ErrMalformedElectionID.WithErr(err).Write(w)
		return
	}
	req := &StartCeremony{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	cer, err := a.coordinator.Start(electionID, req.RequiredShares)
	if err != nil {
		writeCeremonyError(w, err)
		return
	}
	log.Infow("ceremony started via API", "electionId", electionID.String(),
		"instance", cer.InstanceID.String())
	httpWriteJSON(w, cer)
}

// submitPartials records a trustee's partial decryptions
// POST /elections/{electionId}/ceremony/partials
func (a *API) submitPartials(w http.ResponseWriter, r *http.Request) {
	electionID, err := electionIDParam(r)
	if err != nil {
		ErrMalformedElectionID.WithErr(err).Write(w)
		return
	}
	req := &SubmitPartials{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	state, err := a.coordinator.SubmitPartial(electionID, req.TrusteeID, req.Partials)
	if err != nil {
		writeCeremonyError(w, err)
		return
	}
	httpWriteJSON(w, state)
}

// ceremonyStatus returns the current ceremony state
// GET /elections/{electionId}/ceremony
func (a *API) ceremonyStatus(w http.ResponseWriter, r *http.Request) {
	electionID, err := electionIDParam(r)
	if err != nil {
		ErrMalformedElectionID.WithErr(err).Write(w)
		return
	}
	state, err := a.coordinator.Status(electionID)
	if err != nil {
		writeCeremonyError(w, err)
		return
	}
	httpWriteJSON(w, state)
}

// ceremonyResult returns the tally of a completed ceremony
// GET /elections/{electionId}/ceremony/result
func (a *API) ceremonyResult(w http.ResponseWriter, r *http.Request) {
	electionID, err := electionIDParam(r)
	if err != nil {
		ErrMalformedElectionID.WithErr(err).Write(w)
		return
	}
	result, err := a.coordinator.Result(electionID)
	if err != nil {
		writeCeremonyError(w, err)
		return
	}
	httpWriteJSON(w, result)
}

// ceremonyHistory lists archived ceremony instances
// GET /elections/{electionId}/ceremony/history
func (a *API) ceremonyHistory(w http.ResponseWriter, r *http.Request) {
	electionID, err := electionIDParam(r)
	if err != nil {
		ErrMalformedElectionID.WithErr(err).Write(w)
		return
	}
	instances, err := a.coordinator.History(electionID)
	if err != nil {
		writeCeremonyError(w, err)
		return
	}
	httpWriteJSON(w, &CeremonyHistory{Instances: instances})
}
