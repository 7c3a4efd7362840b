// Package ceremony coordinates threshold decryption ceremonies over the vote
// ledger: one current ceremony instance per election, driven from trustee
// partial-decryption submissions to an all-or-nothing tally. The cryptographic
// work is delegated to injected capability interfaces; the coordinator owns
// lifecycle, quorum counting and persistence.
package ceremony

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vocdoni/tally-z-sandbox/ledger"
	"github.com/vocdoni/tally-z-sandbox/log"
	"github.com/vocdoni/tally-z-sandbox/storage"
	"github.com/vocdoni/tally-z-sandbox/types"
)

// Coordinator drives decryption ceremonies. All operations of one election
// are serialized behind a per-election mutex, so status transitions, trustee
// submissions and the synchronous combine phase cannot race.
type Coordinator struct {
	stg      *storage.Storage
	ledgers  *ledger.Store
	verifier PartialVerifier
	combiner PartialCombiner

	locks     map[string]*sync.Mutex
	locksLock sync.Mutex
}

// New creates a Coordinator on top of the given storage and ledger store,
// using the provided capabilities for proof verification and combination.
func New(stg *storage.Storage, ledgers *ledger.Store, verifier PartialVerifier, combiner PartialCombiner) *Coordinator {
	return &Coordinator{
		stg:      stg,
		ledgers:  ledgers,
		verifier: verifier,
		combiner: combiner,
		locks:    make(map[string]*sync.Mutex),
	}
}

// electionLock returns the mutex serializing ceremony operations of one
// election.
func (co *Coordinator) electionLock(electionID types.HexBytes) *sync.Mutex {
	co.locksLock.Lock()
	defer co.locksLock.Unlock()
	l, ok := co.locks[string(electionID)]
	if !ok {
		l = &sync.Mutex{}
		co.locks[string(electionID)] = l
	}
	return l
}

// Start opens a new ceremony instance for an election, binding the ledger
// snapshot taken at this instant: votes appended later are excluded from the
// tally. Only one non-aborted ceremony may exist per election; after an abort
// the dead instance is archived and a fresh one takes its place. A snapshot
// with zero votes needs no trustee cooperation, so the instance completes
// immediately with an empty result.
func (co *Coordinator) Start(electionID types.HexBytes, requiredShares int) (*types.Ceremony, error) {
	lock := co.electionLock(electionID)
	lock.Lock()
	defer lock.Unlock()

	election, err := co.stg.Election(electionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrElectionNotFound, electionID.String())
		}
		return nil, err
	}
	if requiredShares < 1 || requiredShares > len(election.Trustees) {
		return nil, fmt.Errorf("%w: %d of %d trustees", ErrInvalidShares, requiredShares, len(election.Trustees))
	}
	if prev, err := co.stg.Ceremony(electionID); err == nil {
		if prev.Status != types.CeremonyAborted {
			return nil, fmt.Errorf("%w: instance %s is %s", ErrCeremonyExists, prev.InstanceID, prev.Status)
		}
		if err := co.stg.ArchiveCeremony(prev); err != nil {
			return nil, fmt.Errorf("failed to archive aborted ceremony: %w", err)
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	l, err := co.ledgers.Ledger(electionID)
	if err != nil {
		return nil, err
	}
	cer := &types.Ceremony{
		InstanceID:     uuid.New(),
		ElectionID:     electionID,
		Status:         types.CeremonyInProgress,
		RequiredShares: requiredShares,
		BoundSnapshot:  l.Snapshot(),
		Trustees:       election.Trustees,
		StartedAt:      time.Now(),
	}
	if cer.BoundSnapshot.VoteCount == 0 {
		cer.Status = types.CeremonyCompleted
		cer.CompletedAt = time.Now()
		cer.Result = &types.TallyResult{CompletedAt: cer.CompletedAt}
	}
	if err := co.stg.SetCeremony(cer); err != nil {
		return nil, err
	}
	promCeremoniesStarted.Inc()
	// a bound ledger means voting is over for this election
	if election.Status == types.ElectionStatusOpen {
		election.Status = types.ElectionStatusClosed
		if err := co.stg.SetElection(election); err != nil {
			log.Warnw("failed to close election record", "electionId", electionID.String(), "error", err.Error())
		}
	}
	if cer.Status == types.CeremonyCompleted {
		co.markElectionTallied(electionID)
		promCeremoniesCompleted.Inc()
		log.Infow("ceremony completed on empty ledger", "electionId", electionID.String(),
			"instance", cer.InstanceID.String())
		return cer, nil
	}
	log.Infow("ceremony started", "electionId", electionID.String(),
		"instance", cer.InstanceID.String(), "requiredShares", requiredShares,
		"boundVotes", cer.BoundSnapshot.VoteCount)
	return cer, nil
}

// SubmitPartial records one trustee's batch of partial decryptions. Each
// partial is verified independently against the trustee's roster commitment
// and the bound entry it targets; invalid ones are logged and dropped without
// failing the rest. The trustee counts toward the quorum once at least one
// partial validates, and reaching RequiredShares triggers the combine phase
// synchronously before returning.
func (co *Coordinator) SubmitPartial(electionID types.HexBytes, trusteeID int, partials []*types.PartialDecryption) (*types.CeremonyState, error) {
	lock := co.electionLock(electionID)
	lock.Lock()
	defer lock.Unlock()

	cer, err := co.loadCeremony(electionID)
	if err != nil {
		return nil, err
	}
	if cer.Status.Terminal() {
		return nil, fmt.Errorf("%w: ceremony is %s", ErrCeremonyTerminal, cer.Status)
	}
	trustee := cer.Trustee(trusteeID)
	if trustee == nil {
		return nil, fmt.Errorf("%w: trustee %d", ErrUnknownTrustee, trusteeID)
	}
	if cer.HasSubmitted(trusteeID) {
		return nil, fmt.Errorf("%w: trustee %d", ErrDuplicateTrustee, trusteeID)
	}

	ordered, byID, err := co.boundEntries(cer)
	if err != nil {
		return nil, err
	}
	accepted := make([]*types.PartialDecryption, 0, len(partials))
	for _, partial := range partials {
		if partial == nil {
			continue
		}
		if partial.TrusteeID != trusteeID {
			log.Warnw("partial claims another trustee", "electionId", electionID.String(),
				"trustee", trusteeID, "claimed", partial.TrusteeID)
			promPartialsRejected.Inc()
			continue
		}
		entry, ok := byID[string(partial.EntryID)]
		if !ok {
			log.Warnw("partial targets entry outside bound snapshot", "electionId", electionID.String(),
				"trustee", trusteeID, "entryId", partial.EntryID.String())
			promPartialsRejected.Inc()
			continue
		}
		if !co.verifier.VerifyPartialProof(partial, entry.EncryptedVote, trustee.PublicCommitment) {
			log.Warnw("partial proof failed verification", "electionId", electionID.String(),
				"trustee", trusteeID, "entryId", partial.EntryID.String())
			promPartialsRejected.Inc()
			continue
		}
		accepted = append(accepted, partial)
	}
	if len(accepted) == 0 {
		return ceremonyState(cer), ErrNoValidPartials
	}
	// persist the partials before counting the trustee, so a crash in
	// between cannot leave a counted trustee without material
	if err := co.stg.AddPartials(cer.InstanceID, accepted); err != nil {
		return nil, err
	}
	promPartialsAccepted.Add(float64(len(accepted)))
	cer.SubmittedTrustees = append(cer.SubmittedTrustees, trusteeID)
	log.Infow("partial decryptions accepted", "electionId", electionID.String(),
		"trustee", trusteeID, "accepted", len(accepted),
		"received", len(cer.SubmittedTrustees), "required", cer.RequiredShares)

	if len(cer.SubmittedTrustees) < cer.RequiredShares {
		if err := co.stg.SetCeremony(cer); err != nil {
			return nil, err
		}
		return ceremonyState(cer), nil
	}

	// quorum reached: persist the transition, then combine synchronously
	cer.Status = types.CeremonyCombining
	if err := co.stg.SetCeremony(cer); err != nil {
		return nil, err
	}
	if err := co.combine(cer, ordered); err != nil {
		return ceremonyState(cer), ErrTallyFailed
	}
	return ceremonyState(cer), nil
}

// Status returns the public view of the election's current ceremony. It is
// side-effect-free.
func (co *Coordinator) Status(electionID types.HexBytes) (*types.CeremonyState, error) {
	cer, err := co.loadCeremony(electionID)
	if err != nil {
		return nil, err
	}
	return ceremonyState(cer), nil
}

// Result returns the tally of a completed ceremony, and ErrNoResult in any
// other state.
func (co *Coordinator) Result(electionID types.HexBytes) (*types.TallyResult, error) {
	cer, err := co.loadCeremony(electionID)
	if err != nil {
		return nil, err
	}
	if cer.Status != types.CeremonyCompleted || cer.Result == nil {
		return nil, fmt.Errorf("%w: ceremony is %s", ErrNoResult, cer.Status)
	}
	return cer.Result, nil
}

// Abort terminates a running ceremony. Validated partials of the instance are
// retained for audit; further submissions are rejected and a retry means a
// fresh Start.
func (co *Coordinator) Abort(electionID types.HexBytes, reason string) error {
	lock := co.electionLock(electionID)
	lock.Lock()
	defer lock.Unlock()

	cer, err := co.loadCeremony(electionID)
	if err != nil {
		return err
	}
	if cer.Status.Terminal() {
		return fmt.Errorf("%w: ceremony is %s", ErrCeremonyTerminal, cer.Status)
	}
	cer.Status = types.CeremonyAborted
	cer.FailureReason = reason
	cer.CompletedAt = time.Now()
	if err := co.stg.SetCeremony(cer); err != nil {
		return err
	}
	promCeremoniesAborted.Inc()
	log.Warnw("ceremony aborted", "electionId", electionID.String(),
		"instance", cer.InstanceID.String(), "reason", reason)
	return nil
}

// History returns the archived (aborted and superseded) ceremony instances of
// an election.
func (co *Coordinator) History(electionID types.HexBytes) ([]*types.Ceremony, error) {
	return co.stg.CeremonyHistory(electionID)
}

func (co *Coordinator) loadCeremony(electionID types.HexBytes) (*types.Ceremony, error) {
	cer, err := co.stg.Ceremony(electionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: election %s", ErrCeremonyNotFound, electionID.String())
		}
		return nil, err
	}
	return cer, nil
}

// boundEntries loads the ledger entries covered by the ceremony's bound
// snapshot, both in ledger order and indexed by entry ID.
func (co *Coordinator) boundEntries(cer *types.Ceremony) ([]*types.VoteEntry, map[string]*types.VoteEntry, error) {
	l, err := co.ledgers.Ledger(cer.ElectionID)
	if err != nil {
		return nil, nil, err
	}
	ordered, err := l.Entries(cer.BoundSnapshot.VoteCount)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[string]*types.VoteEntry, len(ordered))
	for _, entry := range ordered {
		byID[string(entry.ID)] = entry
	}
	return ordered, byID, nil
}

// combine runs the all-or-nothing tally over the bound entries and drives the
// instance to its terminal state. On failure the ceremony aborts with no
// result; the cause is logged server-side and never handed to callers.
func (co *Coordinator) combine(cer *types.Ceremony, entries []*types.VoteEntry) error {
	result, err := co.runTally(cer, entries)
	if err != nil {
		log.Warnw("tally combination failed", "electionId", cer.ElectionID.String(),
			"instance", cer.InstanceID.String(), "error", err.Error())
		cer.Status = types.CeremonyAborted
		cer.FailureReason = "tally combination failed"
		cer.CompletedAt = time.Now()
		if serr := co.stg.SetCeremony(cer); serr != nil {
			log.Errorw(serr, "failed to persist aborted ceremony")
		}
		promCeremoniesAborted.Inc()
		return err
	}
	cer.Status = types.CeremonyCompleted
	cer.Result = result
	cer.CompletedAt = result.CompletedAt
	if err := co.stg.SetCeremony(cer); err != nil {
		return err
	}
	co.markElectionTallied(cer.ElectionID)
	promCeremoniesCompleted.Inc()
	log.Infow("ceremony completed", "electionId", cer.ElectionID.String(),
		"instance", cer.InstanceID.String(), "totalVotes", result.TotalVotes,
		"trustees", len(result.ParticipatingTrustees))
	return nil
}

func (co *Coordinator) runTally(cer *types.Ceremony, entries []*types.VoteEntry) (*types.TallyResult, error) {
	byEntry, err := co.stg.PartialsByEntry(cer.InstanceID)
	if err != nil {
		return nil, err
	}
	return NewAggregator(co.combiner).Tally(entries, byEntry, cer.RequiredShares)
}

func (co *Coordinator) markElectionTallied(electionID types.HexBytes) {
	election, err := co.stg.Election(electionID)
	if err != nil {
		log.Warnw("failed to load election record", "electionId", electionID.String(), "error", err.Error())
		return
	}
	election.Status = types.ElectionStatusTallied
	if err := co.stg.SetElection(election); err != nil {
		log.Warnw("failed to mark election tallied", "electionId", electionID.String(), "error", err.Error())
	}
}

func ceremonyState(cer *types.Ceremony) *types.CeremonyState {
	return &types.CeremonyState{
		InstanceID:     cer.InstanceID,
		ElectionID:     cer.ElectionID,
		Status:         cer.Status,
		RequiredShares: cer.RequiredShares,
		ReceivedShares: len(cer.SubmittedTrustees),
		BoundVoteCount: cer.BoundSnapshot.VoteCount,
		FailureReason:  cer.FailureReason,
	}
}
