package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Engine owns the session lifecycle. Every external action is validated
// against the current state before anything mutates, and each entry
// point is atomic with respect to its session: a per-session mutex is
// held for the whole operation, including verification-gateway calls.
// The expiry timer is the one source of true concurrency; it resolves
// races by re-reading authoritative state and treating "already ended"
// as a no-op.
type Engine struct {
	store    SessionStore
	verifier Verifier
	ledger   LedgerSubmitter
	recorder GameRecorder
	events   *Broker
	logger   *slog.Logger
	tuning   Tuning

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	timers   map[string]*time.Timer // pending level-expiry timers
	removals map[string]*time.Timer // pending post-completion cleanups
}

// EngineConfig wires the engine's collaborators. Store and Verifier are
// required; Ledger and Recorder are optional.
type EngineConfig struct {
	Store    SessionStore
	Verifier Verifier
	Ledger   LedgerSubmitter
	Recorder GameRecorder
	Events   *Broker
	Logger   *slog.Logger
	Tuning   Tuning
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Events == nil {
		cfg.Events = NewBroker()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tuning == (Tuning{}) {
		cfg.Tuning = DefaultTuning()
	}
	return &Engine{
		store:    cfg.Store,
		verifier: cfg.Verifier,
		ledger:   cfg.Ledger,
		recorder: cfg.Recorder,
		events:   cfg.Events,
		logger:   cfg.Logger,
		tuning:   cfg.Tuning,
		locks:    make(map[string]*sync.Mutex),
		timers:   make(map[string]*time.Timer),
		removals: make(map[string]*time.Timer),
	}
}

// Events returns the broker carrying this engine's notifications.
func (e *Engine) Events() *Broker { return e.events }

// Tuning returns the active game parameters.
func (e *Engine) Tuning() Tuning { return e.tuning }

// Close stops all outstanding timers. Sessions themselves stay in the
// store; Close is for process shutdown, not cleanup.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, t := range e.timers {
		t.Stop()
		delete(e.timers, id)
	}
	for id, t := range e.removals {
		t.Stop()
		delete(e.removals, id)
	}
}

// CreateSession registers a new session for the owner identity. An
// identity may own at most one active session; violating that returns
// *ActiveSessionError carrying the existing id.
func (e *Engine) CreateSession(ctx context.Context, owner string) (string, error) {
	if owner == "" {
		return "", errors.New("player identity is required")
	}

	sess := &Session{
		ID:           uuid.NewString(),
		Owner:        owner,
		State:        StateCreated,
		CurrentRound: 1,
		CurrentLevel: 1,
		ClickedCells: []Position{},
		CreatedAt:    time.Now(),
	}
	if err := e.store.Create(ctx, sess); err != nil {
		return "", err
	}

	e.logger.Info("session created", "game_id", sess.ID, "owner", owner, "guest", sess.IsGuest())
	return sess.ID, nil
}

// LevelStart is the response to a successful StartLevel.
type LevelStart struct {
	SessionID    string        `json:"gameId"`
	GridSize     int           `json:"gridSize"`
	Bugs         []Position    `json:"bugs"`
	NumBugs      int           `json:"numBugs"`
	StartTime    time.Time     `json:"startTime"`
	Duration     time.Duration `json:"duration"`
	CurrentLevel int           `json:"currentLevel"`
	CurrentRound int           `json:"currentRound"`
	TotalScore   int           `json:"totalScore"`
	State        State         `json:"state"`
	ValidActions []Action      `json:"validActions"`
}

// StartLevel generates the next level's configuration, arms verification
// for non-guests, and transitions the session to LEVEL_STARTED. If
// secret registration fails nothing is committed: the session stays
// exactly as it was.
func (e *Engine) StartLevel(ctx context.Context, id, identity string) (*LevelStart, error) {
	unlock := e.lockSession(id)
	defer unlock()

	sess, err := e.validateAccess(ctx, id, identity)
	if err != nil {
		return nil, err
	}
	if err := ValidateAction(ActionStartLevel, sess.State); err != nil {
		return nil, err
	}
	if sess.CurrentLevel > e.tuning.LevelsPerRound {
		return nil, ErrRoundLimit
	}

	cfg := e.tuning.GenerateLevel(sess.CurrentLevel)

	if !sess.IsGuest() {
		if err := e.verifier.RegisterSecret(ctx, len(cfg.Bugs)); err != nil {
			return nil, fmt.Errorf("initializing level verification: %w: %w", ErrVerification, err)
		}
	}

	now := time.Now()
	sess.Config = &cfg
	sess.ClickedCells = []Position{}
	sess.IsEnded = false
	sess.StartTime = now
	sess.EndTime = now.Add(cfg.Duration)
	sess.State = StateLevelStarted
	if err := e.store.Update(ctx, sess); err != nil {
		return nil, err
	}

	e.scheduleExpiry(id, cfg.Duration)
	e.publishState(sess)

	e.logger.Info("level started", "game_id", id,
		"level", sess.CurrentLevel, "round", sess.CurrentRound,
		"grid", cfg.GridSize, "bugs", len(cfg.Bugs), "duration", cfg.Duration)

	return &LevelStart{
		SessionID:    id,
		GridSize:     cfg.GridSize,
		Bugs:         cfg.Bugs,
		NumBugs:      len(cfg.Bugs),
		StartTime:    now,
		Duration:     cfg.Duration,
		CurrentLevel: sess.CurrentLevel,
		CurrentRound: sess.CurrentRound,
		TotalScore:   sess.TotalScore,
		State:        sess.State,
		ValidActions: ValidActions(sess.State),
	}, nil
}

// HandleClick records a cell attempt. Repeated clicks on the same cell
// are recorded again on purpose: the efficiency metric is click-count
// based. Clicks after the time budget elapsed are rejected even if the
// expiry timer has not fired yet.
func (e *Engine) HandleClick(ctx context.Context, id string, pos Position, identity string) (State, error) {
	unlock := e.lockSession(id)
	defer unlock()

	sess, err := e.validateAccess(ctx, id, identity)
	if err != nil {
		return "", err
	}
	if err := ValidateAction(ActionHandleClick, sess.State); err != nil {
		return sess.State, err
	}
	if sess.Config != nil && time.Since(sess.StartTime) >= sess.Config.Duration {
		return sess.State, ErrLevelEnded
	}

	sess.ClickedCells = append(sess.ClickedCells, pos)
	if err := e.store.Update(ctx, sess); err != nil {
		return "", err
	}
	return sess.State, nil
}

// LevelOutcome is the result of a completed level plus the derived
// next-state information.
type LevelOutcome struct {
	Result        LevelResult `json:"result"`
	State         State       `json:"state"`
	ValidActions  []Action    `json:"validActions"`
	RoundComplete bool        `json:"roundComplete"`
	GameComplete  bool        `json:"gameComplete"`
	CurrentRound  int         `json:"currentRound"`
	TotalScore    int         `json:"totalScore"`
}

// EndLevel concludes the active level and derives the next transition:
// level continues, round completes, or the whole game completes. It is
// an idempotent no-op (nil, nil) when the session is absent or the level
// already ended, which makes it safe to call from both a user action and
// the expiry timer without coordination.
func (e *Engine) EndLevel(ctx context.Context, id string, endType EndType) (*LevelOutcome, error) {
	unlock := e.lockSession(id)
	defer unlock()

	sess, err := e.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sess.IsEnded {
		return nil, nil
	}
	if err := ValidateAction(ActionEndLevel, sess.State); err != nil {
		// A lost race with another end path, not a caller error.
		e.logger.Debug("end level skipped", "game_id", id, "state", sess.State)
		return nil, nil
	}

	e.cancelExpiry(id)

	bugsFound := sess.bugsFound()
	totalBugs := len(sess.Config.Bugs)
	score := LevelScore(bugsFound, totalBugs, len(sess.ClickedCells))

	result := LevelResult{
		Level:        sess.CurrentLevel,
		BugsFound:    bugsFound,
		TotalBugs:    totalBugs,
		ClickedCells: len(sess.ClickedCells),
		Duration:     time.Since(sess.StartTime),
		Score:        score,
	}

	sess.IsEnded = true
	sess.EndTime = time.Now()
	sess.EndType = endType
	sess.RoundStats = append(sess.RoundStats, result)
	sess.TotalScore += score

	roundComplete := sess.CurrentLevel >= e.tuning.LevelsPerRound
	gameComplete := roundComplete && sess.CurrentRound >= e.tuning.MaxRounds

	var round Aggregate
	switch {
	case gameComplete:
		round = AggregateStats(sess.TotalScore, sess.RoundStats)
		sess.State = StateGameComplete
	case roundComplete:
		round = AggregateStats(sess.TotalScore, sess.RoundStats)
		sess.State = StateRoundComplete
		sess.CurrentLevel = 1
		sess.CurrentRound++
		sess.RoundStats = nil
	default:
		sess.State = StateLevelEnded
		sess.CurrentLevel++
	}

	if gameComplete {
		e.completeGame(ctx, sess, endType, result, round)
	} else if err := e.store.Update(ctx, sess); err != nil {
		return nil, err
	}

	e.publishState(sess)
	e.events.Publish(Event{
		Type:          EventLevelEnded,
		SessionID:     id,
		State:         sess.State,
		ValidActions:  ValidActions(sess.State),
		Level:         &result,
		RoundComplete: roundComplete,
		CurrentRound:  sess.CurrentRound,
		TotalScore:    sess.TotalScore,
	})
	if roundComplete && !gameComplete {
		e.events.Publish(Event{
			Type:         EventRoundComplete,
			SessionID:    id,
			State:        sess.State,
			ValidActions: ValidActions(sess.State),
			Round:        &round,
			CurrentRound: sess.CurrentRound,
			TotalScore:   sess.TotalScore,
		})
	}

	e.logger.Info("level ended", "game_id", id, "end_type", endType,
		"level", result.Level, "score", score,
		"round_complete", roundComplete, "game_complete", gameComplete)

	return &LevelOutcome{
		Result:        result,
		State:         sess.State,
		ValidActions:  ValidActions(sess.State),
		RoundComplete: roundComplete,
		GameComplete:  gameComplete,
		CurrentRound:  sess.CurrentRound,
		TotalScore:    sess.TotalScore,
	}, nil
}

// completeGame runs the round-completion and game-completion
// bookkeeping for the final level. The game has definitively ended at
// this point: the best-effort final verification can fail without
// reverting anything.
func (e *Engine) completeGame(ctx context.Context, sess *Session, endType EndType, final LevelResult, round Aggregate) {
	e.events.Publish(Event{
		Type:         EventRoundComplete,
		SessionID:    sess.ID,
		State:        sess.State,
		Round:        &round,
		CurrentRound: sess.CurrentRound,
		TotalScore:   sess.TotalScore,
	})

	result := &GameResult{
		BugsFound:     final.BugsFound,
		TotalBugs:     final.TotalBugs,
		ClickedCells:  final.ClickedCells,
		Duration:      final.Duration,
		EndType:       endType,
		ProofVerified: true,
	}
	if !sess.IsGuest() {
		// The gateway's registered secret is the final level's bug count,
		// so that is the claim submitted here.
		fv, err := e.verifier.VerifyFull(ctx, final.BugsFound)
		if err != nil {
			e.logger.Error("final verification failed", "game_id", sess.ID, "error", err)
		}
		result.ProofVerified = fv.Success
		result.OnChainVerified = fv.OnChainVerified
	}
	sess.Result = result

	if err := e.store.Update(ctx, sess); err != nil {
		e.logger.Error("persisting completed game", "game_id", sess.ID, "error", err)
	}

	e.events.Publish(Event{
		Type:       EventGameComplete,
		SessionID:  sess.ID,
		State:      sess.State,
		Game:       result,
		Round:      &round,
		TotalScore: sess.TotalScore,
	})

	if e.recorder != nil {
		if err := e.recorder.RecordGame(ctx, sess.Owner, sess.TotalScore, sess.CurrentRound); err != nil {
			e.logger.Error("recording player stats", "game_id", sess.ID, "owner", sess.Owner, "error", err)
		}
	}

	e.scheduleRemoval(sess.ID)
}

// EndGame settles the session through local verification. Guests settle
// immediately with no gateway call. For non-guests a provisional
// "verifying" event goes out before the gateway call so observers are
// not blocked on its latency; a gateway call failure is fatal to this
// operation and persists nothing.
func (e *Engine) EndGame(ctx context.Context, id string, endType EndType) (*GameResult, error) {
	unlock := e.lockSession(id)
	defer unlock()

	sess, err := e.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sess.Result != nil {
		return nil, nil
	}
	if err := ValidateAction(ActionEndGame, sess.State); err != nil {
		return nil, err
	}

	e.cancelExpiry(id)

	result := e.snapshotResult(sess, endType)

	if sess.IsGuest() {
		result.ProofVerified = true
		result.VerificationInProgress = false
		e.settle(ctx, sess, endType, result)
		e.events.Publish(Event{
			Type: EventGameEnded, SessionID: id, Status: "complete",
			EndType: endType, Game: result,
		})
		return result, nil
	}

	result.VerificationInProgress = true
	e.events.Publish(Event{
		Type: EventGameEnded, SessionID: id, Status: "verifying",
		EndType: endType, Game: result,
	})

	ok, err := e.verifier.VerifyLocal(ctx, result.BugsFound)
	if err != nil {
		return nil, fmt.Errorf("verifying game result: %w: %w", ErrVerification, err)
	}

	result.ProofVerified = ok
	result.VerificationInProgress = false
	e.settle(ctx, sess, endType, result)
	e.events.Publish(Event{
		Type: EventGameEnded, SessionID: id, Status: "complete",
		EndType: endType, Game: result,
	})
	return result, nil
}

// EndGameFull settles through the stronger local-plus-on-chain
// verification. Not available to guests. A successful on-chain-verified
// proof is optionally relayed through the ledger submitter; a relay
// failure is reported as a side-channel event but does not fail the
// verification result.
func (e *Engine) EndGameFull(ctx context.Context, id string, endType EndType) (*GameResult, error) {
	unlock := e.lockSession(id)
	defer unlock()

	sess, err := e.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sess.IsGuest() {
		return nil, ErrGuestNotAllowed
	}
	if err := ValidateAction(ActionEndGameFull, sess.State); err != nil {
		return nil, err
	}

	e.cancelExpiry(id)

	result := e.snapshotResult(sess, endType)
	result.VerificationInProgress = true
	e.events.Publish(Event{
		Type: EventGameEndedFull, SessionID: id, Status: "verifying",
		EndType: endType, Game: result,
	})

	fv, err := e.verifier.VerifyFull(ctx, result.BugsFound)
	if err != nil {
		e.events.Publish(Event{
			Type: EventGameEndedFull, SessionID: id, Status: "error",
			EndType: endType, Error: err.Error(),
		})
		return nil, fmt.Errorf("full verification: %w: %w", ErrVerification, err)
	}

	var txHash string
	if fv.Success && fv.OnChainVerified && e.ledger != nil {
		txHash, err = e.ledger.SubmitResult(ctx, id, result.BugsFound, fv.ProofData)
		if err != nil {
			// The proof itself may still be valid even if the on-chain
			// confirmation step fails.
			e.logger.Error("ledger submission failed", "game_id", id, "error", err)
			e.events.Publish(Event{
				Type: EventContractError, SessionID: id, Status: "contractError",
				Error: err.Error(),
			})
			txHash = ""
		}
	}

	result.ProofVerified = fv.Success
	result.VerificationInProgress = false
	result.OnChainVerified = fv.OnChainVerified
	result.ContractTxHash = txHash
	e.settle(ctx, sess, endType, result)
	e.events.Publish(Event{
		Type: EventGameEndedFull, SessionID: id, Status: "complete",
		EndType: endType, Game: result,
	})
	return result, nil
}

// ProcessTransaction relays a signed settlement transaction and removes
// the session once it is accepted.
func (e *Engine) ProcessTransaction(ctx context.Context, id, identity, signedTx string) (string, error) {
	unlock := e.lockSession(id)
	defer unlock()

	sess, err := e.validateAccess(ctx, id, identity)
	if err != nil {
		return "", err
	}
	if !sess.IsEnded {
		return "", ErrGameInProgress
	}
	if e.ledger == nil {
		return "", ErrNoLedger
	}

	hash, err := e.ledger.SubmitRaw(ctx, signedTx)
	if err != nil {
		return "", fmt.Errorf("transaction failed: %w", err)
	}

	e.removeSession(ctx, id)
	return hash, nil
}

// GetState returns a full snapshot of the session. Only the owning
// identity may read it.
func (e *Engine) GetState(ctx context.Context, id, identity string) (*Snapshot, error) {
	sess, err := e.validateAccess(ctx, id, identity)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Session: *sess, ValidActions: ValidActions(sess.State)}, nil
}

// GetResult returns the final result once the session has ended.
func (e *Engine) GetResult(ctx context.Context, id string) (*GameResult, error) {
	sess, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Result == nil {
		return nil, ErrGameInProgress
	}
	return sess.Result, nil
}

// ActiveInfo describes an identity's active session, if any.
type ActiveInfo struct {
	SessionID     string        `json:"gameId"`
	RemainingTime time.Duration `json:"remainingTime"`
}

// ActiveSession reports whether the identity currently owns a session.
// Returns (nil, nil) when there is none.
func (e *Engine) ActiveSession(ctx context.Context, identity string) (*ActiveInfo, error) {
	id, err := e.store.ActiveSession(ctx, identity)
	if err != nil || id == "" {
		return nil, err
	}
	sess, err := e.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	info := &ActiveInfo{SessionID: id}
	if sess.State == StateLevelStarted && sess.Config != nil {
		if remaining := sess.Config.Duration - time.Since(sess.StartTime); remaining > 0 {
			info.RemainingTime = remaining
		}
	}
	return info, nil
}

// validateAccess loads the session and checks ownership.
func (e *Engine) validateAccess(ctx context.Context, id, identity string) (*Session, error) {
	sess, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Owner != identity {
		return nil, ErrNotAuthorized
	}
	return sess, nil
}

// snapshotResult computes the settlement snapshot from the session's
// current clicked cells and level config.
func (e *Engine) snapshotResult(sess *Session, endType EndType) *GameResult {
	r := &GameResult{
		BugsFound:    sess.bugsFound(),
		ClickedCells: len(sess.ClickedCells),
		Duration:     time.Since(sess.StartTime),
		EndType:      endType,
	}
	if sess.Config != nil {
		r.TotalBugs = len(sess.Config.Bugs)
	}
	return r
}

// settle persists the final result and marks the session ended.
func (e *Engine) settle(ctx context.Context, sess *Session, endType EndType, result *GameResult) {
	sess.IsEnded = true
	sess.EndTime = time.Now()
	sess.EndType = endType
	sess.Result = result
	if err := e.store.Update(ctx, sess); err != nil {
		e.logger.Error("persisting game result", "game_id", sess.ID, "error", err)
	}
}

func (e *Engine) publishState(sess *Session) {
	e.events.Publish(Event{
		Type:         EventStateChanged,
		SessionID:    sess.ID,
		State:        sess.State,
		ValidActions: ValidActions(sess.State),
	})
}

// lockSession acquires the per-session mutex that makes each engine
// entry point atomic with respect to that session.
func (e *Engine) lockSession(id string) func() {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// scheduleExpiry arms the level's auto-end timer, cancelling any prior
// one first: at most one timer is outstanding per session. The callback
// goes back through EndLevel, which re-reads authoritative state, so a
// stale firing never acts on a session that has moved on.
func (e *Engine) scheduleExpiry(id string, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.timers[id]; ok {
		t.Stop()
	}
	e.timers[id] = time.AfterFunc(d, func() {
		res, err := e.EndLevel(context.Background(), id, EndTimeout)
		if err != nil {
			// No synchronous caller exists on this path.
			e.logger.Error("auto-ending level", "game_id", id, "error", err)
			return
		}
		if res == nil {
			e.logger.Debug("expiry fired on settled level", "game_id", id)
		}
	})
}

func (e *Engine) cancelExpiry(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.timers[id]; ok {
		t.Stop()
		delete(e.timers, id)
	}
}

// scheduleRemoval delays store cleanup after game completion so trailing
// reads of the final result still succeed.
func (e *Engine) scheduleRemoval(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.removals[id]; ok {
		t.Stop()
	}
	e.removals[id] = time.AfterFunc(e.tuning.RemovalGrace, func() {
		e.removeSession(context.Background(), id)
	})
}

func (e *Engine) removeSession(ctx context.Context, id string) {
	if err := e.store.Remove(ctx, id); err != nil {
		e.logger.Error("removing session", "game_id", id, "error", err)
	}
	e.mu.Lock()
	if t, ok := e.timers[id]; ok {
		t.Stop()
		delete(e.timers, id)
	}
	if t, ok := e.removals[id]; ok {
		t.Stop()
		delete(e.removals, id)
	}
	delete(e.locks, id)
	e.mu.Unlock()
}
