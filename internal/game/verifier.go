package game

import "context"

// FullVerification is the outcome of the stronger verification path.
type FullVerification struct {
	Success         bool
	OnChainVerified bool
	ProofData       []byte
}

// Verifier is the external verification gateway. The engine treats it as
// opaque: calls either complete or fail outright, never partially apply.
// Guest sessions bypass it entirely.
type Verifier interface {
	// RegisterSecret must succeed before a level is considered armed for
	// verification; failure aborts the level start.
	RegisterSecret(ctx context.Context, count int) error

	// VerifyLocal checks a claimed result against the registered secret.
	VerifyLocal(ctx context.Context, claimed int) (bool, error)

	// VerifyFull additionally confirms the proof on chain.
	VerifyFull(ctx context.Context, claimed int) (FullVerification, error)
}

// LedgerSubmitter relays settlement transactions to an external ledger.
// Optional: a nil submitter disables the on-chain relay steps.
type LedgerSubmitter interface {
	// SubmitResult relays a verified result plus its proof artifact.
	SubmitResult(ctx context.Context, sessionID string, bugsFound int, proof []byte) (txHash string, err error)

	// SubmitRaw relays an already-signed transaction.
	SubmitRaw(ctx context.Context, signedTx string) (txHash string, err error)
}

// GameRecorder receives completed-game aggregates for historical player
// stats. Recording is best-effort; failures never block completion.
type GameRecorder interface {
	RecordGame(ctx context.Context, identity string, score, round int) error
}
