package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Blockchain-Gods/block-nonce-minigame/internal/database"
	"github.com/Blockchain-Gods/block-nonce-minigame/internal/game"
	"github.com/Blockchain-Gods/block-nonce-minigame/internal/migrations"
	"github.com/Blockchain-Gods/block-nonce-minigame/internal/stats"
)

type stubVerifier struct{}

func (stubVerifier) RegisterSecret(ctx context.Context, count int) error { return nil }
func (stubVerifier) VerifyLocal(ctx context.Context, claimed int) (bool, error) {
	return true, nil
}
func (stubVerifier) VerifyFull(ctx context.Context, claimed int) (game.FullVerification, error) {
	return game.FullVerification{Success: true, OnChainVerified: true}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	players := stats.NewStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := game.NewEngine(game.EngineConfig{
		Store:    game.NewMemoryStore(),
		Verifier: stubVerifier{},
		Recorder: players,
		Logger:   logger,
	})
	t.Cleanup(engine.Close)

	r := chi.NewRouter()
	addRoutes(r, logger, engine, players, db, nil, "")

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("encoding body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestGameFlow(t *testing.T) {
	srv := newTestServer(t)
	const addr = "guest_flow"

	// Create.
	resp := postJSON(t, srv.URL+"/api/games", CreateGameRequest{Address: addr})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	created := decodeBody[CreateGameResponse](t, resp)
	if created.GameID == "" {
		t.Fatal("empty game id")
	}
	gameURL := srv.URL + "/api/games/" + created.GameID

	// Duplicate create points at the existing session.
	resp = postJSON(t, srv.URL+"/api/games", CreateGameRequest{Address: addr})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate create status = %d", resp.StatusCode)
	}
	dup := decodeBody[ActiveGameResponse](t, resp)
	if dup.GameID != created.GameID {
		t.Errorf("duplicate gameId = %q, want %q", dup.GameID, created.GameID)
	}

	// Active-game probe.
	resp, err := http.Get(srv.URL + "/api/players/" + addr + "/active")
	if err != nil {
		t.Fatalf("active probe: %v", err)
	}
	probe := decodeBody[ActiveGameProbe](t, resp)
	if !probe.HasActiveGame || probe.GameID != created.GameID {
		t.Errorf("probe = %+v", probe)
	}

	// Start level.
	resp = postJSON(t, gameURL+"/level/start", AddressRequest{Address: addr})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	start := decodeBody[game.LevelStart](t, resp)
	if start.GridSize != 8 || len(start.Bugs) == 0 {
		t.Fatalf("level start = %+v", start)
	}

	// Click every bug.
	for _, b := range start.Bugs {
		resp = postJSON(t, gameURL+"/click", ClickRequest{X: b.X, Y: b.Y, Address: addr})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("click status = %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	// State snapshot reflects the clicks.
	resp, err = http.Get(gameURL + "/state?address=" + addr)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	snap := decodeBody[game.Snapshot](t, resp)
	if snap.State != game.StateLevelStarted || len(snap.ClickedCells) != len(start.Bugs) {
		t.Errorf("snapshot = state %s, %d clicks", snap.State, len(snap.ClickedCells))
	}

	// End level.
	resp = postJSON(t, gameURL+"/level/end", struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("end level status = %d", resp.StatusCode)
	}
	ended := decodeBody[EndLevelResponse](t, resp)
	if !ended.Success || ended.Outcome.Result.BugsFound != len(start.Bugs) {
		t.Errorf("end level = %+v", ended)
	}
	if ended.Outcome.Result.Score <= 0 {
		t.Errorf("score = %d", ended.Outcome.Result.Score)
	}

	// Settle.
	resp = postJSON(t, gameURL+"/end", struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("end game status = %d", resp.StatusCode)
	}
	final := decodeBody[EndGameResponse](t, resp)
	if !final.Result.ProofVerified {
		t.Errorf("final result = %+v", final.Result)
	}

	// Result is retrievable afterwards.
	resp, err = http.Get(gameURL + "/result")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	got := decodeBody[game.GameResult](t, resp)
	if !got.ProofVerified {
		t.Errorf("persisted result = %+v", got)
	}
}

func TestStateConflictContract(t *testing.T) {
	srv := newTestServer(t)
	const addr = "guest_conflict"

	created := decodeBody[CreateGameResponse](t, postJSON(t, srv.URL+"/api/games", CreateGameRequest{Address: addr}))

	// Clicking before any level starts violates the state machine.
	resp := postJSON(t, srv.URL+"/api/games/"+created.GameID+"/click",
		ClickRequest{X: 0, Y: 0, Address: addr})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	body := decodeBody[StateErrorResponse](t, resp)
	if body.CurrentState != game.StateCreated {
		t.Errorf("currentState = %s", body.CurrentState)
	}
	if len(body.ExpectedStates) != 1 || body.ExpectedStates[0] != game.StateLevelStarted {
		t.Errorf("expectedStates = %v", body.ExpectedStates)
	}
	if len(body.ValidActions) != 1 || body.ValidActions[0] != game.ActionStartLevel {
		t.Errorf("validActions = %v", body.ValidActions)
	}
}

func TestCreateGameValidation(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/games", CreateGameRequest{Address: "  "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank address status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGameStateAuthorization(t *testing.T) {
	srv := newTestServer(t)

	created := decodeBody[CreateGameResponse](t, postJSON(t, srv.URL+"/api/games", CreateGameRequest{Address: "0xowner"}))

	resp, err := http.Get(srv.URL + "/api/games/" + created.GameID + "/state?address=0xother")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("foreign read status = %d, want 403", resp.StatusCode)
	}
}

func TestGameNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/games/nope/state?address=0xabc")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestTransactionWithoutLedger(t *testing.T) {
	srv := newTestServer(t)
	const addr = "guest_tx"

	created := decodeBody[CreateGameResponse](t, postJSON(t, srv.URL+"/api/games", CreateGameRequest{Address: addr}))
	gameURL := srv.URL + "/api/games/" + created.GameID

	postJSON(t, gameURL+"/level/start", AddressRequest{Address: addr}).Body.Close()
	postJSON(t, gameURL+"/level/end", struct{}{}).Body.Close()

	resp := postJSON(t, gameURL+"/transaction", TransactionRequest{Address: addr, SignedTx: "0xsigned"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestValidActionsLookup(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/actions/" + string(game.StateLevelEnded))
	if err != nil {
		t.Fatalf("get actions: %v", err)
	}
	body := decodeBody[ValidActionsResponse](t, resp)
	want := fmt.Sprintf("%v", []game.Action{game.ActionStartLevel, game.ActionEndGame, game.ActionEndGameFull})
	if got := fmt.Sprintf("%v", body.ValidActions); got != want {
		t.Errorf("validActions = %s, want %s", got, want)
	}

	resp, err = http.Get(srv.URL + "/api/actions/BOGUS")
	if err != nil {
		t.Fatalf("get actions: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown state status = %d, want 404", resp.StatusCode)
	}
}
