package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Ledger submits settlement transactions over JSON-RPC 2.0. It implements
// game.LedgerSubmitter.
type Ledger struct {
	rpcURL string
	http   *http.Client
	nextID atomic.Int64
}

func NewLedger(rpcURL string) *Ledger {
	return &Ledger{
		rpcURL: rpcURL,
		http:   &http.Client{Timeout: 60 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// SubmitResult records a verified game result on chain and returns the
// transaction hash.
func (l *Ledger) SubmitResult(ctx context.Context, sessionID string, bugsFound int, proof []byte) (string, error) {
	params := map[string]any{
		"gameId":    sessionID,
		"bugsFound": bugsFound,
		"proof":     json.RawMessage(proof),
	}
	return l.call(ctx, "game_submitResult", []any{params})
}

// SubmitRaw relays a client-signed transaction.
func (l *Ledger) SubmitRaw(ctx context.Context, signedTx string) (string, error) {
	return l.call(ctx, "eth_sendRawTransaction", []any{signedTx})
}

func (l *Ledger) call(ctx context.Context, method string, params []any) (string, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      l.nextID.Add(1),
	})
	if err != nil {
		return "", fmt.Errorf("encoding rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned %d", method, resp.StatusCode)
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding rpc response: %w", err)
	}
	if out.Error != nil {
		return "", out.Error
	}

	var hash string
	if err := json.Unmarshal(out.Result, &hash); err != nil {
		return "", fmt.Errorf("decoding tx hash: %w", err)
	}
	return hash, nil
}
