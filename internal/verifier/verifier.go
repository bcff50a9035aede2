// Package verifier talks to the external proof gateway and the chain RPC
// endpoint. Both clients are thin HTTP wrappers; all policy (guest bypass,
// when to call which verification) lives in the game engine.
package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Blockchain-Gods/block-nonce-minigame/internal/game"
)

// Client is the verification-gateway HTTP client. It implements
// game.Verifier.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// RegisterSecret arms the gateway with the level's hidden bug count.
func (c *Client) RegisterSecret(ctx context.Context, count int) error {
	var out struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := c.post(ctx, "/set-secret", map[string]int{"secret": count}, &out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("gateway rejected secret: %s", out.Error)
	}
	return nil
}

// VerifyLocal checks the claimed count against the registered secret
// without touching the chain.
func (c *Client) VerifyLocal(ctx context.Context, claimed int) (bool, error) {
	var out struct {
		Success bool `json:"success"`
	}
	if err := c.post(ctx, "/verify", map[string]int{"guess": claimed}, &out); err != nil {
		return false, err
	}
	return out.Success, nil
}

// VerifyFull runs the proof pipeline including on-chain verification and
// returns the proof material for later settlement.
func (c *Client) VerifyFull(ctx context.Context, claimed int) (game.FullVerification, error) {
	var out struct {
		Success         bool            `json:"success"`
		OnChainVerified bool            `json:"onChainVerified"`
		ProofData       json.RawMessage `json:"proofData"`
	}
	if err := c.post(ctx, "/verify-full", map[string]int{"guess": claimed}, &out); err != nil {
		return game.FullVerification{}, err
	}
	return game.FullVerification{
		Success:         out.Success,
		OnChainVerified: out.OnChainVerified,
		ProofData:       []byte(out.ProofData),
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling gateway %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway %s returned %d: %s", path, resp.StatusCode, snippet)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding gateway response: %w", err)
	}
	return nil
}
