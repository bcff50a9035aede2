package verifier_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Blockchain-Gods/block-nonce-minigame/internal/verifier"
)

func TestRegisterSecret(t *testing.T) {
	var gotSecret int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/set-secret" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var in struct {
			Secret int `json:"secret"`
		}
		json.NewDecoder(r.Body).Decode(&in)
		gotSecret = in.Secret
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	c := verifier.New(srv.URL)
	if err := c.RegisterSecret(context.Background(), 7); err != nil {
		t.Fatalf("register secret: %v", err)
	}
	if gotSecret != 7 {
		t.Errorf("secret = %d, want 7", gotSecret)
	}
}

func TestRegisterSecretRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "circuit busy"})
	}))
	defer srv.Close()

	err := verifier.New(srv.URL).RegisterSecret(context.Background(), 7)
	if err == nil || !strings.Contains(err.Error(), "circuit busy") {
		t.Errorf("register = %v, want rejection with gateway message", err)
	}
}

func TestVerifyLocal(t *testing.T) {
	tests := []struct {
		name    string
		success bool
	}{
		{"accepted", true},
		{"rejected", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/verify" {
					t.Errorf("path = %s", r.URL.Path)
				}
				json.NewEncoder(w).Encode(map[string]any{"success": tt.success})
			}))
			defer srv.Close()

			ok, err := verifier.New(srv.URL).VerifyLocal(context.Background(), 5)
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if ok != tt.success {
				t.Errorf("ok = %v, want %v", ok, tt.success)
			}
		})
	}
}

func TestVerifyFull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verify-full" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success":         true,
			"onChainVerified": true,
			"proofData":       map[string]any{"pi_a": []int{1, 2}},
		})
	}))
	defer srv.Close()

	fv, err := verifier.New(srv.URL).VerifyFull(context.Background(), 5)
	if err != nil {
		t.Fatalf("verify full: %v", err)
	}
	if !fv.Success || !fv.OnChainVerified {
		t.Errorf("result = %+v", fv)
	}
	if !strings.Contains(string(fv.ProofData), "pi_a") {
		t.Errorf("proof data = %s", fv.ProofData)
	}
}

func TestGatewayServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "proof service exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := verifier.New(srv.URL).VerifyLocal(context.Background(), 5); err == nil {
		t.Error("expected error on 502 response")
	}
}

func TestLedgerSubmitRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JSONRPC string `json:"jsonrpc"`
			Method  string `json:"method"`
			Params  []any  `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.JSONRPC != "2.0" || req.Method != "eth_sendRawTransaction" {
			t.Errorf("request = %+v", req)
		}
		if len(req.Params) != 1 || req.Params[0] != "0xsigned" {
			t.Errorf("params = %v", req.Params)
		}
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": "0xdeadbeef"})
	}))
	defer srv.Close()

	hash, err := verifier.NewLedger(srv.URL).SubmitRaw(context.Background(), "0xsigned")
	if err != nil {
		t.Fatalf("submit raw: %v", err)
	}
	if hash != "0xdeadbeef" {
		t.Errorf("hash = %q", hash)
	}
}

func TestLedgerSubmitResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Method != "game_submitResult" {
			t.Errorf("method = %s", req.Method)
		}
		var p struct {
			GameID    string `json:"gameId"`
			BugsFound int    `json:"bugsFound"`
		}
		json.Unmarshal(req.Params[0], &p)
		if p.GameID != "g1" || p.BugsFound != 6 {
			t.Errorf("params = %+v", p)
		}
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": "0xtx"})
	}))
	defer srv.Close()

	hash, err := verifier.NewLedger(srv.URL).SubmitResult(context.Background(), "g1", 6, []byte(`{"pi":[1]}`))
	if err != nil {
		t.Fatalf("submit result: %v", err)
	}
	if hash != "0xtx" {
		t.Errorf("hash = %q", hash)
	}
}

func TestLedgerRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": 1,
			"error": map[string]any{"code": -32000, "message": "nonce too low"},
		})
	}))
	defer srv.Close()

	_, err := verifier.NewLedger(srv.URL).SubmitRaw(context.Background(), "0xsigned")
	if err == nil || !strings.Contains(err.Error(), "nonce too low") {
		t.Errorf("rpc error = %v", err)
	}
}
