package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newFakeAPI 启动一个最小的远端 API 替身，token "good" 视为有效会话。
func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch {
		case body.Password == "hunter2":
			json.NewEncoder(w).Encode(map[string]string{
				"token":   "good",
				"user_id": "uid-" + body.Username,
			})
		case body.Password == "checkpoint":
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "challenge_required"})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "bad_credentials"})
		}
	})

	mux.HandleFunc("GET /v1/auth/session", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "login_required"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /v1/account", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Profile{UserID: "uid-alice", Username: "alice"})
	})

	mux.HandleFunc("GET /v1/account/following", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string][]User{
			"users": {{UserID: "u1", Username: "bob"}},
		})
	})

	mux.HandleFunc("POST /v1/users/{id}/follow", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "throttled" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, baseURL string) Client {
	t.Helper()
	client, err := NewClient(Options{BaseURL: baseURL})
	if err != nil {
		t.Fatalf("NewClient 失败: %v", err)
	}
	return client
}

func TestLoginSuccessAndStateRoundTrip(t *testing.T) {
	server := newFakeAPI(t)
	client := newTestClient(t, server.URL)

	handle, err := client.Login(context.Background(), "alice", "hunter2")
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}
	if handle.Identity() != "alice" {
		t.Fatalf("identity 不匹配: %q", handle.Identity())
	}

	blob, err := handle.DumpState()
	if err != nil {
		t.Fatalf("导出状态失败: %v", err)
	}

	restored, err := client.LoadState(context.Background(), "alice", blob)
	if err != nil {
		t.Fatalf("恢复状态失败: %v", err)
	}
	if restored.Identity() != "alice" {
		t.Fatalf("恢复后 identity 不匹配: %q", restored.Identity())
	}
}

func TestLoginBadCredentials(t *testing.T) {
	server := newFakeAPI(t)
	client := newTestClient(t, server.URL)

	_, err := client.Login(context.Background(), "alice", "wrong")
	restriction, ok := AsRestriction(err)
	if !ok {
		t.Fatalf("应返回 RestrictionError, got %v", err)
	}
	if restriction.Reason != ReasonBadCredentials {
		t.Fatalf("reason 不匹配: %s", restriction.Reason)
	}
}

func TestLoginChallengeRequired(t *testing.T) {
	server := newFakeAPI(t)
	client := newTestClient(t, server.URL)

	_, err := client.Login(context.Background(), "alice", "checkpoint")
	restriction, ok := AsRestriction(err)
	if !ok || restriction.Reason != ReasonChallengeRequired {
		t.Fatalf("应返回 challenge_required, got %v", err)
	}
}

func TestLoadStateRejectsMalformedBlob(t *testing.T) {
	server := newFakeAPI(t)
	client := newTestClient(t, server.URL)

	_, err := client.LoadState(context.Background(), "alice", []byte("{broken"))
	if err == nil {
		t.Fatalf("损坏的 blob 应返回错误")
	}
	if _, ok := AsRestriction(err); ok {
		t.Fatalf("解码失败不应被归类为 restriction: %v", err)
	}
}

func TestLoadStateRejectsIdentityMismatch(t *testing.T) {
	server := newFakeAPI(t)
	client := newTestClient(t, server.URL)

	handle, err := client.Login(context.Background(), "alice", "hunter2")
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}
	blob, _ := handle.DumpState()

	if _, err := client.LoadState(context.Background(), "bob", blob); err == nil {
		t.Fatalf("identity 不匹配的 blob 应被拒绝")
	}
}

func TestLoadStateRevokedTokenIsRestriction(t *testing.T) {
	server := newFakeAPI(t)
	client := newTestClient(t, server.URL)

	blob, _ := json.Marshal(sessionState{
		Identity: "alice",
		UserID:   "uid-alice",
		Token:    "revoked",
	})
	_, err := client.LoadState(context.Background(), "alice", blob)
	restriction, ok := AsRestriction(err)
	if !ok || restriction.Reason != ReasonLoginRequired {
		t.Fatalf("吊销的 token 应返回 login_required, got %v", err)
	}
}

func TestFollowRateLimited(t *testing.T) {
	server := newFakeAPI(t)
	client := newTestClient(t, server.URL)

	handle, err := client.Login(context.Background(), "alice", "hunter2")
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}

	err = handle.Follow(context.Background(), "throttled")
	restriction, ok := AsRestriction(err)
	if !ok || restriction.Reason != ReasonRateLimited {
		t.Fatalf("429 应映射到 rate_limited, got %v", err)
	}
}

func TestPaceStaysInsideConfiguredRange(t *testing.T) {
	server := newFakeAPI(t)
	client, err := NewClient(Options{
		BaseURL:  server.URL,
		DelayMin: 20 * time.Millisecond,
		DelayMax: 40 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient 失败: %v", err)
	}

	started := time.Now()
	if _, err := client.Login(context.Background(), "alice", "hunter2"); err != nil {
		t.Fatalf("登录失败: %v", err)
	}
	if elapsed := time.Since(started); elapsed < 20*time.Millisecond {
		t.Fatalf("限速未生效, elapsed=%v", elapsed)
	}
}

func TestPaceHonorsContextCancel(t *testing.T) {
	server := newFakeAPI(t)
	client, err := NewClient(Options{
		BaseURL:  server.URL,
		DelayMin: time.Minute,
		DelayMax: 2 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewClient 失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := client.Login(ctx, "alice", "hunter2"); err == nil {
		t.Fatalf("取消的 context 应中断限速等待")
	}
}
