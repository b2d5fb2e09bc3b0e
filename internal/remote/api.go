package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Options configures the HTTP-backed API client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client

	// DelayMin/DelayMax bound the randomized pause inserted before every
	// remote call to stay under the API's throttling radar.
	DelayMin time.Duration
	DelayMax time.Duration
}

// NewClient builds the production Client over the remote HTTP API.
func NewClient(opts Options) (Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid remote base URL: %q", opts.BaseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	return &apiClient{
		baseURL:    strings.TrimRight(base.String(), "/"),
		httpClient: httpClient,
		delayMin:   opts.DelayMin,
		delayMax:   opts.DelayMax,
	}, nil
}

type apiClient struct {
	baseURL    string
	httpClient *http.Client
	delayMin   time.Duration
	delayMax   time.Duration
}

// sessionState is the persisted form of a handle. Only this package reads or
// writes it; everyone else moves it around as opaque bytes.
type sessionState struct {
	Identity string    `json:"identity"`
	UserID   string    `json:"user_id"`
	Token    string    `json:"token"`
	DeviceID string    `json:"device_id"`
	IssuedAt time.Time `json:"issued_at"`
}

func (c *apiClient) Login(ctx context.Context, identity, password string) (Handle, error) {
	handle := &apiHandle{
		client: c,
		state: sessionState{
			Identity: identity,
			DeviceID: uuid.NewString(),
		},
	}

	payload := map[string]string{
		"username":  identity,
		"password":  password,
		"device_id": handle.state.DeviceID,
	}
	var result struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	if err := handle.do(ctx, http.MethodPost, "/v1/auth/login", payload, &result); err != nil {
		return nil, err
	}
	if result.Token == "" || result.UserID == "" {
		return nil, fmt.Errorf("login response missing token or user id")
	}

	handle.state.Token = result.Token
	handle.state.UserID = result.UserID
	handle.state.IssuedAt = time.Now().UTC()
	return handle, nil
}

func (c *apiClient) LoadState(ctx context.Context, identity string, blob []byte) (Handle, error) {
	var state sessionState
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	if state.Identity != identity {
		return nil, fmt.Errorf("session state belongs to %q, not %q", state.Identity, identity)
	}
	if state.Token == "" || state.UserID == "" {
		return nil, fmt.Errorf("session state incomplete")
	}

	handle := &apiHandle{client: c, state: state}

	// Revalidate against the API so a revoked token fails here instead of on
	// the first real operation. Restriction errors pass through unchanged.
	if err := handle.do(ctx, http.MethodGet, "/v1/auth/session", nil, nil); err != nil {
		return nil, err
	}
	return handle, nil
}

type apiHandle struct {
	client *apiClient
	state  sessionState
}

func (h *apiHandle) Identity() string {
	return h.state.Identity
}

func (h *apiHandle) DumpState() ([]byte, error) {
	blob, err := json.Marshal(h.state)
	if err != nil {
		return nil, fmt.Errorf("encode session state: %w", err)
	}
	return blob, nil
}

func (h *apiHandle) AccountInfo(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := h.do(ctx, http.MethodGet, "/v1/account", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (h *apiHandle) Followings(ctx context.Context) ([]User, error) {
	var result struct {
		Users []User `json:"users"`
	}
	if err := h.do(ctx, http.MethodGet, "/v1/account/following", nil, &result); err != nil {
		return nil, err
	}
	return result.Users, nil
}

func (h *apiHandle) Follow(ctx context.Context, userID string) error {
	path := "/v1/users/" + url.PathEscape(userID) + "/follow"
	return h.do(ctx, http.MethodPost, path, nil, nil)
}

func (h *apiHandle) Collections(ctx context.Context) ([]Collection, error) {
	var result struct {
		Collections []Collection `json:"collections"`
	}
	if err := h.do(ctx, http.MethodGet, "/v1/collections", nil, &result); err != nil {
		return nil, err
	}
	return result.Collections, nil
}

func (h *apiHandle) CollectionMedia(ctx context.Context, collectionID string) ([]Media, error) {
	path := "/v1/collections/" + url.PathEscape(collectionID) + "/media"
	var result struct {
		Media []Media `json:"media"`
	}
	if err := h.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Media, nil
}

func (h *apiHandle) SaveMedia(ctx context.Context, mediaID, collectionID string) error {
	path := "/v1/media/" + url.PathEscape(mediaID) + "/save"
	payload := map[string]string{"collection_id": collectionID}
	return h.do(ctx, http.MethodPost, path, payload, nil)
}

// do paces, sends and decodes one API call. out may be nil when the caller
// only needs the status check.
func (h *apiHandle) do(ctx context.Context, method, path string, payload, out any) error {
	if err := h.pace(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.client.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.state.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.state.Token)
	}
	if h.state.DeviceID != "" {
		req.Header.Set("X-Device-ID", h.state.DeviceID)
	}

	resp, err := h.client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote api call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response of %s %s: %w", method, path, err)
	}
	return nil
}

// pace blocks for a random duration inside [DelayMin, DelayMax], honoring
// context cancellation. Zero range means no pacing (tests rely on that).
func (h *apiHandle) pace(ctx context.Context) error {
	delay := h.client.delayMin
	if span := h.client.delayMax - h.client.delayMin; span > 0 {
		delay += rand.N(span)
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// decodeAPIError turns a non-2xx response into either a RestrictionError
// (when the body carries a known code) or a generic error.
func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	_ = json.Unmarshal(raw, &payload)

	if reason, ok := reasonFromCode(payload.Error); ok {
		return &RestrictionError{Reason: reason, Message: payload.Message}
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return &RestrictionError{Reason: ReasonRateLimited, Message: payload.Message}
	case http.StatusUnauthorized:
		return &RestrictionError{Reason: ReasonLoginRequired, Message: payload.Message}
	}

	return fmt.Errorf("remote api: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
