package remote

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Client opens authenticated handles against the remote account API, either
// from fresh credentials or from a previously dumped state blob. The blob is
// opaque to every other package; only this package knows its layout.
type Client interface {
	Login(ctx context.Context, identity, password string) (Handle, error)
	LoadState(ctx context.Context, identity string, blob []byte) (Handle, error)
}

// Handle is a live authenticated session for exactly one identity. Handles
// are not safe for concurrent use; the pool serializes access per identity.
type Handle interface {
	Identity() string
	DumpState() ([]byte, error)

	AccountInfo(ctx context.Context) (*Profile, error)
	Followings(ctx context.Context) ([]User, error)
	Follow(ctx context.Context, userID string) error
	Collections(ctx context.Context) ([]Collection, error)
	CollectionMedia(ctx context.Context, collectionID string) ([]Media, error)
	SaveMedia(ctx context.Context, mediaID, collectionID string) error
}

// Shared HTTP transport tunings，复用长连接并集中配置超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// NewHTTPClient 返回共享调优参数的 http.Client，远端 API 与资源回源共用。
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: defaultTransport.Clone(),
	}
}
