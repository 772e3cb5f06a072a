// Package rpcpool centralizes JSON-RPC endpoint access for one network:
// an ordered endpoint list with rotation on failure, and read retries across
// endpoints. Retry applies to reads only; a state-mutating transaction is
// never resubmitted here.
package rpcpool

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	ErrNoEndpoints        = errors.New("rpcpool: no endpoints configured")
	ErrAllEndpointsFailed = errors.New("rpcpool: all endpoints failed")
)

type Pool struct {
	urls []string

	mu      sync.Mutex
	start   int
	clients map[string]*ethclient.Client

	dial func(ctx context.Context, url string) (*ethclient.Client, error)
}

func New(urls []string) (*Pool, error) {
	clean := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u != "" {
			clean = append(clean, u)
		}
	}
	if len(clean) == 0 {
		return nil, ErrNoEndpoints
	}
	return &Pool{
		urls:    clean,
		clients: make(map[string]*ethclient.Client, len(clean)),
		dial:    ethclient.DialContext,
	}, nil
}

// Client returns a client for the currently preferred endpoint. Writes go
// through this client exactly once; only Do rotates.
func (p *Pool) Client(ctx context.Context) (*ethclient.Client, error) {
	p.mu.Lock()
	u := p.urls[p.start]
	p.mu.Unlock()
	return p.clientFor(ctx, u)
}

// Do runs a read against the preferred endpoint and retries transient
// failures on each remaining endpoint in rotation order. The first endpoint
// that succeeds becomes the new preferred endpoint.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context, c *ethclient.Client) error) error {
	p.mu.Lock()
	start := p.start
	n := len(p.urls)
	p.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < n; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		i := (start + attempt) % n
		c, err := p.clientFor(ctx, p.urls[i])
		if err != nil {
			lastErr = err
			continue
		}
		err = fn(ctx, c)
		if err == nil {
			p.mu.Lock()
			p.start = i
			p.mu.Unlock()
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrAllEndpointsFailed, lastErr)
}

func (p *Pool) clientFor(ctx context.Context, u string) (*ethclient.Client, error) {
	p.mu.Lock()
	c, ok := p.clients[u]
	p.mu.Unlock()
	if ok {
		return c, nil
	}
	c, err := p.dial(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("rpcpool: dial %s: %w", u, err)
	}
	p.mu.Lock()
	if existing, ok := p.clients[u]; ok {
		p.mu.Unlock()
		c.Close()
		return existing, nil
	}
	p.clients[u] = c
	p.mu.Unlock()
	return c, nil
}

func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.clients {
		c.Close()
	}
	p.clients = map[string]*ethclient.Client{}
}

// IsTransient classifies errors worth retrying on another endpoint:
// connection failures, timeouts, and rate-limit/server-side HTTP statuses.
// Contract reverts and malformed-request errors are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "connection reset", "timeout", "temporarily unavailable", "eof"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
