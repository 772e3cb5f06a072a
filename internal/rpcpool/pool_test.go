package rpcpool

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

func TestNewRejectsEmptyEndpointList(t *testing.T) {
	t.Parallel()

	for _, urls := range [][]string{nil, {}, {"", "   "}} {
		if _, err := New(urls); !errors.Is(err, ErrNoEndpoints) {
			t.Fatalf("New(%v): expected ErrNoEndpoints, got %v", urls, err)
		}
	}

	p, err := New([]string{"  https://rpc-a.example.org ", "", "https://rpc-b.example.org"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(p.urls) != 2 || p.urls[0] != "https://rpc-a.example.org" {
		t.Fatalf("endpoint list not cleaned: %v", p.urls)
	}
}

// fakePool wires an in-memory dialer so Do exercises rotation without any
// network. Each endpoint gets a distinct client; byClient maps it back.
func fakePool(t *testing.T, urls ...string) (*Pool, map[*ethclient.Client]string) {
	t.Helper()
	p, err := New(urls)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	byClient := make(map[*ethclient.Client]string, len(urls))
	p.dial = func(_ context.Context, u string) (*ethclient.Client, error) {
		c := new(ethclient.Client)
		byClient[c] = u
		return c, nil
	}
	return p, byClient
}

func TestDoRotatesOnTransientFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p, byClient := fakePool(t, "url-a", "url-b", "url-c")

	var visited []string
	err := p.Do(ctx, func(_ context.Context, c *ethclient.Client) error {
		u := byClient[c]
		visited = append(visited, u)
		if u != "url-c" {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(visited) != 3 || visited[2] != "url-c" {
		t.Fatalf("unexpected rotation order: %v", visited)
	}

	// The endpoint that served is now preferred.
	visited = nil
	err = p.Do(ctx, func(_ context.Context, c *ethclient.Client) error {
		visited = append(visited, byClient[c])
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(visited) != 1 || visited[0] != "url-c" {
		t.Fatalf("preferred endpoint not sticky: %v", visited)
	}
}

func TestDoStopsOnNonTransientError(t *testing.T) {
	t.Parallel()

	p, _ := fakePool(t, "url-a", "url-b")

	revert := errors.New("execution reverted: too late to challenge")
	calls := 0
	err := p.Do(context.Background(), func(context.Context, *ethclient.Client) error {
		calls++
		return revert
	})
	if !errors.Is(err, revert) {
		t.Fatalf("expected the revert back, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("non-transient error must not rotate, got %d calls", calls)
	}
}

func TestDoAllEndpointsFailed(t *testing.T) {
	t.Parallel()

	p, _ := fakePool(t, "url-a", "url-b")

	err := p.Do(context.Background(), func(context.Context, *ethclient.Client) error {
		return errors.New("connection reset by peer")
	})
	if !errors.Is(err, ErrAllEndpointsFailed) {
		t.Fatalf("expected ErrAllEndpointsFailed, got %v", err)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	p, _ := fakePool(t, "url-a", "url-b")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Do(ctx, func(context.Context, *ethclient.Client) error {
		t.Fatalf("fn must not run after cancellation")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDoReusesDialedClients(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p, err := New([]string{"url-a"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dials := 0
	p.dial = func(context.Context, string) (*ethclient.Client, error) {
		dials++
		return new(ethclient.Client), nil
	}

	for i := 0; i < 3; i++ {
		if err := p.Do(ctx, func(context.Context, *ethclient.Client) error { return nil }); err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	if dials != 1 {
		t.Fatalf("expected one dial, got %d", dials)
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: false},
		{name: "net error", err: &net.DNSError{IsTimeout: true}, want: true},
		{name: "url error", err: &url.Error{Op: "Post", URL: "https://rpc.example.org", Err: errors.New("broken pipe")}, want: true},
		{name: "http 429", err: rpc.HTTPError{StatusCode: 429}, want: true},
		{name: "http 503", err: rpc.HTTPError{StatusCode: 503}, want: true},
		{name: "http 400", err: rpc.HTTPError{StatusCode: 400}, want: false},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "eof", err: errors.New("unexpected EOF"), want: true},
		{name: "revert", err: errors.New("execution reverted: no such claim"), want: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient(%v) = %t, want %t", tc.err, got, tc.want)
			}
		})
	}
}
