package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"paperdash/internal/dashboard"
	"paperdash/internal/logger"
	"paperdash/internal/pkg/circuit"

	"github.com/go-resty/resty/v2"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	breakerThreshold   = 3
	breakerCooldown    = 30 * time.Second
)

// Paths locates the two inputs. Each may be a file path or an http(s) URL.
type Paths struct {
	Decisions string
	Portfolio string
}

// Inputs is one retrieval of both sources, ready for dashboard.Compute.
type Inputs struct {
	Parse    dashboard.ParseResult
	Snapshot dashboard.Snapshot
	LoadedAt time.Time
}

// Loader reads the decision log and the portfolio snapshot.
type Loader struct {
	client *resty.Client

	mu       sync.Mutex
	breakers map[string]*circuit.Breaker
}

// NewLoader builds a loader whose remote requests time out after timeout (0 uses 15s).
func NewLoader(timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Cache-Control", "no-store")
	return &Loader{client: client, breakers: make(map[string]*circuit.Breaker)}
}

var defaultLoader = NewLoader(0)

// Load reads both inputs with the default loader.
func Load(ctx context.Context, p Paths) (Inputs, error) {
	return defaultLoader.Load(ctx, p)
}

// Load reads both inputs. A missing decision log yields no records; a missing or malformed
// snapshot fails with ErrSnapshotInvalid.
func (l *Loader) Load(ctx context.Context, p Paths) (Inputs, error) {
	text, err := l.read(ctx, p.Decisions)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Debugf("decision log %s not found, starting empty", p.Decisions)
		text = nil
	case err != nil:
		return Inputs{}, fmt.Errorf("read decision log: %w", err)
	}

	raw, err := l.read(ctx, p.Portfolio)
	if err != nil {
		return Inputs{}, fmt.Errorf("%w: read %s: %w", ErrSnapshotInvalid, p.Portfolio, err)
	}
	if err := ValidateSnapshot(raw); err != nil {
		return Inputs{}, err
	}
	snap, err := dashboard.ParseSnapshot(raw)
	if err != nil {
		return Inputs{}, fmt.Errorf("%w: %w", ErrSnapshotInvalid, err)
	}

	return Inputs{
		Parse:    dashboard.ParseLines(string(text)),
		Snapshot: snap,
		LoadedAt: time.Now().UTC(),
	}, nil
}

func (l *Loader) read(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("empty source location")
	}
	if isRemote(location) {
		var body []byte
		err := l.breaker(location).Do(func() error {
			var err error
			body, err = l.fetch(ctx, location)
			return err
		}, expectedFetchError)
		if errors.Is(err, circuit.ErrOpen) {
			return nil, fmt.Errorf("fetch %s skipped after repeated failures: %w", location, err)
		}
		return body, err
	}
	return os.ReadFile(location)
}

// fetch downloads location, bypassing intermediate caches. 404 maps to fs.ErrNotExist.
func (l *Loader) fetch(ctx context.Context, location string) ([]byte, error) {
	resp, err := l.client.R().
		SetContext(ctx).
		SetQueryParam("t", strconv.FormatInt(time.Now().UnixMilli(), 10)).
		Get(location)
	if err != nil {
		return nil, fmt.Errorf("fetch %s failed: %w", location, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("fetch %s: %w", location, fs.ErrNotExist)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s: HTTP %d", location, resp.StatusCode())
	}
	return resp.Body(), nil
}

// breaker returns the circuit breaker guarding one remote location.
func (l *Loader) breaker(location string) *circuit.Breaker {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.breakers[location]
	if !ok {
		b = circuit.New(location, breakerThreshold, breakerCooldown)
		l.breakers[location] = b
	}
	return b
}

// expectedFetchError reports failures that say nothing about the remote's health.
func expectedFetchError(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, context.Canceled)
}

func isRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
