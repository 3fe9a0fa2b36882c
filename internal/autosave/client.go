// Package autosave implements the client side of the draft-persistence
// protocol: load the draft on start, then push the full in-memory form state
// on a fixed timer and on every step advance.
package autosave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dapperAuteur/my-health-blueprint/internal/model"
)

// Client talks to the blueprint HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the stored draft for the owner. Returns nil (no error) when
// the owner has never saved, so the caller starts from a fresh default state.
func (c *Client) Load(ctx context.Context, userID string) (*model.Blueprint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health-blueprint/"+userID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load blueprint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("load blueprint: status %d", resp.StatusCode)
	}

	var b model.Blueprint
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode blueprint: %w", err)
	}
	return &b, nil
}

// Save pushes the full current form state and returns the stored record.
func (c *Client) Save(ctx context.Context, in *model.BlueprintInput) (*model.Blueprint, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal blueprint: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/health-blueprint", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("save blueprint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("save blueprint: status %d: %s", resp.StatusCode, msg)
	}

	var b model.Blueprint
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode blueprint: %w", err)
	}
	return &b, nil
}

// DefaultInterval is the autosave period between forced saves.
const DefaultInterval = 30 * time.Second

// Snapshot returns the current in-memory form state, or nil when there is
// nothing to save yet.
type Snapshot func() *model.BlueprintInput

// Runner drives periodic autosaves. Saves run in their own goroutines and
// are never cancelled once started; a save in flight when the next one fires
// is allowed to finish, and out-of-order completion is tolerated (the server
// applies whole-document last-write-wins anyway).
type Runner struct {
	client   *Client
	snapshot Snapshot
	interval time.Duration
	logger   *slog.Logger

	mu          sync.Mutex
	lastSavedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRunner(client *Client, snapshot Snapshot, interval time.Duration, logger *slog.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Runner{
		client:   client,
		snapshot: snapshot,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the autosave loop. The first save fires after one interval.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				go r.save()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Flush triggers an immediate save, called on every step advance. It does
// not block form interaction: the save runs in the background.
func (r *Runner) Flush() {
	go r.save()
}

// Stop ends the autosave loop. In-flight saves run to completion.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

// LastSavedAt reports the newest server-acknowledged save time.
func (r *Runner) LastSavedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSavedAt
}

func (r *Runner) save() {
	in := r.snapshot()
	if in == nil {
		return
	}

	b, err := r.client.Save(context.Background(), in)
	if err != nil {
		r.logger.Warn("autosave failed", "error", err)
		return
	}

	r.mu.Lock()
	// Completions may arrive out of order; keep the newest timestamp
	if b.LastSavedAt.After(r.lastSavedAt) {
		r.lastSavedAt = b.LastSavedAt
	}
	r.mu.Unlock()
}
