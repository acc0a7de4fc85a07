package client

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/relayctl/internal/protocol"
	"github.com/danmuck/relayctl/internal/relay"
	"github.com/danmuck/relayctl/internal/session"
)

// Config carries everything one Client needs; zero values fall back to the
// package defaults.
type Config struct {
	Session  session.Config
	Retry    RetryPolicy
	Validate ValidateOptions
}

// Client issues relay fetches. Safe for concurrent use; every call dials its
// own session.
type Client struct {
	cfg           Config
	rngMu         sync.Mutex
	rng           *rand.Rand
	nextMessageID atomic.Uint64
}

func New(cfg Config) *Client {
	cfg.Session = cfg.Session.WithDefaults()
	cfg.Retry = cfg.Retry.withDefaults()
	c := &Client{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	c.nextMessageID.Store(uint64(time.Now().UnixNano()))
	return c
}

// Index fetches and validates the record set a relay holds for fqdn. One
// session per call, closed on every exit path.
func (c *Client) Index(ctx context.Context, addr relay.Address, fqdn relay.FQDN) ([]relay.Record, error) {
	s, err := session.Dial(ctx, addr, c.cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", fqdn, err)
	}
	defer s.Close()

	resp, err := c.Fetch(ctx, s, fqdn, relay.OpIndex, c.cfg.Retry)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", fqdn, err)
	}

	valid, err := Validate(resp, fqdn, c.cfg.Validate)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", fqdn, err)
	}
	log.Debug().Str("fqdn", fqdn.String()).Int("records", len(valid.Records)).Msg("index fetched")
	return valid.Records, nil
}

// Fetch runs the request engine once per attempt until the policy gives up.
// The operation is a pure read on the relay, so re-sending it is safe.
func (c *Client) Fetch(ctx context.Context, s *session.Session, fqdn relay.FQDN, op relay.Operation, policy RetryPolicy) (relay.Response, error) {
	policy = policy.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleepBackoff(ctx, policy.Backoff, attempt-1); err != nil {
				return relay.Response{}, err
			}
		}
		resp, err := c.fetchOnce(ctx, s, fqdn, op)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		log.Warn().Err(err).Str("fqdn", fqdn.String()).Int("attempt", attempt).Msg("fetch attempt failed")
		if !policy.RetryOn(err) || s.Fatal() {
			return relay.Response{}, err
		}
	}
	return relay.Response{}, &RetriesExhaustedError{Attempts: policy.MaxAttempts, Cause: lastErr}
}

func (c *Client) fetchOnce(ctx context.Context, s *session.Session, fqdn relay.FQDN, op relay.Operation) (relay.Response, error) {
	id := c.nextMessageID.Add(1)
	req, err := protocol.EncodeRequest(id, op, fqdn)
	if err != nil {
		return relay.Response{}, err
	}
	f, err := s.SendReceive(ctx, req)
	if err != nil {
		return relay.Response{}, err
	}
	resp, err := protocol.DecodeResponseFrame(f)
	if err != nil {
		return relay.Response{}, err
	}
	if resp.MessageID != id {
		return relay.Response{}, fmt.Errorf("%w: got=%d want=%d", ErrCorrelation, resp.MessageID, id)
	}
	return resp, nil
}

func (c *Client) sleepBackoff(ctx context.Context, cfg session.BackoffConfig, attempt int) error {
	// rand.Rand is not safe for concurrent use; concurrent fetches share it.
	c.rngMu.Lock()
	delay := session.NextBackoffDelay(cfg, attempt, c.rng)
	c.rngMu.Unlock()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
