// Package client wraps the agent's HTTP calls to the control plane —
// register, heartbeat, and assignments-pull — the way the teacher's
// connection manager wraps its gRPC stub, but here each call is wrapped in
// an independent retry policy instead of a long-lived stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

// ErrNotFound is returned by Heartbeat and GetAssignments when the control
// plane responds agent_not_found — the caller's cue to re-register.
var ErrNotFound = fmt.Errorf("client: agent not found")

// Client calls the control plane's agent-facing endpoints. One Client is
// shared across the agent's whole lifetime; http.Client pools connections
// across calls the same way a teacher HTTP destination would.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client against baseURL with the fixed 5s per-call timeout
// the reconciler contract specifies.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// retryPolicy builds the control-plane call retry policy: base=0.25s,
// cap=5s, multiplicative jitter ±10%, max 5 attempts. This intentionally
// does not reuse backoff/v4's default curve (InitialInterval=500ms,
// Multiplier=1.5, RandomizationFactor=0.5) — every field below is set
// explicitly to mirror the contract's exact formula.
func retryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.1
	b.MaxElapsedTime = 0 // bounded by WithMaxRetries below, not wall time
	return backoff.WithMaxRetries(b, 4)
}

// doWithRetry runs op under the control-plane retry policy. op must
// return a permanent error (wrapped with backoff.Permanent) for any
// response that retrying cannot fix — e.g. a 404 agent_not_found.
func (c *Client) doWithRetry(ctx context.Context, op func() error) error {
	return backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return op()
	}, backoff.WithContext(retryPolicy(), ctx))
}

type registerRequest struct {
	AgentID      string   `json:"agent_id"`
	Region       string   `json:"region"`
	AdminPort    *int     `json:"admin_port,omitempty"`
	Capabilities []string `json:"capabilities"`
}

// Register calls POST /v1/agents/register. Never fails with ErrNotFound —
// registration always succeeds server-side.
func (c *Client) Register(ctx context.Context, agentID, region string, adminPort *int, capabilities []string) error {
	body := registerRequest{AgentID: agentID, Region: region, AdminPort: adminPort, Capabilities: capabilities}
	return c.doWithRetry(ctx, func() error {
		resp, err := c.postJSON(ctx, "/v1/agents/register", body)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return transientStatusErr(resp)
		}
		return nil
	})
}

type heartbeatRequest struct {
	Region       string   `json:"region"`
	AdminPort    *int     `json:"admin_port,omitempty"`
	Capabilities []string `json:"capabilities"`
}

// Heartbeat calls POST /v1/agents/{agent_id}/heartbeat. Returns ErrNotFound
// (a permanent, non-retried failure) if the control plane has no record of
// this agent.
func (c *Client) Heartbeat(ctx context.Context, agentID, region string, adminPort *int, capabilities []string) error {
	body := heartbeatRequest{Region: region, AdminPort: adminPort, Capabilities: capabilities}
	return c.doWithRetry(ctx, func() error {
		resp, err := c.postJSON(ctx, "/v1/agents/"+agentID+"/heartbeat", body)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(ErrNotFound)
		}
		if resp.StatusCode != http.StatusOK {
			return transientStatusErr(resp)
		}
		return nil
	})
}

// GetAssignments calls GET /v1/agents/{agent_id}/assignments?region=…,
// returning ErrNotFound as a permanent failure the same way Heartbeat does.
func (c *Client) GetAssignments(ctx context.Context, agentID, region string) (model.AssignmentsResponse, error) {
	var out model.AssignmentsResponse
	err := c.doWithRetry(ctx, func() error {
		url := c.baseURL + "/v1/agents/" + agentID + "/assignments?region=" + region
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("client: build request: %w", err))
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("client: get assignments: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(ErrNotFound)
		}
		if resp.StatusCode != http.StatusOK {
			return transientStatusErr(resp)
		}

		var decoded model.AssignmentsResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return backoff.Permanent(fmt.Errorf("client: decode assignments response: %w", err))
		}
		out = decoded
		return nil
	})
	return out, err
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("client: marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("client: build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: request %s: %w", path, err)
	}
	return resp, nil
}

// transientStatusErr reads the response body for context and returns a
// plain (retryable) error — callers pass it any status other than 200 (and,
// for heartbeat and assignments pulls, other than 404), which is assumed
// transient per the contract's TransientHTTP error kind.
func transientStatusErr(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("client: unexpected status %s: %s", strconv.Itoa(resp.StatusCode), string(b))
}
