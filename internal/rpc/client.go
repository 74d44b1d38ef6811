package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/dmagro/sol-explorer/internal/logger"
)

const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 250 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
	DefaultJitter     = 0.5
	DefaultBatchSize  = 100
	DefaultWorkers    = 4

	maxBatchSize = 100
)

type Client struct {
	url        string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
	jitter     float64
	batchSize  int
	workers    int
	limiter    *rate.Limiter
	requestID  atomic.Int64
}

type Option func(*Client)

// WithTimeout bounds every single attempt, not the whole call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

func WithMaxDelay(d time.Duration) Option {
	return func(c *Client) { c.maxDelay = d }
}

// WithJitter sets the backoff randomization factor in [0, 1].
func WithJitter(f float64) Option {
	return func(c *Client) { c.jitter = f }
}

func WithBatchSize(n int) Option {
	return func(c *Client) { c.batchSize = n }
}

func WithWorkers(n int) Option {
	return func(c *Client) { c.workers = n }
}

// WithRateLimit spaces outgoing requests to rps per second. Zero disables it.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
		jitter:     DefaultJitter,
		batchSize:  DefaultBatchSize,
		workers:    DefaultWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.batchSize <= 0 || c.batchSize > maxBatchSize {
		c.batchSize = maxBatchSize
	}
	if c.workers <= 0 {
		c.workers = 1
	}
	return c
}

func (c *Client) URL() string { return c.url }

// Call executes one JSON-RPC request, retrying transient failures with
// jittered exponential backoff. The returned latency is that of the last
// attempt.
func (c *Client) Call(ctx context.Context, method string, params ...interface{}) (*Response, time.Duration, error) {
	if params == nil {
		params = []interface{}{}
	}
	req := Request{
		JSONRPC: "2.0",
		ID:      int(c.requestID.Add(1)),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal %s request: %w", method, err)
	}

	var resp *Response
	var latency time.Duration
	err = c.retry(ctx, method, func() error {
		start := time.Now()
		raw, err := c.doRequest(ctx, body)
		latency = time.Since(start)
		if err != nil {
			return err
		}
		var r Response
		if err := json.Unmarshal(raw, &r); err != nil {
			return &parseError{err: err}
		}
		if r.Error != nil {
			return r.Error
		}
		resp = &r
		return nil
	})
	if err != nil {
		return nil, latency, err
	}
	return resp, latency, nil
}

// CallBatch sends reqs as one JSON-RPC batch array. IDs are assigned here.
// The result is aligned with reqs: out[i] answers reqs[i] whatever order the
// node replied in. A request the node did not answer gets a synthesized
// internal error so the caller can retry just that item. The error return is
// reserved for failures of the exchange as a whole.
func (c *Client) CallBatch(ctx context.Context, reqs []Request) ([]*Response, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	index := make(map[int]int, len(reqs))
	batch := make([]Request, len(reqs))
	for i, r := range reqs {
		r.JSONRPC = "2.0"
		r.ID = int(c.requestID.Add(1))
		if r.Params == nil {
			r.Params = []interface{}{}
		}
		batch[i] = r
		index[r.ID] = i
	}
	body, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	method := batchMethod(reqs)
	var out []*Response
	err = c.retry(ctx, method, func() error {
		raw, err := c.doRequest(ctx, body)
		if err != nil {
			return err
		}
		raw = bytes.TrimSpace(raw)

		// Some nodes answer a rejected batch with a single error object.
		if len(raw) > 0 && raw[0] == '{' {
			var single Response
			if err := json.Unmarshal(raw, &single); err != nil {
				return &parseError{err: err}
			}
			if single.Error != nil {
				return single.Error
			}
			return &parseError{err: errors.New("batch answered with a single result")}
		}

		var replies []Response
		if err := json.Unmarshal(raw, &replies); err != nil {
			return &parseError{err: err}
		}
		slots := make([]*Response, len(reqs))
		for k := range replies {
			i, ok := index[replies[k].ID]
			if !ok {
				continue
			}
			slots[i] = &replies[k]
		}
		for i := range slots {
			if slots[i] == nil {
				slots[i] = &Response{
					JSONRPC: "2.0",
					ID:      batch[i].ID,
					Error:   &RPCError{Code: codeInternal, Message: "no response for request in batch"},
				}
			}
		}
		out = slots
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func batchMethod(reqs []Request) string {
	if len(reqs) == 0 {
		return "batch"
	}
	return fmt.Sprintf("batch[%d]%s", len(reqs), reqs[0].Method)
}

// retry runs op until it succeeds, fails permanently, exhausts maxRetries or
// ctx ends. Failures come back as *NetworkError; ctx errors come back as is.
func (c *Client) retry(ctx context.Context, method string, op func() error) error {
	attempts := 0
	operation := func() error {
		attempts++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		err := op()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if !Classify(err).Transient() {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		logger.WithField("method", method).
			WithField("attempt", attempts).
			Debugf("retrying in %s: %v", wait.Round(time.Millisecond), err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), ctx)
	err := backoff.RetryNotify(operation, b, notify)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return ctxErr
	}
	return newNetworkError(method, attempts, err)
}

func (c *Client) newBackOff() backoff.BackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(c.retryDelay),
		backoff.WithMaxInterval(c.maxDelay),
		backoff.WithRandomizationFactor(c.jitter),
		backoff.WithMultiplier(2),
		backoff.WithMaxElapsedTime(0),
	)
}

func newNetworkError(method string, attempts int, err error) *NetworkError {
	ne := &NetworkError{
		Method:   method,
		Type:     Classify(err),
		Attempts: attempts,
		Err:      err,
	}
	var status *StatusError
	if errors.As(err, &status) {
		ne.StatusCode = status.StatusCode
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		ne.Code = rpcErr.Code
	}
	return ne
}

func (c *Client) doRequest(ctx context.Context, body []byte) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 256))
		return nil, &StatusError{StatusCode: httpResp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	return io.ReadAll(httpResp.Body)
}
