package promptcraft

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxResponseBytes = 8 << 20

// Credentials supplies the bearer token for authenticated calls and is told
// when the backend rejects it.
type Credentials interface {
	AccessToken(ctx context.Context) (string, error)
	Invalidate(ctx context.Context) error
}

// RequestEditor mutates outgoing requests, e.g. to forward correlation headers.
type RequestEditor func(ctx context.Context, req *http.Request)

// Config defines how the client reaches the PromptCraft backend.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	HTTPClient     *http.Client
	Logger         zerolog.Logger
	RequestEditors []RequestEditor
}

// Client is a thin JSON wrapper over the PromptCraft REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
	tracer  trace.Tracer
	editors []RequestEditor
	creds   Credentials
}

// New builds a client for the configured backend.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("promptcraft base url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid promptcraft base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		logger:  cfg.Logger.With().Str("component", "promptcraft_client").Logger(),
		tracer:  otel.Tracer("github.com/noah-isme/promptcraft-portal/pkg/promptcraft"),
		editors: cfg.RequestEditors,
	}, nil
}

// WithCredentials returns a copy of the client that authenticates as creds.
func (c *Client) WithCredentials(creds Credentials) *Client {
	clone := *c
	clone.creds = creds
	return &clone
}

type call struct {
	endpoint    string
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	anonymous   bool
	schema      *jsonschema.Schema
}

func (c *Client) do(ctx context.Context, cl call, out interface{}) error {
	ctx, span := c.tracer.Start(ctx, "promptcraft."+cl.endpoint, trace.WithAttributes(
		attribute.String("http.method", cl.method),
		attribute.String("promptcraft.endpoint", cl.endpoint),
	))
	defer span.End()

	start := time.Now()
	err := c.execute(ctx, cl, out)
	upstreamDuration.WithLabelValues(cl.endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		kind := "error"
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			kind = string(apiErr.Kind)
			span.SetAttributes(attribute.Int("http.status_code", apiErr.Status))
		}
		upstreamFailures.WithLabelValues(cl.endpoint, kind).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
	}

	return err
}

func (c *Client) execute(ctx context.Context, cl call, out interface{}) error {
	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return &APIError{Kind: KindNetwork, Endpoint: cl.endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}

	if c.creds != nil && !cl.anonymous {
		token, err := c.creds.AccessToken(ctx)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	for _, edit := range c.editors {
		edit(ctx, req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Kind: KindNetwork, Endpoint: cl.endpoint, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &APIError{Kind: KindNetwork, Endpoint: cl.endpoint, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		apiErr := newStatusError(cl.endpoint, resp.StatusCode, payload)
		if c.creds != nil && !cl.anonymous {
			if invalidateErr := c.creds.Invalidate(context.WithoutCancel(ctx)); invalidateErr != nil {
				c.logger.Warn().Err(invalidateErr).Str("endpoint", cl.endpoint).Msg("failed to tear down rejected session")
			}
		}
		return apiErr
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return newStatusError(cl.endpoint, resp.StatusCode, payload)
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	if cl.schema != nil {
		if err := validatePayload(cl.schema, payload); err != nil {
			return &APIError{Kind: KindDecode, Endpoint: cl.endpoint, Status: resp.StatusCode, Err: err}
		}
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return &APIError{Kind: KindDecode, Endpoint: cl.endpoint, Status: resp.StatusCode, Err: err}
	}

	return nil
}

func jsonCall(endpoint, method, path string, payload interface{}) (call, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return call{}, fmt.Errorf("encode %s request: %w", endpoint, err)
	}
	return call{
		endpoint:    endpoint,
		method:      method,
		path:        path,
		body:        encoded,
		contentType: "application/json",
	}, nil
}
