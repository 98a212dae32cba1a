// Package phoenix queries span data from a Phoenix server over its GraphQL API.
// Spans are returned as spanattr records ready for interpretation.
package phoenix

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/Khan/genqlient/graphql"
	"github.com/andrewh/tracelens/pkg/spanattr"
	"github.com/andrewh/tracelens/pkg/traceimport"
	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultProjectID is the global ID of Phoenix's default project.
const DefaultProjectID = "UHJvamVjdDox"

const (
	defaultCacheSize = 10000
	defaultPageSize  = 100
	instrumentation  = "github.com/andrewh/tracelens/pkg/phoenix"
)

var (
	// ErrEmptyEndpoint is returned by NewClient when no endpoint is configured.
	ErrEmptyEndpoint = errors.New("phoenix endpoint is empty")

	// ErrNotFound is returned when the requested trace does not exist.
	ErrNotFound = errors.New("not found")
)

// Client fetches spans from a Phoenix server.
type Client struct {
	gql       graphql.Client
	projectID string
	logger    *zap.Logger
	tracer    trace.Tracer
	cache     *ristretto.Cache
	limiter   *rate.Limiter
	metrics   *clientMetrics
}

type clientConfig struct {
	apiKey         string
	projectID      string
	httpClient     graphql.Doer
	cacheSize      int64
	logger         *zap.Logger
	tracerProvider trace.TracerProvider
	rps            float64
	registerer     prometheus.Registerer
}

// Option configures a Client.
type Option func(*clientConfig)

// WithAPIKey sends key as a bearer token on every request.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) { c.apiKey = key }
}

// WithProject selects the project by its global ID.
func WithProject(id string) Option {
	return func(c *clientConfig) { c.projectID = id }
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(doer graphql.Doer) Option {
	return func(c *clientConfig) { c.httpClient = doer }
}

// WithCacheSize bounds the trace cache by total span count. Zero disables caching.
func WithCacheSize(spans int64) Option {
	return func(c *clientConfig) { c.cacheSize = spans }
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}

// WithTracerProvider sets the provider for client spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *clientConfig) { c.tracerProvider = tp }
}

// WithRateLimit paces requests to at most rps per second. Zero means unlimited.
func WithRateLimit(rps float64) Option {
	return func(c *clientConfig) { c.rps = rps }
}

// WithMetrics registers request metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *clientConfig) { c.registerer = reg }
}

// NewClient creates a client for the Phoenix server at endpoint, e.g.
// http://localhost:6006. The GraphQL API is served under /graphql.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q: scheme must be http or https", endpoint)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(u.Path, "/graphql") {
		u.Path += "/graphql"
	}

	cfg := clientConfig{
		projectID:  DefaultProjectID,
		httpClient: &http.Client{Timeout: time.Minute},
		cacheSize:  defaultCacheSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = otel.GetTracerProvider()
	}
	if cfg.rps < 0 {
		return nil, fmt.Errorf("rate limit must not be negative, got %g", cfg.rps)
	}

	c := &Client{
		projectID: cfg.projectID,
		logger:    cfg.logger,
		tracer:    cfg.tracerProvider.Tracer(instrumentation),
		metrics:   newClientMetrics(cfg.registerer),
	}
	headers := http.Header{}
	if cfg.apiKey != "" {
		headers.Set("Authorization", "Bearer "+cfg.apiKey)
	}
	c.gql = graphql.NewClient(u.String(), requestDoer{inner: cfg.httpClient, headers: headers})

	if cfg.cacheSize > 0 {
		c.cache, err = ristretto.NewCache(&ristretto.Config{
			NumCounters:        cfg.cacheSize * 10,
			MaxCost:            cfg.cacheSize,
			BufferItems:        64,
			IgnoreInternalCost: true,
		})
		if err != nil {
			return nil, fmt.Errorf("creating trace cache: %w", err)
		}
	}
	if cfg.rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.rps), 1)
	}
	return c, nil
}

// Close releases the trace cache.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

// Trace returns all spans of one trace, ordered by start time. Large traces
// are fetched page by page. Complete results are cached by trace ID.
func (c *Client) Trace(ctx context.Context, traceID string) ([]spanattr.Span, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(traceID); ok {
			c.metrics.cacheHits.Inc()
			return slices.Clone(cached.([]spanattr.Span)), nil
		}
	}

	var spans []spanattr.Span
	vars := map[string]any{
		"projectId": c.projectID,
		"traceId":   traceID,
		"first":     traceSpansPageSize,
	}
	seen := map[string]bool{}
	for {
		var data struct {
			Node struct {
				Trace *struct {
					Spans struct {
						traceimport.PhoenixEdges
						PageInfo PageInfo `json:"pageInfo"`
					} `json:"spans"`
				} `json:"trace"`
			} `json:"node"`
		}
		if err := c.do(ctx, "TraceSpans", traceQuery, vars, &data); err != nil {
			return nil, err
		}
		if data.Node.Trace == nil {
			c.metrics.failures.WithLabelValues("TraceSpans", reasonNotFound).Inc()
			return nil, fmt.Errorf("trace %s: %w", traceID, ErrNotFound)
		}
		spans = append(spans, data.Node.Trace.Spans.Spans()...)

		page := data.Node.Trace.Spans.PageInfo
		if !page.HasNextPage || page.EndCursor == "" {
			break
		}
		if seen[page.EndCursor] {
			return nil, fmt.Errorf("trace %s: pagination cursor %q repeated", traceID, page.EndCursor)
		}
		seen[page.EndCursor] = true
		vars["after"] = page.EndCursor
		c.logger.Debug("fetching next page of trace spans",
			zap.String("trace_id", traceID), zap.Int("spans", len(spans)))
	}

	if len(spans) == 0 {
		c.metrics.failures.WithLabelValues("TraceSpans", reasonNotFound).Inc()
		return nil, fmt.Errorf("trace %s: %w", traceID, ErrNotFound)
	}
	slices.SortStableFunc(spans, func(a, b spanattr.Span) int {
		return a.StartTime.Compare(b.StartTime)
	})
	if c.cache != nil {
		c.cache.Set(traceID, slices.Clone(spans), int64(len(spans)))
		c.cache.Wait()
	}
	return spans, nil
}

// SortDir is a sort direction.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// Sort orders the traces table by a span column, e.g. startTime or latencyMs.
type Sort struct {
	Col string  `json:"col"`
	Dir SortDir `json:"dir"`
}

// ListOptions selects a page of root spans.
type ListOptions struct {
	First           int
	After           string
	Sort            Sort
	FilterCondition string
}

// PageInfo is the cursor state of a page.
type PageInfo struct {
	EndCursor   string `json:"endCursor"`
	HasNextPage bool   `json:"hasNextPage"`
}

// TracePage is one page of root spans.
type TracePage struct {
	Spans    []spanattr.Span
	PageInfo PageInfo
}

// Traces returns one page of root spans. First defaults to 100 and the sort
// defaults to newest first.
func (c *Client) Traces(ctx context.Context, opts ListOptions) (TracePage, error) {
	if opts.First <= 0 {
		opts.First = defaultPageSize
	}
	if opts.Sort.Col == "" {
		opts.Sort.Col = "startTime"
	}
	if opts.Sort.Dir == "" {
		opts.Sort.Dir = SortDesc
	}

	vars := map[string]any{
		"projectId": c.projectID,
		"first":     opts.First,
		"sort":      opts.Sort,
	}
	if opts.After != "" {
		vars["after"] = opts.After
	}
	if opts.FilterCondition != "" {
		vars["filterCondition"] = opts.FilterCondition
	}

	var data struct {
		Node struct {
			Spans struct {
				traceimport.PhoenixEdges
				PageInfo PageInfo `json:"pageInfo"`
			} `json:"spans"`
		} `json:"node"`
	}
	if err := c.do(ctx, "RootSpans", tracesQuery, vars, &data); err != nil {
		return TracePage{}, err
	}
	return TracePage{
		Spans:    data.Node.Spans.Spans(),
		PageInfo: data.Node.Spans.PageInfo,
	}, nil
}

// EachPage calls fn for every page of root spans, following cursors until
// the last page or until fn returns an error.
func (c *Client) EachPage(ctx context.Context, opts ListOptions, fn func(TracePage) error) error {
	seen := map[string]bool{}
	for {
		page, err := c.Traces(ctx, opts)
		if err != nil {
			return err
		}
		if err := fn(page); err != nil {
			return err
		}
		cursor := page.PageInfo.EndCursor
		if !page.PageInfo.HasNextPage || cursor == "" {
			return nil
		}
		if seen[cursor] {
			return fmt.Errorf("pagination cursor %q repeated", cursor)
		}
		seen[cursor] = true
		opts.After = cursor
	}
}

func (c *Client) do(ctx context.Context, op, query string, vars map[string]any, data any) (err error) {
	ctx, span := c.tracer.Start(ctx, "phoenix."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("graphql.operation.name", op)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.metrics.failures.WithLabelValues(op, reasonCanceled).Inc()
			return fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	start := time.Now()
	resp := &graphql.Response{Data: data}
	reqErr := c.gql.MakeRequest(ctx, &graphql.Request{
		Query:     query,
		Variables: vars,
		OpName:    op,
	}, resp)
	elapsed := time.Since(start)
	c.metrics.latency.WithLabelValues(op).Observe(elapsed.Seconds())
	c.logger.Debug("phoenix request",
		zap.String("operation", op),
		zap.Duration("elapsed", elapsed),
		zap.Error(reqErr))

	if len(resp.Errors) > 0 {
		errs := make([]error, len(resp.Errors))
		for i, e := range resp.Errors {
			errs[i] = e
		}
		c.metrics.failures.WithLabelValues(op, reasonGraphQL).Inc()
		return fmt.Errorf("%s: %w", op, errors.Join(errs...))
	}
	if reqErr != nil {
		reason := reasonTransport
		if ctx.Err() != nil {
			reason = reasonCanceled
		}
		c.metrics.failures.WithLabelValues(op, reason).Inc()
		return fmt.Errorf("%s: %w", op, reqErr)
	}
	return nil
}

// requestDoer adds static headers, a request ID and trace context to each request.
type requestDoer struct {
	inner   graphql.Doer
	headers http.Header
}

func (d requestDoer) Do(req *http.Request) (*http.Response, error) {
	for k, v := range d.headers {
		req.Header[k] = v
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	otel.GetTextMapPropagator().Inject(req.Context(), propagation.HeaderCarrier(req.Header))
	return d.inner.Do(req)
}
