package client

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/localrivet/gocdp/logx"
	"github.com/localrivet/gocdp/transport"
)

// DefaultOutboundQueue is the number of frames that may wait for the
// transport loop before Send blocks.
const DefaultOutboundQueue = 64

// Option is a client configuration option.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	httpClient     *http.Client
	dialTimeout    time.Duration
	header         http.Header
	dialer         transport.DialFunc
	eventBuffer    int
	outboundQueue  int
	requestTimeout time.Duration
	limiter        *rate.Limiter
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
}

func newOptions(opts []Option) *options {
	o := &options{
		outboundQueue: DefaultOutboundQueue,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logx.NewDefaultLogger()
	}
	if o.httpClient == nil {
		o.httpClient = http.DefaultClient
	}
	return o
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHTTPClient sets the client used for endpoint discovery.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		o.httpClient = httpClient
	}
}

// WithDialTimeout bounds the websocket handshake.
func WithDialTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = timeout
	}
}

// WithHeader adds a header to the websocket upgrade request.
func WithHeader(key, value string) Option {
	return func(o *options) {
		if o.header == nil {
			o.header = make(http.Header)
		}
		o.header.Add(key, value)
	}
}

// WithDialer replaces the websocket dialer used by Connect.
func WithDialer(dial transport.DialFunc) Option {
	return func(o *options) {
		o.dialer = dial
	}
}

// WithEventBuffer bounds every subscription to n queued notifications.
// When a subscriber falls behind, further notifications for it are dropped
// and logged until it catches up. Zero keeps subscriptions unbounded.
func WithEventBuffer(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.eventBuffer = n
		}
	}
}

// WithOutboundQueue sets how many frames may wait for the transport loop.
func WithOutboundQueue(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.outboundQueue = n
		}
	}
}

// WithRequestTimeout sets a deadline for commands whose context has none.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.requestTimeout = timeout
	}
}

// WithRateLimit limits outbound commands to limit per second with the given
// burst.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(o *options) {
		o.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithMetrics registers the client's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithTracerProvider sets the provider used for command spans. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// SendOption configures a single command.
type SendOption func(*sendOptions)

type sendOptions struct {
	sessionID string
}

// WithSession routes the command to a flattened target session.
func WithSession(sessionID string) SendOption {
	return func(o *sendOptions) {
		o.sessionID = sessionID
	}
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	sessionID string
}

// ForSession only yields notifications tagged with sessionID.
func ForSession(sessionID string) SubscribeOption {
	return func(o *subscribeOptions) {
		o.sessionID = sessionID
	}
}
