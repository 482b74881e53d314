package ssehub

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/juju/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the primary interface to a push hub.
//
// It wires a Registry to the two HTTP endpoints that make it useful: a
// stream endpoint clients subscribe to, and an emit endpoint that pushes
// named events to one connection, one user, or everyone.
//
// Server implements the http.Handler interface, and can be chained into
// existing HTTP routing muxes if desired.
type Server struct {
	registry *Registry
	conf     serverConfig
	metrics  *hubMetrics
	router   chi.Router
}

// serverConfig defines configurable options that can be customized for a Server.
type serverConfig struct {
	CORSAllowOrigin       string        // Access-Control-Allow-Origin header value (dont send header if blank)
	HeartbeatInterval     time.Duration // keep-alive ping period for new connections
	DisableAdminEndpoints bool          // refuse to serve the admin reporting surface
	EmitFillInterval      time.Duration // emit throttle token refill period (disabled if zero)
	EmitCapacity          int64         // emit throttle bucket size
	MetricsRegistry       prometheus.Registerer
	EnableMetrics         bool
	Registry              *Registry
}

// ServerOption is a high-level user option that can be customized for a Server.
type ServerOption func(s *serverConfig) error

// WithCORSAllowOrigin sets the Access-Control-Allow-Origin header value to origin.
// If set to the zero value (""), the header will not be sent.
//
// If you want to allow connections from browsers at any origin, set to "*".
func WithCORSAllowOrigin(origin string) ServerOption {
	return func(c *serverConfig) error {
		c.CORSAllowOrigin = origin
		return nil
	}
}

// WithHeartbeatInterval sets the keep-alive ping period armed on every new
// connection. Defaults to 15 seconds.
func WithHeartbeatInterval(d time.Duration) ServerOption {
	return func(c *serverConfig) error {
		c.HeartbeatInterval = d
		return nil
	}
}

// WithEmitRateLimit throttles the emit endpoint with a token bucket that
// refills one token every fillInterval up to capacity.
func WithEmitRateLimit(fillInterval time.Duration, capacity int64) ServerOption {
	return func(c *serverConfig) error {
		c.EmitFillInterval = fillInterval
		c.EmitCapacity = capacity
		return nil
	}
}

// WithDisableAdminEndpoints turns off the admin reporting surface.
func WithDisableAdminEndpoints() ServerOption {
	return func(c *serverConfig) error {
		c.DisableAdminEndpoints = true
		return nil
	}
}

// WithMetrics enables Prometheus instrumentation, registering the hub's
// collectors with reg (the default registerer when reg is nil) and serving
// an exposition endpoint at /metrics.
func WithMetrics(reg prometheus.Registerer) ServerOption {
	return func(c *serverConfig) error {
		c.EnableMetrics = true
		c.MetricsRegistry = reg
		return nil
	}
}

// WithRegistry backs the server with an existing Registry instead of a
// fresh one, for callers that share one hub across several surfaces.
func WithRegistry(r *Registry) ServerOption {
	return func(c *serverConfig) error {
		c.Registry = r
		return nil
	}
}

// NewServer creates a new Server with optional ServerOptions for configuration.
func NewServer(opts ...ServerOption) (*Server, error) {
	conf := serverConfig{
		HeartbeatInterval: defaultHeartbeatInterval,
	}
	for _, opt := range opts {
		if err := opt(&conf); err != nil {
			return nil, err
		}
	}

	registry := conf.Registry
	if registry == nil {
		registry = NewRegistry()
	}

	s := &Server{
		registry: registry,
		conf:     conf,
	}

	if conf.EnableMetrics {
		s.metrics = newHubMetrics(conf.MetricsRegistry)
		registry.metrics = s.metrics
	}

	var bucket *ratelimit.Bucket
	if conf.EmitFillInterval > 0 && conf.EmitCapacity > 0 {
		bucket = ratelimit.NewBucket(conf.EmitFillInterval, conf.EmitCapacity)
	}

	r := chi.NewRouter()
	stream := streamHandler{registry: registry, conf: conf, metrics: s.metrics}
	r.Get("/subscribe", stream.ServeHTTP)
	r.Get("/subscribe/{user}", stream.ServeHTTP)
	r.Post("/emit", emitHandler{registry: registry, bucket: bucket}.ServeHTTP)
	if conf.EnableMetrics {
		exposition := promhttp.Handler()
		if g, ok := conf.MetricsRegistry.(prometheus.Gatherer); ok {
			exposition = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
		}
		r.Method(http.MethodGet, "/metrics", exposition)
	}
	s.router = r

	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Registry returns the connection registry behind the server, for
// application code that pushes events directly rather than over HTTP.
func (s *Server) Registry() *Registry {
	return s.registry
}

// AdminEnabled reports whether the admin reporting surface may be served.
func (s *Server) AdminEnabled() bool {
	return !s.conf.DisableAdminEndpoints
}

// Shutdown a server, closing active connections.
//
// Currently, this returns immediately, and does not wait for connections
// to finish tearing down in the background.
func (s *Server) Shutdown() {
	s.registry.Shutdown()
}
