// Package service runs the catalog as a long-lived process: an HTTP API
// for resolution and inventory, Prometheus metrics, and a NATS
// request-reply endpoint with a JetStream KV cache of emitted output.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/propanelib/propane/body"
	"github.com/propanelib/propane/catalog"
	"github.com/propanelib/propane/compose"
	"github.com/propanelib/propane/config"
	"github.com/propanelib/propane/emit"
	"github.com/propanelib/propane/validate"
)

// Service wires the catalog, resolver, HTTP API and NATS endpoint
// together. All resolutions run against a snapshot taken at startup, so
// concurrent requests never observe a half-registered catalog.
type Service struct {
	cfg      *config.Config
	snapshot *catalog.Snapshot
	resolver *compose.Resolver
	metrics  *Metrics
	logger   *slog.Logger

	httpServer *http.Server
	httpLn     net.Listener

	embeddedNATS *server.Server
	natsConn     *nats.Conn
	responder    *Responder
	cache        jetstream.KeyValue
}

// New creates a service over a frozen snapshot of the catalog.
func New(cfg *config.Config, snap *catalog.Snapshot, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		snapshot: snap,
		resolver: compose.NewResolver(snap),
		metrics:  NewMetrics(),
		logger:   logger,
	}
}

// Start brings up the HTTP listener and the NATS endpoint.
func (s *Service) Start(ctx context.Context) error {
	if err := s.startNATS(ctx); err != nil {
		return fmt.Errorf("start NATS: %w", err)
	}

	ln, err := net.Listen("tcp", s.cfg.Serve.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Serve.HTTPAddr, err)
	}
	s.httpLn = ln

	mux := http.NewServeMux()
	s.RegisterHTTPHandlers("/api/body", mux)

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", "error", err)
		}
	}()

	s.logger.Info("Catalog service started",
		"http_addr", ln.Addr().String(),
		"fragments", s.snapshot.Len())
	return nil
}

// HTTPAddr returns the bound HTTP address, useful when the configured
// port was 0.
func (s *Service) HTTPAddr() string {
	if s.httpLn == nil {
		return ""
	}
	return s.httpLn.Addr().String()
}

// Stop shuts down the HTTP server and the NATS endpoint.
func (s *Service) Stop(ctx context.Context) error {
	var firstErr error

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.responder != nil {
		s.responder.Stop()
	}
	if s.natsConn != nil {
		s.natsConn.Close()
	}
	if s.embeddedNATS != nil {
		s.embeddedNATS.Shutdown()
	}

	s.logger.Info("Catalog service stopped")
	return firstErr
}

// startNATS connects to an external NATS server or starts an embedded
// one, then wires up the responder and the KV cache.
func (s *Service) startNATS(ctx context.Context) error {
	natsCfg := s.cfg.Serve.NATS

	var url string
	switch {
	case natsCfg.URL != "" && !natsCfg.Embedded:
		url = natsCfg.URL
	case natsCfg.Embedded:
		opts := &server.Options{
			Port:      -1, // random available port
			JetStream: natsCfg.Cache,
			StoreDir:  natsCfg.StoreDir,
			NoLog:     true,
			NoSigs:    true,
		}
		ns, err := server.NewServer(opts)
		if err != nil {
			return fmt.Errorf("create embedded NATS server: %w", err)
		}
		go ns.Start()
		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return fmt.Errorf("embedded NATS server did not become ready")
		}
		s.embeddedNATS = ns
		url = ns.ClientURL()
	default:
		// NATS disabled entirely.
		return nil
	}

	conn, err := nats.Connect(url, nats.Name("propane"))
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	s.natsConn = conn

	if natsCfg.Cache {
		js, err := jetstream.New(conn)
		if err != nil {
			return fmt.Errorf("create JetStream context: %w", err)
		}
		kv, err := getOrCreateBucket(ctx, js, cacheBucket)
		if err != nil {
			return fmt.Errorf("create cache bucket: %w", err)
		}
		s.cache = kv
	}

	responder, err := NewResponder(conn, s, s.logger)
	if err != nil {
		return fmt.Errorf("start resolution responder: %w", err)
	}
	s.responder = responder

	s.logger.Info("NATS endpoint ready", "url", url, "cache", natsCfg.Cache)
	return nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  name,
		History: 1,
	})
}

// ResolveText resolves and emits a fragment, consulting the KV cache
// when enabled, and reports the concrete identity that was selected
// (relevant when the request left the version empty). This is the
// single resolution path shared by the HTTP API and the NATS responder.
func (s *Service) ResolveText(ctx context.Context, category, name, version string, raw map[string]string) (string, body.Identity, error) {
	start := time.Now()

	root, err := s.snapshot.Lookup(category, name, version)
	if err != nil {
		s.metrics.Resolutions.WithLabelValues("error").Inc()
		return "", body.Identity{}, err
	}

	key := ""
	if s.cache != nil {
		key = cacheKey(category, name, version, raw)
		if entry, err := s.cache.Get(ctx, key); err == nil {
			s.metrics.CacheHits.Inc()
			s.metrics.Resolutions.WithLabelValues("cached").Inc()
			return string(entry.Value()), root.Identity, nil
		}
		s.metrics.CacheMisses.Inc()
	}

	text, err := s.resolve(ctx, root, raw)
	s.metrics.ResolveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.Resolutions.WithLabelValues("error").Inc()
		return "", body.Identity{}, err
	}
	s.metrics.Resolutions.WithLabelValues("ok").Inc()

	if s.cache != nil {
		if _, err := s.cache.Put(ctx, key, []byte(text)); err != nil {
			s.logger.Warn("Failed to cache resolved output", "key", key, "error", err)
		}
	}
	return text, root.Identity, nil
}

func (s *Service) resolve(ctx context.Context, root *body.Fragment, raw map[string]string) (string, error) {
	params, err := s.resolver.MergedParameters(root)
	if err != nil {
		return "", err
	}
	bindings, err := validate.ParseBindings(root.Identity, params, raw)
	if err != nil {
		return "", err
	}
	id := root.Identity
	resolved, err := s.resolver.Resolve(ctx, id.Category, id.Name, id.Version, bindings)
	if err != nil {
		return "", err
	}
	return emit.Emit(resolved)
}
