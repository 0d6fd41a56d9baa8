// Package lifeline provides an offline-first caching gateway for browser-based
// applications. It intercepts all outbound traffic for an application origin and
// decides, per request, whether to serve from a persistent cache, fetch fresh
// data, or degrade gracefully, giving deterministic behavior under intermittent
// connectivity.
//
// The core functionality includes:
//   - A single dispatch point classifying requests as static or API-like
//   - Cache-first resolution for bundled application assets
//   - Network-first resolution for volatile API data with stale fallback
//   - Versioned cache generations with an install/activate lifecycle
//   - A durable deferred-mutation queue replayed when connectivity returns
//   - A push-notification dispatcher with window focus/open routing
//   - SQLite database storage for cache entries, queued mutations, and logs
package lifeline

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/martian"
	"github.com/google/uuid"

	"github.com/bloodbridge/lifeline/domain"
	"github.com/bloodbridge/lifeline/listener"
)

// Repository defines the methods consumed by the gateway to interact with the
// SQLite backend. It provides an abstraction layer for all database operations
// including cache generations and entries, deferred mutations, lifecycle
// state, and logging.
type Repository interface {
	domain.CacheRepository
	domain.MutationRepository
	domain.StateRepository
	domain.LogRepository
	Close() error
}

// LogFunc records a gateway event. Components absorb failures at their
// boundary and record them through this function instead of propagating.
type LogFunc func(level string, message string, options ...func(log *domain.Log) error)

// NopLog is a LogFunc that discards every event. Useful when instantiating a
// component in isolation.
func NopLog(level string, message string, options ...func(log *domain.Log) error) {}

// Gateway is the main struct that orchestrates all caching functionality
// including request classification, cache-first and network-first resolution,
// the generation lifecycle, the deferred mutation queue, and notification
// dispatch. It serves as the central coordinator for the Lifeline gateway.
type Gateway struct {
	martianProxy *martian.Proxy  // The underlying martian.Proxy
	ConfigDir    string          // The configuration directory
	Config       *Config         // The gateway configuration
	Repo         Repository      // DB Repository Interface
	Store        *Store          // Cache store combining the repository with the network client
	Static       *StaticHandler  // Cache-first handler for bundled assets
	Dynamic      *DynamicHandler // Network-first handler for API-like requests
	Lifecycle    *Lifecycle      // Install/activate lifecycle manager
	Queue        *MutationQueue  // Deferred mutation queue
	Dispatcher   *Dispatcher     // Push notification dispatcher
	Classifier   *Classifier     // Request classification rules
	Client       *http.Client    // HTTP client used for all live fetches

	Version     string   // Build version tag for the static generation
	Manifest    []string // Static asset URLs pre-warmed at install
	OfflinePage string   // URL of the offline substitute resource, if any

	OnLog func(log domain.Log) error // Function to be ran on each log - used by the embedding application

	Addr string // IP Address of the gateway listener
	Port string // Port of the gateway listener

	tracker *listener.TrackingListener
	events  map[EventKind]EventHandler
}

// New creates a new Gateway instance with default configuration and applies
// any provided options. After the options run, the caching components are
// assembled around the configured repository.
//
// Parameters:
//   - options: Variadic list of option functions to configure the gateway
//
// Returns:
//   - *Gateway: Configured gateway instance
//   - error: Configuration error if any option fails
func New(options ...func(*Gateway) error) (*Gateway, error) {
	gateway := &Gateway{
		martianProxy: martian.NewProxy(),
		Client:       &http.Client{},
		Classifier:   NewClassifier("", DefaultAPIPrefix),
		events:       make(map[EventKind]EventHandler),
	}
	err := gateway.WithOptions(options...)
	if err != nil {
		return nil, err
	}
	if err := gateway.assemble(); err != nil {
		return nil, err
	}
	return gateway, nil
}

// WithOptions applies a series of configuration functions to the gateway instance.
// Each option function can modify the gateway configuration and return an error if it fails.
func (gateway *Gateway) WithOptions(options ...func(*Gateway) error) error {
	for _, option := range options {
		err := option(gateway)
		if err != nil {
			return fmt.Errorf("applying option on lifeline : %w", err)
		}
	}
	return nil
}

// assemble wires the caching components around the configured repository and
// registers the default event handlers. Options that set dependencies must
// have run before this point.
func (gateway *Gateway) assemble() error {
	if gateway.Repo == nil {
		return fmt.Errorf("gateway requires a repository")
	}
	if gateway.Version == "" {
		return fmt.Errorf("gateway requires a version")
	}

	gateway.Store = &Store{Repo: gateway.Repo, Client: gateway.Client}

	lifecycle, err := NewLifecycle(gateway.Store, gateway.Repo, gateway.Version, gateway.Manifest, gateway.logf)
	if err != nil {
		return fmt.Errorf("creating lifecycle : %w", err)
	}
	gateway.Lifecycle = lifecycle

	gateway.Static = &StaticHandler{
		Store:      gateway.Store,
		OfflineURL: gateway.OfflinePage,
		Log:        gateway.logf,
	}
	gateway.Dynamic = &DynamicHandler{
		Store:      gateway.Store,
		Generation: RuntimeGeneration,
		Log:        gateway.logf,
	}

	if gateway.Queue == nil {
		gateway.Queue = NewMutationQueue(gateway.Repo, gateway.Client, gateway.logf)
	}
	for _, tag := range gateway.Classifier.Tags() {
		if !gateway.Queue.Enabled(tag) {
			gateway.Queue.Register(tag, nil)
		}
	}

	if gateway.Dispatcher == nil {
		gateway.Dispatcher = &Dispatcher{Log: gateway.logf}
	}
	gateway.Dispatcher.Log = gateway.logf

	gateway.registerDefaultHandlers()
	return nil
}

// WriteLog records a gateway event to the repository and invokes the OnLog
// handler if one is defined. Insert failures are written to the process log;
// logging never interrupts request resolution.
func (gateway *Gateway) WriteLog(level string, message string, options ...func(log *domain.Log) error) error {
	switch level {
	case "DEBUG":
	case "INFO":
	case "WARN":
	case "ERROR":
	case "FATAL":
	default:
		return fmt.Errorf("level should be either: debug, info, warn, error, fatal")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating new uuid : %w", err)
	}
	entry := domain.Log{
		ID:        id,
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]any),
	}
	for _, option := range options {
		err := option(&entry)
		if err != nil {
			return fmt.Errorf("applying log option : %w", err)
		}
	}
	if gateway.Repo != nil {
		if err := gateway.Repo.InsertLog(&entry); err != nil {
			log.Println(err)
		}
	}
	if gateway.OnLog != nil {
		gateway.OnLog(entry)
	}
	return nil
}

// logf adapts WriteLog to the LogFunc signature consumed by the components.
func (gateway *Gateway) logf(level string, message string, options ...func(log *domain.Log) error) {
	if err := gateway.WriteLog(level, message, options...); err != nil {
		log.Println(err)
	}
}

// GetListener sets up the gateway listener on the given address and port. The
// returned listener tracks live client connections so that activation can
// claim them.
func (gateway *Gateway) GetListener(address string, port string) (net.Listener, error) {
	rawListener, err := net.Listen("tcp", fmt.Sprintf("%s:%s", address, port))
	if err != nil {
		return rawListener, fmt.Errorf("setting up listener on address:port %s:%s", address, port)
	}
	tracking := listener.NewTrackingListener(rawListener)
	gateway.tracker = tracking
	gateway.Lifecycle.Claimer = tracking
	gateway.Addr = address
	gateway.Port = port
	gateway.WriteLog("INFO", fmt.Sprintf("Lifeline Gateway Started on %s:%s", address, port))

	if _, err := url.Parse(fmt.Sprintf("http://%s:%s", address, port)); err != nil {
		return nil, fmt.Errorf("parsing gateway URL : %w", err)
	}
	return tracking, nil
}

// Serve runs the gateway on the listener. Every request the application sends
// through the gateway is routed by the strategy transport; classified
// requests never surface an unhandled error, so the application never falls
// through to an uncontrolled network path.
func (gateway *Gateway) Serve(l net.Listener) error {
	gateway.martianProxy.SetRoundTripper(newStrategyTransport(gateway))
	return gateway.martianProxy.Serve(l)
}

// Close shuts the gateway down.
func (gateway *Gateway) Close() {
	gateway.martianProxy.Close()
}
