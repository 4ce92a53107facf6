// Package checkout assembles one checkout tab: the orchestrator, its
// session mirror, the countdown and both guards.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"boxoffice/internal/booking"
	"boxoffice/internal/countdown"
	"boxoffice/internal/navigation"
	"boxoffice/internal/reservation"
	"boxoffice/internal/session"
	"boxoffice/internal/shared/config"
	"boxoffice/internal/unload"
	"boxoffice/pkg/clock"
	"boxoffice/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Beacon transports
const (
	BeaconHTTP  = "http"
	BeaconKafka = "kafka"
)

// Session storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// ErrRedisRequired is returned when redis session storage is configured
// without a client
var ErrRedisRequired = errors.New("redis session storage needs a redis client")

// Options override what New would otherwise build from config
type Options struct {
	Clock  clock.Clock
	Logger *logger.Logger
	// Redis backs the session store when Checkout.SessionStorage is "redis"
	Redis *redis.Client
	// Client replaces the HTTP backend client. Without Beacon, teardown
	// releases go through it too.
	Client reservation.Client
	// Beacon replaces the configured beacon transport
	Beacon reservation.Beacon
	// Routes replaces the default checkout route table
	Routes []navigation.Route
	// OnExpire runs after the reservation window lapsed and state was cleared
	OnExpire func()
	// OnTick receives the remaining hold time every second
	OnTick func(time.Duration)
}

// Flow is one checkout tab
type Flow struct {
	Orchestrator *booking.Orchestrator
	Store        *session.Store
	Countdown    *countdown.Countdown
	Navigation   *navigation.Guard
	Unload       *unload.Guard

	client reservation.Client
	beacon reservation.Beacon
	log    *logger.Logger
	tabID  string

	mu     sync.Mutex
	path   string
	torn   bool
	closed bool
}

// New builds a flow from the checkout section of cfg
func New(cfg *config.Config, opts Options) (*Flow, error) {
	log := opts.Logger
	if log == nil {
		log = logger.GetDefault()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	cc := cfg.Checkout

	tabID := cc.TabID
	if tabID == "" {
		tabID = uuid.NewString()
	}
	log = log.WithFields(map[string]interface{}{"tab_id": tabID})

	storage, err := newStorage(cc, cfg.Redis.SessionTTL, tabID, opts.Redis)
	if err != nil {
		return nil, err
	}
	store := session.NewStore(storage, log, cc.PreserveKeys...)

	client := opts.Client
	if client == nil {
		client = reservation.NewHTTPClient(cc.BackendURL, cc.RequestTimeout, log)
	}

	beacon := opts.Beacon
	switch {
	case beacon != nil:
	case opts.Client != nil:
		// a replaced client also carries the teardown releases
		beacon = reservation.NewAsyncReleaser(client, cc.BeaconTimeout, log)
	default:
		beacon, err = newBeacon(cfg, log)
		if err != nil {
			return nil, err
		}
	}

	var tickOpts []countdown.Option
	if opts.OnTick != nil {
		tickOpts = append(tickOpts, countdown.WithOnTick(opts.OnTick))
	}
	timer := countdown.New(clk, tickOpts...)

	orch := booking.New(booking.Deps{
		Backend:  client,
		Store:    store,
		Timer:    timer,
		Clock:    clk,
		Logger:   log,
		Validate: validator.New(),
	}, booking.Options{
		MaxSeats:            cc.MaxSeats,
		ServiceFeePerTicket: cc.ServiceFeePerTicket,
		PollDelay:           cc.PaymentPollDelay,
		PollInterval:        cc.PaymentPollInterval,
		CleanupTimeout:      cc.BeaconTimeout,
		OnExpire:            opts.OnExpire,
	})

	routes := opts.Routes
	if routes == nil {
		routes = navigation.DefaultRoutes()
	}

	f := &Flow{
		Orchestrator: orch,
		Store:        store,
		Countdown:    timer,
		client:       client,
		beacon:       beacon,
		log:          log.WithComponent("checkout"),
		tabID:        tabID,
		path:         navigation.HomePath,
	}
	f.Navigation = navigation.NewGuard(navigation.NewTable(routes), store, beacon, orch, log)
	f.Unload = unload.NewGuard(store, beacon, f.CurrentPath, log)
	f.Unload.OnTeardown = func(ctx context.Context, _ string) { f.Teardown(ctx) }
	return f, nil
}

func newStorage(cc config.CheckoutConfig, ttl time.Duration, tabID string, client *redis.Client) (session.Storage, error) {
	switch cc.SessionStorage {
	case "", StorageMemory:
		return session.NewMemoryStorage(), nil
	case StorageRedis:
		if client == nil {
			return nil, ErrRedisRequired
		}
		return session.NewRedisStorage(client, tabID, ttl), nil
	default:
		return nil, fmt.Errorf("unknown session storage %q", cc.SessionStorage)
	}
}

func newBeacon(cfg *config.Config, log *logger.Logger) (reservation.Beacon, error) {
	switch cfg.Checkout.BeaconTransport {
	case "", BeaconHTTP:
		return reservation.NewHTTPBeacon(cfg.Checkout.BackendURL, cfg.Checkout.BeaconTimeout, log), nil
	case BeaconKafka:
		kc := reservation.DefaultKafkaBeaconConfig()
		kc.Brokers = cfg.Kafka.Brokers
		kc.Topic = cfg.Kafka.ReleaseTopic
		b, err := reservation.NewKafkaBeacon(kc, log)
		if err != nil {
			return nil, fmt.Errorf("failed to start release beacon: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown beacon transport %q", cfg.Checkout.BeaconTransport)
	}
}

// TabID identifies this flow's persisted session
func (f *Flow) TabID() string {
	return f.tabID
}

// Client is the backend client the orchestrator calls
func (f *Flow) Client() reservation.Client {
	return f.client
}

// CurrentPath is the route the tab is on
func (f *Flow) CurrentPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.path
}

// Navigate runs the navigation guard for path. The tab ends up on path
// when allowed, otherwise on the redirect target.
func (f *Flow) Navigate(ctx context.Context, path string) navigation.Decision {
	d := f.Navigation.Before(ctx, path)
	f.mu.Lock()
	if d.Allow {
		f.path = path
	} else {
		f.path = d.Redirect
	}
	f.mu.Unlock()
	return d
}

// Mount hands teardown to src, typically an unload.SignalSource
func (f *Flow) Mount(src unload.Source) {
	f.Unload.Mount(src)
}

// TornDown reports whether the teardown policy has run
func (f *Flow) TornDown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.torn
}

// Teardown applies the unload policy once for the current path. Returns
// false when the path is excluded or the flow was already torn down.
func (f *Flow) Teardown(ctx context.Context) bool {
	f.mu.Lock()
	if f.torn {
		f.mu.Unlock()
		return false
	}
	f.torn = true
	path := f.path
	f.mu.Unlock()

	f.Countdown.Stop()
	released, handled := f.Unload.HandleTeardown(ctx, path)
	if !handled {
		return false
	}
	// Holds committed after the store was read are only in memory
	sid, held := f.Orchestrator.Abandon(ctx)
	if extra := missing(held, released); sid != "" && len(extra) > 0 && f.beacon != nil {
		f.beacon.SendRelease(sid, extra)
	}
	return true
}

func missing(ids, sent []int64) []int64 {
	seen := make(map[int64]struct{}, len(sent))
	for _, id := range sent {
		seen[id] = struct{}{}
	}
	var out []int64
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Close tears the flow down if that has not happened yet and then waits
// briefly for beacons on the wire
func (f *Flow) Close(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	f.Unload.Unmount()
	f.Teardown(ctx)

	switch b := f.beacon.(type) {
	case *reservation.HTTPBeacon:
		if !b.Flush(flushTimeout(ctx)) {
			f.log.Warn("release beacons still in flight at close")
		}
	case *reservation.KafkaBeacon:
		if err := b.Close(); err != nil {
			return err
		}
	}
	return nil
}

func flushTimeout(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
		return 0
	}
	return 2 * time.Second
}
