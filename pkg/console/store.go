package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bluele/gcache"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"filterdesk/pkg/settingsapi"
)

var browsersCreated = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "filterdesk_console_browsers_created_total",
	Help: "Number of browser sessions created by the console.",
})

func init() {
	prometheus.MustRegister(browsersCreated)
}

// Store maps browser ids to their state. Entries expire after being idle
// for the configured duration and the least recently used entry is evicted
// once the store is full.
type Store struct {
	cache gcache.Cache
	idle  time.Duration
	api   settingsapi.Options
	log   *slog.Logger
}

// NewStore creates a Store holding at most size browsers.
func NewStore(size int, idle time.Duration, api settingsapi.Options, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	if size <= 0 {
		size = 1
	}
	builder := gcache.New(size).LRU().EvictedFunc(func(key, _ interface{}) {
		log.Debug("browser session evicted", "browser", key)
	})
	if idle > 0 {
		builder = builder.Expiration(idle)
	}
	return &Store{cache: builder.Build(), idle: idle, api: api, log: log}
}

// Get returns the browser for id and restarts its idle timer.
func (s *Store) Get(id string) (*Browser, bool) {
	if id == "" {
		return nil, false
	}
	value, err := s.cache.Get(id)
	if err != nil {
		if !errors.Is(err, gcache.KeyNotFoundError) {
			s.log.Warn("browser store lookup failed", "browser", id, "error", err)
		}
		return nil, false
	}
	browser, ok := value.(*Browser)
	if !ok {
		return nil, false
	}
	s.touch(browser)
	return browser, true
}

// Create registers a new browser and starts resolving its session.
func (s *Store) Create() (*Browser, error) {
	opts := s.api
	opts.Log = s.log
	client, err := settingsapi.New(opts)
	if err != nil {
		return nil, fmt.Errorf("create settings api client: %w", err)
	}

	browser := newBrowser(uuid.NewString(), client, s.log)
	if err := s.cache.Set(browser.ID, browser); err != nil {
		return nil, fmt.Errorf("store browser: %w", err)
	}
	browsersCreated.Inc()
	s.log.Debug("browser session created", "browser", browser.ID)

	go browser.resolve(context.Background())
	return browser, nil
}

// Len returns the number of live browsers.
func (s *Store) Len() int {
	return s.cache.Len(true)
}

func (s *Store) touch(browser *Browser) {
	if s.idle <= 0 {
		return
	}
	if err := s.cache.SetWithExpire(browser.ID, browser, s.idle); err != nil {
		s.log.Warn("failed to refresh browser session", "browser", browser.ID, "error", err)
	}
}
