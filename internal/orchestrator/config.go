package orchestrator

import (
	"time"

	"github.com/rs/zerolog"

	"qvox/internal/backend"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultTickInterval = time.Second
)

// Config encapsulates the tunables of an Orchestrator.
type Config struct {
	// TickInterval is the period of Run and the amount Elapsed advances per
	// successful poll.
	TickInterval time.Duration
	// HealthTimeout bounds the wait for readiness; 0 waits indefinitely.
	HealthTimeout time.Duration
	Logger        zerolog.Logger
	Publisher     EventPublisher
	// NewBackend builds the backend client for a base endpoint. Defaults to
	// backend.NewClient.
	NewBackend func(baseURL string) Backend
	// Now is the clock used for task creation times.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.HealthTimeout < 0 {
		c.HealthTimeout = 0
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	if c.NewBackend == nil {
		log := c.Logger
		c.NewBackend = func(baseURL string) Backend {
			return backend.NewClient(baseURL, backend.Options{Logger: log})
		}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
