package ratelimit

import "time"

// Config tunes one scheduler instance.
type Config struct {
	Name        string
	Window      time.Duration
	MaxRequests int
	// MinDelay is enforced between consecutive dispatches even when the
	// window has headroom.
	MinDelay time.Duration
	// SafetyBuffer is added to every computed window or reset wait.
	SafetyBuffer time.Duration
	MaxRetries   int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	Classifier   Classifier
}

// RedditConfig stays under Reddit's 60 requests/minute OAuth budget.
func RedditConfig() Config {
	return Config{
		Name:         "reddit",
		Window:       time.Minute,
		MaxRequests:  50,
		MinDelay:     1200 * time.Millisecond,
		SafetyBuffer: 100 * time.Millisecond,
		MaxRetries:   3,
		BaseBackoff:  2 * time.Second,
		MaxBackoff:   time.Minute,
	}
}

// TwitterConfig matches the recent search budget of 300 requests per 15 minutes.
func TwitterConfig() Config {
	return Config{
		Name:         "twitter",
		Window:       15 * time.Minute,
		MaxRequests:  300,
		MinDelay:     3 * time.Second,
		SafetyBuffer: time.Second,
		MaxRetries:   3,
		BaseBackoff:  5 * time.Second,
		MaxBackoff:   15 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.MaxRequests <= 0 {
		c.MaxRequests = 1
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = c.Window
	}
	if c.Classifier == nil {
		c.Classifier = DefaultClassifier
	}
	return c
}
