package config

import "time"

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// DebounceInterval is the trailing quiet period before a watcher signal fires.
func (c *Config) DebounceInterval() time.Duration {
	return time.Duration(c.Ingest.DebounceMillis) * time.Millisecond
}

// MinFileAge is the minimum age a file must reach before it is processed.
func (c *Config) MinFileAge() time.Duration { return seconds(c.Ingest.MinFileAgeSeconds) }

// RescanInterval is the period of the background directory rescan.
func (c *Config) RescanInterval() time.Duration { return seconds(c.Ingest.RescanIntervalSeconds) }

// RetryBaseDelay is the first backoff delay.
func (c *Config) RetryBaseDelay() time.Duration { return seconds(c.Retry.BaseDelaySeconds) }

// RetryMaxDelay caps the backoff delay.
func (c *Config) RetryMaxDelay() time.Duration { return seconds(c.Retry.MaxDelaySeconds) }

// RetryTickInterval is how often the retry scheduler looks for due files.
func (c *Config) RetryTickInterval() time.Duration { return seconds(c.Retry.TickIntervalSeconds) }

// ReadyTimeout bounds the wait for classifier readiness in wait mode.
func (c *Config) ReadyTimeout() time.Duration { return seconds(c.Classifier.ReadyTimeoutSeconds) }

// ReadinessPollInterval is how often the classifier health is probed.
func (c *Config) ReadinessPollInterval() time.Duration {
	return seconds(c.Classifier.ReadinessPollSeconds)
}

// NotificationTimeout bounds a single ntfy request.
func (c *Config) NotificationTimeout() time.Duration { return seconds(c.Notifications.RequestTimeout) }
