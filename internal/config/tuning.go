// Package config holds the tunable timing and capacity parameters of the
// control core. None of the timeouts are semantically meaningful
// constants; deployments tune them per arm and per link speed, so they
// load from JSON with safe defaults for anything omitted.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Tuning is the root configuration for the frame pipeline and lifecycle
// layer. Fields are pointers so a partial JSON file only overrides what
// it names; the Get* accessors supply defaults for the rest.
type Tuning struct {
	// Pipeline timing.
	ReceiveTimeout     *string `json:"receive_timeout,omitempty"`      // RX poll window, e.g. "2ms"
	GroupCommitTimeout *string `json:"group_commit_timeout,omitempty"` // partial-group publish deadline
	StaleTimeout       *string `json:"stale_timeout,omitempty"`        // pending-accumulator reset
	EchoSuppressWindow *string `json:"echo_suppress_window,omitempty"` // loop-back filter window
	JoinTimeout        *string `json:"join_timeout,omitempty"`         // bounded loop join on shutdown

	// Lifecycle timing.
	HandshakeTimeout      *string `json:"handshake_timeout,omitempty"`       // acknowledgement deadline
	HandshakePollInterval *string `json:"handshake_poll_interval,omitempty"` // diagnostics poll period

	// Capacities.
	HookQueueCapacity    *int `json:"hook_queue_capacity,omitempty"`    // per-observer delivery queue
	CommandQueueCapacity *int `json:"command_queue_capacity,omitempty"` // reliable one-shot commands
	EchoRingSize         *int `json:"echo_ring_size,omitempty"`         // recently-sent id ring

	// Diagnostics.
	DecodeLogInterval *string `json:"decode_log_interval,omitempty"` // decode-error log rate limit
}

// DefaultTuning returns a Tuning with every field unset, so every
// accessor reports its default.
func DefaultTuning() *Tuning {
	return &Tuning{}
}

// LoadTuning loads a Tuning from a JSON file. The file must have a .json
// extension and stay under the size cap; fields omitted from the file
// retain their defaults, so partial configs are safe.
func LoadTuning(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultTuning()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that every set field parses and is in range.
func (c *Tuning) Validate() error {
	durations := []struct {
		name  string
		value *string
	}{
		{"receive_timeout", c.ReceiveTimeout},
		{"group_commit_timeout", c.GroupCommitTimeout},
		{"stale_timeout", c.StaleTimeout},
		{"echo_suppress_window", c.EchoSuppressWindow},
		{"join_timeout", c.JoinTimeout},
		{"handshake_timeout", c.HandshakeTimeout},
		{"handshake_poll_interval", c.HandshakePollInterval},
		{"decode_log_interval", c.DecodeLogInterval},
	}
	for _, d := range durations {
		if d.value == nil || *d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(*d.value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, *d.value, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("%s must be positive, got %q", d.name, *d.value)
		}
	}

	counts := []struct {
		name  string
		value *int
	}{
		{"hook_queue_capacity", c.HookQueueCapacity},
		{"command_queue_capacity", c.CommandQueueCapacity},
		{"echo_ring_size", c.EchoRingSize},
	}
	for _, n := range counts {
		if n.value != nil && *n.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", n.name, *n.value)
		}
	}

	return nil
}

func (c *Tuning) duration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetReceiveTimeout returns the RX poll window.
func (c *Tuning) GetReceiveTimeout() time.Duration {
	return c.duration(c.ReceiveTimeout, 2*time.Millisecond)
}

// GetGroupCommitTimeout returns the partial-group publish deadline.
func (c *Tuning) GetGroupCommitTimeout() time.Duration {
	return c.duration(c.GroupCommitTimeout, 10*time.Millisecond)
}

// GetStaleTimeout returns how long a partially filled accumulator may go
// without traffic before it is discarded.
func (c *Tuning) GetStaleTimeout() time.Duration {
	return c.duration(c.StaleTimeout, 50*time.Millisecond)
}

// GetEchoSuppressWindow returns the loop-back filter window.
func (c *Tuning) GetEchoSuppressWindow() time.Duration {
	return c.duration(c.EchoSuppressWindow, 5*time.Millisecond)
}

// GetJoinTimeout returns the bounded wait for loop shutdown.
func (c *Tuning) GetJoinTimeout() time.Duration {
	return c.duration(c.JoinTimeout, 250*time.Millisecond)
}

// GetHandshakeTimeout returns the acknowledgement deadline for lifecycle
// transitions.
func (c *Tuning) GetHandshakeTimeout() time.Duration {
	return c.duration(c.HandshakeTimeout, time.Second)
}

// GetHandshakePollInterval returns how often a transition re-checks the
// diagnostics snapshot while waiting for an acknowledgement.
func (c *Tuning) GetHandshakePollInterval() time.Duration {
	return c.duration(c.HandshakePollInterval, time.Millisecond)
}

// GetDecodeLogInterval returns the decode-error log rate limit.
func (c *Tuning) GetDecodeLogInterval() time.Duration {
	return c.duration(c.DecodeLogInterval, time.Second)
}

// GetHookQueueCapacity returns the per-observer delivery queue capacity.
func (c *Tuning) GetHookQueueCapacity() int {
	if c.HookQueueCapacity == nil || *c.HookQueueCapacity <= 0 {
		return 64
	}
	return *c.HookQueueCapacity
}

// GetCommandQueueCapacity returns the reliable command queue capacity.
func (c *Tuning) GetCommandQueueCapacity() int {
	if c.CommandQueueCapacity == nil || *c.CommandQueueCapacity <= 0 {
		return 32
	}
	return *c.CommandQueueCapacity
}

// GetEchoRingSize returns the size of the recently-sent id ring used by
// the loop-back filter.
func (c *Tuning) GetEchoRingSize() int {
	if c.EchoRingSize == nil || *c.EchoRingSize <= 0 {
		return 32
	}
	return *c.EchoRingSize
}
