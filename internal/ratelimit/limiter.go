// Package ratelimit limits how often an editor may change match results.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const window = time.Minute

// Config holds rate limit configuration.
type Config struct {
	// Result changes allowed per editor per window; 0 disables limiting
	MaxPerMinute int

	// Clock for testing (nil uses real time)
	Clock clockwork.Clock
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

// entry tracks requests in the current fixed window.
type entry struct {
	count   int
	firstAt time.Time
}

// Limiter applies a fixed one-minute window per editor.
type Limiter struct {
	config  Config
	clock   clockwork.Clock
	mu      sync.Mutex
	entries map[string]*entry

	// Cleanup goroutine management
	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

// New creates a new rate limiter with the given config.
func New(cfg Config) *Limiter {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        cfg,
		clock:         clock,
		entries:       make(map[string]*entry),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine and releases resources.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

// Allow checks and records one result change for editorID.
func (l *Limiter) Allow(editorID string) LimitResult {
	if l.config.MaxPerMinute <= 0 {
		return LimitResult{Allowed: true}
	}
	l.startCleanup()

	now := l.clock.Now()
	key := hashKey("edit:", normalizeIdentifier(editorID))

	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entries[key]
	if e == nil || now.Sub(e.firstAt) >= window {
		l.entries[key] = &entry{count: 1, firstAt: now}
		return LimitResult{Allowed: true}
	}
	if e.count >= l.config.MaxPerMinute {
		return LimitResult{
			Allowed:    false,
			RetryAfter: window - now.Sub(e.firstAt),
			Reason:     "minute_limit",
		}
	}
	e.count++
	return LimitResult{Allowed: true}
}

func hashKey(prefix, value string) string {
	hash := sha256.Sum256([]byte(value))
	return prefix + hex.EncodeToString(hash[:8])
}

// normalizeIdentifier lowercases the identifier to prevent case-based bypass.
func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func (l *Limiter) startCleanup() {
	l.cleanupOnce.Do(func() {
		l.cleanupWg.Add(1)
		go func() {
			defer l.cleanupWg.Done()
			ticker := l.clock.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-l.cleanupCtx.Done():
					return
				case <-ticker.Chan():
					l.cleanup()
				}
			}
		}()
	})
}

func (l *Limiter) cleanup() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.entries {
		if now.Sub(e.firstAt) >= window {
			delete(l.entries, k)
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
