package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
	"gorm.io/gorm"
)

// hitSQL increments the counter, or starts a fresh window when the stored one
// has expired, in a single statement. When neither condition holds the
// DO UPDATE is skipped and RETURNING yields no row, which means "denied".
// Runs unchanged on PostgreSQL and SQLite >= 3.35.
const hitSQL = `
INSERT INTO rate_limit_windows (fingerprint, "count", window_start, updated_at)
VALUES (@key, 1, @now, @now)
ON CONFLICT (fingerprint) DO UPDATE SET
	"count" = CASE WHEN rate_limit_windows.window_start <= @cutoff THEN 1 ELSE rate_limit_windows."count" + 1 END,
	window_start = CASE WHEN rate_limit_windows.window_start <= @cutoff THEN excluded.window_start ELSE rate_limit_windows.window_start END,
	updated_at = excluded.updated_at
WHERE rate_limit_windows.window_start <= @cutoff OR rate_limit_windows."count" < @limit
RETURNING "count"`

// GormWindowStore keeps rate limit windows in the shared database so every
// service instance sees the same counters.
type GormWindowStore struct {
	db *gorm.DB
}

func NewGormWindowStore(db *gorm.DB) *GormWindowStore {
	return &GormWindowStore{db: db}
}

// WindowBackend is a WindowStore that can also drop expired windows.
type WindowBackend interface {
	WindowStore
	EvictExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewWindowStore picks the rate limit backend by name: "memory" or, for
// anything else, the shared database.
func NewWindowStore(kind string, db *gorm.DB) WindowBackend {
	if kind == "memory" {
		return NewMemoryWindowStore()
	}
	return NewGormWindowStore(db)
}

func (s *GormWindowStore) Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (WindowState, bool, error) {
	now = now.UTC()
	var counts []int
	err := s.db.WithContext(ctx).Raw(hitSQL, map[string]interface{}{
		"key":    key,
		"now":    now,
		"cutoff": now.Add(-window),
		"limit":  limit,
	}).Scan(&counts).Error
	if err != nil {
		return WindowState{}, false, fmt.Errorf("failed to record rate limit hit: %w", err)
	}
	if len(counts) > 0 {
		return WindowState{Count: counts[0]}, true, nil
	}

	// Denied. The row is read only to tell the caller when to come back.
	var w models.RateLimitWindow
	if err := s.db.WithContext(ctx).Where("fingerprint = ?", key).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WindowState{Count: limit}, false, nil
		}
		return WindowState{}, false, fmt.Errorf("failed to read rate limit window: %w", err)
	}
	return WindowState{Count: w.Count, WindowStart: w.WindowStart}, false, nil
}

// EvictExpired deletes windows that started before cutoff.
func (s *GormWindowStore) EvictExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("window_start <= ?", cutoff.UTC()).Delete(&models.RateLimitWindow{})
	return result.RowsAffected, result.Error
}

// MemoryWindowStore is an in-process WindowStore. Counters are lost on restart
// and not shared between instances; select it with RATE_LIMIT_STORE=memory.
type MemoryWindowStore struct {
	mu      sync.Mutex
	windows map[string]*WindowState
}

func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{windows: make(map[string]*WindowState)}
}

func (s *MemoryWindowStore) Hit(_ context.Context, key string, limit int, window time.Duration, now time.Time) (WindowState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !now.Before(w.WindowStart.Add(window)) {
		w = &WindowState{WindowStart: now}
		s.windows[key] = w
	}
	if w.Count >= limit {
		return *w, false, nil
	}
	w.Count++
	return *w, true, nil
}

func (s *MemoryWindowStore) EvictExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted int64
	for key, w := range s.windows {
		if !w.WindowStart.After(cutoff) {
			delete(s.windows, key)
			evicted++
		}
	}
	return evicted, nil
}
