package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"nutripilot"
)

// MemoryRepository is an in-memory Repository for local runs and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]nutripilot.UserProfile
	meals    map[string][]nutripilot.MealLogEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		profiles: make(map[string]nutripilot.UserProfile),
		meals:    make(map[string][]nutripilot.MealLogEntry),
	}
}

func (r *MemoryRepository) SaveProfile(ctx context.Context, profile nutripilot.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.UserID] = profile
	return nil
}

func (r *MemoryRepository) GetProfile(ctx context.Context, userID string) (nutripilot.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[userID]
	if !ok {
		return nutripilot.UserProfile{}, ErrProfileNotFound
	}
	return profile, nil
}

func (r *MemoryRepository) DeleteProfile(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, userID)
	delete(r.meals, userID)
	return nil
}

func (r *MemoryRepository) LogMeal(ctx context.Context, entry nutripilot.MealLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meals[entry.UserID] = append(r.meals[entry.UserID], entry)
	return nil
}

func (r *MemoryRepository) MealHistory(ctx context.Context, userID string, since time.Time, limit int) ([]nutripilot.MealLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []nutripilot.MealLogEntry
	for _, e := range r.meals[userID] {
		if e.Timestamp.Before(since) {
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *MemoryRepository) Dashboard(ctx context.Context, userID string, days int) (DashboardSummary, error) {
	since := time.Now().AddDate(0, 0, -days)
	entries, err := r.MealHistory(ctx, userID, since, 0)
	if err != nil {
		return DashboardSummary{}, err
	}
	return summarize(userID, days, entries), nil
}
