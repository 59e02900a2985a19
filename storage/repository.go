// Package storage persists user profiles and meal history.
package storage

import (
	"context"
	"errors"
	"time"

	"nutripilot"
)

// ErrProfileNotFound is returned when no profile exists for a user ID.
var ErrProfileNotFound = errors.New("profile not found")

// DashboardSummary aggregates a user's recent meal history for progress
// display.
type DashboardSummary struct {
	UserID             string    `json:"user_id"`
	Days               int       `json:"days"`
	EntryCount         int       `json:"entry_count"`
	AvgCalories        float64   `json:"avg_calories"`
	AvgProtein         float64   `json:"avg_protein"`
	AvgCarbs           float64   `json:"avg_carbs"`
	AvgFiber           float64   `json:"avg_fiber"`
	AvgSodium          float64   `json:"avg_sodium"`
	AvgMealScore       float64   `json:"avg_meal_score"`
	AvgAlignmentScore  float64   `json:"avg_alignment_score"`
	DaysWithEntries    int       `json:"days_with_entries"`
	LastEntryTimestamp time.Time `json:"last_entry_timestamp,omitzero"`
}

// Repository is the persistence contract for profiles and meal logs. An
// instance is constructed and injected where needed; nothing holds global
// state.
type Repository interface {
	// SaveProfile creates or replaces a user profile.
	SaveProfile(ctx context.Context, profile nutripilot.UserProfile) error

	// GetProfile returns the profile for a user, ErrProfileNotFound when
	// absent.
	GetProfile(ctx context.Context, userID string) (nutripilot.UserProfile, error)

	// DeleteProfile removes a profile and its meal history.
	DeleteProfile(ctx context.Context, userID string) error

	// LogMeal appends an entry to the user's meal history.
	LogMeal(ctx context.Context, entry nutripilot.MealLogEntry) error

	// MealHistory returns the user's entries since the given time, newest
	// first, capped at limit when limit is positive.
	MealHistory(ctx context.Context, userID string, since time.Time, limit int) ([]nutripilot.MealLogEntry, error)

	// Dashboard aggregates the user's history over the trailing number of
	// days.
	Dashboard(ctx context.Context, userID string, days int) (DashboardSummary, error)
}

// summarize folds history entries into a DashboardSummary. Shared by the
// repository implementations.
func summarize(userID string, days int, entries []nutripilot.MealLogEntry) DashboardSummary {
	summary := DashboardSummary{
		UserID:     userID,
		Days:       days,
		EntryCount: len(entries),
	}
	if len(entries) == 0 {
		return summary
	}

	seen := make(map[string]bool)
	for _, e := range entries {
		summary.AvgCalories += e.TotalCals
		summary.AvgProtein += e.TotalProtein
		summary.AvgCarbs += e.TotalCarbs
		summary.AvgFiber += e.TotalFiber
		summary.AvgSodium += e.TotalSodium
		summary.AvgMealScore += e.MealScore
		summary.AvgAlignmentScore += e.GoalAlignmentScore
		seen[e.Timestamp.Format("2006-01-02")] = true
		if e.Timestamp.After(summary.LastEntryTimestamp) {
			summary.LastEntryTimestamp = e.Timestamp
		}
	}

	n := float64(len(entries))
	summary.AvgCalories /= n
	summary.AvgProtein /= n
	summary.AvgCarbs /= n
	summary.AvgFiber /= n
	summary.AvgSodium /= n
	summary.AvgMealScore /= n
	summary.AvgAlignmentScore /= n
	summary.DaysWithEntries = len(seen)

	return summary
}
