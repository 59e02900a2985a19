package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"nutripilot"
	"nutripilot/storage"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

// repositories runs a subtest against each Repository implementation so the
// backends stay behaviorally identical.
func repositories(t *testing.T, test func(t *testing.T, repo storage.Repository)) {
	t.Run("memory", func(t *testing.T) {
		test(t, storage.NewMemoryRepository())
	})
	t.Run("sqlite", func(t *testing.T) {
		repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
		must.NoError(t, err)
		t.Cleanup(func() { repo.Close() })
		test(t, repo)
	})
}

func testProfile(userID string) nutripilot.UserProfile {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return nutripilot.UserProfile{
		UserID:       userID,
		DisplayName:  "Test User",
		Goals:        []nutripilot.HealthGoal{nutripilot.GoalWeightLoss},
		Conditions:   []nutripilot.HealthCondition{nutripilot.ConditionHypertension},
		DailyTargets: nutripilot.DefaultDailyTargets(),
		StartDate:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func testEntry(userID string, ts time.Time, calories float64) nutripilot.MealLogEntry {
	return nutripilot.MealLogEntry{
		EntryID:            userID + "-" + ts.Format(time.RFC3339),
		UserID:             userID,
		Timestamp:          ts,
		MealType:           nutripilot.MealTypeLunch,
		FoodNames:          []string{"salmon", "quinoa"},
		TotalCals:          calories,
		TotalProtein:       30,
		TotalCarbs:         40,
		TotalFat:           15,
		TotalFiber:         6,
		TotalSodium:        400,
		MealScore:          80,
		GoalAlignmentScore: 75,
		GoalFeedback:       []string{"Great job!"},
	}
}

func TestProfileRoundTrip(t *testing.T) {
	repositories(t, func(t *testing.T, repo storage.Repository) {
		ctx := context.Background()

		_, err := repo.GetProfile(ctx, "u1")
		should.ErrorIs(t, err, storage.ErrProfileNotFound)

		profile := testProfile("u1")
		must.NoError(t, repo.SaveProfile(ctx, profile))

		got, err := repo.GetProfile(ctx, "u1")
		must.NoError(t, err)
		should.Equal(t, "Test User", got.DisplayName)
		should.Equal(t, []nutripilot.HealthGoal{nutripilot.GoalWeightLoss}, got.Goals)
		should.Equal(t, []nutripilot.HealthCondition{nutripilot.ConditionHypertension}, got.Conditions)
		should.Equal(t, profile.DailyTargets, got.DailyTargets)
	})
}

func TestSaveProfileUpserts(t *testing.T) {
	repositories(t, func(t *testing.T, repo storage.Repository) {
		ctx := context.Background()

		profile := testProfile("u1")
		must.NoError(t, repo.SaveProfile(ctx, profile))

		profile.DisplayName = "Renamed"
		profile.Goals = []nutripilot.HealthGoal{nutripilot.GoalMuscleBuilding}
		must.NoError(t, repo.SaveProfile(ctx, profile))

		got, err := repo.GetProfile(ctx, "u1")
		must.NoError(t, err)
		should.Equal(t, "Renamed", got.DisplayName)
		should.Equal(t, []nutripilot.HealthGoal{nutripilot.GoalMuscleBuilding}, got.Goals)
	})
}

func TestDeleteProfileRemovesHistory(t *testing.T) {
	repositories(t, func(t *testing.T, repo storage.Repository) {
		ctx := context.Background()

		must.NoError(t, repo.SaveProfile(ctx, testProfile("u1")))
		must.NoError(t, repo.LogMeal(ctx, testEntry("u1", time.Now().UTC(), 500)))
		must.NoError(t, repo.DeleteProfile(ctx, "u1"))

		_, err := repo.GetProfile(ctx, "u1")
		should.ErrorIs(t, err, storage.ErrProfileNotFound)

		entries, err := repo.MealHistory(ctx, "u1", time.Time{}, 0)
		must.NoError(t, err)
		should.Empty(t, entries)
	})
}

func TestMealHistoryOrderSinceAndLimit(t *testing.T) {
	repositories(t, func(t *testing.T, repo storage.Repository) {
		ctx := context.Background()
		base := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

		for i := 0; i < 4; i++ {
			entry := testEntry("u1", base.AddDate(0, 0, i), float64(400+i*100))
			must.NoError(t, repo.LogMeal(ctx, entry))
		}
		must.NoError(t, repo.LogMeal(ctx, testEntry("other", base, 999)))

		entries, err := repo.MealHistory(ctx, "u1", time.Time{}, 0)
		must.NoError(t, err)
		must.Len(t, entries, 4)
		should.Equal(t, 700.0, entries[0].TotalCals, "newest entry first")
		should.Equal(t, 400.0, entries[3].TotalCals)
		should.Equal(t, []string{"salmon", "quinoa"}, entries[0].FoodNames)
		should.Equal(t, []string{"Great job!"}, entries[0].GoalFeedback)

		entries, err = repo.MealHistory(ctx, "u1", base.AddDate(0, 0, 2), 0)
		must.NoError(t, err)
		should.Len(t, entries, 2)

		entries, err = repo.MealHistory(ctx, "u1", time.Time{}, 3)
		must.NoError(t, err)
		should.Len(t, entries, 3)
	})
}

func TestDashboard(t *testing.T) {
	repositories(t, func(t *testing.T, repo storage.Repository) {
		ctx := context.Background()
		now := time.Now().UTC()

		must.NoError(t, repo.LogMeal(ctx, testEntry("u1", now.Add(-26*time.Hour), 400)))
		must.NoError(t, repo.LogMeal(ctx, testEntry("u1", now.Add(-2*time.Hour), 600)))
		// Outside the 7-day window, must not count.
		must.NoError(t, repo.LogMeal(ctx, testEntry("u1", now.AddDate(0, 0, -10), 5000)))

		summary, err := repo.Dashboard(ctx, "u1", 7)
		must.NoError(t, err)

		should.Equal(t, "u1", summary.UserID)
		should.Equal(t, 7, summary.Days)
		should.Equal(t, 2, summary.EntryCount)
		should.Equal(t, 2, summary.DaysWithEntries)
		should.InDelta(t, 500.0, summary.AvgCalories, 0.001)
		should.InDelta(t, 80.0, summary.AvgMealScore, 0.001)
		should.InDelta(t, 75.0, summary.AvgAlignmentScore, 0.001)
		should.WithinDuration(t, now.Add(-2*time.Hour), summary.LastEntryTimestamp, time.Second)
	})
}

func TestDashboardEmptyHistory(t *testing.T) {
	repositories(t, func(t *testing.T, repo storage.Repository) {
		summary, err := repo.Dashboard(context.Background(), "nobody", 7)
		must.NoError(t, err)
		should.Zero(t, summary.EntryCount)
		should.Zero(t, summary.AvgCalories)
		should.True(t, summary.LastEntryTimestamp.IsZero())
	})
}
