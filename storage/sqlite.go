package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"nutripilot"
)

// SQLiteRepository is a Repository backed by a SQLite database file.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS profiles (
        user_id TEXT PRIMARY KEY,
        display_name TEXT NOT NULL,
        goals TEXT NOT NULL,
        conditions TEXT NOT NULL,
        dietary_restrictions TEXT NOT NULL,
        daily_targets TEXT NOT NULL,
        timeline_weeks INTEGER NOT NULL,
        start_date DATETIME NOT NULL,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS meal_log (
        entry_id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        timestamp DATETIME NOT NULL,
        meal_type TEXT NOT NULL,
        food_names TEXT NOT NULL,
        total_calories REAL NOT NULL,
        total_protein REAL NOT NULL,
        total_carbs REAL NOT NULL,
        total_fat REAL NOT NULL,
        total_fiber REAL NOT NULL,
        total_sodium REAL NOT NULL,
        meal_score REAL NOT NULL,
        goal_alignment_score REAL NOT NULL,
        goal_feedback TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_meal_log_user_ts ON meal_log(user_id, timestamp);
    `

	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) SaveProfile(ctx context.Context, profile nutripilot.UserProfile) error {
	goals, err := json.Marshal(profile.Goals)
	if err != nil {
		return fmt.Errorf("failed to marshal goals: %w", err)
	}
	conditions, err := json.Marshal(profile.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}
	restrictions, err := json.Marshal(profile.DietaryRestrictions)
	if err != nil {
		return fmt.Errorf("failed to marshal dietary restrictions: %w", err)
	}
	targets, err := json.Marshal(profile.DailyTargets)
	if err != nil {
		return fmt.Errorf("failed to marshal daily targets: %w", err)
	}

	query := `
        INSERT INTO profiles (user_id, display_name, goals, conditions, dietary_restrictions,
            daily_targets, timeline_weeks, start_date, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET
            display_name = excluded.display_name,
            goals = excluded.goals,
            conditions = excluded.conditions,
            dietary_restrictions = excluded.dietary_restrictions,
            daily_targets = excluded.daily_targets,
            timeline_weeks = excluded.timeline_weeks,
            start_date = excluded.start_date,
            updated_at = excluded.updated_at
    `
	_, err = r.db.ExecContext(ctx, query,
		profile.UserID, profile.DisplayName, string(goals), string(conditions),
		string(restrictions), string(targets), profile.TimelineWeeks,
		profile.StartDate, profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (nutripilot.UserProfile, error) {
	query := `
        SELECT user_id, display_name, goals, conditions, dietary_restrictions,
            daily_targets, timeline_weeks, start_date, created_at, updated_at
        FROM profiles WHERE user_id = ?
    `
	row := r.db.QueryRowContext(ctx, query, userID)

	var profile nutripilot.UserProfile
	var goals, conditions, restrictions, targets string
	err := row.Scan(&profile.UserID, &profile.DisplayName, &goals, &conditions,
		&restrictions, &targets, &profile.TimelineWeeks, &profile.StartDate,
		&profile.CreatedAt, &profile.UpdatedAt)
	if err == sql.ErrNoRows {
		return nutripilot.UserProfile{}, ErrProfileNotFound
	}
	if err != nil {
		return nutripilot.UserProfile{}, fmt.Errorf("failed to scan profile: %w", err)
	}

	if err := json.Unmarshal([]byte(goals), &profile.Goals); err != nil {
		return nutripilot.UserProfile{}, fmt.Errorf("failed to unmarshal goals: %w", err)
	}
	if err := json.Unmarshal([]byte(conditions), &profile.Conditions); err != nil {
		return nutripilot.UserProfile{}, fmt.Errorf("failed to unmarshal conditions: %w", err)
	}
	if err := json.Unmarshal([]byte(restrictions), &profile.DietaryRestrictions); err != nil {
		return nutripilot.UserProfile{}, fmt.Errorf("failed to unmarshal dietary restrictions: %w", err)
	}
	if err := json.Unmarshal([]byte(targets), &profile.DailyTargets); err != nil {
		return nutripilot.UserProfile{}, fmt.Errorf("failed to unmarshal daily targets: %w", err)
	}
	return profile, nil
}

func (r *SQLiteRepository) DeleteProfile(ctx context.Context, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM meal_log WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to delete meal history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM profiles WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return tx.Commit()
}

func (r *SQLiteRepository) LogMeal(ctx context.Context, entry nutripilot.MealLogEntry) error {
	foodNames, err := json.Marshal(entry.FoodNames)
	if err != nil {
		return fmt.Errorf("failed to marshal food names: %w", err)
	}
	feedback, err := json.Marshal(entry.GoalFeedback)
	if err != nil {
		return fmt.Errorf("failed to marshal goal feedback: %w", err)
	}

	query := `
        INSERT INTO meal_log (entry_id, user_id, timestamp, meal_type, food_names,
            total_calories, total_protein, total_carbs, total_fat, total_fiber,
            total_sodium, meal_score, goal_alignment_score, goal_feedback)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err = r.db.ExecContext(ctx, query,
		entry.EntryID, entry.UserID, entry.Timestamp, string(entry.MealType),
		string(foodNames), entry.TotalCals, entry.TotalProtein, entry.TotalCarbs,
		entry.TotalFat, entry.TotalFiber, entry.TotalSodium,
		entry.MealScore, entry.GoalAlignmentScore, string(feedback))
	if err != nil {
		return fmt.Errorf("failed to insert meal log entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MealHistory(ctx context.Context, userID string, since time.Time, limit int) ([]nutripilot.MealLogEntry, error) {
	query := `
        SELECT entry_id, user_id, timestamp, meal_type, food_names,
            total_calories, total_protein, total_carbs, total_fat, total_fiber,
            total_sodium, meal_score, goal_alignment_score, goal_feedback
        FROM meal_log
        WHERE user_id = ? AND timestamp >= ?
        ORDER BY timestamp DESC
    `
	args := []any{userID, since}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query meal history: %w", err)
	}
	defer rows.Close()

	var entries []nutripilot.MealLogEntry
	for rows.Next() {
		var entry nutripilot.MealLogEntry
		var mealType, foodNames, feedback string
		err := rows.Scan(&entry.EntryID, &entry.UserID, &entry.Timestamp, &mealType,
			&foodNames, &entry.TotalCals, &entry.TotalProtein, &entry.TotalCarbs,
			&entry.TotalFat, &entry.TotalFiber, &entry.TotalSodium,
			&entry.MealScore, &entry.GoalAlignmentScore, &feedback)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal log entry: %w", err)
		}
		entry.MealType = nutripilot.MealType(mealType)
		if err := json.Unmarshal([]byte(foodNames), &entry.FoodNames); err != nil {
			return nil, fmt.Errorf("failed to unmarshal food names: %w", err)
		}
		if err := json.Unmarshal([]byte(feedback), &entry.GoalFeedback); err != nil {
			return nil, fmt.Errorf("failed to unmarshal goal feedback: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meal history: %w", err)
	}
	return entries, nil
}

func (r *SQLiteRepository) Dashboard(ctx context.Context, userID string, days int) (DashboardSummary, error) {
	since := time.Now().AddDate(0, 0, -days)
	entries, err := r.MealHistory(ctx, userID, since, 0)
	if err != nil {
		return DashboardSummary{}, err
	}
	return summarize(userID, days, entries), nil
}
