package diet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ProfileStore persists one profile per user. Writes replace the whole profile.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)
	PutProfile(ctx context.Context, userID string, profile UserProfile) error
}

// MealLogStore persists one meal description per user and calendar date.
// Putting an empty description deletes the entry.
type MealLogStore interface {
	GetMealLog(ctx context.Context, userID, date string) (string, bool, error)
	PutMealLog(ctx context.Context, userID, date, description string) error
	ListMealLogs(ctx context.Context, userID string) (map[string]string, error)
}

// Store is the union of both stores, as served by every backend.
type Store interface {
	ProfileStore
	MealLogStore
	Close() error
}

// DefaultMemoryUsers bounds the memory backend when no size is configured.
const DefaultMemoryUsers = 10000

// Open creates the Store backend named by driver: "postgres", "sqlite" or "memory".
// memoryUsers bounds the memory backend; zero or less means DefaultMemoryUsers.
func Open(driver, dataSourceName string, memoryUsers int) (Store, error) {
	var (
		store Store
		err   error
	)
	switch driver {
	case "postgres":
		store, err = NewPostgresStore(dataSourceName)
	case "sqlite":
		store, err = NewSQLiteStore(dataSourceName)
	case "memory", "":
		if memoryUsers <= 0 {
			memoryUsers = DefaultMemoryUsers
		}
		store, err = NewMemoryStore(memoryUsers)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// SQLStore implements Store on top of PostgreSQL or SQLite.
type SQLStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a new SQLStore backed by PostgreSQL.
func NewPostgresStore(dataSourceName string) (*SQLStore, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return newSQLStore(db)
}

// NewSQLiteStore creates a new SQLStore backed by a SQLite file.
func NewSQLiteStore(path string) (*SQLStore, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY and keeps
	// ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	return newSQLStore(db)
}

func newSQLStore(db *sqlx.DB) (*SQLStore, error) {
	// Create profiles table if not exists
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		age INTEGER,
		weight DOUBLE PRECISION,
		activity_level TEXT NOT NULL,
		dietary_goals TEXT NOT NULL,
		dietary_preference TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create profiles table: %w", err)
	}

	// Create meal_logs table if not exists
	schema = `
	CREATE TABLE IF NOT EXISTS meal_logs (
		user_id TEXT NOT NULL,
		log_date TEXT NOT NULL,
		description TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, log_date)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create meal_logs table: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type profileRow struct {
	Age               sql.NullInt64   `db:"age"`
	Weight            sql.NullFloat64 `db:"weight"`
	ActivityLevel     string          `db:"activity_level"`
	DietaryGoals      string          `db:"dietary_goals"`
	DietaryPreference string          `db:"dietary_preference"`
}

// GetProfile retrieves the profile of userID, or nil if none was saved.
func (s *SQLStore) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	var row profileRow
	query := s.db.Rebind("SELECT age, weight, activity_level, dietary_goals, dietary_preference FROM profiles WHERE user_id = ?")
	if err := s.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Profile not found
		}
		return nil, &StorageError{Op: "get profile", Err: err}
	}

	p := &UserProfile{
		ActivityLevel:     ActivityLevel(row.ActivityLevel),
		DietaryGoals:      DietaryGoal(row.DietaryGoals),
		DietaryPreference: DietaryPreference(row.DietaryPreference),
	}
	if row.Age.Valid {
		age := int(row.Age.Int64)
		p.Age = &age
	}
	if row.Weight.Valid {
		weight := row.Weight.Float64
		p.Weight = &weight
	}
	return p, nil
}

// PutProfile saves the profile of userID, replacing any previous one.
func (s *SQLStore) PutProfile(ctx context.Context, userID string, profile UserProfile) error {
	var age sql.NullInt64
	if profile.Age != nil {
		age = sql.NullInt64{Int64: int64(*profile.Age), Valid: true}
	}
	var weight sql.NullFloat64
	if profile.Weight != nil {
		weight = sql.NullFloat64{Float64: *profile.Weight, Valid: true}
	}

	query := s.db.Rebind(`INSERT INTO profiles (user_id, age, weight, activity_level, dietary_goals, dietary_preference, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET age = excluded.age, weight = excluded.weight,
		activity_level = excluded.activity_level, dietary_goals = excluded.dietary_goals,
		dietary_preference = excluded.dietary_preference, updated_at = excluded.updated_at`)
	_, err := s.db.ExecContext(ctx, query,
		userID,
		age,
		weight,
		string(profile.ActivityLevel),
		string(profile.DietaryGoals),
		string(profile.DietaryPreference),
		time.Now().UTC(),
	)
	if err != nil {
		return &StorageError{Op: "put profile", Err: err}
	}
	return nil
}

// GetMealLog retrieves the meal description of userID for date.
func (s *SQLStore) GetMealLog(ctx context.Context, userID, date string) (string, bool, error) {
	var description string
	query := s.db.Rebind("SELECT description FROM meal_logs WHERE user_id = ? AND log_date = ?")
	if err := s.db.GetContext(ctx, &description, query, userID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, &StorageError{Op: "get meal log", Err: err}
	}
	return description, true, nil
}

// PutMealLog saves the meal description of userID for date. An empty description
// deletes the entry.
func (s *SQLStore) PutMealLog(ctx context.Context, userID, date, description string) error {
	if description == "" {
		query := s.db.Rebind("DELETE FROM meal_logs WHERE user_id = ? AND log_date = ?")
		if _, err := s.db.ExecContext(ctx, query, userID, date); err != nil {
			return &StorageError{Op: "delete meal log", Err: err}
		}
		return nil
	}

	query := s.db.Rebind(`INSERT INTO meal_logs (user_id, log_date, description, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, log_date) DO UPDATE SET description = excluded.description, updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, query, userID, date, description, time.Now().UTC()); err != nil {
		return &StorageError{Op: "put meal log", Err: err}
	}
	return nil
}

// ListMealLogs retrieves every meal description of userID keyed by date.
func (s *SQLStore) ListMealLogs(ctx context.Context, userID string) (map[string]string, error) {
	query := s.db.Rebind("SELECT log_date, description FROM meal_logs WHERE user_id = ? ORDER BY log_date")
	rows, err := s.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, &StorageError{Op: "list meal logs", Err: err}
	}
	defer rows.Close()

	logs := make(map[string]string)
	for rows.Next() {
		var date, description string
		if err := rows.Scan(&date, &description); err != nil {
			return nil, &StorageError{Op: "list meal logs", Err: fmt.Errorf("failed to scan meal log row: %w", err)}
		}
		logs[date] = description
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list meal logs", Err: err}
	}
	return logs, nil
}
