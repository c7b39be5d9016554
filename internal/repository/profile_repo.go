package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/csvtree/csvtree-api/internal/models"
)

// SQLiteProfileRepository implements ProfileRepository for SQLite.
type SQLiteProfileRepository struct {
	db *sql.DB
}

// NewSQLiteProfileRepository creates a new SQLite profile repository.
func NewSQLiteProfileRepository(db *sql.DB) *SQLiteProfileRepository {
	return &SQLiteProfileRepository{db: db}
}

const profileColumns = `user_id, email, display_name, credits, max_credits, tier,
	last_reset_date, created_at, updated_at`

func (r *SQLiteProfileRepository) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE user_id = ?`
	profile, err := scanProfileFields(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	return profile, nil
}

func (r *SQLiteProfileRepository) Create(ctx context.Context, profile *models.UserProfile) error {
	query := `
		INSERT INTO user_profiles (user_id, email, display_name, credits, max_credits, tier,
			last_reset_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		profile.UserID,
		nullString(profile.Email),
		nullString(profile.DisplayName),
		profile.Credits,
		profile.MaxCredits,
		profile.Tier,
		profile.LastResetDate.Format(time.RFC3339),
		profile.CreatedAt.Format(time.RFC3339),
		profile.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *SQLiteProfileRepository) Update(ctx context.Context, profile *models.UserProfile) error {
	query := `
		UPDATE user_profiles SET email = ?, display_name = ?, credits = ?, max_credits = ?,
			tier = ?, last_reset_date = ?, updated_at = ?
		WHERE user_id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		nullString(profile.Email),
		nullString(profile.DisplayName),
		profile.Credits,
		profile.MaxCredits,
		profile.Tier,
		profile.LastResetDate.Format(time.RFC3339),
		time.Now().Format(time.RFC3339),
		profile.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// DecrementCredits spends credits atomically. The WHERE clause guards the
// balance so a concurrent spend can never drive it negative.
func (r *SQLiteProfileRepository) DecrementCredits(ctx context.Context, userID string, amount int) (bool, error) {
	if amount < 0 {
		return false, fmt.Errorf("decrement amount must be non-negative, got %d", amount)
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE user_profiles SET credits = credits - ?, updated_at = ? WHERE user_id = ? AND credits >= ?",
		amount,
		time.Now().Format(time.RFC3339),
		userID,
		amount,
	)
	if err != nil {
		return false, fmt.Errorf("failed to decrement credits: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected > 0, nil
}

// SetTier switches the tier and resets credits and max_credits to the tier
// allocation. Tier changes replace the balance, they do not add to it.
func (r *SQLiteProfileRepository) SetTier(ctx context.Context, userID, tier string, credits int) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE user_profiles SET tier = ?, credits = ?, max_credits = ?, last_reset_date = ?, updated_at = ? WHERE user_id = ?",
		tier,
		credits,
		credits,
		time.Now().Format(time.RFC3339),
		time.Now().Format(time.RFC3339),
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set tier: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("profile not found: %s", userID)
	}
	return nil
}

func (r *SQLiteProfileRepository) SetCredits(ctx context.Context, userID string, credits, maxCredits int) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE user_profiles SET credits = ?, max_credits = ?, updated_at = ? WHERE user_id = ?",
		credits,
		maxCredits,
		time.Now().Format(time.RFC3339),
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set credits: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("profile not found: %s", userID)
	}
	return nil
}

func (r *SQLiteProfileRepository) List(ctx context.Context, limit, offset int) ([]*models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles ORDER BY created_at ASC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.UserProfile
	for rows.Next() {
		profile, err := scanProfileFields(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

func (r *SQLiteProfileRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM user_profiles WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

func scanProfileFields(s rowScanner) (*models.UserProfile, error) {
	var profile models.UserProfile
	var email, displayName sql.NullString
	var lastResetDate, createdAt, updatedAt string

	err := s.Scan(
		&profile.UserID, &email, &displayName, &profile.Credits, &profile.MaxCredits,
		&profile.Tier, &lastResetDate, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	profile.Email = email.String
	profile.DisplayName = displayName.String
	profile.LastResetDate, _ = time.Parse(time.RFC3339, lastResetDate)
	profile.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	profile.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &profile, nil
}
