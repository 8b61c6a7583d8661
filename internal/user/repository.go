package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const profileColumns = `username, user_number, name, email, password_hash, age, gender, height_cm, weight_kg,
	dietary_preference, goal, activity_level, daily_calorie_target, allergies, profile_image_id, registered_at`

// Repository is a database-backed repository for user profiles.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts p under the next free handle "user<N>" and fills in
// p.Handle and p.Number. Number assignment and insert are one statement, so
// two concurrent registrations cannot receive the same handle.
func (r *Repository) Create(ctx context.Context, p *Profile) error {
	allergies, err := json.Marshal(p.Allergies)
	if err != nil {
		return fmt.Errorf("failed to marshal allergies: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (`+profileColumns+`)
		SELECT 'user' || n, n, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		FROM (SELECT COALESCE(MAX(user_number), 0) + 1 AS n FROM users)
		RETURNING username, user_number`,
		p.Name, p.Email, p.PasswordHash, p.Age, string(p.Gender), p.HeightCm, p.WeightKg,
		string(p.DietaryPreference), string(p.Goal), p.ActivityLevel, p.DailyCalorieTarget,
		string(allergies), p.ProfileImageID, p.RegisteredAt.UTC().Format(time.RFC3339))

	if err := row.Scan(&p.Handle, &p.Number); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetByHandle returns the profile, or nil when no user has that handle.
func (r *Repository) GetByHandle(ctx context.Context, handle string) (*Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM users WHERE username = ?`, handle)
}

// GetByEmail returns the profile with that exact email, or nil.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM users WHERE email = ?`, email)
}

// FindByName returns the earliest registered user whose name contains
// fragment, ignoring case, or nil.
func (r *Repository) FindByName(ctx context.Context, fragment string) (*Profile, error) {
	return r.getOne(ctx,
		`SELECT `+profileColumns+` FROM users WHERE instr(lower(name), lower(?)) > 0 ORDER BY user_number LIMIT 1`,
		fragment)
}

// NextHandle previews the handle the next registration will receive.
func (r *Repository) NextHandle(ctx context.Context) (string, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(user_number), 0) + 1 FROM users`).Scan(&n); err != nil {
		return "", fmt.Errorf("failed to read next user number: %w", err)
	}
	return "user" + strconv.Itoa(n), nil
}

// Update writes every editable column of p.
func (r *Repository) Update(ctx context.Context, p *Profile) error {
	allergies, err := json.Marshal(p.Allergies)
	if err != nil {
		return fmt.Errorf("failed to marshal allergies: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = ?, age = ?, height_cm = ?, weight_kg = ?, dietary_preference = ?, goal = ?,
			activity_level = ?, daily_calorie_target = ?, allergies = ?
		WHERE username = ?`,
		p.Name, p.Age, p.HeightCm, p.WeightKg, string(p.DietaryPreference), string(p.Goal),
		p.ActivityLevel, p.DailyCalorieTarget, string(allergies), p.Handle)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", p.Handle, err)
	}
	return requireRow(res, p.Handle)
}

// SetPasswordHash replaces the stored password hash.
func (r *Repository) SetPasswordHash(ctx context.Context, handle, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE username = ?`, hash, handle)
	if err != nil {
		return fmt.Errorf("failed to update password for %s: %w", handle, err)
	}
	return requireRow(res, handle)
}

// SetProfileImageID stores the blob id of the user's profile image.
func (r *Repository) SetProfileImageID(ctx context.Context, handle, blobID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET profile_image_id = ? WHERE username = ?`, blobID, handle)
	if err != nil {
		return fmt.Errorf("failed to update profile image for %s: %w", handle, err)
	}
	return requireRow(res, handle)
}

func requireRow(res sql.Result, handle string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, handle)
	}
	return nil
}

func (r *Repository) getOne(ctx context.Context, query string, args ...any) (*Profile, error) {
	var (
		p            Profile
		gender       string
		diet         string
		goal         string
		allergies    string
		registeredAt string
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&p.Handle, &p.Number, &p.Name, &p.Email, &p.PasswordHash, &p.Age, &gender, &p.HeightCm, &p.WeightKg,
		&diet, &goal, &p.ActivityLevel, &p.DailyCalorieTarget, &allergies, &p.ProfileImageID, &registeredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	p.Gender = Gender(gender)
	p.DietaryPreference = DietaryPreference(diet)
	p.Goal = Goal(goal)
	if err := json.Unmarshal([]byte(allergies), &p.Allergies); err != nil {
		return nil, fmt.Errorf("failed to decode allergies for %s: %w", p.Handle, err)
	}
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	if t, err := time.Parse(time.RFC3339, registeredAt); err == nil {
		p.RegisteredAt = t
	}
	return &p, nil
}
