package foodlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Repository stores daily logs in the food_logs table. The meals column holds
// the JSON array of meals so a day is read and written as one document.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a Repository over db.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindOne returns the log for (userID, date), or nil when absent.
func (r *Repository) FindOne(ctx context.Context, userID, date string) (*DailyLog, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, date, meals FROM food_logs WHERE user_id = ? AND date = ?`,
		userID, date)

	log, err := scanLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get daily log: %w", err)
	}
	return log, nil
}

// InsertOne creates a log and returns its id.
func (r *Repository) InsertOne(ctx context.Context, log DailyLog) (string, error) {
	meals := log.Meals
	if meals == nil {
		meals = []Meal{}
	}
	payload, err := json.Marshal(meals)
	if err != nil {
		return "", fmt.Errorf("failed to marshal meals: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO food_logs (user_id, date, meals) VALUES (?, ?, ?)`,
		log.UserID, log.Date, string(payload))
	if err != nil {
		return "", fmt.Errorf("failed to insert daily log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("failed to read daily log id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// PushMeal appends meal to an existing log and reports how many logs changed.
func (r *Repository) PushMeal(ctx context.Context, userID, date string, meal Meal) (int64, error) {
	payload, err := json.Marshal(meal)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal meal: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE food_logs SET meals = json_insert(meals, '$[#]', json(?)) WHERE user_id = ? AND date = ?`,
		string(payload), userID, date)
	if err != nil {
		return 0, fmt.Errorf("failed to append meal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// UpsertMeal creates the day's log with meal, or appends meal to it, in one
// statement.
func (r *Repository) UpsertMeal(ctx context.Context, userID, date string, meal Meal) error {
	payload, err := json.Marshal(meal)
	if err != nil {
		return fmt.Errorf("failed to marshal meal: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO food_logs (user_id, date, meals) VALUES (?1, ?2, json_array(json(?3)))
		ON CONFLICT(user_id, date) DO UPDATE SET meals = json_insert(food_logs.meals, '$[#]', json(?3))`,
		userID, date, string(payload))
	if err != nil {
		return fmt.Errorf("failed to upsert meal: %w", err)
	}
	return nil
}

// FindRange returns logs with from <= date <= to, ascending by date.
func (r *Repository) FindRange(ctx context.Context, userID, from, to string) ([]DailyLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, date, meals FROM food_logs
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily logs: %w", err)
	}
	defer rows.Close()

	var logs []DailyLog
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily log: %w", err)
		}
		logs = append(logs, *log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily logs: %w", err)
	}
	return logs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLog(s scanner) (*DailyLog, error) {
	var (
		id    int64
		log   DailyLog
		meals string
	)
	if err := s.Scan(&id, &log.UserID, &log.Date, &meals); err != nil {
		return nil, err
	}
	log.ID = strconv.FormatInt(id, 10)

	if err := json.Unmarshal([]byte(meals), &log.Meals); err != nil {
		return nil, fmt.Errorf("failed to decode meals for %s: %w", log.Date, err)
	}
	// Older or partial rows may lack fields; default them here so readers
	// never see nil food lists.
	if log.Meals == nil {
		log.Meals = []Meal{}
	}
	for i := range log.Meals {
		if log.Meals[i].Foods == nil {
			log.Meals[i].Foods = []FoodItem{}
		}
	}
	return &log, nil
}
