package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sadopc/timekeep/internal/models"
)

// Well-known app_settings keys.
const (
	SettingLastTaskID = "last_task_id"
)

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get setting %q: %w", key, models.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO app_settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func (s *Store) GetAllSettings() ([]models.Setting, error) {
	rows, err := s.db.Query(`SELECT key, value FROM app_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []models.Setting
	for rows.Next() {
		var s models.Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// WorkingHours returns the per-weekday targets ordered Sunday..Saturday.
func (s *Store) WorkingHours() ([]models.WorkingHour, error) {
	rows, err := s.db.Query(`SELECT weekday, minutes_target FROM working_hours ORDER BY weekday`)
	if err != nil {
		return nil, fmt.Errorf("working hours: %w", err)
	}
	defer rows.Close()

	var hours []models.WorkingHour
	for rows.Next() {
		var h models.WorkingHour
		if err := rows.Scan(&h.Weekday, &h.MinutesTarget); err != nil {
			return nil, err
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

// SetWorkingHours upserts the given targets. Weekdays outside 1..7 are
// ignored; negative targets are rejected.
func (s *Store) SetWorkingHours(hours []models.WorkingHour) error {
	for _, h := range hours {
		if h.MinutesTarget < 0 {
			return fmt.Errorf("set working hours: negative target for weekday %d", h.Weekday)
		}
	}
	err := s.withTx(func(tx *sql.Tx) error {
		for _, h := range hours {
			if h.Weekday < 1 || h.Weekday > 7 {
				continue
			}
			if _, err := tx.Exec(
				`INSERT INTO working_hours (weekday, minutes_target) VALUES (?, ?)
				 ON CONFLICT(weekday) DO UPDATE SET minutes_target = excluded.minutes_target`,
				h.Weekday, h.MinutesTarget,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set working hours: %w", err)
	}
	return nil
}

// BreakRules returns the stored rules, or the defaults if the row is missing.
func (s *Store) BreakRules() (models.BreakRules, error) {
	var r models.BreakRules
	err := s.db.QueryRow(
		`SELECT min_gap_minutes, max_gap_minutes FROM break_rules WHERE id = 1`,
	).Scan(&r.MinGapMinutes, &r.MaxGapMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultBreakRules, nil
	}
	if err != nil {
		return models.BreakRules{}, fmt.Errorf("break rules: %w", err)
	}
	return r, nil
}

// SetBreakRules stores r. Keeping min <= max is left to the caller.
func (s *Store) SetBreakRules(r models.BreakRules) error {
	if r.MinGapMinutes < 0 || r.MaxGapMinutes < 0 {
		return fmt.Errorf("set break rules: gaps must not be negative")
	}
	_, err := s.db.Exec(
		`INSERT INTO break_rules (id, min_gap_minutes, max_gap_minutes) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET min_gap_minutes = excluded.min_gap_minutes, max_gap_minutes = excluded.max_gap_minutes`,
		r.MinGapMinutes, r.MaxGapMinutes,
	)
	if err != nil {
		return fmt.Errorf("set break rules: %w", err)
	}
	return nil
}
