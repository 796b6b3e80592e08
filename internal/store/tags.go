package store

import (
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sadopc/timekeep/internal/models"
)

var tagPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// NormalizeTag trims and lowercases raw and checks it against [a-z0-9_-]+.
func NormalizeTag(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if !tagPattern.MatchString(name) {
		return "", fmt.Errorf("tag %q: %w", raw, models.ErrTagFormatInvalid)
	}
	return name, nil
}

// normalizeTags validates every name before anything is written and returns
// the distinct names sorted.
func normalizeTags(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	var names []string
	for _, r := range raw {
		name, err := NormalizeTag(r)
		if err != nil {
			return nil, err
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// EnsureTags creates any missing tags and returns all of them by name.
func (s *Store) EnsureTags(raw []string) ([]models.Tag, error) {
	names, err := normalizeTags(raw)
	if err != nil {
		return nil, fmt.Errorf("ensure tags: %w", err)
	}
	var tags []models.Tag
	err = s.withTx(func(tx *sql.Tx) error {
		tags, err = s.ensureTags(tx, names)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ensure tags: %w", err)
	}
	return tags, nil
}

func (s *Store) ensureTags(tx *sql.Tx, names []string) ([]models.Tag, error) {
	now := s.clock.Now()
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		_, err := tx.Exec(
			`INSERT INTO tag (name, created_at, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at`,
			name, now, now,
		)
		if err != nil {
			return nil, err
		}
		var t models.Tag
		err = tx.QueryRow(
			`SELECT id, name, created_at, updated_at FROM tag WHERE name = ?`, name,
		).Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// SetTaskTags replaces the tags of a task. Invalid names fail the whole call
// before any write.
func (s *Store) SetTaskTags(taskID int64, raw []string) error {
	names, err := normalizeTags(raw)
	if err != nil {
		return fmt.Errorf("set task tags: %w", err)
	}
	err = s.withTx(func(tx *sql.Tx) error {
		tags, err := s.ensureTags(tx, names)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM task_tag WHERE task_id = ?`, taskID); err != nil {
			return err
		}
		now := s.clock.Now()
		for _, t := range tags {
			if _, err := tx.Exec(
				`INSERT INTO task_tag (task_id, tag_id, created_at) VALUES (?, ?, ?)`, taskID, t.ID, now,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set task tags %d: %w", taskID, err)
	}
	return nil
}

func (s *Store) TaskTags(taskID int64) ([]models.Tag, error) {
	rows, err := s.db.Query(
		`SELECT t.id, t.name, t.created_at, t.updated_at
		 FROM tag t JOIN task_tag tt ON tt.tag_id = t.id
		 WHERE tt.task_id = ? ORDER BY t.name`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("task tags %d: %w", taskID, err)
	}
	return scanTags(rows)
}

// SearchTags returns tags starting with prefix; an empty prefix lists all.
func (s *Store) SearchTags(prefix string) ([]models.Tag, error) {
	query := `SELECT id, name, created_at, updated_at FROM tag`
	var args []any
	if strings.TrimSpace(prefix) != "" {
		p, err := NormalizeTag(prefix)
		if err != nil {
			return nil, fmt.Errorf("search tags: %w", err)
		}
		// '_' is a LIKE wildcard and legal in tag names.
		query += ` WHERE name LIKE ? ESCAPE '\'`
		args = append(args, strings.ReplaceAll(p, "_", `\_`)+"%")
	}
	query += ` ORDER BY name`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search tags: %w", err)
	}
	return scanTags(rows)
}

func scanTags(rows *sql.Rows) ([]models.Tag, error) {
	defer rows.Close()
	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// TagsByTask maps every tagged task to its sorted tag names.
func (s *Store) TagsByTask() (map[int64][]string, error) {
	rows, err := s.db.Query(
		`SELECT tt.task_id, t.name FROM task_tag tt JOIN tag t ON t.id = tt.tag_id ORDER BY tt.task_id, t.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("tags by task: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]string)
	for rows.Next() {
		var taskID int64
		var name string
		if err := rows.Scan(&taskID, &name); err != nil {
			return nil, err
		}
		out[taskID] = append(out[taskID], name)
	}
	return out, rows.Err()
}
