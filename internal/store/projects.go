package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sadopc/timekeep/internal/models"
)

const projectColumns = `id, category_id, name, COALESCE(color, ''), sort_order, is_archived, created_at, updated_at`

func scanProject(row rowScanner) (*models.Project, error) {
	p := &models.Project{}
	var archived int
	if err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Color, &p.SortOrder, &archived, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Archived = archived == 1
	return p, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func (s *Store) CreateProject(categoryID int64, name, color string, sortOrder int) (*models.Project, error) {
	now := s.clock.Now()
	res, err := s.db.Exec(
		`INSERT INTO project (category_id, name, color, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		categoryID, name, nullIfEmpty(color), sortOrder, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetProject(id)
}

func (s *Store) GetProject(id int64) (*models.Project, error) {
	p, err := scanProject(s.db.QueryRow(`SELECT `+projectColumns+` FROM project WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get project %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return p, nil
}

// ListProjects lists the projects of one category, or of every category
// when categoryID is 0.
func (s *Store) ListProjects(categoryID int64, includeArchived bool) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM project WHERE 1=1`
	var args []any
	if categoryID != 0 {
		query += ` AND category_id = ?`
		args = append(args, categoryID)
	}
	if !includeArchived {
		query += ` AND is_archived = 0`
	}
	query += ` ORDER BY sort_order, name`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (s *Store) UpdateProject(p models.Project) error {
	res, err := s.db.Exec(
		`UPDATE project SET category_id = ?, name = ?, color = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		p.CategoryID, p.Name, nullIfEmpty(p.Color), p.SortOrder, s.clock.Now(), p.ID,
	)
	return affectedOne(res, err, "update project", p.ID)
}

func (s *Store) ArchiveProject(id int64, archived bool) error {
	flag := 0
	if archived {
		flag = 1
	}
	res, err := s.db.Exec(
		`UPDATE project SET is_archived = ?, updated_at = ? WHERE id = ?`, flag, s.clock.Now(), id,
	)
	return affectedOne(res, err, "archive project", id)
}

func (s *Store) DeleteProject(id int64) error {
	res, err := s.db.Exec(`DELETE FROM project WHERE id = ?`, id)
	return affectedOne(res, err, "delete project", id)
}
