package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sadopc/timekeep/internal/models"
)

func (s *Store) CreateCategory(name string, sortOrder int) (*models.Category, error) {
	now := s.clock.Now()
	res, err := s.db.Exec(
		`INSERT INTO category (name, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		name, sortOrder, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetCategory(id)
}

func (s *Store) GetCategory(id int64) (*models.Category, error) {
	c := &models.Category{}
	err := s.db.QueryRow(
		`SELECT id, name, sort_order, created_at, updated_at FROM category WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get category %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (s *Store) ListCategories() ([]models.Category, error) {
	rows, err := s.db.Query(
		`SELECT id, name, sort_order, created_at, updated_at FROM category ORDER BY sort_order, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) UpdateCategory(id int64, name string, sortOrder int) error {
	res, err := s.db.Exec(
		`UPDATE category SET name = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		name, sortOrder, s.clock.Now(), id,
	)
	return affectedOne(res, err, "update category", id)
}

// DeleteCategory removes the category with its projects, tasks and entries.
func (s *Store) DeleteCategory(id int64) error {
	res, err := s.db.Exec(`DELETE FROM category WHERE id = ?`, id)
	return affectedOne(res, err, "delete category", id)
}

// affectedOne turns a write that touched no row into models.ErrNotFound.
func affectedOne(res sql.Result, err error, op string, id int64) error {
	if err != nil {
		return fmt.Errorf("%s %d: %w", op, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s %d: %w", op, id, models.ErrNotFound)
	}
	return nil
}
