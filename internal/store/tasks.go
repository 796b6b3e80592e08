package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sadopc/timekeep/internal/models"
)

const taskColumns = `id, project_id, parent_task_id, name, note, sort_order, is_archived, created_at, updated_at`

func scanTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{}
	var parent sql.NullInt64
	var archived int
	if err := row.Scan(&t.ID, &t.ProjectID, &parent, &t.Name, &t.Note, &t.SortOrder, &archived, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if parent.Valid {
		v := parent.Int64
		t.ParentTaskID = &v
	}
	t.Archived = archived == 1
	return t, nil
}

// CreateTask adds a task to projectID. A non-nil parentID makes it a subtask;
// the parent must belong to the same project.
func (s *Store) CreateTask(projectID int64, parentID *int64, name, note string, sortOrder int) (*models.Task, error) {
	if parentID != nil {
		parent, err := s.GetTask(*parentID)
		if err != nil {
			return nil, fmt.Errorf("insert task: %w", err)
		}
		if parent.ProjectID != projectID {
			return nil, fmt.Errorf("insert task: parent %d belongs to project %d", parent.ID, parent.ProjectID)
		}
	}

	now := s.clock.Now()
	res, err := s.db.Exec(
		`INSERT INTO task (project_id, parent_task_id, name, note, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		projectID, parentID, name, note, sortOrder, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetTask(id)
}

func (s *Store) GetTask(id int64) (*models.Task, error) {
	t, err := scanTask(s.db.QueryRow(`SELECT `+taskColumns+` FROM task WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get task %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

// ListTasks lists the tasks of one project, or of every project when
// projectID is 0.
func (s *Store) ListTasks(projectID int64, includeArchived bool) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM task WHERE 1=1`
	var args []any
	if projectID != 0 {
		query += ` AND project_id = ?`
		args = append(args, projectID)
	}
	if !includeArchived {
		query += ` AND is_archived = 0`
	}
	query += ` ORDER BY project_id, sort_order, name`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *Store) UpdateTask(t models.Task) error {
	if t.ParentTaskID != nil && *t.ParentTaskID == t.ID {
		return fmt.Errorf("update task %d: task cannot be its own parent", t.ID)
	}
	res, err := s.db.Exec(
		`UPDATE task SET project_id = ?, parent_task_id = ?, name = ?, note = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		t.ProjectID, t.ParentTaskID, t.Name, t.Note, t.SortOrder, s.clock.Now(), t.ID,
	)
	return affectedOne(res, err, "update task", t.ID)
}

func (s *Store) ArchiveTask(id int64, archived bool) error {
	flag := 0
	if archived {
		flag = 1
	}
	res, err := s.db.Exec(
		`UPDATE task SET is_archived = ?, updated_at = ? WHERE id = ?`, flag, s.clock.Now(), id,
	)
	return affectedOne(res, err, "archive task", id)
}

// DeleteTask removes the task and its entries. Subtasks are kept and become
// top-level tasks of the project.
func (s *Store) DeleteTask(id int64) error {
	res, err := s.db.Exec(`DELETE FROM task WHERE id = ?`, id)
	return affectedOne(res, err, "delete task", id)
}

// TaskPath renders "Project > Parent > Task" for display.
func (s *Store) TaskPath(taskID int64) (string, error) {
	var parts []string
	var projectID int64
	id := taskID
	// Parent chains are short; the depth guard only stops corrupt cycles.
	for depth := 0; depth < 32; depth++ {
		t, err := s.GetTask(id)
		if err != nil {
			return "", err
		}
		parts = append([]string{t.Name}, parts...)
		projectID = t.ProjectID
		if t.ParentTaskID == nil {
			break
		}
		id = *t.ParentTaskID
	}
	p, err := s.GetProject(projectID)
	if err != nil {
		return "", err
	}
	return strings.Join(append([]string{p.Name}, parts...), " > "), nil
}

// ProjectIndex returns the task→project mapping and project names used by
// the aggregation engine. Archived rows are included so old entries still
// roll up.
func (s *Store) ProjectIndex() (taskToProject map[int64]int64, projectNames map[int64]string, err error) {
	taskToProject = make(map[int64]int64)
	projectNames = make(map[int64]string)

	rows, err := s.db.Query(`SELECT id, name FROM project`)
	if err != nil {
		return nil, nil, fmt.Errorf("project index: %w", err)
	}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return nil, nil, err
		}
		projectNames[id] = name
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = s.db.Query(`SELECT id, project_id FROM task`)
	if err != nil {
		return nil, nil, fmt.Errorf("project index: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, projectID int64
		if err := rows.Scan(&id, &projectID); err != nil {
			return nil, nil, err
		}
		taskToProject[id] = projectID
	}
	return taskToProject, projectNames, rows.Err()
}
