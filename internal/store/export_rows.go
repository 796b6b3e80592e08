package store

import (
	"database/sql"
	"fmt"
)

// ExportRows returns every entry with its task, project and category
// context, ordered by start.
func (s *Store) ExportRows() ([]ExportRow, error) {
	tagsByTask, err := s.TagsByTask()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT e.id, e.uid, e.start_at, e.end_at, e.note, e.source,
		       t.id, t.name, t.note, t.parent_task_id, COALESCE(pt.name, ''),
		       p.id, p.name, COALESCE(p.color, ''),
		       c.id, c.name
		FROM time_entry e
		JOIN task t          ON t.id = e.task_id
		LEFT JOIN task pt    ON pt.id = t.parent_task_id
		JOIN project p       ON p.id = t.project_id
		JOIN category c      ON c.id = p.category_id
		ORDER BY e.start_at, e.id`)
	if err != nil {
		return nil, fmt.Errorf("export rows: %w", err)
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var r ExportRow
		var endAt, parentID sql.NullInt64
		if err := rows.Scan(
			&r.EntryID, &r.EntryUID, &r.StartAt, &endAt, &r.Note, &r.Source,
			&r.TaskID, &r.TaskName, &r.TaskNote, &parentID, &r.ParentTaskName,
			&r.ProjectID, &r.ProjectName, &r.ProjectColor,
			&r.CategoryID, &r.CategoryName,
		); err != nil {
			return nil, fmt.Errorf("export rows: %w", err)
		}
		if endAt.Valid {
			v := endAt.Int64
			r.EndAt = &v
		}
		if parentID.Valid {
			v := parentID.Int64
			r.ParentTaskID = &v
		}
		r.Tags = tagsByTask[r.TaskID]
		out = append(out, r)
	}
	return out, rows.Err()
}
