package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sadopc/timekeep/internal/events"
	"github.com/sadopc/timekeep/internal/models"
	"github.com/sadopc/timekeep/internal/timecalc"
)

const entryColumns = `id, uid, task_id, start_at, end_at, note, source, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.TimeEntry, error) {
	e := &models.TimeEntry{}
	var endAt sql.NullInt64
	var source string
	if err := row.Scan(&e.ID, &e.UID, &e.TaskID, &e.StartAt, &endAt, &e.Note, &source, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if endAt.Valid {
		v := endAt.Int64
		e.EndAt = &v
	}
	e.Source = models.Source(source)
	return e, nil
}

func scanEntries(rows *sql.Rows) ([]models.TimeEntry, error) {
	defer rows.Close()
	var entries []models.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// CreateTimerEntry opens a running entry for taskID at startAt. It fails with
// models.ErrRunningTimerConflict if another entry is already running.
func (s *Store) CreateTimerEntry(taskID, startAt int64) (*models.TimeEntry, error) {
	now := s.clock.Now()
	res, err := s.db.Exec(
		`INSERT INTO time_entry (uid, task_id, start_at, end_at, note, source, created_at, updated_at)
		 VALUES (?, ?, ?, NULL, '', ?, ?, ?)`,
		uuid.NewString(), taskID, startAt, models.SourceTimer, now, now,
	)
	if isRunningTimerError(err) {
		return nil, fmt.Errorf("create timer entry: %w", models.ErrRunningTimerConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("create timer entry: %w", err)
	}
	id, _ := res.LastInsertId()
	e, err := s.GetEntry(id)
	if err != nil {
		return nil, err
	}
	s.publish(events.EntryStarted, e)
	return e, nil
}

// StopRunningEntry closes the running entry at endAt and returns it, or
// returns nil when nothing is running.
func (s *Store) StopRunningEntry(endAt int64) (*models.TimeEntry, error) {
	e, err := s.closeRunning(endAt, "")
	if err != nil {
		return nil, fmt.Errorf("stop running entry: %w", err)
	}
	s.publish(events.EntryStopped, e)
	return e, nil
}

// RecoverRunningEntry closes an orphaned running entry at endAt and marks it
// as recovered. Returns nil when nothing is running.
func (s *Store) RecoverRunningEntry(endAt int64) (*models.TimeEntry, error) {
	e, err := s.closeRunning(endAt, models.SourceRecovered)
	if err != nil {
		return nil, fmt.Errorf("recover running entry: %w", err)
	}
	s.publish(events.EntryRecovered, e)
	return e, nil
}

// closeRunning sets end_at on the running entry. An endAt earlier than the
// entry's start (clock moved backwards) is clamped to the start.
func (s *Store) closeRunning(endAt int64, source models.Source) (*models.TimeEntry, error) {
	var closed *models.TimeEntry
	err := s.withTx(func(tx *sql.Tx) error {
		running, err := getRunningEntry(tx)
		if err != nil || running == nil {
			return err
		}
		end := max(endAt, running.StartAt)
		src := running.Source
		if source != "" {
			src = source
		}
		_, err = tx.Exec(
			`UPDATE time_entry SET end_at = ?, source = ?, updated_at = ? WHERE id = ?`,
			end, src, s.clock.Now(), running.ID,
		)
		if err != nil {
			return err
		}
		closed, err = getEntry(tx, running.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// GetRunningEntry returns the open entry, or nil when none is running.
func (s *Store) GetRunningEntry() (*models.TimeEntry, error) {
	e, err := getRunningEntry(s.db)
	if err != nil {
		return nil, fmt.Errorf("get running entry: %w", err)
	}
	return e, nil
}

func getRunningEntry(q querier) (*models.TimeEntry, error) {
	e, err := scanEntry(q.QueryRow(
		`SELECT ` + entryColumns + ` FROM time_entry WHERE end_at IS NULL ORDER BY id DESC LIMIT 1`,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (s *Store) GetEntry(id int64) (*models.TimeEntry, error) {
	e, err := getEntry(s.db, id)
	if err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}
	return e, nil
}

func getEntry(q querier, id int64) (*models.TimeEntry, error) {
	e, err := scanEntry(q.QueryRow(`SELECT `+entryColumns+` FROM time_entry WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return e, err
}

// ListEntriesInRange returns every entry overlapping [startUTC, endUTC),
// counting running entries up to now, ordered by start.
func (s *Store) ListEntriesInRange(startUTC, endUTC int64) ([]models.TimeEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+entryColumns+` FROM time_entry
		 WHERE start_at < ? AND COALESCE(end_at, ?) > ?
		 ORDER BY start_at, id`,
		endUTC, s.clock.Now(), startUTC,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries in range: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("list entries in range: %w", err)
	}
	return entries, nil
}

// ListDayEntries returns the entries overlapping the local day of date in loc.
func (s *Store) ListDayEntries(date time.Time, loc *time.Location) ([]models.TimeEntry, error) {
	day := timecalc.LocalDayInterval(date, loc)
	return s.ListEntriesInRange(day.StartUTC, day.EndUTC)
}

// ListEntries returns entries newest first.
func (s *Store) ListEntries(f EntryFilter) ([]models.TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM time_entry WHERE 1=1`
	var args []any

	if f.TaskID != nil {
		query += ` AND task_id = ?`
		args = append(args, *f.TaskID)
	}
	if f.From != nil {
		query += ` AND (end_at IS NULL OR end_at > ?)`
		args = append(args, *f.From)
	}
	if f.To != nil {
		query += ` AND start_at < ?`
		args = append(args, *f.To)
	}
	query += ` ORDER BY start_at DESC, id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return scanEntries(rows)
}

// ExistsOverlap reports whether any entry other than excludingID shares at
// least one second with [startAt, endAt). Running entries extend to now.
func (s *Store) ExistsOverlap(startAt, endAt int64, excludingID *int64) (bool, error) {
	ok, err := s.existsOverlap(s.db, startAt, endAt, excludingID)
	if err != nil {
		return false, fmt.Errorf("check overlap: %w", err)
	}
	return ok, nil
}

func (s *Store) existsOverlap(q querier, startAt, endAt int64, excludingID *int64) (bool, error) {
	rows, err := q.Query(
		`SELECT start_at, end_at FROM time_entry
		 WHERE (? IS NULL OR id != ?) AND start_at < ? AND (end_at IS NULL OR end_at > ?)`,
		excludingID, excludingID, endAt, startAt,
	)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	now := s.clock.Now()
	for rows.Next() {
		var otherStart int64
		var otherEnd sql.NullInt64
		if err := rows.Scan(&otherStart, &otherEnd); err != nil {
			return false, err
		}
		end := now
		if otherEnd.Valid {
			end = otherEnd.Int64
		}
		if timecalc.Overlaps(startAt, endAt, otherStart, end) {
			return true, nil
		}
	}
	return false, rows.Err()
}

// CreateManualEntry inserts a closed entry after checking its range and that
// it does not overlap any existing entry.
func (s *Store) CreateManualEntry(taskID, startAt, endAt int64, note string) (*models.TimeEntry, error) {
	if endAt <= startAt {
		return nil, fmt.Errorf("create manual entry: %w", models.ErrInvalidRange)
	}

	var created *models.TimeEntry
	err := s.withTx(func(tx *sql.Tx) error {
		overlap, err := s.existsOverlap(tx, startAt, endAt, nil)
		if err != nil {
			return err
		}
		if overlap {
			return models.ErrOverlapConflict
		}

		now := s.clock.Now()
		res, err := tx.Exec(
			`INSERT INTO time_entry (uid, task_id, start_at, end_at, note, source, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), taskID, startAt, endAt, note, models.SourceManual, now, now,
		)
		if err != nil {
			return err
		}
		id, _ := res.LastInsertId()
		created, err = getEntry(tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create manual entry: %w", err)
	}
	s.publish(events.EntryCreated, created)
	return created, nil
}

// UpdateEntry rewrites task, bounds and note of an existing entry. The new
// bounds are validated and checked for overlap before anything is written.
// A running entry (EndAt nil) is bounded by now and may not start in the
// future.
func (s *Store) UpdateEntry(e models.TimeEntry) (*models.TimeEntry, error) {
	now := s.clock.Now()
	if e.EndAt != nil && *e.EndAt <= e.StartAt {
		return nil, fmt.Errorf("update entry %d: %w", e.ID, models.ErrInvalidRange)
	}
	if e.EndAt == nil && e.StartAt > now {
		return nil, fmt.Errorf("update entry %d: %w", e.ID, models.ErrInvalidRange)
	}

	var updated *models.TimeEntry
	err := s.withTx(func(tx *sql.Tx) error {
		if _, err := getEntry(tx, e.ID); err != nil {
			return err
		}
		id := e.ID
		overlap, err := s.existsOverlap(tx, e.StartAt, e.EndOrNow(now), &id)
		if err != nil {
			return err
		}
		if overlap {
			return models.ErrOverlapConflict
		}

		_, err = tx.Exec(
			`UPDATE time_entry SET task_id = ?, start_at = ?, end_at = ?, note = ?, updated_at = ? WHERE id = ?`,
			e.TaskID, e.StartAt, e.EndAt, e.Note, now, e.ID,
		)
		if isRunningTimerError(err) {
			return models.ErrRunningTimerConflict
		}
		if err != nil {
			return err
		}
		updated, err = getEntry(tx, e.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update entry %d: %w", e.ID, err)
	}
	s.publish(events.EntryUpdated, updated)
	return updated, nil
}

// UpdateEntryNote changes only the note; bounds are untouched so no overlap
// check is needed.
func (s *Store) UpdateEntryNote(id int64, note string) error {
	res, err := s.db.Exec(
		`UPDATE time_entry SET note = ?, updated_at = ? WHERE id = ?`, note, s.clock.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update entry note %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update entry note %d: %w", id, models.ErrNotFound)
	}
	e, err := s.GetEntry(id)
	if err != nil {
		return err
	}
	s.publish(events.EntryUpdated, e)
	return nil
}

func (s *Store) DeleteEntry(id int64) error {
	var deleted *models.TimeEntry
	err := s.withTx(func(tx *sql.Tx) error {
		e, err := getEntry(tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM time_entry WHERE id = ?`, id); err != nil {
			return err
		}
		deleted = e
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	s.publish(events.EntryDeleted, deleted)
	return nil
}
