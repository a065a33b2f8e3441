package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

func (s *Store) GetOverflow() ([]models.Overflow, error) {
	rows, err := s.db.Query(`
		SELECT task_id, occurrence, session_index, minutes, priority, due, reason, recorded_at
		FROM overflow ORDER BY due, task_id, occurrence, session_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Overflow
	for rows.Next() {
		var o models.Overflow
		var due, reason, recordedAt string
		if err := rows.Scan(&o.Session.TaskID, &o.Session.Occurrence, &o.Session.Index, &o.Session.Minutes,
			&o.Session.Priority, &due, &reason, &recordedAt); err != nil {
			return nil, err
		}
		o.Reason = constants.OverflowReason(reason)
		if o.Session.Due, err = parseTime(due); err != nil {
			return nil, fmt.Errorf("failed to parse overflow due for task %s: %w", o.Session.TaskID, err)
		}
		if o.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, fmt.Errorf("failed to parse overflow timestamp for task %s: %w", o.Session.TaskID, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SaveTaskOverflow replaces the overflow entries of one task
func (s *Store) SaveTaskOverflow(taskID string, overflow []models.Overflow) error {
	return s.tx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(s.q("DELETE FROM overflow WHERE task_id = ?"), taskID); err != nil {
			return err
		}
		for _, o := range overflow {
			if o.Session.TaskID != taskID {
				return fmt.Errorf("overflow for task %s passed to task %s", o.Session.TaskID, taskID)
			}
		}
		return s.insertOverflow(tx, overflow)
	})
}

func (s *Store) ClearTaskOverflow(taskID string) error {
	_, err := s.db.Exec(s.q("DELETE FROM overflow WHERE task_id = ?"), taskID)
	return err
}

func (s *Store) insertOverflow(tx *sql.Tx, overflow []models.Overflow) error {
	for _, o := range overflow {
		_, err := tx.Exec(s.q(`
			INSERT INTO overflow (task_id, occurrence, session_index, minutes, priority, due, reason, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (task_id, occurrence, session_index) DO UPDATE SET
				minutes = excluded.minutes, priority = excluded.priority, due = excluded.due,
				reason = excluded.reason, recorded_at = excluded.recorded_at`),
			o.Session.TaskID, o.Session.Occurrence, o.Session.Index, o.Session.Minutes, o.Session.Priority,
			formatTime(o.Session.Due), string(o.Reason), formatTime(o.RecordedAt))
		if err != nil {
			return fmt.Errorf("failed to save overflow for task %s: %w", o.Session.TaskID, err)
		}
	}
	return nil
}
