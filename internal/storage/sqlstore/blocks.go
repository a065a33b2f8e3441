package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/storage"
)

const blockColumns = "task_id, occurrence, session_index, start_at, end_at, due, status, calendar_event_id"

func scanBlock(row rowScanner) (models.ScheduledBlock, error) {
	var b models.ScheduledBlock
	var start, end, due, status string
	if err := row.Scan(&b.TaskID, &b.Occurrence, &b.SessionIndex, &start, &end, &due, &status, &b.CalendarEventID); err != nil {
		return models.ScheduledBlock{}, err
	}
	b.Status = constants.BlockStatus(status)

	var err error
	if b.Start, err = parseTime(start); err != nil {
		return models.ScheduledBlock{}, fmt.Errorf("failed to parse start of block %v: %w", b.Key(), err)
	}
	if b.End, err = parseTime(end); err != nil {
		return models.ScheduledBlock{}, fmt.Errorf("failed to parse end of block %v: %w", b.Key(), err)
	}
	if b.Due, err = parseTime(due); err != nil {
		return models.ScheduledBlock{}, fmt.Errorf("failed to parse due of block %v: %w", b.Key(), err)
	}
	return b, nil
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func (s *Store) queryBlocks(query string, args ...any) ([]models.ScheduledBlock, error) {
	return s.queryBlocksWith(s.db, query, args...)
}

func (s *Store) queryBlocksWith(db querier, query string, args ...any) ([]models.ScheduledBlock, error) {
	rows, err := db.Query(s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []models.ScheduledBlock
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

func (s *Store) GetAllBlocks() ([]models.ScheduledBlock, error) {
	return s.queryBlocks("SELECT " + blockColumns + " FROM blocks ORDER BY start_at, task_id, occurrence, session_index")
}

func (s *Store) GetTaskBlocks(taskID string) ([]models.ScheduledBlock, error) {
	return s.queryBlocks("SELECT "+blockColumns+" FROM blocks WHERE task_id = ? ORDER BY occurrence, session_index", taskID)
}

// upsertBlock writes b unless a done block already holds its key. The
// calendar event id survives a move.
func (s *Store) upsertBlock(tx *sql.Tx, b models.ScheduledBlock) error {
	if b.Status == "" {
		b.Status = constants.BlockPlanned
	}
	_, err := tx.Exec(s.q(`
		INSERT INTO blocks (`+blockColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (task_id, occurrence, session_index) DO UPDATE SET
			start_at = excluded.start_at, end_at = excluded.end_at, due = excluded.due,
			status = excluded.status,
			calendar_event_id = CASE WHEN excluded.calendar_event_id = '' THEN blocks.calendar_event_id ELSE excluded.calendar_event_id END
		WHERE blocks.status <> ?`),
		b.TaskID, b.Occurrence, b.SessionIndex, formatTime(b.Start), formatTime(b.End), formatTime(b.Due), string(b.Status), b.CalendarEventID,
		string(constants.BlockDone),
	)
	if err != nil {
		return fmt.Errorf("failed to save block %v: %w", b.Key(), err)
	}
	return nil
}

func (s *Store) ApplySchedule(update models.ScheduleUpdate) error {
	return s.tx(func(tx *sql.Tx) error {
		if update.CheckBase {
			if err := s.checkBase(tx, update.Base); err != nil {
				return err
			}
		}
		for _, key := range update.Delete {
			_, err := tx.Exec(s.q(`DELETE FROM blocks WHERE task_id = ? AND occurrence = ? AND session_index = ? AND status <> ?`),
				key.TaskID, key.Occurrence, key.Index, string(constants.BlockDone))
			if err != nil {
				return fmt.Errorf("failed to delete block %v: %w", key, err)
			}
		}
		for _, b := range update.Upsert {
			if err := s.upsertBlock(tx, b); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(s.q("DELETE FROM overflow WHERE reason <> ?"), string(constants.OverflowMissed)); err != nil {
			return fmt.Errorf("failed to clear overflow: %w", err)
		}
		for _, b := range update.Upsert {
			_, err := tx.Exec(s.q("DELETE FROM overflow WHERE task_id = ? AND occurrence = ? AND session_index = ?"),
				b.TaskID, b.Occurrence, b.SessionIndex)
			if err != nil {
				return fmt.Errorf("failed to clear overflow of block %v: %w", b.Key(), err)
			}
		}
		return s.insertOverflow(tx, update.Overflow)
	})
}

type blockState struct {
	start, end string
	status     constants.BlockStatus
}

// checkBase compares the stored blocks with base by key, position and
// status. Calendar event ids are ignored.
func (s *Store) checkBase(tx *sql.Tx, base []models.ScheduledBlock) error {
	if s.dialect == Postgres {
		if _, err := tx.Exec("LOCK TABLE blocks IN SHARE ROW EXCLUSIVE MODE"); err != nil {
			return fmt.Errorf("failed to lock blocks: %w", err)
		}
	}
	stored, err := s.queryBlocksWith(tx, "SELECT "+blockColumns+" FROM blocks")
	if err != nil {
		return fmt.Errorf("failed to read blocks: %w", err)
	}
	if len(stored) != len(base) {
		return storage.ErrStaleSchedule
	}
	want := make(map[models.SessionKey]blockState, len(base))
	for _, b := range base {
		status := b.Status
		if status == "" {
			status = constants.BlockPlanned
		}
		want[b.Key()] = blockState{formatTime(b.Start), formatTime(b.End), status}
	}
	for _, b := range stored {
		if w, ok := want[b.Key()]; !ok || w != (blockState{formatTime(b.Start), formatTime(b.End), b.Status}) {
			return storage.ErrStaleSchedule
		}
	}
	return nil
}

func (s *Store) ReplaceTaskBlocks(taskID string, blocks []models.ScheduledBlock) error {
	return s.tx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(s.q("DELETE FROM blocks WHERE task_id = ? AND status <> ?"), taskID, string(constants.BlockDone)); err != nil {
			return fmt.Errorf("failed to clear blocks of task %s: %w", taskID, err)
		}
		for _, b := range blocks {
			if b.TaskID != taskID {
				return fmt.Errorf("block %v does not belong to task %s", b.Key(), taskID)
			}
			if err := s.upsertBlock(tx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) SetBlockStatus(key models.SessionKey, status constants.BlockStatus) error {
	return s.updateBlock(key, "status", string(status))
}

func (s *Store) SetBlockEvent(key models.SessionKey, eventID string) error {
	return s.updateBlock(key, "calendar_event_id", eventID)
}

func (s *Store) updateBlock(key models.SessionKey, column, value string) error {
	res, err := s.db.Exec(s.q("UPDATE blocks SET "+column+" = ? WHERE task_id = ? AND occurrence = ? AND session_index = ?"),
		value, key.TaskID, key.Occurrence, key.Index)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("block %s/%d/%d: %w", key.TaskID, key.Occurrence, key.Index, storage.ErrNotFound)
	}
	return nil
}
