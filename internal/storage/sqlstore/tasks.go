package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/storage"
)

const taskColumns = `id, title, due, estimated_min, min_block_min, max_block_min, difficulty,
	importance, urgency, completed, locked, edited, recurrence, course_id, not_before,
	created_at, updated_at, scheduled_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var t models.Task
	var urgency, createdAt, updatedAt string
	var due, recurrence, notBefore, scheduledAt, deletedAt sql.NullString

	err := row.Scan(
		&t.ID, &t.Title, &due, &t.EstimatedMin, &t.MinBlockMin, &t.MaxBlockMin, &t.Difficulty,
		&t.Importance, &urgency, &t.Completed, &t.Locked, &t.Edited, &recurrence, &t.CourseID, &notBefore,
		&createdAt, &updatedAt, &scheduledAt, &deletedAt,
	)
	if err != nil {
		return models.Task{}, err
	}
	t.Urgency = constants.Urgency(urgency)

	if t.Due, err = parseNullTime(due); err != nil {
		return models.Task{}, fmt.Errorf("failed to parse due for task %s: %w", t.ID, err)
	}
	if t.NotBefore, err = parseNullTime(notBefore); err != nil {
		return models.Task{}, fmt.Errorf("failed to parse not_before for task %s: %w", t.ID, err)
	}
	if t.ScheduledAt, err = parseNullTime(scheduledAt); err != nil {
		return models.Task{}, fmt.Errorf("failed to parse scheduled_at for task %s: %w", t.ID, err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Task{}, fmt.Errorf("failed to parse created_at for task %s: %w", t.ID, err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Task{}, fmt.Errorf("failed to parse updated_at for task %s: %w", t.ID, err)
	}
	if recurrence.Valid && recurrence.String != "" {
		var rule models.RecurrenceRule
		if err := json.Unmarshal([]byte(recurrence.String), &rule); err != nil {
			return models.Task{}, fmt.Errorf("failed to parse recurrence for task %s: %w", t.ID, err)
		}
		t.Recurrence = &rule
	}
	if deletedAt.Valid {
		t.DeletedAt = &deletedAt.String
	}
	return t, nil
}

func (s *Store) queryTasks(query string, args ...any) ([]models.Task, error) {
	rows, err := s.db.Query(s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) AddTask(task models.Task) error {
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}
	return s.upsertTask(task)
}

func (s *Store) GetTask(id string) (models.Task, error) {
	row := s.db.QueryRow(s.q("SELECT "+taskColumns+" FROM tasks WHERE id = ? AND deleted_at IS NULL"), id)
	t, err := scanTask(row)
	if err != nil {
		return models.Task{}, notFound(err, "task", id)
	}
	return t, nil
}

func (s *Store) GetAllTasks() ([]models.Task, error) {
	return s.queryTasks("SELECT " + taskColumns + " FROM tasks WHERE deleted_at IS NULL ORDER BY created_at, id")
}

func (s *Store) GetAllTasksIncludingDeleted() ([]models.Task, error) {
	return s.queryTasks("SELECT " + taskColumns + " FROM tasks ORDER BY created_at, id")
}

func (s *Store) UpdateTask(task models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	return s.upsertTask(task)
}

func (s *Store) upsertTask(task models.Task) error {
	var recurrence sql.NullString
	if task.Recurrence != nil {
		data, err := json.Marshal(task.Recurrence)
		if err != nil {
			return fmt.Errorf("failed to marshal recurrence: %w", err)
		}
		recurrence = sql.NullString{String: string(data), Valid: true}
	}
	var deletedAt sql.NullString
	if task.DeletedAt != nil {
		deletedAt = sql.NullString{String: *task.DeletedAt, Valid: true}
	}

	_, err := s.db.Exec(s.q(`
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title, due = excluded.due, estimated_min = excluded.estimated_min,
			min_block_min = excluded.min_block_min, max_block_min = excluded.max_block_min,
			difficulty = excluded.difficulty, importance = excluded.importance, urgency = excluded.urgency,
			completed = excluded.completed, locked = excluded.locked, edited = excluded.edited,
			recurrence = excluded.recurrence, course_id = excluded.course_id, not_before = excluded.not_before,
			updated_at = excluded.updated_at, scheduled_at = excluded.scheduled_at, deleted_at = excluded.deleted_at`),
		task.ID, task.Title, nullTime(task.Due), task.EstimatedMin, task.MinBlockMin, task.MaxBlockMin, task.Difficulty,
		task.Importance, string(task.Urgency), task.Completed, task.Locked, task.Edited, recurrence, task.CourseID, nullTime(task.NotBefore),
		formatTime(task.CreatedAt), formatTime(task.UpdatedAt), nullTime(task.ScheduledAt), deletedAt,
	)
	return err
}

// DeleteTask soft deletes the task. Its blocks stay until the next pass frees
// them.
func (s *Store) DeleteTask(id string) error {
	deleted, err := s.deletedState(id)
	if err != nil {
		return err
	}
	if deleted {
		return fmt.Errorf("task %s: %w", id, storage.ErrAlreadyDeleted)
	}
	now := formatTime(time.Now())
	_, err = s.db.Exec(s.q("UPDATE tasks SET deleted_at = ?, updated_at = ? WHERE id = ?"), now, now, id)
	return err
}

func (s *Store) RestoreTask(id string) error {
	deleted, err := s.deletedState(id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("task %s: %w", id, storage.ErrNotDeleted)
	}
	_, err = s.db.Exec(s.q("UPDATE tasks SET deleted_at = NULL, updated_at = ? WHERE id = ?"), formatTime(time.Now()), id)
	return err
}

func (s *Store) SetTaskScheduled(id string, at time.Time) error {
	res, err := s.db.Exec(s.q("UPDATE tasks SET scheduled_at = ? WHERE id = ? AND deleted_at IS NULL"), formatTime(at), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) deletedState(id string) (bool, error) {
	var deletedAt sql.NullString
	err := s.db.QueryRow(s.q("SELECT deleted_at FROM tasks WHERE id = ?"), id).Scan(&deletedAt)
	if err != nil {
		return false, notFound(err, "task", id)
	}
	return deletedAt.Valid, nil
}
