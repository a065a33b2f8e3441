// Package storage defines the persistence boundary. Implementations live in
// the sqlite and postgres subpackages.
package storage

import (
	"errors"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyDeleted = errors.New("already deleted")
	ErrNotDeleted     = errors.New("not deleted")
	// ErrStaleSchedule is returned by ApplySchedule when the stored blocks
	// changed after the update was computed
	ErrStaleSchedule = errors.New("stored schedule changed since it was read")
)

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error
	GetEnergyProfile() (models.EnergyProfile, error)
	SaveEnergyProfile(models.EnergyProfile) error

	// Tasks
	AddTask(models.Task) error
	GetTask(id string) (models.Task, error)
	GetAllTasks() ([]models.Task, error)
	GetAllTasksIncludingDeleted() ([]models.Task, error)
	UpdateTask(models.Task) error
	DeleteTask(id string) error
	RestoreTask(id string) error
	// SetTaskScheduled records when a pass last placed blocks for the task
	SetTaskScheduled(id string, at time.Time) error

	// Blocks
	GetAllBlocks() ([]models.ScheduledBlock, error)
	GetTaskBlocks(taskID string) ([]models.ScheduledBlock, error)
	// ApplySchedule writes the result of a full planning pass in one
	// transaction. Done blocks are never overwritten or deleted. With
	// CheckBase set it fails with ErrStaleSchedule if the stored blocks
	// differ from update.Base.
	ApplySchedule(models.ScheduleUpdate) error
	// ReplaceTaskBlocks swaps every non-done block of taskID for blocks.
	ReplaceTaskBlocks(taskID string, blocks []models.ScheduledBlock) error
	SetBlockStatus(key models.SessionKey, status constants.BlockStatus) error
	SetBlockEvent(key models.SessionKey, eventID string) error

	// Overflow
	GetOverflow() ([]models.Overflow, error)
	SaveTaskOverflow(taskID string, overflow []models.Overflow) error
	ClearTaskOverflow(taskID string) error

	// Utils
	GetConfigPath() string
}
