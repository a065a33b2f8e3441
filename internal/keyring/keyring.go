// Package keyring keeps secrets in the OS keyring: the PostgreSQL connection
// string and, optionally, the Google Calendar OAuth token.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/studyplan/internal/constants"
)

var (
	// ErrNotFound is returned when no secret is stored under the key
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring cannot be used
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Secret names a keyring entry
type Secret string

const (
	DatabaseConnection Secret = constants.DefaultKeyringUser
	CalendarToken      Secret = "calendar-token"
)

func Get(s Secret) (string, error) {
	v, err := keyring.Get(constants.AppName, string(s))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return v, nil
}

func Set(s Secret, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", s)
	}
	if err := keyring.Set(constants.AppName, string(s), value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", s, err)
	}
	return nil
}

func Delete(s Secret) error {
	err := keyring.Delete(constants.AppName, string(s))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", s, err)
	}
	return nil
}

// GetConnectionString returns the stored PostgreSQL connection string
func GetConnectionString() (string, error) {
	return Get(DatabaseConnection)
}

// IsAvailable does a probing read. A missing entry still means the keyring
// works.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
