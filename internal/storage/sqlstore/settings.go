package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/julianstephens/studyplan/internal/models"
)

// GetSettings reads the key/value rows. Missing keys keep their defaults.
func (s *Store) GetSettings() (models.Settings, error) {
	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return models.Settings{}, err
	}
	defer rows.Close()

	data := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Settings{}, err
		}
		data[key] = value
	}
	if err := rows.Err(); err != nil {
		return models.Settings{}, err
	}
	if len(data) == 0 {
		return models.Settings{}, fmt.Errorf("settings not found")
	}
	return models.MapToSettings(data)
}

func (s *Store) SaveSettings(settings models.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	return s.tx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(s.q(`
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value`))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for key, value := range models.SettingsToMap(settings) {
			if _, err := stmt.Exec(key, value); err != nil {
				return fmt.Errorf("saving %s: %w", key, err)
			}
		}
		return nil
	})
}

// GetEnergyProfile returns the stored curve, or the default one when none
// has been saved.
func (s *Store) GetEnergyProfile() (models.EnergyProfile, error) {
	rows, err := s.db.Query("SELECT hour, score FROM energy_profile")
	if err != nil {
		return models.EnergyProfile{}, err
	}
	defer rows.Close()

	var p models.EnergyProfile
	for rows.Next() {
		var hour int
		var score float64
		if err := rows.Scan(&hour, &score); err != nil {
			return models.EnergyProfile{}, err
		}
		if hour >= 0 && hour < len(p) {
			p[hour] = score
		}
	}
	if err := rows.Err(); err != nil {
		return models.EnergyProfile{}, err
	}
	if p.IsZero() {
		return models.DefaultEnergyProfile(), nil
	}
	return p, nil
}

func (s *Store) SaveEnergyProfile(p models.EnergyProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.tx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM energy_profile"); err != nil {
			return err
		}
		for hour, score := range p {
			if _, err := tx.Exec(s.q("INSERT INTO energy_profile (hour, score) VALUES (?, ?)"), hour, score); err != nil {
				return err
			}
		}
		return nil
	})
}
