package models

import (
	"fmt"
	"strconv"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/utils"
)

// MapToSettings converts stored key-value pairs into Settings. Keys missing
// from data keep their defaults.
func MapToSettings(data map[string]string) (Settings, error) {
	settings := DefaultSettings()

	for key, value := range data {
		var err error
		switch key {
		case constants.SettingWorkdayStart:
			settings.DayStart = value
		case constants.SettingWorkdayEnd:
			settings.DayEnd = value
		case constants.SettingWorkDays:
			settings.WorkDays, err = utils.ParseWorkDays(value)
		case constants.SettingTimezone:
			settings.Timezone = value
		case constants.SettingBreakCutoff:
			settings.BreakCutoff = value
		case constants.SettingDefaultMinBlockMin:
			settings.DefaultMinBlockMin, err = strconv.Atoi(value)
		case constants.SettingDefaultMaxBlockMin:
			settings.DefaultMaxBlockMin, err = strconv.Atoi(value)
		case constants.SettingPlanningHorizonDays:
			settings.PlanningHorizonDays, err = strconv.Atoi(value)
		case constants.SettingShortBreakMin:
			settings.ShortBreakMin, err = strconv.Atoi(value)
		case constants.SettingLongBreakMin:
			settings.LongBreakMin, err = strconv.Atoi(value)
		case constants.SettingBreakCadence:
			settings.BreakCadence, err = strconv.Atoi(value)
		case constants.SettingMaxTasksToPush:
			settings.MaxTasksToPush, err = strconv.Atoi(value)
		case constants.SettingCheckIntervalMin:
			settings.CheckIntervalMin, err = strconv.Atoi(value)
		case constants.SettingBreaksEnabled:
			settings.BreaksEnabled, err = strconv.ParseBool(value)
		case constants.SettingAutoRescheduleEnabled:
			settings.AutoRescheduleEnabled, err = strconv.ParseBool(value)
		case constants.SettingPushMissedTasks:
			settings.PushMissedTasks, err = strconv.ParseBool(value)
		}
		if err != nil {
			return Settings{}, fmt.Errorf("parsing %s: %w", key, err)
		}
	}
	return settings, nil
}

// SettingsToMap converts Settings into key-value pairs for storage.
func SettingsToMap(settings Settings) map[string]string {
	return map[string]string{
		constants.SettingWorkdayStart:          settings.DayStart,
		constants.SettingWorkdayEnd:            settings.DayEnd,
		constants.SettingWorkDays:              utils.FormatWorkDays(settings.WorkDays),
		constants.SettingTimezone:              settings.Timezone,
		constants.SettingBreakCutoff:           settings.BreakCutoff,
		constants.SettingDefaultMinBlockMin:    strconv.Itoa(settings.DefaultMinBlockMin),
		constants.SettingDefaultMaxBlockMin:    strconv.Itoa(settings.DefaultMaxBlockMin),
		constants.SettingPlanningHorizonDays:   strconv.Itoa(settings.PlanningHorizonDays),
		constants.SettingShortBreakMin:         strconv.Itoa(settings.ShortBreakMin),
		constants.SettingLongBreakMin:          strconv.Itoa(settings.LongBreakMin),
		constants.SettingBreakCadence:          strconv.Itoa(settings.BreakCadence),
		constants.SettingMaxTasksToPush:        strconv.Itoa(settings.MaxTasksToPush),
		constants.SettingCheckIntervalMin:      strconv.Itoa(settings.CheckIntervalMin),
		constants.SettingBreaksEnabled:         strconv.FormatBool(settings.BreaksEnabled),
		constants.SettingAutoRescheduleEnabled: strconv.FormatBool(settings.AutoRescheduleEnabled),
		constants.SettingPushMissedTasks:       strconv.FormatBool(settings.PushMissedTasks),
	}
}
