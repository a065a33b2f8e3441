package cli

import (
	"errors"

	"github.com/charmbracelet/huh"
)

// Confirm asks a yes/no question on the terminal. Aborting counts as no.
// Tests replace it.
var Confirm = func(title, description string) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative("Yes").
			Negative("No").
			Value(&ok),
	))
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}
