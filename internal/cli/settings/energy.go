package settings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/models"
)

// EnergySetCmd sets productivity scores for hours of the day
type EnergySetCmd struct {
	Scores []string `arg:"" help:"HOUR=SCORE pairs or HH-HH=SCORE ranges, e.g. 9=1.0 13-15=0.5."`
	Reset  bool     `help:"Start from the default profile instead of the stored one."`
}

func (c *EnergySetCmd) Run(ctx *cli.Context) error {
	profile := models.DefaultEnergyProfile()
	if !c.Reset {
		stored, err := ctx.Store.GetEnergyProfile()
		if err != nil {
			return fmt.Errorf("failed to get energy profile: %w", err)
		}
		if !stored.IsZero() {
			profile = stored
		}
	}

	for _, arg := range c.Scores {
		if err := applyScore(&profile, arg); err != nil {
			return err
		}
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	if err := ctx.Store.SaveEnergyProfile(profile); err != nil {
		return fmt.Errorf("failed to save energy profile: %w", err)
	}
	fmt.Println("Energy profile updated.")
	return nil
}

func applyScore(p *models.EnergyProfile, arg string) error {
	hours, score, ok := strings.Cut(arg, "=")
	if !ok {
		return fmt.Errorf("invalid score %q: expected HOUR=SCORE", arg)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(score), 64)
	if err != nil {
		return fmt.Errorf("invalid score %q: %w", arg, err)
	}

	from, to, isRange := strings.Cut(hours, "-")
	start, err := parseHour(from)
	if err != nil {
		return err
	}
	if start == 24 {
		return fmt.Errorf("invalid hour %q: expected 0-23", from)
	}
	end := start + 1
	if isRange {
		if end, err = parseHour(to); err != nil {
			return err
		}
		if end <= start {
			return fmt.Errorf("invalid range %q: end must be after start", hours)
		}
	}
	for h := start; h < end && h < len(p); h++ {
		p[h] = v
	}
	return nil
}

func parseHour(s string) (int, error) {
	h, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid hour %q: expected 0-24", s)
	}
	return h, nil
}

type EnergyShowCmd struct{}

func (c *EnergyShowCmd) Run(ctx *cli.Context) error {
	profile, err := ctx.Store.GetEnergyProfile()
	if err != nil {
		return fmt.Errorf("failed to get energy profile: %w", err)
	}
	if profile.IsZero() {
		profile = models.DefaultEnergyProfile()
	}
	for h, v := range profile {
		fmt.Printf("  %02d:00  %-20s %.2f\n", h, strings.Repeat("█", int(v*20+0.5)), v)
	}
	return nil
}
