package escalation

import (
	"recoup/backend/internal/domain"
)

// LevelConfig describes one collections stage. DaysMax is nil for the
// terminal stage. This table is the single source of truth for transitions.
type LevelConfig struct {
	Level       domain.EscalationLevel
	DaysMin     int
	DaysMax     *int
	Channels    []domain.Channel
	Tone        string
	Description string
}

func maxDays(d int) *int { return &d }

// levelTable is ordered by stage. Every domain.EscalationLevel must appear
// exactly once; TestLevelTableCoversAllLevels enforces it.
var levelTable = []LevelConfig{
	{
		Level:       domain.LevelPending,
		DaysMin:     0,
		DaysMax:     maxDays(4),
		Channels:    nil,
		Tone:        "none",
		Description: "Just overdue, no outreach yet",
	},
	{
		Level:       domain.LevelGentle,
		DaysMin:     5,
		DaysMax:     maxDays(14),
		Channels:    []domain.Channel{domain.ChannelEmail},
		Tone:        "friendly",
		Description: "Friendly payment reminder",
	},
	{
		Level:       domain.LevelFirm,
		DaysMin:     15,
		DaysMax:     maxDays(29),
		Channels:    []domain.Channel{domain.ChannelEmail, domain.ChannelSMS},
		Tone:        "firm",
		Description: "Firm reminder with statutory interest notice",
	},
	{
		Level:       domain.LevelFinal,
		DaysMin:     30,
		DaysMax:     maxDays(59),
		Channels:    []domain.Channel{domain.ChannelEmail, domain.ChannelSMS, domain.ChannelPhone},
		Tone:        "urgent",
		Description: "Final notice before agency referral",
	},
	{
		Level:       domain.LevelAgency,
		DaysMin:     60,
		DaysMax:     nil,
		Channels:    []domain.Channel{domain.ChannelEmail, domain.ChannelAgency},
		Tone:        "final",
		Description: "Referred to collections agency",
	},
}

// ConfigFor returns the stage configuration for a level.
func ConfigFor(level domain.EscalationLevel) (LevelConfig, bool) {
	for _, cfg := range levelTable {
		if cfg.Level == level {
			return cfg, true
		}
	}
	return LevelConfig{}, false
}

// LevelForDays maps a days-overdue count to its collections stage. Total:
// anything at or beyond the terminal stage's lower bound is agency, anything
// below zero is pending.
func LevelForDays(daysOverdue int) domain.EscalationLevel {
	for _, cfg := range levelTable {
		if cfg.DaysMax == nil {
			return cfg.Level
		}
		if daysOverdue <= *cfg.DaysMax {
			return cfg.Level
		}
	}
	return domain.LevelAgency
}

// ShouldEscalate reports whether the stage implied by days-overdue is
// strictly later than the current stage. Never true for an earlier stage.
func ShouldEscalate(current domain.EscalationLevel, daysOverdue int) bool {
	return LevelForDays(daysOverdue).After(current)
}

// NextLevel returns the stage after the given one, if any.
func NextLevel(level domain.EscalationLevel) (LevelConfig, bool) {
	for i, cfg := range levelTable {
		if cfg.Level == level && i+1 < len(levelTable) {
			return levelTable[i+1], true
		}
	}
	return LevelConfig{}, false
}
