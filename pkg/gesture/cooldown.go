package gesture

import "time"

// Key identifies an independently rate-limited action.
type Key string

const (
	KeyClick           Key = "click"
	KeyBack            Key = "back"
	KeyForward         Key = "forward"
	KeyNewTab          Key = "newTab"
	KeyCloseTab        Key = "closeTab"
	KeyRefresh         Key = "refresh"
	KeyTabSwitch       Key = "tabSwitch"
	KeyTextFieldSwitch Key = "textFieldSwitch"
	KeyConfirm         Key = "confirm"
)

// Cooldowns tracks a not-before instant per action.
type Cooldowns struct {
	periods   map[Key]time.Duration
	notBefore map[Key]time.Time
}

// NewCooldowns creates a tracker with every action ready.
func NewCooldowns(cfg CooldownConfig) *Cooldowns {
	return &Cooldowns{
		periods: map[Key]time.Duration{
			KeyClick:           cfg.Click,
			KeyBack:            cfg.Navigation,
			KeyForward:         cfg.Navigation,
			KeyNewTab:          cfg.NewTab,
			KeyCloseTab:        cfg.CloseTab,
			KeyRefresh:         cfg.Refresh,
			KeyTabSwitch:       cfg.TabSwitch,
			KeyTextFieldSwitch: cfg.TextFieldSwitch,
			KeyConfirm:         cfg.Confirm,
		},
		notBefore: make(map[Key]time.Time),
	}
}

// Ready reports whether k may fire at at.
func (c *Cooldowns) Ready(k Key, at time.Time) bool {
	return !at.Before(c.notBefore[k])
}

// Trigger starts k's cooldown at at.
func (c *Cooldowns) Trigger(k Key, at time.Time) {
	c.notBefore[k] = at.Add(c.periods[k])
}

// TryTrigger starts k's cooldown if it is ready and reports whether it was.
func (c *Cooldowns) TryTrigger(k Key, at time.Time) bool {
	if !c.Ready(k, at) {
		return false
	}
	c.Trigger(k, at)
	return true
}

// Reset makes every action ready.
func (c *Cooldowns) Reset() {
	clear(c.notBefore)
}
