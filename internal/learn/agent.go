package learn

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const ewmAlpha = 0.1

// Agent 以经验值与奖励 EWM 跟踪策略表现，定期落盘。
type Agent struct {
	mu sync.Mutex

	Level          int     `json:"level"`
	XP             float64 `json:"xp"`
	PerformanceEWM float64 `json:"performance_ewm"`

	path string
}

func NewAgent(path string) *Agent {
	return &Agent{Level: 1, path: path}
}

// XPToNext is the XP required to reach the next level.
func (a *Agent) XPToNext() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.xpToNextLocked()
}

func (a *Agent) xpToNextLocked() float64 {
	return 100.0 * float64(a.Level)
}

// Consider folds one reward into the agent: positive rewards earn full XP,
// losses a token amount, and the EWM tracks both.
func (a *Agent) Consider(reward float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	gain := reward
	if gain < 0 {
		gain = 0.1
	}
	a.XP += gain
	for a.XP >= a.xpToNextLocked() {
		a.XP -= a.xpToNextLocked()
		a.Level++
	}
	a.PerformanceEWM = (1-ewmAlpha)*a.PerformanceEWM + ewmAlpha*reward
}

// Stats returns a consistent (level, xp, xpToNext, ewm) view.
func (a *Agent) Stats() (level int, xp, xpToNext, ewm float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Level, a.XP, a.xpToNextLocked(), a.PerformanceEWM
}

// Save checkpoints the agent as JSON via temp file + rename.
func (a *Agent) Save() error {
	a.mu.Lock()
	data, err := json.MarshalIndent(a, "", "  ")
	path := a.path
	a.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal agent: %w", err)
	}
	if path == "" {
		return fmt.Errorf("agent checkpoint path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load restores a previous checkpoint; missing file is a clean start.
func (a *Agent) Load() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.path == "" {
		return nil
	}
	data, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var snap Agent
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse agent checkpoint: %w", err)
	}
	if snap.Level < 1 || snap.XP < 0 {
		return fmt.Errorf("corrupt agent checkpoint: level=%d xp=%.2f", snap.Level, snap.XP)
	}
	a.Level = snap.Level
	a.XP = snap.XP
	a.PerformanceEWM = snap.PerformanceEWM
	return nil
}
