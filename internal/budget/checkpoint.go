package budget

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tradesim/internal/logger"
)

type checkpointFile struct {
	Buckets map[string]Bucket `json:"buckets"`
}

// Save writes all buckets to path. Writes go through a temp file + rename so
// a crash mid-write never leaves a torn checkpoint.
func (d *DayCap) Save(path string) error {
	if path == "" {
		return fmt.Errorf("daycap checkpoint path is empty")
	}
	data, err := json.MarshalIndent(checkpointFile{Buckets: d.Buckets()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal daycap checkpoint: %w", err)
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

// Load restores buckets from a previous checkpoint. Corrupt entries are
// dropped with a critical log instead of poisoning the ledger.
func (d *DayCap) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read daycap checkpoint: %w", err)
	}
	var file checkpointFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse daycap checkpoint: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for market, b := range file.Buckets {
		if b.Used < 0 || b.Cap <= 0 {
			logger.Errorf("[BUDGET] corrupt bucket in checkpoint, dropped market=%s used=%.2f cap=%.2f", market, b.Used, b.Cap)
			continue
		}
		copied := b
		d.buckets[market] = &copied
	}
	return nil
}
