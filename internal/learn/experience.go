package learn

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Experience 是一次平仓产生的学习样本。
type Experience struct {
	ID       int64              `json:"id"`
	TS       int64              `json:"ts"`
	Symbol   string             `json:"symbol"`
	Market   string             `json:"market"`
	Action   string             `json:"action"`
	Reward   float64            `json:"reward"`
	Features map[string]float64 `json:"features,omitempty"`
}

// ExperienceStore appends closed-trade outcomes to a local sqlite file.
type ExperienceStore struct {
	mu sync.Mutex
	db *sql.DB
}

func NewExperienceStore(path string) (*ExperienceStore, error) {
	if path == "" {
		return nil, fmt.Errorf("experience store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS experiences (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		market TEXT NOT NULL,
		action TEXT NOT NULL,
		reward REAL NOT NULL,
		features_json TEXT
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure experiences schema: %w", err)
	}
	return &ExperienceStore{db: db}, nil
}

func (s *ExperienceStore) Append(ctx context.Context, exp Experience) error {
	featJSON := ""
	if len(exp.Features) > 0 {
		data, err := json.Marshal(exp.Features)
		if err != nil {
			return fmt.Errorf("marshal features: %w", err)
		}
		featJSON = string(data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO experiences(ts, symbol, market, action, reward, features_json) VALUES(?,?,?,?,?,?)`,
		exp.TS, exp.Symbol, exp.Market, exp.Action, exp.Reward, featJSON)
	return err
}

// Recent returns up to limit samples, newest first.
func (s *ExperienceStore) Recent(ctx context.Context, limit int) ([]Experience, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, symbol, market, action, reward, features_json FROM experiences ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Experience
	for rows.Next() {
		var exp Experience
		var featJSON string
		if err := rows.Scan(&exp.ID, &exp.TS, &exp.Symbol, &exp.Market, &exp.Action, &exp.Reward, &featJSON); err != nil {
			return nil, err
		}
		if featJSON != "" {
			if err := json.Unmarshal([]byte(featJSON), &exp.Features); err != nil {
				exp.Features = nil
			}
		}
		out = append(out, exp)
	}
	return out, rows.Err()
}

func (s *ExperienceStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
