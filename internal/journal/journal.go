package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tradesim/internal/budget"
	"tradesim/internal/paper"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Journal persists closed trades and day-cap buckets using Gorm + SQLite.
type Journal struct {
	db *gorm.DB
}

// NewJournal opens (creating if needed) the journal database at path.
func NewJournal(path string) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal: 数据库路径不能为空")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&ClosedTradeModel{}, &DayCapBucketModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: keep connection count small to avoid lock contention.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Journal{db: db}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// RecordClose appends one closed position. Duplicate position ids are ignored
// so a replayed close hook stays idempotent.
func (j *Journal) RecordClose(pos paper.Position) error {
	features := datatypes.JSON("{}")
	if len(pos.Features) > 0 {
		raw, err := json.Marshal(pos.Features)
		if err == nil {
			features = datatypes.JSON(raw)
		}
	}
	row := ClosedTradeModel{
		ID:            uuid.NewString(),
		PositionID:    pos.ID,
		Market:        pos.Market,
		Symbol:        pos.Symbol,
		Side:          string(pos.Side),
		Strategy:      string(pos.Strategy),
		EntryPrice:    pos.EntryPrice,
		ExitPrice:     pos.ExitPrice,
		Quantity:      pos.Quantity,
		Leverage:      pos.Leverage,
		MarginUsed:    pos.MarginUsed,
		TakeProfitPct: pos.TakeProfitPct,
		StopLossPct:   pos.StopLossPct,
		PnL:           pos.PnL,
		CloseReason:   string(pos.CloseReason),
		FeaturesJSON:  features,
		OpenedAtUnix:  pos.OpenedAt.Unix(),
		ClosedAtUnix:  pos.ClosedAt.Unix(),
	}
	return j.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "position_id"}},
		DoNothing: true,
	}).Create(&row).Error
}

// SaveBuckets upserts the current day-cap buckets keyed by (market, date).
func (j *Journal) SaveBuckets(buckets map[string]budget.Bucket, updatedAtUnix int64) error {
	for mkt, b := range buckets {
		row := DayCapBucketModel{
			Market:        mkt,
			Date:          b.Date,
			Used:          b.Used,
			Cap:           b.Cap,
			UpdatedAtUnix: updatedAtUnix,
		}
		err := j.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "market"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"used", "cap", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// RecentClosed returns up to limit closed trades, newest first.
func (j *Journal) RecentClosed(limit int) ([]ClosedTradeModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []ClosedTradeModel
	err := j.db.Order("closed_at DESC, id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
