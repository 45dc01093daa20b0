package journal

import (
	"gorm.io/datatypes"
)

// ClosedTradeModel 持久化一条已平仓记录。
type ClosedTradeModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	PositionID    string         `gorm:"column:position_id;uniqueIndex"`
	Market        string         `gorm:"column:market"`
	Symbol        string         `gorm:"column:symbol"`
	Side          string         `gorm:"column:side"`
	Strategy      string         `gorm:"column:strategy"`
	EntryPrice    float64        `gorm:"column:entry_price"`
	ExitPrice     float64        `gorm:"column:exit_price"`
	Quantity      float64        `gorm:"column:quantity"`
	Leverage      float64        `gorm:"column:leverage"`
	MarginUsed    float64        `gorm:"column:margin_used"`
	TakeProfitPct float64        `gorm:"column:tp_pct"`
	StopLossPct   float64        `gorm:"column:sl_pct"`
	PnL           float64        `gorm:"column:pnl"`
	CloseReason   string         `gorm:"column:close_reason"`
	FeaturesJSON  datatypes.JSON `gorm:"column:features_json;type:TEXT"`
	OpenedAtUnix  int64          `gorm:"column:opened_at"`
	ClosedAtUnix  int64          `gorm:"column:closed_at"`
}

func (ClosedTradeModel) TableName() string { return "closed_trades" }

// DayCapBucketModel 持久化每日资金桶，按 (market, date) 唯一。
type DayCapBucketModel struct {
	ID            int64   `gorm:"column:id;primaryKey"`
	Market        string  `gorm:"column:market;uniqueIndex:idx_bucket_day,priority:1"`
	Date          string  `gorm:"column:date;uniqueIndex:idx_bucket_day,priority:2"`
	Used          float64 `gorm:"column:used"`
	Cap           float64 `gorm:"column:cap"`
	UpdatedAtUnix int64   `gorm:"column:updated_at"`
}

func (DayCapBucketModel) TableName() string { return "daycap_buckets" }
