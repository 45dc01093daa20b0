package learn

import (
	"context"
	"time"

	"tradesim/internal/logger"
	"tradesim/internal/paper"
)

// Recorder 把平仓结果写入经验库并驱动 Agent 学习。
// Implements paper.RewardReporter; all work is best-effort.
type Recorder struct {
	store    *ExperienceStore
	agent    *Agent
	interval time.Duration
	nowFn    func() time.Time
}

func NewRecorder(store *ExperienceStore, agent *Agent, checkpointInterval time.Duration) *Recorder {
	if checkpointInterval <= 0 {
		checkpointInterval = 15 * time.Second
	}
	return &Recorder{store: store, agent: agent, interval: checkpointInterval, nowFn: time.Now}
}

var _ paper.RewardReporter = (*Recorder)(nil)

func (r *Recorder) ReportOutcome(symbol, market string, side paper.Side, rewardPct float64, features map[string]float64) error {
	if r.store != nil {
		exp := Experience{
			TS:       r.nowFn().Unix(),
			Symbol:   symbol,
			Market:   market,
			Action:   string(side),
			Reward:   rewardPct,
			Features: features,
		}
		if err := r.store.Append(context.Background(), exp); err != nil {
			return err
		}
	}
	if r.agent != nil {
		r.agent.Consider(rewardPct)
		level, xp, next, ewm := r.agent.Stats()
		logger.Infof("[LEARN] reward=%+.3f xp=%.1f/%.0f lvl=%d perf=%+.3f", rewardPct, xp, next, level, ewm)
	}
	return nil
}

// Run checkpoints the agent on a timer and once more at shutdown.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if r.agent != nil {
				if err := r.agent.Save(); err != nil {
					logger.Warnf("[LEARN] final checkpoint failed: %v", err)
				}
			}
			return ctx.Err()
		case <-ticker.C:
			if r.agent == nil {
				continue
			}
			if err := r.agent.Save(); err != nil {
				logger.Warnf("[LEARN] checkpoint failed: %v", err)
			}
		}
	}
}
