// Package progress считает монеты и уровни прогона.
package progress

import (
	"fmt"

	"github.com/annel0/endless-runner/internal/logging"
)

// Outcome итог текущего уровня
type Outcome int

const (
	Playing Outcome = iota
	Won
	Lost
)

func (o Outcome) String() string {
	switch o {
	case Playing:
		return "playing"
	case Won:
		return "won"
	case Lost:
		return "lost"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// MarshalText пишет итог строкой в JSON
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Settings параметры прогрессии
type Settings struct {
	BaseCoinsToWin        int // Монет для победы на первом уровне
	CoinsIncreasePerLevel int // Прибавка за каждый следующий уровень
	StartLevel            int // Уровень при старте; < 1 считается 1
}

// State копия состояния для API и метрик
type State struct {
	Level      int     `json:"level"`
	Coins      int     `json:"coins"`
	CoinsToWin int     `json:"coins_to_win"`
	Outcome    Outcome `json:"outcome"`
}

// Tracker монеты текущего уровня и итог игры.
// После победы или поражения монеты не принимаются до Restart.
type Tracker struct {
	settings Settings
	logger   *logging.Logger

	level      int
	coins      int
	coinsToWin int
	outcome    Outcome
}

// NewTracker создаёт трекер на стартовом уровне
func NewTracker(settings Settings, logger *logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	level := settings.StartLevel
	if level < 1 {
		level = 1
	}
	t := &Tracker{settings: settings, logger: logger, level: level}
	t.coinsToWin = t.CoinsToWin(level)
	return t
}

// CoinsToWin цель по монетам для уровня: base + (level-1)*increase, минимум 1
func (t *Tracker) CoinsToWin(level int) int {
	n := t.settings.BaseCoinsToWin + (level-1)*t.settings.CoinsIncreasePerLevel
	if n < 1 {
		return 1
	}
	return n
}

// CollectCoin засчитывает монету. false, если игра уже закончена.
func (t *Tracker) CollectCoin() bool {
	if t.Ended() {
		return false
	}
	t.coins++
	t.logger.Debug("🪙 Монета %d/%d", t.coins, t.coinsToWin)
	if t.coins >= t.coinsToWin {
		t.win()
	}
	return true
}

// win завершает уровень; Level сразу указывает на следующий уровень
func (t *Tracker) win() {
	t.outcome = Won
	t.logger.Info("🏆 Уровень %d пройден: %d монет", t.level, t.coins)
	t.level++
}

// Lose завершает игру поражением. false, если игра уже закончена.
func (t *Tracker) Lose() bool {
	if t.Ended() {
		return false
	}
	t.outcome = Lost
	t.logger.Info("💀 Поражение на уровне %d: %d/%d монет", t.level, t.coins, t.coinsToWin)
	return true
}

// Restart начинает текущий уровень заново: после победы это следующий уровень
func (t *Tracker) Restart() {
	t.coins = 0
	t.coinsToWin = t.CoinsToWin(t.level)
	t.outcome = Playing
	t.logger.Info("▶️ Уровень %d, цель %d монет", t.level, t.coinsToWin)
}

// Ended true после победы или поражения
func (t *Tracker) Ended() bool { return t.outcome != Playing }

func (t *Tracker) Level() int { return t.level }

func (t *Tracker) Coins() int { return t.coins }

func (t *Tracker) Outcome() Outcome { return t.outcome }

// State копия состояния
func (t *Tracker) State() State {
	return State{
		Level:      t.level,
		Coins:      t.coins,
		CoinsToWin: t.coinsToWin,
		Outcome:    t.outcome,
	}
}
