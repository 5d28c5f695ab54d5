// Package journal хранит события стриминга по тикам в BadgerDB.
// Значения записей сжимаются zstd.
package journal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/annel0/endless-runner/internal/stream"
	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"
)

var (
	// ErrClosed журнал уже закрыт
	ErrClosed = errors.New("journal: closed")
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("journal: record not found")
)

// Options параметры открытия журнала
type Options struct {
	Path     string
	InMemory bool
}

// Record события одного тика прогона
type Record struct {
	RunID    string         `json:"run_id"`
	Tick     uint64         `json:"tick"`
	Recorded time.Time      `json:"recorded"`
	Events   []stream.Event `json:"events"`
}

// Journal журнал событий прогонов
type Journal struct {
	db    *badger.DB
	runID string
	enc   *zstd.Encoder
	dec   *zstd.Decoder
	mutex sync.RWMutex
	ready bool
	now   func() time.Time
}

// Open открывает журнал; записи Consume пишутся под прогоном runID
func Open(opts Options, runID string) (*Journal, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		_ = db.Close()
		return nil, err
	}

	return &Journal{
		db:    db,
		runID: runID,
		enc:   enc,
		dec:   dec,
		ready: true,
		now:   time.Now,
	}, nil
}

// RunID идентификатор текущего прогона
func (j *Journal) RunID() string {
	return j.runID
}

// Consume записывает события тика. Пустые тики не пишутся.
func (j *Journal) Consume(_ context.Context, tick uint64, events []stream.Event) error {
	if len(events) == 0 {
		return nil
	}
	return j.Append(Record{
		RunID:    j.runID,
		Tick:     tick,
		Recorded: j.now().UTC(),
		Events:   events,
	})
}

// Append сохраняет запись
func (j *Journal) Append(rec Record) error {
	j.mutex.RLock()
	defer j.mutex.RUnlock()

	if !j.ready {
		return ErrClosed
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("ошибка сериализации записи: %w", err)
	}

	value := j.enc.EncodeAll(data, nil)
	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.RunID, rec.Tick), value)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// Load возвращает запись тика
func (j *Journal) Load(runID string, tick uint64) (Record, error) {
	j.mutex.RLock()
	defer j.mutex.RUnlock()

	var rec Record
	if !j.ready {
		return rec, ErrClosed
	}

	err := j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(runID, tick))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return j.decode(val, &rec)
		})
	})
	return rec, err
}

// Range обходит записи прогона по возрастанию тика начиная с from.
// Обход прекращается, если fn вернул false.
func (j *Journal) Range(runID string, from uint64, fn func(Record) bool) error {
	j.mutex.RLock()
	defer j.mutex.RUnlock()

	if !j.ready {
		return ErrClosed
	}

	prefix := runPrefix(runID)
	return j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(recordKey(runID, from)); it.ValidForPrefix(prefix); it.Next() {
			if !isRecordKey(it.Item().Key(), prefix) {
				continue
			}
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return j.decode(val, &rec)
			})
			if err != nil {
				return err
			}
			if !fn(rec) {
				return nil
			}
		}
		return nil
	})
}

// Tail возвращает до limit последних записей прогона в порядке возрастания тика.
// Читает с конца, поэтому не зависит от длины прогона. limit <= 0: все записи.
func (j *Journal) Tail(runID string, limit int) ([]Record, error) {
	j.mutex.RLock()
	defer j.mutex.RUnlock()

	if !j.ready {
		return nil, ErrClosed
	}

	prefix := runPrefix(runID)
	var out []Record
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(recordKey(runID, math.MaxUint64)); it.ValidForPrefix(prefix); it.Next() {
			if !isRecordKey(it.Item().Key(), prefix) {
				continue
			}
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return j.decode(val, &rec)
			})
			if err != nil {
				return err
			}
			out = append(out, rec)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out, nil
}

// Close закрывает журнал. Повторный вызов ничего не делает.
func (j *Journal) Close() error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if !j.ready {
		return nil
	}
	j.ready = false
	j.enc.Close()
	j.dec.Close()
	return j.db.Close()
}

func (j *Journal) decode(val []byte, rec *Record) error {
	data, err := j.dec.DecodeAll(val, nil)
	if err != nil {
		return fmt.Errorf("zstd: %w", err)
	}
	return json.Unmarshal(data, rec)
}

// runPrefix "run:<id>:"
func runPrefix(runID string) []byte {
	return []byte("run:" + runID + ":")
}

// isRecordKey отсекает ключи прогонов, чей id начинается с "<runID>:"
func isRecordKey(key, prefix []byte) bool {
	return len(key) == len(prefix)+8
}

// recordKey префикс прогона + тик big-endian, чтобы ключи сортировались по тику
func recordKey(runID string, tick uint64) []byte {
	prefix := runPrefix(runID)
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], tick)
	return key
}
