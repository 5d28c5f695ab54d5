package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/endless-runner/internal/eventbus"
	"github.com/annel0/endless-runner/internal/journal"
	"github.com/annel0/endless-runner/internal/stream"
)

const (
	defaultJournalPath = "data/journal"
	defaultNatsURL     = "nats://127.0.0.1:4222"
	timeFormat         = "15:04:05"
)

func main() {
	var (
		command     = flag.String("cmd", "tail", "Command: tail, show, stats, follow")
		journalPath = flag.String("journal", defaultJournalPath, "Journal directory")
		runID       = flag.String("run", "", "Run ID (required for tail, show, stats)")
		from        = flag.Uint64("from", 0, "First tick for tail")
		tick        = flag.Uint64("tick", 0, "Tick for show")
		limit       = flag.Int("limit", 100, "Maximum number of records")
		eventTypes  = flag.String("types", "", "Event types filter (comma-separated)")
		natsURL     = flag.String("nats", defaultNatsURL, "NATS server for follow")
		streamName  = flag.String("stream", "RUNNER", "JetStream stream for follow")
	)
	flag.Parse()

	types := parseStringList(*eventTypes)

	if *command == "follow" {
		if err := followEvents(*natsURL, *streamName, types); err != nil {
			log.Fatalf("❌ Follow failed: %v", err)
		}
		return
	}

	if *runID == "" {
		fmt.Println("❌ -run is required")
		os.Exit(1)
	}

	j, err := journal.Open(journal.Options{Path: *journalPath}, *runID)
	if err != nil {
		log.Fatalf("❌ Failed to open journal: %v", err)
	}
	defer j.Close()

	switch *command {
	case "tail":
		if err := tailRecords(j, *runID, *from, *limit, types); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}

	case "show":
		rec, err := j.Load(*runID, *tick)
		if err != nil {
			log.Fatalf("❌ Show failed: %v", err)
		}
		printRecord(rec, types)

	case "stats":
		if err := showStats(j, *runID); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, show, stats, follow")
		os.Exit(1)
	}
}

// tailRecords выводит записи журнала начиная с тика from
func tailRecords(j *journal.Journal, runID string, from uint64, limit int, types []string) error {
	fmt.Printf("🎬 Run %s from tick %d (limit: %d)\n", runID, from, limit)

	count := 0
	err := j.Range(runID, from, func(rec journal.Record) bool {
		printRecord(rec, types)
		count++
		return count < limit
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n📊 Total records: %d\n", count)
	return nil
}

// showStats считает события прогона по типам
func showStats(j *journal.Journal, runID string) error {
	fmt.Printf("📊 Event statistics for run %s\n", runID)

	byKind := make(map[string]int)
	var records int
	var first, last uint64
	err := j.Range(runID, 0, func(rec journal.Record) bool {
		if records == 0 {
			first = rec.Tick
		}
		last = rec.Tick
		records++
		for _, ev := range rec.Events {
			byKind[ev.Kind.String()]++
		}
		return true
	})
	if err != nil {
		return err
	}

	fmt.Printf("Records: %d (ticks %d..%d)\n", records, first, last)
	fmt.Println("\nBy event type:")
	for _, kind := range []stream.EventKind{stream.EventAgentSpawned, stream.EventSegmentSpawned, stream.EventSegmentEvicted} {
		fmt.Printf("  %s: %d events\n", kind, byKind[kind.String()])
	}
	fmt.Printf("Live segments at the end: %d\n", byKind["SegmentSpawned"]-byKind["SegmentEvicted"])
	return nil
}

// followEvents подписывается на JetStream и печатает события до Ctrl+C
func followEvents(url, streamName string, types []string) error {
	bus, err := eventbus.NewJetStreamBus(url, streamName, 24*time.Hour)
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sub, err := bus.Subscribe(ctx, eventbus.Filter{Types: types}, func(_ context.Context, env *eventbus.Envelope) {
		payload, err := eventbus.DecodeSegmentPayload(env)
		if err != nil {
			fmt.Printf("[%s] %s %s (bad payload: %v)\n", env.Timestamp.Format(timeFormat), env.EventType, env.ID, err)
			return
		}
		printEvent(env.Timestamp, env.CorrelationID, payload.Tick, payload.Event)
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	fmt.Printf("🎬 Following %s on %s (Ctrl+C to stop)\n", eventbus.SubjectPrefix+".*", url)
	<-ctx.Done()
	return nil
}

// printRecord выводит запись журнала в читаемом формате
func printRecord(rec journal.Record, types []string) {
	for _, ev := range rec.Events {
		if len(types) > 0 && !contains(types, ev.Kind.String()) {
			continue
		}
		printEvent(rec.Recorded, rec.RunID, rec.Tick, ev)
	}
}

func printEvent(at time.Time, runID string, tick uint64, ev stream.Event) {
	pos := ev.Transform.Position
	fmt.Printf("[%s] %s tick=%d [%s] #%d %s at (%.2f, %.2f, %.2f)\n",
		at.Format(timeFormat), runID, tick, ev.Kind, ev.Order, ev.Template, pos.X, pos.Y, pos.Z)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
