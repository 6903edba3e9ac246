package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/joho/godotenv"

	"github.com/Vodeneev/sharpedge/internal/pkg/alias"
	"github.com/Vodeneev/sharpedge/internal/pkg/config"
	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
	"github.com/Vodeneev/sharpedge/internal/pkg/storage"
)

func main() {
	var (
		configPath = flag.String("config", "configs/pipeline.yaml", "Path to config file")
		action     = flag.String("action", "list", "Action: list, add-team, add-market")
		limit      = flag.Int64("limit", 1000, "How many recent unresolved events to aggregate")
		book       = flag.String("book", "", "Book the raw team name comes from (add-team)")
		raw        = flag.String("raw", "", "Raw team name or market label")
		target     = flag.String("id", "", "Canonical team id (add-team) or market type (add-market)")
	)
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Redis.Addr == "" {
		log.Fatalf("redis.addr (or REDIS_ADDR) is required")
	}

	client, err := storage.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	overlay := alias.NewRedisOverlay(client, cfg.Redis.AliasPrefix)

	switch *action {
	case "list":
		reports := storage.NewRedisUnresolvedReporter(client, cfg.Redis.ReportKey, cfg.Redis.ReportMaxSize)
		events, err := reports.Recent(ctx, *limit)
		if err != nil {
			log.Fatalf("Failed to read unresolved events: %v", err)
		}
		printAggregates(aggregate(events))
	case "add-team":
		if *book == "" || *raw == "" || *target == "" {
			log.Fatalf("add-team needs -book, -raw and -id")
		}
		if err := overlay.AddTeamAlias(ctx, *book, *raw, *target); err != nil {
			log.Fatalf("Failed to add team alias: %v", err)
		}
		fmt.Printf("%s %q -> %s stored, active from the next cycle\n", *book, *raw, *target)
	case "add-market":
		mt, ok := enums.ParseMarketType(*target)
		if *raw == "" || !ok {
			log.Fatalf("add-market needs -raw and -id (MONEYLINE, SPREAD or TOTAL)")
		}
		if err := overlay.AddMarketAlias(ctx, *raw, mt); err != nil {
			log.Fatalf("Failed to add market alias: %v", err)
		}
		fmt.Printf("%q -> %s stored, active from the next cycle\n", *raw, mt)
	default:
		log.Fatalf("Unknown action: %s. Use: list, add-team, add-market", *action)
	}
}

type aggregateKey struct {
	Book string
	Kind models.UnresolvedKind
	Raw  string
}

type aggregateRow struct {
	aggregateKey
	Count     int
	Outcome   models.UnresolvedOutcome
	Candidate string
	Score     float64
	LastSeen  time.Time
}

// aggregate groups events by (book, kind, raw), keeping the latest outcome. Most frequent first.
func aggregate(events []models.UnresolvedEvent) []aggregateRow {
	byKey := make(map[aggregateKey]*aggregateRow)
	for _, ev := range events {
		k := aggregateKey{Book: ev.Book, Kind: ev.Kind, Raw: ev.Raw}
		row, ok := byKey[k]
		if !ok {
			row = &aggregateRow{aggregateKey: k}
			byKey[k] = row
		}
		row.Count++
		if !ev.At.Before(row.LastSeen) {
			row.LastSeen = ev.At
			row.Outcome = ev.Outcome
			row.Candidate = ev.Candidate
			row.Score = ev.Score
		}
	}

	out := make([]aggregateRow, 0, len(byKey))
	for _, row := range byKey {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Book != out[j].Book {
			return out[i].Book < out[j].Book
		}
		return out[i].Raw < out[j].Raw
	})
	return out
}

func printAggregates(rows []aggregateRow) {
	if len(rows) == 0 {
		fmt.Println("No unresolved events")
		return
	}
	fmt.Printf("%-12s %-7s %-32s %5s  %-15s %s\n", "BOOK", "KIND", "RAW", "SEEN", "OUTCOME", "CANDIDATE")
	for _, r := range rows {
		candidate := ""
		if r.Candidate != "" {
			candidate = fmt.Sprintf("%s (%.3f)", r.Candidate, r.Score)
		}
		fmt.Printf("%-12s %-7s %-32q %5d  %-15s %s\n", r.Book, r.Kind, r.Raw, r.Count, r.Outcome, candidate)
	}
}
