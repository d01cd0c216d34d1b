package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"santua/internal/matching"
	"santua/pkg/database"
	"santua/pkg/logger"
)

// import-csv replays found and lost entries into the SQLite stores through
// the matching engine, so rows that pair up are classified exactly as live
// submissions would be. Found rows go first.
func main() {
	var (
		foundIn = flag.String("found", "data/found.csv", "input CSV path for found entries")
		lostIn  = flag.String("lost", "data/lost.csv", "input CSV path for lost entries")
	)
	flag.Parse()

	lg, err := logger.InitLogger(os.Getenv("SANTUA_ENV"))
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := database.DefaultConfig()
	if cfg.InMemory() {
		log.Fatal("SANTUA_DB_PATH must point at a database file")
	}
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	svc := matching.NewService(matching.NewSQLStore(db), matching.WithLogger(lg))

	for _, job := range []struct {
		kind matching.Kind
		path string
	}{
		{matching.KindFound, *foundIn},
		{matching.KindLost, *lostIn},
	} {
		n, err := importEntries(ctx, svc, job.kind, job.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Printf("skipping %s: %s not found", job.kind, job.path)
				continue
			}
			log.Fatalf("import %s failed: %v", job.kind, err)
		}
		log.Printf("✅ imported %d %s rows from %s", n, job.kind, job.path)
	}
}

func importEntries(ctx context.Context, svc *matching.Service, kind matching.Kind, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return 0, err
	}

	n := 0
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, err
		}

		sub := matching.Submission{
			Category:   valueAt(header, row, "categoria"),
			Identifier: valueAt(header, row, "nro"),
			Contact:    valueAt(header, row, "contacto"),
		}

		var res matching.Result
		if kind == matching.KindFound {
			res, err = svc.SubmitFound(ctx, sub)
		} else {
			res, err = svc.SubmitLost(ctx, sub)
		}
		if errors.Is(err, matching.ErrValidation) {
			log.Printf("line %d: skipped, no usable nro", line)
			continue
		}
		if err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		if res.Status == matching.StatusDuplicate {
			continue
		}
		n++
	}
	return n, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for i, name := range row {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := header["nro"]; !ok {
		return nil, errors.New("missing nro column")
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
