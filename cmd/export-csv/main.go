package main

import (
	"context"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"santua/internal/matching"
	"santua/internal/sticker"
	"santua/pkg/database"
	"santua/pkg/models"
)

// export-csv dumps the SQLite-backed stores. It only sees data when the
// server runs with SANTUA_STORE_BACKEND=sqlite and a file SANTUA_DB_PATH.
func main() {
	var (
		foundOut   = flag.String("found", "data/found.csv", "output CSV path for found entries")
		lostOut    = flag.String("lost", "data/lost.csv", "output CSV path for lost entries")
		stickerOut = flag.String("stickers", "data/stickers.csv", "output CSV path for stickers")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
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

	entries := matching.NewSQLStore(db)
	for _, job := range []struct {
		kind matching.Kind
		path string
	}{
		{matching.KindFound, *foundOut},
		{matching.KindLost, *lostOut},
	} {
		list, err := entries.List(ctx, job.kind)
		if err != nil {
			log.Fatalf("list %s failed: %v", job.kind, err)
		}
		if err := exportEntries(job.path, list); err != nil {
			log.Fatalf("export %s failed: %v", job.kind, err)
		}
	}

	stickers, err := sticker.NewSQLStore(db).List(ctx)
	if err != nil {
		log.Fatalf("list stickers failed: %v", err)
	}
	if err := exportStickers(*stickerOut, stickers); err != nil {
		log.Fatalf("export stickers failed: %v", err)
	}

	log.Printf("✅ exported entries to %s and %s, stickers to %s", *foundOut, *lostOut, *stickerOut)
}

func create(outPath string) (*os.File, *csv.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, err
	}
	return f, csv.NewWriter(f), nil
}

func exportEntries(outPath string, entries []models.Entry) error {
	f, w, err := create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := w.Write([]string{"internal_id", "categoria", "nro", "contacto", "created_at"}); err != nil {
		return err
	}
	for _, e := range entries {
		id := ""
		if e.InternalID > 0 {
			id = strconv.FormatInt(e.InternalID, 10)
		}
		if err := w.Write([]string{
			id,
			e.Category,
			e.Key,
			e.Contact,
			e.CreatedAt.Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func exportStickers(outPath string, stickers []models.Sticker) error {
	f, w, err := create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := w.Write([]string{"id", "kind", "batch_id", "payment_confirmed", "activated", "owner_alias", "contact_phone", "created_at", "activated_at"}); err != nil {
		return err
	}
	for _, s := range stickers {
		activatedAt := ""
		if s.ActivatedAt != nil {
			activatedAt = s.ActivatedAt.Format(time.RFC3339)
		}
		if err := w.Write([]string{
			s.ID,
			s.Kind,
			s.BatchID,
			strconv.FormatBool(s.PaymentConfirmed),
			strconv.FormatBool(s.Activated),
			s.OwnerAlias,
			s.ContactPhone,
			s.CreatedAt.Format(time.RFC3339),
			activatedAt,
		}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
