package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"agenda/internal/domain"
	"agenda/internal/store"
)

func TestPostgresIntegration_BlobRoundTrip(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("AGENDA_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("AGENDA_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := Open(ctx, databaseURL, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	schema := "agenda_test_" + randomHex(t, 8)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewRaw("SET LOCAL search_path TO " + schema).Exec(ctx); err != nil {
			return err
		}

		repo := NewBlobRepo(tx)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}

		if _, err := repo.Get(ctx, store.KeyAppointments); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Get on empty table: err = %v, want %v", err, store.ErrNotFound)
		}

		rules := []domain.RecurringRule{{
			ID:        1,
			Weekday:   1,
			Start:     domain.MustParseClock("09:00"),
			End:       domain.MustParseClock("11:00"),
			StartDate: domain.MustParseDate("2024-06-03"),
		}}
		if err := store.SaveCollection(ctx, repo, store.KeyRecurringRules, rules); err != nil {
			return err
		}
		rules[0] = rules[0].WithException(domain.MustParseDate("2024-06-10"))
		if err := store.SaveCollection(ctx, repo, store.KeyRecurringRules, rules); err != nil {
			return err
		}

		got, err := store.LoadCollection[domain.RecurringRule](ctx, repo, store.KeyRecurringRules)
		if err != nil {
			return err
		}
		if len(got) != 1 || !got[0].HasException(domain.MustParseDate("2024-06-10")) {
			t.Errorf("loaded rules = %+v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("integration transaction error: %v", err)
	}
}

func randomHex(t *testing.T, n int) string {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}
