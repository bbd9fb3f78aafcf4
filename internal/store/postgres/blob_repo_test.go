package postgres

import (
	"context"
	"testing"

	"github.com/uptrace/bun"
)

func TestCalendarBlob_BeforeAppendModelStampsWrites(t *testing.T) {
	var b calendarBlob
	if err := b.BeforeAppendModel(context.Background(), (*bun.SelectQuery)(nil)); err != nil {
		t.Fatalf("BeforeAppendModel error: %v", err)
	}
	if !b.UpdatedAt.IsZero() {
		t.Fatalf("select must not stamp updated_at")
	}

	if err := b.BeforeAppendModel(context.Background(), (*bun.InsertQuery)(nil)); err != nil {
		t.Fatalf("BeforeAppendModel error: %v", err)
	}
	if b.UpdatedAt.IsZero() {
		t.Fatalf("insert must stamp updated_at")
	}
}
