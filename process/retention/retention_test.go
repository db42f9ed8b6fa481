package retention

import (
	"context"
	"testing"
	"time"

	"karton/pkg/store"
)

type purgeStore struct {
	store.Store
	before time.Time
	calls  int
}

func (p *purgeStore) Purge(_ context.Context, before time.Time) (int64, error) {
	p.before = before
	p.calls++
	return 3, nil
}

func TestCutoff(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	if got, want := Cutoff(now, 7), time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("cutoff = %v, want %v", got, want)
	}
}

func TestPurge(t *testing.T) {
	st := &purgeStore{}
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	n, err := Purge(context.Background(), st, now, 0)
	if err != nil || n != 0 || st.calls != 0 {
		t.Fatalf("days=0 should keep all: n=%d err=%v calls=%d", n, err, st.calls)
	}
	n, err = Purge(context.Background(), st, now, 30)
	if err != nil || n != 3 {
		t.Fatalf("purge: n=%d err=%v", n, err)
	}
	if !st.before.Equal(time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("before = %v", st.before)
	}
}
