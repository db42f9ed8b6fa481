// Package retention removes detection records and images past their age limit.
package retention

import (
	"context"
	"log"
	"time"

	"karton/pkg/store"
)

// Cutoff is the start of the oldest local day kept when keeping days days.
func Cutoff(now time.Time, days int) time.Time {
	start, _ := store.DayBounds(now)
	return start.AddDate(0, 0, -days)
}

// Purge deletes everything older than Cutoff(now, days). days <= 0 keeps all.
func Purge(ctx context.Context, st store.Store, now time.Time, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	n, err := st.Purge(ctx, Cutoff(now, days))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("retention: purged=%d days=%d", n, days)
	}
	return n, nil
}

// Run purges once immediately and then every interval until ctx is done.
func Run(ctx context.Context, st store.Store, days int, every time.Duration) {
	if _, err := Purge(ctx, st, time.Now(), days); err != nil {
		log.Printf("retention: %v", err)
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if _, err := Purge(ctx, st, now, days); err != nil {
				log.Printf("retention: %v", err)
			}
		}
	}
}
