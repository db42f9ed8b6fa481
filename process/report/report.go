// Package report prints the per-day OK / Not OK breakdown per target session.
package report

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"karton/models"
	"karton/pkg/store"
)

// Report is one day's detections grouped by target session.
type Report struct {
	Day      time.Time              `json:"day"`
	Sessions []store.SessionSummary `json:"sessions"`
	OK       int64                  `json:"ok"`
	NotOK    int64                  `json:"not_ok"`
	Rows     []models.Detection     `json:"rows,omitempty"`
}

// Build summarises day; with list the individual rows are included.
func Build(ctx context.Context, st store.Store, day time.Time, list bool) (Report, error) {
	sum, err := st.Summary(ctx, day)
	if err != nil {
		return Report{}, err
	}
	start, _ := store.DayBounds(day)
	r := Report{Day: start, Sessions: sum}
	for _, s := range sum {
		r.OK += s.OK
		r.NotOK += s.NotOK
	}
	if list {
		if r.Rows, err = st.Load(ctx, day); err != nil {
			return Report{}, err
		}
	}
	return r, nil
}

// Write renders r as an aligned text table.
func Write(w io.Writer, r Report) error {
	fmt.Fprintf(w, "Report for %s:\n", r.Day.Format("2006-01-02"))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tOK\tNOT OK\tTOTAL")
	for _, s := range r.Sessions {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", s.TargetSession, s.OK, s.NotOK, s.Total())
	}
	fmt.Fprintf(tw, "all\t%d\t%d\t%d\n", r.OK, r.NotOK, r.OK+r.NotOK)
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, d := range r.Rows {
		fmt.Fprintf(w, "%d|%s|%s|%s|%s|%s\n", d.ID, d.Timestamp.Format(time.RFC3339), d.Code, d.Standard, d.Status, d.TargetSession)
	}
	return nil
}
