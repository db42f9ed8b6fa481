package hotfolder

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"karton/models"
	"karton/pkg/scan"
)

type fakeScanner struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeScanner) ScanFile(_ context.Context, path string) (<-chan scan.Report, error) {
	f.mu.Lock()
	f.paths = append(f.paths, filepath.Base(path))
	f.mu.Unlock()
	ch := make(chan scan.Report, 1)
	ch <- scan.Report{Outcome: scan.Verdict{Record: models.Detection{Code: "LBN 1"}}}
	close(ch)
	return ch, nil
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b.JPG", "a.png", "notes.txt", "karton_20260101_000000_abcd1234.jpg", ".hidden.png"} {
		touch(t, dir, n)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}
	got, err := ListImageFiles(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if want := []string{"a.png", "b.JPG"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestScanExistingOnce(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"1.png", "2.png", "3.jpg", "4.jpeg"} {
		touch(t, dir, n)
	}
	fs := &fakeScanner{}
	var mu sync.Mutex
	var results []Result
	p := New(fs, Options{Dir: dir, Workers: 3, OnResult: func(r Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}})
	if err := p.ScanExisting(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}
	// a second pass skips everything
	if err := p.ScanExisting(context.Background()); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	sort.Strings(fs.paths)
	if want := []string{"1.png", "2.png", "3.jpg", "4.jpeg"}; !reflect.DeepEqual(fs.paths, want) {
		t.Fatalf("scanned %v, want %v", fs.paths, want)
	}
	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}
	for _, r := range results {
		if _, ok := r.Report.Outcome.(scan.Verdict); !ok || r.Err != nil {
			t.Fatalf("unexpected result %+v", r)
		}
	}
}

func TestWatchPicksUpNewFile(t *testing.T) {
	dir := t.TempDir()
	fs := &fakeScanner{}
	got := make(chan Result, 4)
	p := New(fs, Options{Dir: dir, Workers: 1, Debounce: 20 * time.Millisecond, OnResult: func(r Result) { got <- r }})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	touch(t, dir, "new.png")
	touch(t, dir, "ignored.txt")

	select {
	case r := <-got:
		if r.Name != "new.png" {
			t.Fatalf("got %q", r.Name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not report new file")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch: %v", err)
	}
}

// busyScanner refuses the first scan the way a running live capture does.
type busyScanner struct {
	fakeScanner
	refused atomic.Bool
}

func (b *busyScanner) ScanFile(ctx context.Context, path string) (<-chan scan.Report, error) {
	if b.refused.CompareAndSwap(false, true) {
		return nil, scan.ErrLiveActive
	}
	return b.fakeScanner.ScanFile(ctx, path)
}

func TestWatchRetriesWhileLive(t *testing.T) {
	dir := t.TempDir()
	bs := &busyScanner{}
	got := make(chan Result, 4)
	p := New(bs, Options{Dir: dir, Debounce: 20 * time.Millisecond, OnResult: func(r Result) { got <- r }})
	if p.opts.Workers != 1 {
		t.Fatalf("default workers = %d, want 1", p.opts.Workers)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx) }()

	time.Sleep(100 * time.Millisecond)
	touch(t, dir, "late.png")

	for _, wantErr := range []bool{true, false} {
		select {
		case r := <-got:
			if r.Name != "late.png" || (r.Err != nil) != wantErr {
				t.Fatalf("got %+v, want error=%v", r, wantErr)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("file was not retried")
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch: %v", err)
	}
	if want := []string{"late.png"}; !reflect.DeepEqual(bs.paths, want) {
		t.Fatalf("scanned %v, want %v", bs.paths, want)
	}
}
