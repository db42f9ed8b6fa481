// Package hotfolder scans label photos dropped into a directory.
package hotfolder

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"karton/pkg/scan"
)

// FileScanner is the part of scan.Scanner the hot folder needs.
type FileScanner interface {
	ScanFile(ctx context.Context, path string) (<-chan scan.Report, error)
}

// Result is delivered once per processed file.
type Result struct {
	Name   string
	Report scan.Report
	Err    error
}

type Options struct {
	Dir string
	// Workers above one run static scans concurrently.
	Workers  int
	Debounce time.Duration
	Verbose  bool
	// OnResult is called from worker goroutines.
	OnResult func(Result)
}

// Processor runs static scans over a directory, optionally watching it for
// new files. Each file name is processed at most once per Processor.
type Processor struct {
	opts    Options
	scanner FileScanner

	mu    sync.RWMutex
	done  map[string]bool
	retry []string
}

func New(s FileScanner, opts Options) *Processor {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 250 * time.Millisecond
	}
	return &Processor{opts: opts, scanner: s, done: make(map[string]bool, 256)}
}

func (p *Processor) logV(format string, args ...any) {
	if p.opts.Verbose {
		log.Printf(format, args...)
	}
}

func (p *Processor) seen(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.done[name]
}

// release forgets name and queues it for the next watch pass.
func (p *Processor) release(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.done, name)
	p.retry = append(p.retry, name)
}

func (p *Processor) takeRetries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.retry
	p.retry = nil
	return out
}

// claim marks name as taken and reports whether the caller got it first.
func (p *Processor) claim(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done[name] {
		return false
	}
	p.done[name] = true
	return true
}

// ScanExisting processes the images already present and returns when all
// of them are done.
func (p *Processor) ScanExisting(ctx context.Context) error {
	files, err := ListImageFiles(p.opts.Dir)
	if err != nil {
		return err
	}
	log.Printf("hotfolder: scanning %d files in %s (workers=%d)", len(files), p.opts.Dir, p.opts.Workers)
	ch := make(chan string, len(files))
	for _, f := range files {
		ch <- f
	}
	close(ch)
	p.runWorkerPool(ctx, ch)
	return nil
}

// Watch processes files created in the directory until ctx is cancelled.
func (p *Processor) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(p.opts.Dir); err != nil {
		return err
	}
	log.Printf("hotfolder: watching %s (debounced) ...", p.opts.Dir)

	fileCh := make(chan string, 256)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.runWorkerPool(ctx, fileCh)
	}()

	pending := map[string]time.Time{}
	ticker := time.NewTicker(p.opts.Debounce)
	defer ticker.Stop()
	defer func() {
		close(fileCh)
		wg.Wait()
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !isSupportedExt(name) || p.seen(name) {
				continue
			}
			pending[name] = time.Now()
		case <-ticker.C:
			now := time.Now()
			for _, name := range p.takeRetries() {
				if _, ok := pending[name]; !ok {
					pending[name] = now
				}
			}
			for name, t := range pending {
				// stable once no write arrived for a full debounce period
				if now.Sub(t) > p.opts.Debounce {
					delete(pending, name)
					select {
					case fileCh <- name:
					case <-ctx.Done():
						return nil
					}
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("hotfolder: watch error: %v", err)
		}
	}
}

func (p *Processor) runWorkerPool(ctx context.Context, files <-chan string) {
	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range files {
				if ctx.Err() != nil {
					continue
				}
				p.processFile(ctx, name)
			}
		}()
	}
	wg.Wait()
}

func (p *Processor) processFile(ctx context.Context, name string) {
	if !p.claim(name) {
		p.logV("hotfolder: SKIP already processed %s", name)
		return
	}
	res := Result{Name: name}
	ch, err := p.scanner.ScanFile(ctx, filepath.Join(p.opts.Dir, name))
	if err != nil {
		if errors.Is(err, scan.ErrLiveActive) {
			p.release(name)
		}
		log.Printf("hotfolder: %s: %v", name, err)
		res.Err = err
	} else {
		res.Report = <-ch
		log.Printf("hotfolder: file=%s outcome=%s signal=%q", name, scan.Name(res.Report.Outcome), scan.Signal(res.Report.Outcome, false))
	}
	if p.opts.OnResult != nil {
		p.opts.OnResult(res)
	}
}

// ListImageFiles returns the supported image names in dir, sorted.
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

func isSupportedExt(name string) bool {
	// skip stored image references so an image dir inside the hot folder is not rescanned
	if strings.HasPrefix(name, "karton_") || strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}
