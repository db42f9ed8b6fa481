//go:build gocv

package camera

import (
	"fmt"
	"image"
	"log"
	"sync"

	"gocv.io/x/gocv"
)

type device struct {
	mu    sync.Mutex
	cap   *gocv.VideoCapture
	mat   gocv.Mat
	index int
}

// Open probes for a working capture device.
func Open(cfg Config) (Source, error) {
	for _, idx := range probeOrder(cfg) {
		vc, err := gocv.OpenVideoCapture(idx)
		if err != nil {
			continue
		}
		if !vc.IsOpened() {
			vc.Close()
			continue
		}
		if cfg.Width > 0 && cfg.Height > 0 {
			vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
			vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
		}
		d := &device{cap: vc, mat: gocv.NewMat(), index: idx}
		// a device that opens but returns no frame is skipped
		if _, err := d.Read(); err != nil {
			d.Close()
			continue
		}
		log.Printf("camera: opened device=%d", idx)
		return d, nil
	}
	return nil, fmt.Errorf("%w: tried %v", ErrUnavailable, probeOrder(cfg))
}

func (d *device) Read() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cap == nil {
		return nil, ErrClosed
	}
	if ok := d.cap.Read(&d.mat); !ok || d.mat.Empty() {
		return nil, fmt.Errorf("camera %d: empty frame", d.index)
	}
	return d.mat.ToImage()
}

func (d *device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cap == nil {
		return nil
	}
	d.mat.Close()
	err := d.cap.Close()
	d.cap = nil
	return err
}
