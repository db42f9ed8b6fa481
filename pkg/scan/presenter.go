package scan

import (
	"bytes"
	"image"
	"log"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// Presenter receives push notifications from the scanner. Implementations
// must not block.
type Presenter interface {
	Frame(img image.Image)
	Message(text string)
	CameraStatus(on bool)
	Candidates(raw []string)
	DayReset(day time.Time)
}

// CameraOffText is published when capture stops.
const CameraOffText = "Camera Off"

// Event is one notification delivered to Hub subscribers.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub fans scanner notifications out to subscribers and keeps the latest
// display frame as JPEG for polling clients.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	frame  []byte
	frames uint64
}

func NewHub() *Hub {
	return &Hub{subs: map[chan Event]struct{}{}}
}

// Subscribe returns a buffered event channel and its cancel function.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// publish drops the event for subscribers whose buffer is full.
func (h *Hub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *Hub) Frame(img image.Image) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		log.Printf("hub: encode frame: %v", err)
		return
	}
	h.mu.Lock()
	h.frame = buf.Bytes()
	h.frames++
	n := h.frames
	h.mu.Unlock()
	h.publish(Event{Type: "frame", Data: n})
}

// LatestFrame returns the last display frame as JPEG, or nil.
func (h *Hub) LatestFrame() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame
}

func (h *Hub) Message(text string) {
	h.publish(Event{Type: "message", Data: text})
}

func (h *Hub) CameraStatus(on bool) {
	if !on {
		h.mu.Lock()
		h.frame = nil
		h.mu.Unlock()
		h.publish(Event{Type: "camera", Data: map[string]any{"on": false, "text": CameraOffText}})
		return
	}
	h.publish(Event{Type: "camera", Data: map[string]any{"on": true}})
}

func (h *Hub) Candidates(raw []string) {
	h.publish(Event{Type: "candidates", Data: raw})
}

func (h *Hub) DayReset(day time.Time) {
	h.publish(Event{Type: "day_reset", Data: day.Format("2006-01-02")})
}

// NopPresenter discards every notification.
type NopPresenter struct{}

func (NopPresenter) Frame(image.Image) {}
func (NopPresenter) Message(string) {}
func (NopPresenter) CameraStatus(bool) {}
func (NopPresenter) Candidates([]string) {}
func (NopPresenter) DayReset(time.Time) {}
