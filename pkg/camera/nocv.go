//go:build !gocv

package camera

import "fmt"

// Open reports ErrUnavailable: this binary was built without the gocv tag.
func Open(cfg Config) (Source, error) {
	return nil, fmt.Errorf("%w: built without gocv support", ErrUnavailable)
}
