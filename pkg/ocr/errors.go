package ocr

import "errors"

// ErrEngine wraps failures raised inside a Recognizer, including panics.
var ErrEngine = errors.New("ocr engine failure")

// ErrNoCandidates reports a frame from which no variant yielded text.
var ErrNoCandidates = errors.New("no text candidates")
