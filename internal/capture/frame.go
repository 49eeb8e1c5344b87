package capture

import "time"

// Frame is a single raw capture from the source device. Immutable after
// creation; once dequeued from the Buffer the orchestrator owns it until
// the output stage completes.
type Frame struct {
	Pixels      []byte
	Width       int
	Height      int
	Channels    int
	CapturedAt  time.Time
	Sequence    uint64
	CaptureMs   float64
}
