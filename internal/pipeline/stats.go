package pipeline

import (
	"sort"
	"sync"
	"time"
)

// StreamStats is a point-in-time view of one running stream
type StreamStats struct {
	ID              string    `json:"id"`
	CameraID        string    `json:"camera_id"`
	UserID          int64     `json:"user_id"`
	StartedAt       time.Time `json:"started_at"`
	FramesRead      uint64    `json:"frames_read"`
	FramesProcessed uint64    `json:"frames_processed"`
	Detections      uint64    `json:"detections"`
	AlertsRecorded  uint64    `json:"alerts_recorded"`
	DetectorErrors  uint64    `json:"detector_errors"`
}

type streamStats struct {
	id        string
	cameraID  string
	userID    int64
	startedAt time.Time

	mu         sync.Mutex
	read       uint64
	processed  uint64
	detections uint64
	alerts     uint64
	errors     uint64
}

func (s *streamStats) frameRead()      { s.mu.Lock(); s.read++; s.mu.Unlock() }
func (s *streamStats) frameProcessed() { s.mu.Lock(); s.processed++; s.mu.Unlock() }
func (s *streamStats) detected()       { s.mu.Lock(); s.detections++; s.mu.Unlock() }
func (s *streamStats) alertRecorded()  { s.mu.Lock(); s.alerts++; s.mu.Unlock() }
func (s *streamStats) detectorFailed() { s.mu.Lock(); s.errors++; s.mu.Unlock() }

func (s *streamStats) snapshot() StreamStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StreamStats{
		ID:              s.id,
		CameraID:        s.cameraID,
		UserID:          s.userID,
		StartedAt:       s.startedAt,
		FramesRead:      s.read,
		FramesProcessed: s.processed,
		Detections:      s.detections,
		AlertsRecorded:  s.alerts,
		DetectorErrors:  s.errors,
	}
}

// Streams returns the stats of all running streams, oldest first.
// A userID of zero returns every user's streams.
func (p *Processor) Streams(userID int64) []StreamStats {
	p.mu.RLock()
	out := make([]StreamStats, 0, len(p.streams))
	for _, s := range p.streams {
		if userID != 0 && s.userID != userID {
			continue
		}
		out = append(out, s.snapshot())
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}
