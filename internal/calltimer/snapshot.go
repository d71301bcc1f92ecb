package calltimer

import (
	"time"

	"parishfund/server/internal/apperror"
)

// Status is the stopwatch state
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
)

// Snapshot is the persisted timer record. Times are Unix milliseconds.
// StartTime is the start of the open run segment; AccumulatedTime excludes it.
type Snapshot struct {
	Status          Status `json:"status"`
	StartTime       *int64 `json:"startTime"`
	AccumulatedTime int64  `json:"accumulatedTime"`
	LastPauseTime   *int64 `json:"lastPauseTime"`
}

// StoppedSnapshot is the fresh state
func StoppedSnapshot() Snapshot {
	return Snapshot{Status: StatusStopped}
}

// Validate checks the state invariants:
// stopped has no time and no segment, paused has no segment, running has one.
func (s Snapshot) Validate() error {
	if s.AccumulatedTime < 0 {
		return apperror.ErrInvalidSnapshot
	}
	switch s.Status {
	case StatusStopped:
		if s.AccumulatedTime != 0 || s.StartTime != nil || s.LastPauseTime != nil {
			return apperror.ErrInvalidSnapshot
		}
	case StatusPaused:
		if s.StartTime != nil {
			return apperror.ErrInvalidSnapshot
		}
	case StatusRunning:
		if s.StartTime == nil {
			return apperror.ErrInvalidSnapshot
		}
	default:
		return apperror.ErrInvalidSnapshot
	}
	return nil
}

// ElapsedAt computes elapsed time at now from absolute timestamps only
func (s Snapshot) ElapsedAt(now time.Time) time.Duration {
	switch s.Status {
	case StatusPaused:
		return time.Duration(s.AccumulatedTime) * time.Millisecond
	case StatusRunning:
		segment := now.UnixMilli() - *s.StartTime
		if segment < 0 {
			// wall clock moved backwards; never count a negative segment
			segment = 0
		}
		return time.Duration(s.AccumulatedTime+segment) * time.Millisecond
	default:
		return 0
	}
}

func (s Snapshot) clone() Snapshot {
	out := s
	if s.StartTime != nil {
		v := *s.StartTime
		out.StartTime = &v
	}
	if s.LastPauseTime != nil {
		v := *s.LastPauseTime
		out.LastPauseTime = &v
	}
	return out
}

func millis(t time.Time) *int64 {
	v := t.UnixMilli()
	return &v
}
