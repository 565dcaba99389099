package domain

import "time"

type ProcessStatus string

const (
	ProcessQueued    ProcessStatus = "QUEUED"
	ProcessRunning   ProcessStatus = "RUNNING"
	ProcessCompleted ProcessStatus = "COMPLETED"
	ProcessCancelled ProcessStatus = "CANCELLED"
	ProcessFailed    ProcessStatus = "FAILED"
)

func (ps ProcessStatus) String() string {
	return string(ps)
}

// Terminal reports whether a process in this status may never change again.
func (ps ProcessStatus) Terminal() bool {
	switch ps {
	case ProcessCompleted, ProcessCancelled, ProcessFailed:
		return true
	}
	return false
}

// Process is one simulated background job running against a target asset.
//
// Progress is monotonically non-decreasing while the process is RUNNING,
// and frozen as soon as the status leaves RUNNING.
type Process struct {
	ID       string        `json:"id"`
	OwnerID  string        `json:"ownerId"`
	Target   Kind          `json:"target"`
	TargetID string        `json:"targetId"`
	Status   ProcessStatus `json:"status"`
	Progress float64       `json:"progress"`
	JobType  string        `json:"jobType,omitempty"`
	Cause    string        `json:"cause,omitempty"`

	Created   time.Time  `json:"created"`
	Started   time.Time  `json:"started,omitempty"`
	Completed *time.Time `json:"completed,omitempty"`

	// ExpectedDuration, when positive, drives time-proportional progress.
	// Otherwise Speed (plus jitter) is added per tick.
	ExpectedDuration time.Duration `json:"expectedDuration,omitempty"`
	Speed            float64       `json:"speed,omitempty"`

	// Touched suppresses the very first tick after creation so a freshly
	// started job shows 0 progress for one interval.
	Touched bool `json:"touched"`
}

func (p Process) Identity() string {
	return p.ID
}

func (p *Process) SetIdentity(id string) {
	p.ID = id
}

func (p *Process) SetTimestamps(now time.Time) {
	if p.Created.IsZero() {
		p.Created = now
	}
	if p.Started.IsZero() && p.Status == ProcessRunning {
		p.Started = now
	}
}

// DefaultProcessSpeed is the per-tick progress increment for jobs that do not
// declare an expected duration.
const DefaultProcessSpeed = 0.05
