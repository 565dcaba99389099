package domain

import "time"

// TrainingPhase is the nested state machine of a model training run.
//
// It advances TRAINING -> REFINING -> COMPLETE by iteration count, not by
// wall-clock time; the owning process derives its progress from the number of
// appended iterations.
type TrainingPhase string

const (
	PhaseTraining TrainingPhase = "TRAINING"
	PhaseRefining TrainingPhase = "REFINING"
	PhaseComplete TrainingPhase = "COMPLETE"
)

// MaxTrainingIterations saturates a training experiment.
const MaxTrainingIterations = 20

// refining starts after this many iterations.
const RefiningAfterIterations = 15

// TrainingIteration is one synthetic optimization step.
type TrainingIteration struct {
	Seq   int     `json:"seq"`
	Loss  float64 `json:"loss"`
	Score float64 `json:"score"`
}

// Experiment tracks one training run of a Model.
type Experiment struct {
	ID         string              `json:"id"`
	ModelID    string              `json:"modelId"`
	Phase      TrainingPhase       `json:"phase"`
	Iterations []TrainingIteration `json:"iterations,omitempty"`

	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

func (e Experiment) Identity() string {
	return e.ID
}

func (e *Experiment) SetIdentity(id string) {
	e.ID = id
}

func (e *Experiment) SetTimestamps(now time.Time) {
	if e.Created.IsZero() {
		e.Created = now
	}
	e.Updated = now
}

// Saturated reports whether training appended every iteration it ever will.
func (e Experiment) Saturated() bool {
	return MaxTrainingIterations <= len(e.Iterations)
}

// Progress of the owning process, derived from iteration count.
func (e Experiment) Progress() float64 {
	return float64(len(e.Iterations)) / float64(MaxTrainingIterations)
}
