package core

import "time"

// CheckpointTrigger is what caused a checkpoint to be created.
type CheckpointTrigger string

const (
	CheckpointAuto   CheckpointTrigger = "auto"
	CheckpointManual CheckpointTrigger = "manual"
)

// CheckpointMeta is the state.json metadata file stored alongside a
// checkpoint's literal file copies.
type CheckpointMeta struct {
	Number      int               `json:"number"`
	Timestamp   time.Time         `json:"timestamp"`
	Phase       Phase             `json:"phase"`
	Status      IterationStatus   `json:"status"`
	MaxTurns    int               `json:"max_turns"`
	Description string            `json:"description"`
	Trigger     CheckpointTrigger `json:"trigger"`
	TurnCount   int               `json:"turn_count"`
}
