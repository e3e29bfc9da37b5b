package executor

import (
	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/model"
)

// toTranscript converts the in-flight message list into the
// resumable-state shape persisted to disk.
func toTranscript(messages []model.Message) []core.TranscriptEntry {
	out := make([]core.TranscriptEntry, len(messages))
	for i, m := range messages {
		out[i] = core.TranscriptEntry{Role: m.Role, Content: m.Content}
	}
	return out
}

// fromTranscript restores a persisted transcript back into the message
// shape the model client expects.
func fromTranscript(entries []core.TranscriptEntry) []model.Message {
	out := make([]model.Message, len(entries))
	for i, e := range entries {
		out[i] = model.Message{Role: e.Role, Content: e.Content}
	}
	return out
}
