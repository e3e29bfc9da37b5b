package core

// ResumableState is captured per agent during implementation so a crashed
// process can resume on the current agent's current round. It is written
// atomically after each round and invalidated when the agent completes, is
// blocked, or the layer advances.
type ResumableState struct {
	Layer             int               `json:"layer"`
	Agent             string            `json:"agent"`
	Messages          []TranscriptEntry `json:"messages"`
	Round             int               `json:"round"`
	ReadOnlyStreak    int               `json:"read_only_streak"`
	WritesSinceReminder int             `json:"writes_since_reminder"`
	HadToolActivity   bool              `json:"had_tool_activity"`
	NudgeIssued       bool              `json:"nudge_issued"`
}

// TranscriptEntry is one role-tagged entry in an in-flight agentic message
// list, independent of the conversation log's Message shape (the two are
// translated into one another by the prompt-reconstruction and
// implementation-executor layers respectively).
type TranscriptEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
