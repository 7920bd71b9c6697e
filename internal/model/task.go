package model

// SearchTask is a single planned web query. Produced by the planning
// stage, consumed by the search fan-out; immutable once created.
type SearchTask struct {
	Query     string `json:"query"`
	Rationale string `json:"rationale"`
}

// SearchResult pairs a task with the text it produced. Failed tasks are
// recorded on the run's error list instead and never appear here.
type SearchResult struct {
	Task    SearchTask `json:"task"`
	Content string     `json:"content"`
}

// ToolCall records one specialist sub-analysis invocation with its
// structured input and output. Keeping these explicit avoids hidden
// recursive call graphs inside the generation layer.
type ToolCall struct {
	Name   string `json:"name"`
	Input  string `json:"input"`
	Output string `json:"output"`
}
