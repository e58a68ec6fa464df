package workflow

import (
	"context"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/ai"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/faults"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/thread"
)

type StoryRequest struct {
	Input    string `json:"input"`
	ThreadID string `json:"threadId,omitempty"`
}

type StoryResult struct {
	Text     string `json:"text"`
	ThreadID string `json:"threadId"`
}

// StoryText continues the story on a thread; earlier turns are sent as
// context.
func (e *Engine) StoryText(ctx context.Context, req StoryRequest) (StoryResult, error) {
	if req.Input == "" {
		return StoryResult{}, faults.Errorf(faults.Validation, "story text", "input is required")
	}
	if req.ThreadID == "" {
		req.ThreadID = thread.NewID()
	}

	turns, err := e.threads.History(ctx, req.ThreadID)
	if err != nil {
		return StoryResult{}, faults.E(faults.Transient, "load thread", err)
	}
	history := make([]ai.Message, 0, len(turns))
	for _, t := range turns {
		history = append(history, ai.Message{Role: t.Role, Content: t.Content})
	}

	prompt := "The events as known are: " + req.Input
	text, err := e.gen.GenerateTextWithHistory(ctx, storytellerPrompt, history, prompt)
	if err != nil {
		return StoryResult{}, step("tell story", err)
	}

	if err := e.threads.Append(ctx, req.ThreadID,
		thread.Turn{Role: ai.RoleUser, Content: prompt},
		thread.Turn{Role: ai.RoleAssistant, Content: text},
	); err != nil {
		return StoryResult{}, faults.E(faults.Transient, "save thread", err)
	}
	return StoryResult{Text: text, ThreadID: req.ThreadID}, nil
}
