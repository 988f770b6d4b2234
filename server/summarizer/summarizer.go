// Package summarizer maintains rolling conversation summaries so chat
// context stays bounded as sessions grow.
package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/toolhub/toolhub/plugin/llm"
	"github.com/toolhub/toolhub/store"
)

const (
	// MessagesThreshold is the number of unsummarized messages that makes a
	// session due for summarization.
	MessagesThreshold = 20

	// MaxMessagesToFetch caps how many recent messages feed a single
	// summarization pass.
	MaxMessagesToFetch = 50

	summaryTemperature = 0.3
)

// ErrNoMessages is returned by a forced run on a session with nothing new
// to summarize.
var ErrNoMessages = errors.New("no messages to summarize")

// Result reports what a summarization pass did.
type Result struct {
	// Skipped is true when the session was not due and no force was requested.
	Skipped            bool
	Summary            string
	MessagesSummarized int
	SummaryUpdatedTs   int64
}

type Summarizer struct {
	store *store.Store
	llm   *llm.Client
}

func New(st *store.Store, client *llm.Client) *Summarizer {
	return &Summarizer{store: st, llm: client}
}

// Due reports whether the session has accumulated enough unsummarized
// messages to warrant a pass.
func Due(session *store.ChatSession) bool {
	return session.MessagesSinceSummary >= MessagesThreshold
}

// Summarize runs one summarization pass over the session. Without force it
// is a no-op below the threshold; with force it runs regardless, failing
// with ErrNoMessages when there is nothing new. On success the summary is
// stored and the session's unsummarized counter resets in one update.
func (s *Summarizer) Summarize(ctx context.Context, session *store.ChatSession, force bool) (*Result, error) {
	since := int(session.MessagesSinceSummary)
	if since == 0 {
		if force {
			return nil, ErrNoMessages
		}
		return &Result{Skipped: true}, nil
	}
	if !force && since < MessagesThreshold {
		return &Result{Skipped: true}, nil
	}

	fetch := since
	if fetch > MaxMessagesToFetch {
		fetch = MaxMessagesToFetch
	}
	messages, err := s.store.ListChatMessages(ctx, &store.FindChatMessage{
		SessionID:  session.ID,
		Descending: true,
		Limit:      &fetch,
	})
	if err != nil {
		return nil, errors.Wrap(err, "list messages")
	}
	if len(messages) == 0 {
		if force {
			return nil, ErrNoMessages
		}
		return &Result{Skipped: true}, nil
	}
	// Fetched newest first; restore chronological order for the prompt.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	prompt := buildPrompt(session.Summary, messages)
	temperature := summaryTemperature
	completion, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: store.RoleUser, Content: prompt}},
		Temperature: &temperature,
	})
	if err != nil {
		return nil, errors.Wrap(err, "generate summary")
	}
	summary := strings.TrimSpace(completion.Content)
	if summary == "" {
		return nil, errors.New("model returned empty summary")
	}

	now := time.Now().Unix()
	if err := s.store.ApplyChatSessionSummary(ctx, &store.ApplyChatSessionSummary{
		SessionID:        session.ID,
		Summary:          summary,
		SummaryUpdatedTs: now,
	}); err != nil {
		return nil, errors.Wrap(err, "store summary")
	}
	return &Result{
		Summary:            summary,
		MessagesSummarized: len(messages),
		SummaryUpdatedTs:   now,
	}, nil
}

func buildPrompt(existingSummary string, messages []*store.ChatMessage) string {
	var transcript strings.Builder
	for _, m := range messages {
		transcript.WriteString(m.Role)
		transcript.WriteString(": ")
		transcript.WriteString(m.Content)
		transcript.WriteString("\n")
	}
	if existingSummary != "" {
		return fmt.Sprintf(mergeSummaryPrompt, existingSummary, transcript.String())
	}
	return fmt.Sprintf(freshSummaryPrompt, transcript.String())
}

const freshSummaryPrompt = `Summarize the following conversation in a structured way. Keep it under 500 words.

Include:
- Main topics discussed
- Decisions made
- Important facts or details mentioned
- Any action items or follow-ups

Conversation:
%s

Return only the summary text.`

const mergeSummaryPrompt = `Below is an existing summary of an ongoing conversation, followed by the messages exchanged since it was written. Produce a single updated summary that merges both. Keep it under 500 words.

Include:
- Main topics discussed
- Decisions made
- Important facts or details mentioned
- Any action items or follow-ups

Existing summary:
%s

New messages:
%s

Return only the updated summary text.`
