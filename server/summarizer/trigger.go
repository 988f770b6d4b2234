package summarizer

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/toolhub/toolhub/store"
)

const triggerTimeout = 2 * time.Minute

// Trigger fires background summarization passes after message writes.
// Concurrent triggers for the same session collapse into a single run.
type Trigger struct {
	summarizer *Summarizer
	group      singleflight.Group
}

func NewTrigger(summarizer *Summarizer) *Trigger {
	return &Trigger{summarizer: summarizer}
}

// MaybeSummarize kicks off a summarization pass for the session when it is
// due. It never blocks the caller; failures are logged and the counter keeps
// accumulating until a later pass succeeds.
func (t *Trigger) MaybeSummarize(session *store.ChatSession) {
	if !Due(session) {
		return
	}
	go func() {
		_, err, _ := t.group.Do(session.UID, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
			defer cancel()
			return t.summarizer.Summarize(ctx, session, false)
		})
		if err != nil {
			slog.Warn("background summarization failed", "session", session.UID, "err", err)
		}
	}()
}
