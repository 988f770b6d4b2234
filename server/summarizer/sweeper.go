package summarizer

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/toolhub/toolhub/store"
)

// Sweeper periodically summarizes sessions that crossed the threshold but
// were missed by the write-time trigger, e.g. after a restart.
type Sweeper struct {
	store      *store.Store
	summarizer *Summarizer
	interval   time.Duration
	cron       *cron.Cron
}

func NewSweeper(st *store.Store, summarizer *Summarizer, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:      st,
		summarizer: summarizer,
		interval:   interval,
		cron:       cron.New(),
	}
}

// Start begins the periodic sweep. A non-positive interval disables it.
func (s *Sweeper) Start() {
	if s.interval <= 0 {
		return
	}
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(s.sweep))
	s.cron.Start()
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	threshold := int32(MessagesThreshold)
	sessions, err := s.store.ListChatSessions(ctx, &store.FindChatSession{
		IncludeArchived:     true,
		SummaryDueThreshold: &threshold,
	})
	if err != nil {
		slog.Warn("summary sweep: list sessions failed", "err", err)
		return
	}
	for _, session := range sessions {
		if _, err := s.summarizer.Summarize(ctx, session, false); err != nil {
			slog.Warn("summary sweep: session failed", "session", session.UID, "err", err)
		}
	}
}
