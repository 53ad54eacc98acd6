package chat

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"chatsync/internal/model"
)

// Loader fetches one conversation's history, oldest first.
type Loader struct {
	svc    MessageService
	logger zerolog.Logger
}

func NewLoader(svc MessageService, logger zerolog.Logger) *Loader {
	return &Loader{svc: svc, logger: logger}
}

func (l *Loader) Load(ctx context.Context, conv model.ConversationSummary, who model.Identity) ([]model.Message, error) {
	msgs, err := l.svc.ListMessages(ctx, who, conv.Key())
	if err != nil {
		l.logger.Warn().Err(err).Str("conversation", conv.Key().String()).Msg("loader: fetch failed")
		return nil, err
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

// Gate tags loads with the selection that triggered them. Begin cancels the
// previous load; a result is applied only while its ticket is still current.
type Gate struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

type Ticket struct {
	Gen uint64
	Key model.ConversationKey
}

func (g *Gate) Begin(parent context.Context, key model.ConversationKey) (context.Context, Ticket) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cancel != nil {
		g.cancel()
	}
	g.gen++
	ctx, cancel := context.WithCancel(parent)
	g.cancel = cancel
	return ctx, Ticket{Gen: g.gen, Key: key}
}

func (g *Gate) Current(t Ticket) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return t.Gen == g.gen
}

// Invalidate makes every outstanding ticket stale.
func (g *Gate) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.gen++
}
