package bots

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ziadkadry99/agent-relay/internal/activity"
	"github.com/ziadkadry99/agent-relay/internal/agents"
)

// DispatchLog records dispatch outcomes and answers whether a message was
// already replied to.
type DispatchLog interface {
	Record(ctx context.Context, entry activity.Entry) error
	Responded(ctx context.Context, messageKey string) (bool, error)
}

// Processor runs the candidate agents for an event until one replies.
type Processor struct {
	generator  Generator
	dispatcher Dispatcher
	log        DispatchLog
	logger     *slog.Logger
}

// NewProcessor creates a Processor. log may be nil to skip recording.
func NewProcessor(generator Generator, dispatcher Dispatcher, log DispatchLog, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		generator:  generator,
		dispatcher: dispatcher,
		log:        log,
		logger:     logger,
	}
}

// Process walks candidates in order. The first agent whose trigger matches
// and whose reply is generated and delivered wins; later candidates are not
// consulted. A failing agent is logged and the walk continues. Process
// returns nil when no agent replied.
func (p *Processor) Process(ctx context.Context, ev InboundEvent, candidates []agents.Agent) *DispatchResult {
	lower := strings.ToLower(ev.Text)

	for _, a := range candidates {
		if !ShouldRespond(a, lower) {
			continue
		}

		logger := p.logger.With("platform", ev.Platform, "agent", a.Name, "channel", ev.ChannelID)

		reply, err := p.generator.Generate(ctx, a, ev.Text)
		if err != nil {
			logger.Error("generating reply", "err", err)
			p.record(ctx, ev, a, activity.StatusModelFailed, err, 0)
			continue
		}

		if err := p.dispatcher.Deliver(ctx, a, ev, reply); err != nil {
			logger.Error("delivering reply", "err", err)
			p.record(ctx, ev, a, activity.StatusDeliveryFailed, err, 0)
			continue
		}

		logger.Info("reply delivered", "chars", utf8.RuneCountInString(reply))
		p.record(ctx, ev, a, activity.StatusDelivered, nil, utf8.RuneCountInString(reply))
		return &DispatchResult{
			AgentID:   a.ID,
			AgentName: a.Name,
			Platform:  ev.Platform,
			ChannelID: ev.ChannelID,
			Reply:     reply,
		}
	}
	return nil
}

func (p *Processor) record(ctx context.Context, ev InboundEvent, a agents.Agent, status activity.Status, cause error, chars int) {
	if p.log == nil {
		return
	}
	entry := activity.Entry{
		MessageKey: ev.MessageKey(),
		Platform:   string(ev.Platform),
		ChannelID:  ev.ChannelID,
		AgentID:    a.ID,
		Status:     status,
		ReplyChars: chars,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	if err := p.log.Record(ctx, entry); err != nil {
		p.logger.Warn("recording dispatch outcome", "agent", a.Name, "err", err)
	}
}
