package bots

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/ziadkadry99/agent-relay/internal/agents"
)

// maxBodyBytes bounds the size of an inbound webhook body.
const maxBodyBytes = 1 << 20

const (
	corsAllowOrigin  = "*"
	corsAllowHeaders = "authorization, x-client-info, apikey, content-type"
)

// AgentSource lists the active agents configured for a platform.
type AgentSource interface {
	ListActive(ctx context.Context, p agents.Platform) ([]agents.Agent, error)
}

// GatewayConfig holds the gateway's collaborators and switches.
type GatewayConfig struct {
	Agents    AgentSource
	Guard     LoopGuard
	Processor *Processor
	// Log, when set, suppresses events already answered.
	Log DispatchLog
	// VerifySignatures requires Slack requests to be signed by an agent's signing secret.
	VerifySignatures bool
	// AsyncDispatch acknowledges before generating and delivering the reply.
	AsyncDispatch bool
	Logger        *slog.Logger
}

// Gateway is the platform-agnostic webhook endpoint. It classifies each
// request, filters it and hands the candidate agents to the Processor.
type Gateway struct {
	cfg    GatewayConfig
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewGateway creates a Gateway. A nil Guard selects HeuristicLoopGuard.
func NewGateway(cfg GatewayConfig) *Gateway {
	if cfg.Guard == nil {
		cfg.Guard = HeuristicLoopGuard{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{cfg: cfg, logger: logger}
}

// Ack is the acknowledgement returned to the calling platform.
type Ack struct {
	// Body is the plain-text response: "OK" or a handshake challenge.
	Body string
	// Result is the reply sent, if any. Always nil in async mode.
	Result *DispatchResult
}

var ackOK = &Ack{Body: "OK"}

// HandleWebhook serves the shared webhook endpoint for every platform.
func (g *Gateway) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", corsAllowOrigin)
	w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	ack, err := g.Route(r.Context(), r.Header, body)
	if err != nil {
		g.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, ack.Body)
}

func (g *Gateway) writeError(w http.ResponseWriter, err error) {
	var malformed *MalformedRequestError
	switch {
	case errors.As(err, &malformed):
		g.logger.Debug("rejecting webhook", "err", err)
		http.Error(w, malformed.Reason, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidSignature):
		g.logger.Warn("rejecting webhook", "err", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
	default:
		g.logger.Error("handling webhook", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// Route runs one webhook body through classification, loop protection and
// dispatch. Errors are *MalformedRequestError, ErrInvalidSignature or
// *StoreReadError; failures of individual agents never surface here.
func (g *Gateway) Route(ctx context.Context, header http.Header, body []byte) (*Ack, error) {
	platform, err := Classify(body)
	if err != nil {
		return nil, err
	}

	switch platform {
	case agents.PlatformSlack:
		return g.routeSlack(ctx, header, body)
	case agents.PlatformTeams:
		return g.routeTeams(ctx, body)
	default:
		return nil, &MalformedRequestError{Reason: "Unknown platform"}
	}
}

func (g *Gateway) routeSlack(ctx context.Context, header http.Header, body []byte) (*Ack, error) {
	env, err := parseSlackEnvelope(body)
	if errors.Is(err, errUnusableBody) {
		g.logger.Debug("ignoring webhook", "platform", agents.PlatformSlack, "err", err)
		return ackOK, nil
	}
	if err != nil {
		return nil, err
	}

	ev, hasEvent := env.inboundEvent()
	if env.Type == "event_callback" && hasEvent && g.rejectedSender(ev) {
		return ackOK, nil
	}

	var own []agents.Agent
	if g.cfg.VerifySignatures {
		if own, err = g.listActive(ctx, agents.PlatformSlack); err != nil {
			return nil, err
		}
		if err := verifySlackSignature(header, body, own); err != nil {
			return nil, err
		}
	}

	if env.Type == "url_verification" {
		return &Ack{Body: env.Challenge}, nil
	}
	if env.Type != "event_callback" || !hasEvent {
		return ackOK, nil
	}
	if ev.Slack.Type != "message" || strings.TrimSpace(ev.Text) == "" {
		return ackOK, nil
	}

	if own == nil {
		if own, err = g.listActive(ctx, agents.PlatformSlack); err != nil {
			return nil, err
		}
	}
	if g.rejectedOwn(ev, own) {
		return ackOK, nil
	}
	return g.dispatch(ctx, ev, own)
}

func (g *Gateway) routeTeams(ctx context.Context, body []byte) (*Ack, error) {
	act, err := parseTeamsActivity(body)
	if errors.Is(err, errUnusableBody) {
		g.logger.Debug("ignoring webhook", "platform", agents.PlatformTeams, "err", err)
		return ackOK, nil
	}
	if err != nil {
		return nil, err
	}
	ev := act.inboundEvent()

	if g.rejectedSender(ev) || strings.TrimSpace(ev.Text) == "" {
		return ackOK, nil
	}

	own, err := g.listActive(ctx, agents.PlatformTeams)
	if err != nil {
		return nil, err
	}
	if g.rejectedOwn(ev, own) {
		return ackOK, nil
	}
	return g.dispatch(ctx, ev, own)
}

func (g *Gateway) listActive(ctx context.Context, p agents.Platform) ([]agents.Agent, error) {
	list, err := g.cfg.Agents.ListActive(ctx, p)
	if err != nil {
		return nil, &StoreReadError{Platform: p, Err: err}
	}
	if list == nil {
		list = []agents.Agent{}
	}
	return list, nil
}

func (g *Gateway) rejectedSender(ev InboundEvent) bool {
	reject, reason := g.cfg.Guard.RejectSender(ev)
	g.logRejected(ev, reject, reason)
	return reject
}

func (g *Gateway) rejectedOwn(ev InboundEvent, own []agents.Agent) bool {
	reject, reason := g.cfg.Guard.RejectOwn(ev, own)
	g.logRejected(ev, reject, reason)
	return reject
}

func (g *Gateway) logRejected(ev InboundEvent, reject bool, reason string) {
	if reject {
		g.logger.Debug("ignoring message", "platform", ev.Platform, "channel", ev.ChannelID, "sender", ev.SenderID, "reason", reason)
	}
}

// dispatch selects the candidates for ev and runs the Processor, inline or
// in the background depending on configuration.
func (g *Gateway) dispatch(ctx context.Context, ev InboundEvent, own []agents.Agent) (*Ack, error) {
	var candidates []agents.Agent
	for _, a := range own {
		if a.IsCandidate(ev.Platform, ev.ChannelID) {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		g.logger.Debug("no candidate agents", "platform", ev.Platform, "channel", ev.ChannelID)
		return ackOK, nil
	}

	if g.cfg.Log != nil {
		done, err := g.cfg.Log.Responded(ctx, ev.MessageKey())
		if err != nil {
			g.logger.Warn("checking for duplicate delivery", "key", ev.MessageKey(), "err", err)
		} else if done {
			g.logger.Info("skipping redelivered message", "key", ev.MessageKey())
			return ackOK, nil
		}
	}

	if g.cfg.AsyncDispatch {
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			g.cfg.Processor.Process(context.WithoutCancel(ctx), ev, candidates)
		}()
		return ackOK, nil
	}

	return &Ack{Body: "OK", Result: g.cfg.Processor.Process(ctx, ev, candidates)}, nil
}

// Wait blocks until background dispatches started in async mode finish.
func (g *Gateway) Wait() {
	g.wg.Wait()
}
