// Package agent is the facade a transport binds to: one Handler per
// configured agent, wiring together the LLM decorators, a memory
// policy, the tool registry, the authorization guardrail, and the
// reasoning loop. Grounded on reasoning/interfaces.go's
// AgentServices/DefaultAgentServices dependency-injection shape,
// collapsed here to the single facade this spec names (spec §4.7).
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kadirpekel/agiloop/agiauthz"
	"github.com/kadirpekel/agiloop/agiconfig"
	"github.com/kadirpekel/agiloop/agievent"
	"github.com/kadirpekel/agiloop/agillm"
	"github.com/kadirpekel/agiloop/agiloop"
	"github.com/kadirpekel/agiloop/agimemory"
	"github.com/kadirpekel/agiloop/agimsg"
	"github.com/kadirpekel/agiloop/agistream"
	"github.com/kadirpekel/agiloop/agitool"
	"github.com/kadirpekel/agiloop/internal/checkpoint"
)

// ErrThreadBusy is returned by ClearMemory when a run is still in
// progress on the named thread (spec §4.7).
var ErrThreadBusy = errors.New("agent: a run is in progress on this thread")

// thread bundles one conversation's memory strategy with the Loop
// built to run against it. Every threadID gets its own pair so
// concurrent runs on different threads never share memory state.
type thread struct {
	memory  agimemory.Strategy
	loop    *agiloop.Loop
	running bool
}

// Handler is the facade every external interface (HTTP, CLI) drives.
type Handler struct {
	llm       agillm.Port
	registry  *agitool.Registry
	guardrail agiauthz.Guardrail
	cfg       *agiconfig.Config
	store     *checkpoint.Store

	mu      sync.Mutex
	threads map[string]*thread
}

// Option customizes Handler construction.
type Option func(*options)

type options struct {
	checkpoint *checkpoint.Store
	transport  agiauthz.Transport
}

// WithCheckpoint persists agent_history steps through store.
func WithCheckpoint(store *checkpoint.Store) Option {
	return func(o *options) { o.checkpoint = store }
}

// WithAuthorizationTransport supplies the transport an interactive
// guardrail uses to request approval decisions.
func WithAuthorizationTransport(t agiauthz.Transport) Option {
	return func(o *options) { o.transport = t }
}

// New builds a Handler from cfg and a pre-populated tool registry.
// Tool registration stays application-specific, so registry is
// supplied rather than constructed here.
func New(cfg *agiconfig.Config, registry *agitool.Registry, opts ...Option) (*Handler, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	provider, err := agillm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("agent: build llm provider: %w", err)
	}
	recovered := agillm.NewAutoRecovery(provider, cfg.Loop.AutoRecoveryAttempts)
	truncated := agillm.NewTruncating(recovered, cfg.Loop.TruncationBudget, cfg.LLM.Model)

	guardrail, err := buildGuardrail(cfg.Authorization, o.transport)
	if err != nil {
		return nil, err
	}

	return &Handler{
		llm:       truncated,
		registry:  registry,
		guardrail: guardrail,
		cfg:       cfg,
		store:     o.checkpoint,
		threads:   make(map[string]*thread),
	}, nil
}

func buildGuardrail(mode agiconfig.AuthorizationMode, transport agiauthz.Transport) (agiauthz.Guardrail, error) {
	switch mode {
	case agiconfig.AuthzNone, "":
		return agiauthz.None{}, nil
	case agiconfig.AuthzAlwaysDeny:
		return agiauthz.AlwaysDeny{}, nil
	case agiconfig.AuthzInteractive:
		if transport == nil {
			return nil, fmt.Errorf("agent: interactive authorization requires a Transport")
		}
		return agiauthz.NewInteractive(transport), nil
	default:
		return nil, fmt.Errorf("agent: unknown authorization mode %q", mode)
	}
}

// buildMemory constructs the Strategy cfg.Memory.Policy names. The
// summarizing policies call summarizer directly; threadFor passes the
// same Port the Loop uses, which never routes through a memory
// Strategy, so a summarization call cannot recurse into summarization.
func buildMemory(cfg *agiconfig.Config, summarizer agillm.Port, threadID string, store *checkpoint.Store) agimemory.Strategy {
	switch cfg.Memory.Policy {
	case agiconfig.MemoryProgressiveSummary:
		return agimemory.NewProgressiveSummary(summarizer)
	case agiconfig.MemorySummaryBuffer:
		return agimemory.NewSummaryBuffer(cfg.Memory.SummaryTokenBudget, cfg.LLM.Model, summarizer)
	case agiconfig.MemoryAgentHistory:
		var persister agimemory.HistoryPersister
		if store != nil {
			persister = store
		}
		return agimemory.NewAgentHistory(threadID, persister)
	default:
		return agimemory.NewSlidingWindow(cfg.Memory.SlidingWindowSize)
	}
}

// threadFor returns the thread bundle for threadID, building one on
// first use.
func (h *Handler) threadFor(threadID string) *thread {
	h.mu.Lock()
	defer h.mu.Unlock()

	if t, ok := h.threads[threadID]; ok {
		return t
	}

	memory := buildMemory(h.cfg, h.llm, threadID, h.store)
	loop := agiloop.New(h.llm, memory, h.registry, h.guardrail, agiloop.Config{
		MaxSteps:            h.cfg.Loop.MaxSteps,
		LoopDetectionWindow: h.cfg.Loop.LoopDetectionWindow,
	})
	t := &thread{memory: memory, loop: loop}
	h.threads[threadID] = t
	return t
}

// HandleRun starts a run and returns the channel its events stream
// over. The caller is responsible for draining the channel until it
// closes.
func (h *Handler) HandleRun(ctx context.Context, in agimsg.RunAgentInput) (<-chan agievent.Event, error) {
	t := h.threadFor(in.ThreadID)

	h.mu.Lock()
	t.running = true
	h.mu.Unlock()

	ch := agistream.NewChannel(agistream.DefaultBufferSize)
	go func() {
		defer ch.Close()
		defer func() {
			h.mu.Lock()
			t.running = false
			h.mu.Unlock()
		}()
		_ = t.loop.Run(ctx, in, ch)
	}()
	return ch.Events(), nil
}

// ClearMemory resets the conversation memory for threadID. Clearing a
// thread that was never run is a no-op, matching Strategy.Clear's own
// idempotence. It fails with ErrThreadBusy while a run is still in
// progress on threadID (spec §4.7).
func (h *Handler) ClearMemory(ctx context.Context, threadID string) error {
	h.mu.Lock()
	t, ok := h.threads[threadID]
	if ok && t.running {
		h.mu.Unlock()
		return ErrThreadBusy
	}
	h.mu.Unlock()
	if !ok {
		return nil
	}
	t.memory.Clear()
	return nil
}

// Health reports whether the handler is ready to accept runs.
func (h *Handler) Health(ctx context.Context) error {
	if h.registry == nil {
		return fmt.Errorf("agent: tool registry not configured")
	}
	if h.store != nil {
		return h.store.Ping(ctx)
	}
	return nil
}
