// Package agiauthz implements the authorization guardrail that gates
// tool dispatch (spec §4.4), grounded on original_source's
// guardrails.rs interception design and v2/tool/approvaltool's HITL
// suspend/resume contract.
package agiauthz

import "context"

// Request describes a pending tool call awaiting an authorization
// decision.
type Request struct {
	ToolCallID string
	ToolName   string
	Arguments  map[string]any
}

// Decision is the guardrail's verdict on a Request. ModifiedArguments,
// when non-nil, replaces the tool call's original arguments before
// execution (component H "approves, modifies, or denies", spec §4.4
// step 3).
type Decision struct {
	Approved          bool
	Reason            string
	ModifiedArguments map[string]any
}

// Guardrail decides whether a tool call may proceed.
type Guardrail interface {
	Decide(ctx context.Context, req Request) (Decision, error)
}

// None approves every request unconditionally.
type None struct{}

func (None) Decide(ctx context.Context, req Request) (Decision, error) {
	return Decision{Approved: true}, nil
}

// AlwaysDeny rejects every request unconditionally.
type AlwaysDeny struct{}

func (AlwaysDeny) Decide(ctx context.Context, req Request) (Decision, error) {
	return Decision{Approved: false, Reason: "authorization denied by policy"}, nil
}

// Transport is how Interactive asks a human for a decision — typically
// the same channel the run's events travel over, with the
// AuthorizationRequested event as the prompt and a response arriving out
// of band.
type Transport interface {
	RequestDecision(ctx context.Context, req Request) (Decision, error)
}

// Interactive suspends the step until Transport resolves it. A
// cancelled or expired context surfaces as a denial rather than an
// error, matching spec §4.4's "timeouts deny" rule.
type Interactive struct {
	transport Transport
}

func NewInteractive(transport Transport) *Interactive {
	return &Interactive{transport: transport}
}

func (g *Interactive) Decide(ctx context.Context, req Request) (Decision, error) {
	decision, err := g.transport.RequestDecision(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return Decision{Approved: false, Reason: "authorization timed out"}, nil
		}
		return Decision{}, err
	}
	return decision, nil
}
