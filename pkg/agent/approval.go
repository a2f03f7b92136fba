package agent

import (
	"context"
	"sync"
)

// Decision is a human verdict on a proposed mutation.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionEdit    Decision = "edit"
)

// PendingApproval is a proposed file mutation suspended until a human
// decision arrives. Exactly one decision is ever accepted; delivering a
// second one is a no-op. The turn loop is the only consumer of the
// decision, the human-facing surface the only caller of Resolve.
type PendingApproval struct {
	ToolCallID string
	Path       string
	OldContent string
	NewContent string
	Diff       string

	once     sync.Once
	decision chan Decision
}

// NewPendingApproval creates a pending approval for a proposed change.
func NewPendingApproval(toolCallID string, change FileChangeContent) *PendingApproval {
	return &PendingApproval{
		ToolCallID: toolCallID,
		Path:       change.Path,
		OldContent: change.OldContent,
		NewContent: change.NewContent,
		Diff:       change.Diff,
		decision:   make(chan Decision, 1),
	}
}

// Resolve delivers the human decision. Only the first call has any
// effect.
func (p *PendingApproval) Resolve(d Decision) {
	p.once.Do(func() {
		p.decision <- d
	})
}

// Wait blocks until a decision is delivered or ctx is cancelled.
func (p *PendingApproval) Wait(ctx context.Context) (Decision, error) {
	select {
	case d := <-p.decision:
		return d, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ApprovalHandler is the human-facing surface for pending approvals.
// Implementations must eventually call Resolve exactly once per
// approval; HandleApproval itself should not block the caller longer
// than it takes to present the request.
type ApprovalHandler interface {
	HandleApproval(ctx context.Context, approval *PendingApproval)
}

// ApprovalHandlerFunc adapts a function to the ApprovalHandler interface.
type ApprovalHandlerFunc func(ctx context.Context, approval *PendingApproval)

// HandleApproval calls the wrapped function.
func (f ApprovalHandlerFunc) HandleApproval(ctx context.Context, approval *PendingApproval) {
	f(ctx, approval)
}

// ApplyFunc applies an approved file change. Injected so the core does
// not depend on a filesystem.
type ApplyFunc func(path, content string) error

// ApprovalConfig wires the approval gate into a turn loop. A nil config
// disables the gate; proposed changes are then applied directly.
type ApprovalConfig struct {
	Handler ApprovalHandler
	Apply   ApplyFunc
}
