package brain

import (
	"context"
	"log/slog"

	"basegraph.app/triage/internal/model"
)

// Operation names a collaborator call or tracker mutation whose failure the
// policy classifies.
type Operation string

const (
	OpClassify      Operation = "classify"
	OpTranslate     Operation = "translate"
	OpFetchComments Operation = "fetch_comments"
	OpFetchTimeline Operation = "fetch_timeline"
)

// ActionOperation is the Operation for executing an action of kind k.
func ActionOperation(k model.ActionKind) Operation {
	return Operation("action." + string(k))
}

type Severity int

const (
	// Soft failures are logged and contained.
	Soft Severity = iota
	// Hard failures abort the pass.
	Hard
)

// FailurePolicy declares, per operation, whether a failure aborts the pass.
// Operations not listed are soft.
type FailurePolicy map[Operation]Severity

// DefaultFailurePolicy: classification and spam transfer are hard, everything
// else degrades.
var DefaultFailurePolicy = FailurePolicy{
	OpClassify:                            Hard,
	OpTranslate:                           Soft,
	OpFetchComments:                       Soft,
	OpFetchTimeline:                       Soft,
	ActionOperation(model.ActionTransfer): Hard,
}

func (p FailurePolicy) Severity(op Operation) Severity {
	if s, ok := p[op]; ok {
		return s
	}
	return Soft
}

// Handle returns err for hard operations. Soft failures are logged at warn
// and swallowed.
func (p FailurePolicy) Handle(ctx context.Context, op Operation, err error) error {
	if err == nil {
		return nil
	}
	if p.Severity(op) == Hard {
		return err
	}
	slog.WarnContext(ctx, "soft failure, continuing", "operation", string(op), "error", err)
	return nil
}
