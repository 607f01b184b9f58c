package brain

import (
	"context"
	"fmt"
	"log/slog"

	"basegraph.app/triage/common/logger"
	"basegraph.app/triage/internal/model"
	"basegraph.app/triage/internal/service/issue_tracker"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const defaultActionConcurrency = 4

type actionExecutor struct {
	tracker     issue_tracker.Tracker
	policy      FailurePolicy
	concurrency int
}

func NewActionExecutor(tracker issue_tracker.Tracker, policy FailurePolicy, concurrency int) *actionExecutor {
	if concurrency <= 0 {
		concurrency = defaultActionConcurrency
	}
	return &actionExecutor{tracker: tracker, policy: policy, concurrency: concurrency}
}

// Execute runs all actions concurrently and returns one settled outcome per
// action, in input order. A failing action never cancels its siblings.
func (e *actionExecutor) Execute(ctx context.Context, issue model.Issue, actions []model.IntendedAction) []model.ActionOutcome {
	outcomes := make([]model.ActionOutcome, len(actions))

	var eg errgroup.Group
	eg.SetLimit(e.concurrency)
	for i, action := range actions {
		eg.Go(func() error {
			err := e.ExecuteOne(ctx, issue, action)
			outcomes[i] = model.ActionOutcome{Action: action, Err: err}
			if err != nil {
				outcomes[i].Error = err.Error()
				if hard := e.policy.Handle(ctx, ActionOperation(action.Kind), err); hard != nil {
					slog.ErrorContext(ctx, "action failed", "action", action.String(), "error", hard)
				}
			}
			return nil
		})
	}
	_ = eg.Wait()

	failed := 0
	for _, o := range outcomes {
		if !o.Succeeded() {
			failed++
		}
	}
	slog.InfoContext(ctx, "actions settled",
		"total", len(outcomes),
		"failed", failed)

	return outcomes
}

// ExecuteOne applies a single action and returns its error.
func (e *actionExecutor) ExecuteOne(ctx context.Context, issue model.Issue, action model.IntendedAction) error {
	sc := logger.StartSpan(ctx, "triage.action")
	defer sc.End()
	ctx = sc.Context()
	sc.SetAttributes(attribute.String("action.kind", string(action.Kind)))

	err := e.apply(ctx, issue, action)
	if err != nil {
		sc.RecordError(err)
		return err
	}
	slog.DebugContext(ctx, "action applied", "action", action.String())
	return nil
}

func (e *actionExecutor) apply(ctx context.Context, issue model.Issue, action model.IntendedAction) error {
	ref := issue.Ref

	switch action.Kind {
	case model.ActionAddLabels:
		return e.tracker.AddLabels(ctx, ref, action.Labels)
	case model.ActionRemoveLabel:
		return e.tracker.RemoveLabel(ctx, ref, action.Label)
	case model.ActionSetState:
		return e.tracker.SetIssueState(ctx, ref, action.State)
	case model.ActionSetTitle:
		return e.tracker.SetIssueTitle(ctx, ref, action.Title)
	case model.ActionSetIssueType:
		return e.tracker.SetIssueType(ctx, ref, action.IssueType)
	case model.ActionTransfer:
		number, err := e.tracker.TransferIssue(ctx, action.IssueNodeID, action.TargetRepoID)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "issue transferred", "new_number", number)
		return nil
	}
	return fmt.Errorf("unknown action kind %q", action.Kind)
}
