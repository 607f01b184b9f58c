package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"basegraph.app/triage/common/id"
	"basegraph.app/triage/common/logger"
	"basegraph.app/triage/internal/domain"
	"basegraph.app/triage/internal/model"
	"basegraph.app/triage/internal/normalize"
	"basegraph.app/triage/internal/service/issue_tracker"
	"basegraph.app/triage/internal/service/translator"
	"go.opentelemetry.io/otel/attribute"
)

// BackgroundTasks receives the work a pass leaves running after it returns.
// The host must let every scheduled task run to completion.
type BackgroundTasks interface {
	Go(name string, fn func(ctx context.Context) error)
}

type OrchestratorConfig struct {
	Decision          DecisionConfig
	Gather            GatherOptions
	ActionConcurrency int
	Policy            FailurePolicy
}

// PassReport summarizes one triage pass for diagnostics. Actions scheduled in
// the background are listed but their outcomes are not.
type PassReport struct {
	PassID      int64
	Flow        Flow
	Actions     []model.IntendedAction
	Analysis    any
	RawResponse string
	SkipReason  string
}

// Orchestrator routes a webhook event to exactly one decision flow and
// executes the resulting actions.
type Orchestrator struct {
	cfg        OrchestratorConfig
	classifier *Classifier
	translator translator.Translator
	gatherer   *contextGatherer
	executor   *actionExecutor
}

func NewOrchestrator(
	cfg OrchestratorConfig,
	classifier *Classifier,
	tracker issue_tracker.Tracker,
	tr translator.Translator,
) *Orchestrator {
	if cfg.Policy == nil {
		cfg.Policy = DefaultFailurePolicy
	}
	if cfg.Gather == (GatherOptions{}) {
		cfg.Gather = DefaultGatherOptions()
	}
	return &Orchestrator{
		cfg:        cfg,
		classifier: classifier,
		translator: tr,
		gatherer:   NewContextGatherer(tracker, cfg.Policy),
		executor:   NewActionExecutor(tracker, cfg.Policy, cfg.ActionConcurrency),
	}
}

// Dispatch runs one pass for ev. Hard failures are returned as *PassError;
// everything else is settled in tasks.
func (o *Orchestrator) Dispatch(ctx context.Context, ev domain.Event, tasks BackgroundTasks) (*PassReport, error) {
	passID := id.New()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		PassID:      &passID,
		Repository:  logger.Ptr(ev.Issue.Ref.FullName()),
		IssueNumber: logger.Ptr(ev.Issue.Ref.Number),
		EventType:   logger.Ptr(string(ev.Type)),
		Component:   "triage.brain.orchestrator",
	})

	sc := logger.StartSpan(ctx, "triage.pass")
	defer sc.End()
	ctx = sc.Context()
	tasks = passTasks{tasks: tasks, parent: ctx}
	sc.SetAttributes(
		attribute.Int64("pass_id", passID),
		attribute.String("event_type", string(ev.Type)),
		attribute.String("issue", ev.Issue.Ref.String()),
	)

	report, err := o.dispatch(ctx, ev, tasks)
	if report == nil {
		report = &PassReport{}
	}
	report.PassID = passID

	if err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "triage pass failed", "flow", report.Flow, "error", err)
		return report, err
	}

	sc.SetAttributes(attribute.String("flow", string(report.Flow)), attribute.Int("actions", len(report.Actions)))
	slog.InfoContext(ctx, "triage pass dispatched",
		"flow", report.Flow,
		"actions", actionNames(report.Actions),
		"skip_reason", report.SkipReason)

	return report, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, ev domain.Event, tasks BackgroundTasks) (*PassReport, error) {
	if ev.Issue.IsPullRequest {
		return skipped("pull request"), nil
	}

	switch ev.Type {
	case domain.EventTypeIssueOpened:
		if ev.ActorIsBot() {
			return skipped("bot author"), nil
		}
		return o.handleNewIssue(ctx, ev, tasks)
	case domain.EventTypeIssueEdited:
		if ev.ActorIsBot() {
			return skipped("bot author"), nil
		}
		return o.handleIssueEdited(ctx, ev, tasks)
	case domain.EventTypeCommentCreated:
		if ev.Comment == nil {
			return nil, &PassError{Stage: "dispatch", Err: errors.New("comment event without comment")}
		}
		if ev.ActorIsBot() {
			return skipped("bot author"), nil
		}
		return o.handleComment(ctx, ev, tasks)
	case domain.EventTypeIssueLabeled:
		return o.handleLabeled(ctx, ev)
	case domain.EventTypeIssueClosed:
		return o.handleClosed(ctx, ev, tasks)
	default:
		return skipped(fmt.Sprintf("unhandled event type %q", ev.Type)), nil
	}
}

func (o *Orchestrator) handleNewIssue(ctx context.Context, ev domain.Event, tasks BackgroundTasks) (*PassReport, error) {
	issue := ev.Issue
	res, err := o.classifier.ClassifyIssue(ctx, issue.Title, normalize.Content(issue.Body))
	if err != nil {
		return &PassReport{Flow: FlowNewIssue, RawResponse: rawOf(err)}, o.classificationFailed(ctx, err)
	}

	d := DecideNewIssue(o.cfg.Decision, issue, res.Result)
	report := &PassReport{Flow: d.Flow, Actions: d.Actions, Analysis: res.Result, RawResponse: res.Raw}

	if res.Result.IssueType == model.IssueTypeSpam {
		if err := o.executeNow(ctx, issue, d.Actions); err != nil {
			return report, err
		}
		return report, nil
	}

	o.schedule(ctx, tasks, issue, d.Actions)
	if d.Translation != nil {
		o.scheduleTranslation(tasks, issue, *d.Translation)
	}
	return report, nil
}

func (o *Orchestrator) handleIssueEdited(ctx context.Context, ev domain.Event, tasks BackgroundTasks) (*PassReport, error) {
	issue := ev.Issue
	if !NeedsEditReview(issue) {
		return &PassReport{Flow: FlowIssueEdited, SkipReason: "issue is not waiting for a reproduction"}, nil
	}

	res, err := o.classifier.ClassifyComment(ctx, issueContent(issue.Title, normalize.Content(issue.Body)), issue.Author)
	if err != nil {
		return &PassReport{Flow: FlowIssueEdited, RawResponse: rawOf(err)}, o.classificationFailed(ctx, err)
	}

	d := DecideIssueEdited(res.Result)
	o.schedule(ctx, tasks, issue, d.Actions)
	return &PassReport{Flow: d.Flow, Actions: d.Actions, Analysis: res.Result, RawResponse: res.Raw}, nil
}

func (o *Orchestrator) handleComment(ctx context.Context, ev domain.Event, tasks BackgroundTasks) (*PassReport, error) {
	issue := ev.Issue
	comment := *ev.Comment

	switch CommentRoute(issue) {
	case FlowCommentOpen:
		res, err := o.classifier.ClassifyComment(ctx, normalize.Content(comment.Body), comment.Author)
		if err != nil {
			return &PassReport{Flow: FlowCommentOpen, RawResponse: rawOf(err)}, o.classificationFailed(ctx, err)
		}
		d := DecideOpenComment(res.Result)
		o.schedule(ctx, tasks, issue, d.Actions)
		return &PassReport{Flow: d.Flow, Actions: d.Actions, Analysis: res.Result, RawResponse: res.Raw}, nil

	case FlowCommentClosed:
		return o.handleClosedComment(ctx, ev, tasks)

	default:
		return &PassReport{Flow: FlowNothingToReview, SkipReason: "open issue not waiting for a reproduction"}, nil
	}
}

func (o *Orchestrator) handleClosedComment(ctx context.Context, ev domain.Event, tasks BackgroundTasks) (*PassReport, error) {
	issue := ev.Issue

	ec, err := o.gatherer.Gather(ctx, issue, o.cfg.Gather)
	if err != nil {
		return &PassReport{Flow: FlowCommentClosed}, &PassError{Stage: "gather", Err: err}
	}

	res, err := o.classifier.ClassifyClosedIssue(ctx, closedIssueInstructions(ec), ec.BuildPromptContent(o.cfg.Gather.IncludeTimeline), ev.Comment.Author)
	if err != nil {
		return &PassReport{Flow: FlowCommentClosed, RawResponse: rawOf(err)}, o.classificationFailed(ctx, err)
	}

	d := DecideClosedComment(ClosedCommentInput{
		HasNeedsReproductionLabel: issue.HasLabel(model.LabelNeedsReproduction),
		ClosedAsDuplicate:         ec.WasClosedAsDuplicate(),
		ActorRole:                 ev.ActorRole(),
		Analysis:                  res.Result,
	})
	if d.SkipReason != "" {
		slog.InfoContext(ctx, "not reopening closed issue",
			"reason", d.SkipReason,
			"confidence", res.Result.Confidence,
			"actor_role", ev.ActorRole())
	}

	o.schedule(ctx, tasks, issue, d.Actions)
	return &PassReport{
		Flow:        d.Flow,
		Actions:     d.Actions,
		Analysis:    res.Result,
		RawResponse: res.Raw,
		SkipReason:  d.SkipReason,
	}, nil
}

func (o *Orchestrator) handleLabeled(ctx context.Context, ev domain.Event) (*PassReport, error) {
	d := DecideLabeled(o.cfg.Decision, ev.Issue, ev.Label)
	report := &PassReport{Flow: d.Flow, Actions: d.Actions, SkipReason: d.SkipReason}
	if err := o.executeNow(ctx, ev.Issue, d.Actions); err != nil {
		return report, err
	}
	return report, nil
}

// handleClosed takes no action. It gathers the context in the background and
// logs the derived signals.
func (o *Orchestrator) handleClosed(ctx context.Context, ev domain.Event, tasks BackgroundTasks) (*PassReport, error) {
	issue := ev.Issue
	tasks.Go("closed-signals", func(ctx context.Context) error {
		ec, err := o.gatherer.Gather(ctx, issue, o.cfg.Gather)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "issue closed",
			"close_reason", ec.CloseReason,
			"reopen_count", ec.ReopenCount(),
			"comment_count", len(ec.RecentComments),
			"labels", ec.Labels,
			"closed_as_duplicate", ec.WasClosedAsDuplicate(),
			"closed_as_not_planned", ec.WasClosedAsNotPlanned())
		return nil
	})
	return &PassReport{Flow: FlowIssueClosed}, nil
}

// executeNow applies actions inside the request. Used for the single-action
// transfer paths whose failure must reach the sender.
func (o *Orchestrator) executeNow(ctx context.Context, issue model.Issue, actions []model.IntendedAction) error {
	for _, action := range actions {
		err := o.executor.ExecuteOne(ctx, issue, action)
		if hard := o.cfg.Policy.Handle(ctx, ActionOperation(action.Kind), err); hard != nil {
			return &PassError{Stage: string(action.Kind), Err: hard}
		}
	}
	return nil
}

func (o *Orchestrator) schedule(ctx context.Context, tasks BackgroundTasks, issue model.Issue, actions []model.IntendedAction) {
	if len(actions) == 0 {
		return
	}
	slog.DebugContext(ctx, "scheduling actions", "actions", actionNames(actions))
	tasks.Go("actions", func(ctx context.Context) error {
		outcomes := o.executor.Execute(ctx, issue, actions)
		var errs []error
		for _, out := range outcomes {
			if !out.Succeeded() {
				errs = append(errs, fmt.Errorf("%s: %w", out.Action, out.Err))
			}
		}
		return errors.Join(errs...)
	})
}

// scheduleTranslation translates the title and applies it. Failures are soft
// and never touch the other actions of the pass.
func (o *Orchestrator) scheduleTranslation(tasks BackgroundTasks, issue model.Issue, req TranslationRequest) {
	tasks.Go("translate-title", func(ctx context.Context) error {
		translated, err := o.translator.Translate(ctx, req.Title, req.SourceLang, "en")
		if err != nil {
			return o.cfg.Policy.Handle(ctx, OpTranslate, err)
		}
		action, ok := TranslatedTitle(req.SourceLang, translated)
		if !ok {
			slog.InfoContext(ctx, "translation empty, title unchanged", "source_lang", req.SourceLang)
			return nil
		}
		err = o.executor.ExecuteOne(ctx, issue, action)
		return o.cfg.Policy.Handle(ctx, ActionOperation(action.Kind), err)
	})
}

func (o *Orchestrator) classificationFailed(ctx context.Context, err error) error {
	if hard := o.cfg.Policy.Handle(ctx, OpClassify, err); hard != nil {
		return &PassError{Stage: string(OpClassify), Err: hard}
	}
	return nil
}

// passTasks runs background tasks under the pass's log fields, each in a
// span linked to the pass span.
type passTasks struct {
	tasks  BackgroundTasks
	parent context.Context
}

func (t passTasks) Go(name string, fn func(ctx context.Context) error) {
	fields := logger.GetLogFields(t.parent)
	t.tasks.Go(name, func(ctx context.Context) error {
		ctx = logger.WithLogFields(ctx, fields)
		sc := logger.StartLinkedSpan(ctx, t.parent, "triage.task."+name)
		defer sc.End()

		err := fn(sc.Context())
		sc.RecordError(err)
		return err
	})
}

func skipped(reason string) *PassReport {
	return &PassReport{Flow: FlowSkipped, SkipReason: reason}
}

func rawOf(err error) string {
	var ce *ClassificationError
	if errors.As(err, &ce) {
		return ce.Raw
	}
	return ""
}

func actionNames(actions []model.IntendedAction) string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.String()
	}
	return strings.Join(names, ", ")
}
