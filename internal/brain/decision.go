package brain

import (
	"fmt"
	"strings"

	"basegraph.app/triage/internal/model"
	"basegraph.app/triage/internal/normalize"
)

// Flow names the decision path a pass took.
type Flow string

const (
	FlowSkipped         Flow = "skipped"
	FlowNewIssue        Flow = "new_issue"
	FlowIssueEdited     Flow = "issue_edited"
	FlowCommentOpen     Flow = "comment_open"
	FlowCommentClosed   Flow = "comment_closed"
	FlowIssueLabeled    Flow = "issue_labeled"
	FlowIssueClosed     Flow = "issue_closed"
	FlowNothingToReview Flow = "nothing_to_review"
)

// DecisionConfig holds the repository-level settings the rules read.
type DecisionConfig struct {
	SpamRepoNodeID string
	RuntimeLabel   string
}

func (c DecisionConfig) runtimeLabel() string {
	if c.RuntimeLabel == "" {
		return model.DefaultRuntimeSubsystemLabel
	}
	return c.RuntimeLabel
}

// TranslationRequest asks the dispatcher to translate the issue title.
type TranslationRequest struct {
	Title      string
	SourceLang string
}

// Decision is the output of one rule evaluation. Actions carry no ordering
// between them.
type Decision struct {
	Flow        Flow
	Actions     []model.IntendedAction
	Translation *TranslationRequest
	SkipReason  string
}

func (d Decision) NoOp() bool {
	return len(d.Actions) == 0 && d.Translation == nil
}

// DecideNewIssue maps the classification of a new issue to actions. Spam is
// transferred and nothing else happens to it.
func DecideNewIssue(cfg DecisionConfig, issue model.Issue, a model.IssueAnalysis) Decision {
	d := Decision{Flow: FlowNewIssue}

	if a.IssueType == model.IssueTypeSpam {
		d.Actions = []model.IntendedAction{model.TransferToRepository(issue.NodeID, cfg.SpamRepoNodeID)}
		return d
	}

	var labels []string
	if a.IssueType == model.IssueTypeBug && !a.ReproductionProvided {
		labels = append(labels, model.LabelNeedsReproduction)
	}
	if a.IssueType == model.IssueTypeBug && a.PossibleRegression {
		labels = append(labels, model.LabelPossibleRegression)
	}
	if a.RelatesToRuntimeSubsystem {
		labels = append(labels, cfg.runtimeLabel())
	}
	if len(labels) > 0 {
		d.Actions = append(d.Actions, model.AddLabels(labels...))
	}

	switch a.IssueType {
	case model.IssueTypeDocumentation, model.IssueTypeBug, model.IssueTypeFeature:
		d.Actions = append(d.Actions, model.SetIssueType(a.IssueType))
	}

	if !normalize.IsEnglish(a.SpokenLanguage) {
		d.Translation = &TranslationRequest{Title: issue.Title, SourceLang: normalize.Language(a.SpokenLanguage)}
	}

	return d
}

// TranslatedTitle builds the title update for a translation result. A blank
// translation yields no action.
func TranslatedTitle(lang, translated string) (model.IntendedAction, bool) {
	translated = strings.TrimSpace(translated)
	if translated == "" {
		return model.IntendedAction{}, false
	}
	return model.SetTitle(fmt.Sprintf("[%s:translated] %s", lang, translated)), true
}

// NeedsEditReview reports whether an edited issue is worth classifying: only
// issues still waiting for a reproduction are.
func NeedsEditReview(issue model.Issue) bool {
	return issue.HasLabel(model.LabelNeedsReproduction)
}

func DecideIssueEdited(a model.CommentAnalysis) Decision {
	d := Decision{Flow: FlowIssueEdited}
	if a.ReproductionProvided {
		d.Actions = []model.IntendedAction{model.RemoveLabel(model.LabelNeedsReproduction)}
	}
	return d
}

// CommentRoute selects how a new comment is evaluated.
func CommentRoute(issue model.Issue) Flow {
	switch {
	case issue.IsClosed():
		return FlowCommentClosed
	case issue.HasLabel(model.LabelNeedsReproduction):
		return FlowCommentOpen
	default:
		return FlowNothingToReview
	}
}

func DecideOpenComment(a model.CommentAnalysis) Decision {
	d := Decision{Flow: FlowCommentOpen}
	if a.ReproductionProvided {
		d.Actions = []model.IntendedAction{model.RemoveLabel(model.LabelNeedsReproduction)}
	}
	return d
}

// ClosedCommentInput is everything the closed-issue comment rules read.
type ClosedCommentInput struct {
	HasNeedsReproductionLabel bool
	ClosedAsDuplicate         bool
	ActorRole                 model.AuthorRole
	Analysis                  model.ClosedIssueAnalysis
}

// DecideClosedComment applies the reopen rules for a comment on a closed issue.
//
// A supplied reproduction on an issue waiting for one always reopens it.
// Otherwise a regression or reopen signal reopens only when none of the gates
// apply, checked in order: duplicate without a clear difference, an actor who
// can reopen themselves, and confidence below high without a regression.
func DecideClosedComment(in ClosedCommentInput) Decision {
	d := Decision{Flow: FlowCommentClosed}
	a := in.Analysis

	if in.HasNeedsReproductionLabel && a.ReproductionProvided {
		d.Actions = []model.IntendedAction{
			model.RemoveLabel(model.LabelNeedsReproduction),
			model.SetState(model.IssueStateOpen),
		}
		return d
	}

	if !a.PossibleRegression && !a.ShouldReopen {
		d.SkipReason = "no reopen signal"
		return d
	}

	switch {
	case in.ClosedAsDuplicate && !a.IsDifferentFromDuplicate:
		d.SkipReason = "closed as duplicate and not shown to differ"
		return d
	case in.ActorRole.IsCollaboratorOrHigher():
		d.SkipReason = "actor can reopen the issue"
		return d
	case a.Confidence != model.ConfidenceHigh && !a.PossibleRegression:
		d.SkipReason = "confidence below high without regression"
		return d
	}

	labels := []string{model.LabelPendingTriage}
	if a.PossibleRegression {
		labels = append(labels, model.LabelPossibleRegression)
	}
	d.Actions = []model.IntendedAction{
		model.SetState(model.IssueStateOpen),
		model.AddLabels(labels...),
	}
	return d
}

// DecideLabeled transfers the issue when the spam label was added.
func DecideLabeled(cfg DecisionConfig, issue model.Issue, label string) Decision {
	d := Decision{Flow: FlowIssueLabeled}
	if !strings.EqualFold(label, model.LabelSpam) {
		d.SkipReason = fmt.Sprintf("label %q is not %q", label, model.LabelSpam)
		return d
	}
	d.Actions = []model.IntendedAction{model.TransferToRepository(issue.NodeID, cfg.SpamRepoNodeID)}
	return d
}
