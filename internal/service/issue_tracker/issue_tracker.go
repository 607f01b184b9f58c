package issue_tracker

import (
	"context"
	"errors"

	"basegraph.app/triage/internal/model"
)

// ErrNotConfigured is returned when no tracker credentials are configured.
var ErrNotConfigured = errors.New("issue tracker credentials not configured")

// Tracker is the issue-tracker surface triage reads from and writes to.
type Tracker interface {
	AddLabels(ctx context.Context, ref model.IssueRef, labels []string) error
	// RemoveLabel succeeds when the label is already absent.
	RemoveLabel(ctx context.Context, ref model.IssueRef, label string) error
	SetIssueState(ctx context.Context, ref model.IssueRef, state model.IssueState) error
	SetIssueTitle(ctx context.Context, ref model.IssueRef, title string) error
	SetIssueType(ctx context.Context, ref model.IssueRef, issueType model.IssueType) error
	// TransferIssue moves an issue to another repository and returns its new number.
	TransferIssue(ctx context.Context, issueNodeID, targetRepoNodeID string) (int, error)

	// ListRecentComments returns up to limit comments, newest first.
	ListRecentComments(ctx context.Context, ref model.IssueRef, limit int) ([]model.Comment, error)
	// ListTimelineEvents returns closed, reopened, labeled and unlabeled events from
	// the first limit timeline entries.
	ListTimelineEvents(ctx context.Context, ref model.IssueRef, limit int) ([]model.TimelineEvent, error)
}
