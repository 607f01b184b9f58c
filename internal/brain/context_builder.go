package brain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"basegraph.app/triage/internal/model"
	"basegraph.app/triage/internal/normalize"
	"basegraph.app/triage/internal/service/issue_tracker"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxComments       = 5
	DefaultMaxTimelineEvents = 20
)

type GatherOptions struct {
	IncludeComments   bool
	MaxComments       int
	IncludeTimeline   bool
	MaxTimelineEvents int
}

func DefaultGatherOptions() GatherOptions {
	return GatherOptions{
		IncludeComments:   true,
		MaxComments:       DefaultMaxComments,
		IncludeTimeline:   true,
		MaxTimelineEvents: DefaultMaxTimelineEvents,
	}
}

// EnhancedContext is the per-pass history of an issue used to re-evaluate it
// after it was closed. It is built fresh for every pass.
type EnhancedContext struct {
	IssueBody      string
	RecentComments []model.Comment // newest first, bodies normalized
	State          model.IssueState
	CloseReason    model.CloseReason
	Labels         []string
	TimelineEvents []model.TimelineEvent
}

// contextGatherer fetches comments and timeline for an issue. Fetch failures
// degrade to empty lists; it never mutates tracker state.
type contextGatherer struct {
	tracker issue_tracker.Tracker
	policy  FailurePolicy
}

func NewContextGatherer(tracker issue_tracker.Tracker, policy FailurePolicy) *contextGatherer {
	return &contextGatherer{tracker: tracker, policy: policy}
}

func (g *contextGatherer) Gather(ctx context.Context, issue model.Issue, opts GatherOptions) (EnhancedContext, error) {
	ec := EnhancedContext{
		IssueBody:   normalize.Content(issue.Body),
		State:       issue.State,
		CloseReason: issue.CloseReason,
		Labels:      issue.Labels,
	}
	if ec.State == "" {
		ec.State = model.IssueStateOpen
	}

	var eg errgroup.Group

	if opts.IncludeComments && opts.MaxComments > 0 {
		eg.Go(func() error {
			comments, err := g.tracker.ListRecentComments(ctx, issue.Ref, opts.MaxComments)
			if err != nil {
				return g.policy.Handle(ctx, OpFetchComments, fmt.Errorf("fetching recent comments: %w", err))
			}
			if len(comments) > opts.MaxComments {
				comments = comments[:opts.MaxComments]
			}
			for i := range comments {
				comments[i].Body = normalize.Content(comments[i].Body)
			}
			ec.RecentComments = comments
			return nil
		})
	}

	if opts.IncludeTimeline {
		eg.Go(func() error {
			events, err := g.tracker.ListTimelineEvents(ctx, issue.Ref, opts.MaxTimelineEvents)
			if err != nil {
				return g.policy.Handle(ctx, OpFetchTimeline, fmt.Errorf("fetching timeline: %w", err))
			}
			kept := events[:0]
			for _, e := range events {
				if _, ok := model.ParseTimelineEventKind(string(e.Kind)); ok {
					kept = append(kept, e)
				}
			}
			ec.TimelineEvents = kept
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return EnhancedContext{}, err
	}

	slog.DebugContext(ctx, "enhanced context gathered",
		"comments", len(ec.RecentComments),
		"timeline_events", len(ec.TimelineEvents),
		"reopen_count", ec.ReopenCount())

	return ec, nil
}

func (c EnhancedContext) IsClosed() bool {
	return c.State == model.IssueStateClosed
}

func (c EnhancedContext) WasClosedAsNotPlanned() bool {
	return c.IsClosed() && c.CloseReason == model.CloseReasonNotPlanned
}

func (c EnhancedContext) WasClosedAsCompleted() bool {
	return c.IsClosed() && c.CloseReason == model.CloseReasonCompleted
}

// WasClosedAsDuplicate is true for closed issues carrying the duplicate label,
// closed with the duplicate reason, or with a recent comment mentioning a duplicate.
func (c EnhancedContext) WasClosedAsDuplicate() bool {
	if !c.IsClosed() {
		return false
	}
	if c.CloseReason == model.CloseReasonDuplicate {
		return true
	}
	for _, l := range c.Labels {
		if strings.EqualFold(l, model.LabelDuplicate) {
			return true
		}
	}
	for _, comment := range c.RecentComments {
		if strings.Contains(strings.ToLower(comment.Body), "duplicate") {
			return true
		}
	}
	return false
}

func (c EnhancedContext) ReopenCount() int {
	n := 0
	for _, e := range c.TimelineEvents {
		if e.Kind == model.TimelineReopened {
			n++
		}
	}
	return n
}

func (c EnhancedContext) HasBeenReopenedMultipleTimes() bool {
	return c.ReopenCount() >= 2
}

// BuildPromptContent renders the context as the user payload for the closed-issue classifier.
func (c EnhancedContext) BuildPromptContent(includeTimeline bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Issue Body:\n%s\n", c.IssueBody)

	if len(c.RecentComments) > 0 {
		b.WriteString("\nRecent Comments:\n")
		for i, comment := range c.RecentComments {
			author := comment.Author
			if author == "" {
				author = "unknown"
			}
			fmt.Fprintf(&b, "Comment %d (by %s, %s):\n%s\n\n", i+1, author, comment.AuthorRole, comment.Body)
		}
	}

	if includeTimeline && len(c.TimelineEvents) > 0 {
		b.WriteString("\nIssue Status History:\n")
		for _, e := range c.TimelineEvents {
			actor := e.Actor
			if actor == "" {
				actor = "unknown"
			}
			fmt.Fprintf(&b, "- %s on %s by %s\n", e.Kind, e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"), actor)
		}
	}

	fmt.Fprintf(&b, "\nCurrent Issue State: %s", c.State)
	if c.CloseReason != model.CloseReasonNone {
		fmt.Fprintf(&b, " (%s)", c.CloseReason)
	}

	return b.String()
}
