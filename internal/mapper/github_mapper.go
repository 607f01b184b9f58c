package mapper

import (
	"context"
	"fmt"
	"strings"

	"basegraph.app/triage/internal/domain"
	"basegraph.app/triage/internal/model"
	"github.com/google/go-github/v68/github"
)

const (
	githubEventIssues       = "issues"
	githubEventIssueComment = "issue_comment"
	githubEventPing         = "ping"
)

type GitHubEventMapper struct{}

func NewGitHubEventMapper() *GitHubEventMapper {
	return &GitHubEventMapper{}
}

func (m *GitHubEventMapper) Map(ctx context.Context, d Delivery) (domain.Event, error) {
	switch d.EventType {
	case githubEventIssues, githubEventIssueComment:
	case githubEventPing:
		return domain.Event{}, fmt.Errorf("%w: ping", ErrUnsupportedEvent)
	default:
		return domain.Event{}, fmt.Errorf("%w: %q", ErrUnsupportedEvent, d.EventType)
	}

	parsed, err := github.ParseWebHook(d.EventType, d.Payload)
	if err != nil {
		return domain.Event{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	switch e := parsed.(type) {
	case *github.IssuesEvent:
		return m.mapIssuesEvent(d.ID, e)
	case *github.IssueCommentEvent:
		return m.mapIssueCommentEvent(d.ID, e)
	}
	return domain.Event{}, fmt.Errorf("%w: %T", ErrUnsupportedEvent, parsed)
}

func (m *GitHubEventMapper) mapIssuesEvent(deliveryID string, e *github.IssuesEvent) (domain.Event, error) {
	var eventType domain.EventType
	switch e.GetAction() {
	case "opened":
		eventType = domain.EventTypeIssueOpened
	case "edited":
		eventType = domain.EventTypeIssueEdited
	case "closed":
		eventType = domain.EventTypeIssueClosed
	case "labeled":
		eventType = domain.EventTypeIssueLabeled
	default:
		return domain.Event{}, fmt.Errorf("%w: issues.%s", ErrUnsupportedEvent, e.GetAction())
	}

	if e.Issue == nil || e.Repo == nil {
		return domain.Event{}, fmt.Errorf("%w: issues.%s without issue or repository", ErrMalformedPayload, e.GetAction())
	}

	event := m.baseEvent(deliveryID, eventType, e.GetIssue(), e.GetRepo(), e.GetSender())
	event.InstallationID = e.GetInstallation().GetID()
	if eventType == domain.EventTypeIssueLabeled {
		event.Label = e.GetLabel().GetName()
	}
	return event, nil
}

func (m *GitHubEventMapper) mapIssueCommentEvent(deliveryID string, e *github.IssueCommentEvent) (domain.Event, error) {
	if e.GetAction() != "created" {
		return domain.Event{}, fmt.Errorf("%w: issue_comment.%s", ErrUnsupportedEvent, e.GetAction())
	}
	if e.Issue == nil || e.Repo == nil || e.Comment == nil {
		return domain.Event{}, fmt.Errorf("%w: issue_comment.created without issue, comment or repository", ErrMalformedPayload)
	}

	event := m.baseEvent(deliveryID, domain.EventTypeCommentCreated, e.GetIssue(), e.GetRepo(), e.GetSender())
	event.InstallationID = e.GetInstallation().GetID()
	comment := MapComment(e.GetComment())
	event.Comment = &comment
	return event, nil
}

func (m *GitHubEventMapper) baseEvent(deliveryID string, t domain.EventType, issue *github.Issue, repo *github.Repository, sender *github.User) domain.Event {
	return domain.Event{
		DeliveryID:       deliveryID,
		Type:             t,
		Issue:            MapIssue(repo, issue),
		Sender:           sender.GetLogin(),
		SenderIsBot:      IsBot(sender),
		RepositoryNodeID: repo.GetNodeID(),
	}
}

// MapIssue converts a go-github issue into the triage model.
func MapIssue(repo *github.Repository, issue *github.Issue) model.Issue {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}

	state := model.IssueStateOpen
	if issue.GetState() == string(model.IssueStateClosed) {
		state = model.IssueStateClosed
	}

	var reason model.CloseReason
	if state == model.IssueStateClosed {
		reason = model.CloseReason(issue.GetStateReason())
	}

	return model.Issue{
		ID:     issue.GetID(),
		NodeID: issue.GetNodeID(),
		Ref: model.IssueRef{
			Owner:  repo.GetOwner().GetLogin(),
			Repo:   repo.GetName(),
			Number: issue.GetNumber(),
		},
		Title:         issue.GetTitle(),
		Body:          issue.GetBody(),
		State:         state,
		CloseReason:   reason,
		Labels:        labels,
		Author:        issue.GetUser().GetLogin(),
		AuthorRole:    model.ParseAuthorRole(issue.GetAuthorAssociation()),
		AuthorIsBot:   IsBot(issue.GetUser()),
		IsPullRequest: issue.IsPullRequest(),
	}
}

// MapComment converts a go-github issue comment into the triage model.
func MapComment(c *github.IssueComment) model.Comment {
	return model.Comment{
		ID:          c.GetID(),
		Body:        c.GetBody(),
		Author:      c.GetUser().GetLogin(),
		AuthorRole:  model.ParseAuthorRole(c.GetAuthorAssociation()),
		AuthorIsBot: IsBot(c.GetUser()),
		CreatedAt:   c.GetCreatedAt().Time,
	}
}

// IsBot reports whether u is a bot account, by account type or the "[bot]" login suffix.
func IsBot(u *github.User) bool {
	if u == nil {
		return false
	}
	return u.GetType() == "Bot" || strings.HasSuffix(u.GetLogin(), "[bot]")
}
