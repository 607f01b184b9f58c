package domain

import "basegraph.app/triage/internal/model"

// EventType is the canonical kind of a webhook delivery the triage bot handles.
type EventType string

const (
	EventTypeIssueOpened    EventType = "issue_opened"
	EventTypeIssueEdited    EventType = "issue_edited"
	EventTypeIssueClosed    EventType = "issue_closed"
	EventTypeCommentCreated EventType = "comment_created"
	EventTypeIssueLabeled   EventType = "issue_labeled"
)

// Event is a webhook delivery projected onto the fields triage reads.
type Event struct {
	DeliveryID string
	Type       EventType
	Issue      model.Issue
	Comment    *model.Comment // set for comment_created
	Label      string         // added label name, set for issue_labeled

	Sender      string
	SenderIsBot bool

	RepositoryNodeID string
	InstallationID   int64
}

// ActorRole is the role of whoever produced the event's content: the
// commenter for comments, the issue author otherwise.
func (e Event) ActorRole() model.AuthorRole {
	if e.Comment != nil {
		return e.Comment.AuthorRole
	}
	return e.Issue.AuthorRole
}

// ActorIsBot reports whether the event's content was authored by a bot.
func (e Event) ActorIsBot() bool {
	if e.Comment != nil {
		return e.Comment.AuthorIsBot
	}
	return e.Issue.AuthorIsBot
}
