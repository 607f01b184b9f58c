package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type IssueState string

const (
	IssueStateOpen   IssueState = "open"
	IssueStateClosed IssueState = "closed"
)

// CloseReason mirrors the tracker's state_reason. Empty when open or unknown.
type CloseReason string

const (
	CloseReasonNone       CloseReason = ""
	CloseReasonCompleted  CloseReason = "completed"
	CloseReasonNotPlanned CloseReason = "not_planned"
	CloseReasonDuplicate  CloseReason = "duplicate"
)

// IssueRef addresses an issue through the REST API.
type IssueRef struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
}

func (r IssueRef) FullName() string {
	return r.Owner + "/" + r.Repo
}

func (r IssueRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// Issue is the tracker's view of an issue at event time. It is never mutated
// locally; changes go through the action executor.
type Issue struct {
	ID            int64       `json:"id"`
	NodeID        string      `json:"node_id"`
	Ref           IssueRef    `json:"ref"`
	Title         string      `json:"title"`
	Body          string      `json:"body"`
	State         IssueState  `json:"state"`
	CloseReason   CloseReason `json:"close_reason,omitempty"`
	Labels        []string    `json:"labels,omitempty"`
	Author        string      `json:"author"`
	AuthorRole    AuthorRole  `json:"author_role"`
	AuthorIsBot   bool        `json:"author_is_bot"`
	IsPullRequest bool        `json:"is_pull_request"`
}

// HasLabel reports whether the issue carries name. Label names compare
// case-insensitively, as they do on the tracker.
func (i Issue) HasLabel(name string) bool {
	return slices.ContainsFunc(i.Labels, func(l string) bool {
		return strings.EqualFold(l, name)
	})
}

func (i Issue) IsClosed() bool {
	return i.State == IssueStateClosed
}

type Comment struct {
	ID          int64      `json:"id"`
	Body        string     `json:"body"`
	Author      string     `json:"author"`
	AuthorRole  AuthorRole `json:"author_role"`
	AuthorIsBot bool       `json:"author_is_bot"`
	CreatedAt   time.Time  `json:"created_at"`
}

type TimelineEventKind string

const (
	TimelineClosed    TimelineEventKind = "closed"
	TimelineReopened  TimelineEventKind = "reopened"
	TimelineLabeled   TimelineEventKind = "labeled"
	TimelineUnlabeled TimelineEventKind = "unlabeled"
)

// ParseTimelineEventKind returns false for kinds outside the four status-affecting ones.
func ParseTimelineEventKind(s string) (TimelineEventKind, bool) {
	switch k := TimelineEventKind(s); k {
	case TimelineClosed, TimelineReopened, TimelineLabeled, TimelineUnlabeled:
		return k, true
	}
	return "", false
}

type TimelineEvent struct {
	Kind      TimelineEventKind `json:"kind"`
	Actor     string            `json:"actor"`
	Label     string            `json:"label,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
