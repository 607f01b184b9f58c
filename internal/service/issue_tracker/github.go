package issue_tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"basegraph.app/triage/internal/mapper"
	"basegraph.app/triage/internal/model"
	"github.com/google/go-github/v68/github"
)

const transferIssueMutation = `mutation($issueId: ID!, $repositoryId: ID!) {
  transferIssue(input: {issueId: $issueId, repositoryId: $repositoryId}) {
    issue { number }
  }
}`

type gitHubTracker struct {
	client *github.Client
}

func NewGitHubTracker(client *github.Client) Tracker {
	return &gitHubTracker{client: client}
}

func (t *gitHubTracker) AddLabels(ctx context.Context, ref model.IssueRef, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	if _, _, err := t.client.Issues.AddLabelsToIssue(ctx, ref.Owner, ref.Repo, ref.Number, labels); err != nil {
		return fmt.Errorf("adding labels %v to %s: %w", labels, ref, err)
	}
	return nil
}

func (t *gitHubTracker) RemoveLabel(ctx context.Context, ref model.IssueRef, label string) error {
	_, err := t.client.Issues.RemoveLabelForIssue(ctx, ref.Owner, ref.Repo, ref.Number, url.PathEscape(label))
	if isNotFound(err) {
		slog.DebugContext(ctx, "label already absent", "issue", ref.String(), "label", label)
		return nil
	}
	if err != nil {
		return fmt.Errorf("removing label %q from %s: %w", label, ref, err)
	}
	return nil
}

func (t *gitHubTracker) SetIssueState(ctx context.Context, ref model.IssueRef, state model.IssueState) error {
	req := &github.IssueRequest{State: github.Ptr(string(state))}
	if _, _, err := t.client.Issues.Edit(ctx, ref.Owner, ref.Repo, ref.Number, req); err != nil {
		return fmt.Errorf("setting %s state to %s: %w", ref, state, err)
	}
	return nil
}

func (t *gitHubTracker) SetIssueTitle(ctx context.Context, ref model.IssueRef, title string) error {
	req := &github.IssueRequest{Title: github.Ptr(title)}
	if _, _, err := t.client.Issues.Edit(ctx, ref.Owner, ref.Repo, ref.Number, req); err != nil {
		return fmt.Errorf("setting %s title: %w", ref, err)
	}
	return nil
}

// SetIssueType sets the organization issue type. IssueRequest has no type
// field, so the PATCH is sent directly.
func (t *gitHubTracker) SetIssueType(ctx context.Context, ref model.IssueRef, issueType model.IssueType) error {
	name := issueType.TrackerTypeName()
	if name == "" {
		return fmt.Errorf("issue type %q has no tracker counterpart", issueType)
	}

	u := fmt.Sprintf("repos/%s/%s/issues/%d", ref.Owner, ref.Repo, ref.Number)
	req, err := t.client.NewRequest(http.MethodPatch, u, map[string]string{"type": name})
	if err != nil {
		return fmt.Errorf("building issue type request: %w", err)
	}
	if _, err := t.client.Do(ctx, req, nil); err != nil {
		return fmt.Errorf("setting %s type to %s: %w", ref, name, err)
	}
	return nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type transferIssueResponse struct {
	Data struct {
		TransferIssue *struct {
			Issue struct {
				Number int `json:"number"`
			} `json:"issue"`
		} `json:"transferIssue"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

func (t *gitHubTracker) TransferIssue(ctx context.Context, issueNodeID, targetRepoNodeID string) (int, error) {
	if issueNodeID == "" || targetRepoNodeID == "" {
		return 0, fmt.Errorf("transfer needs both issue and repository node ids (issue=%q, repository=%q)", issueNodeID, targetRepoNodeID)
	}

	req, err := t.client.NewRequest(http.MethodPost, t.graphQLURL(), graphQLRequest{
		Query: transferIssueMutation,
		Variables: map[string]any{
			"issueId":      issueNodeID,
			"repositoryId": targetRepoNodeID,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("building transfer request: %w", err)
	}

	var resp transferIssueResponse
	if _, err := t.client.Do(ctx, req, &resp); err != nil {
		return 0, fmt.Errorf("transferring issue %s: %w", issueNodeID, err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			msgs[i] = e.Message
		}
		return 0, fmt.Errorf("transferring issue %s: %s", issueNodeID, strings.Join(msgs, "; "))
	}
	if resp.Data.TransferIssue == nil {
		return 0, fmt.Errorf("transferring issue %s: empty response", issueNodeID)
	}
	return resp.Data.TransferIssue.Issue.Number, nil
}

// graphQLURL maps the REST base URL onto the GraphQL endpoint. On GitHub
// Enterprise REST lives under /api/v3/ and GraphQL under /api/graphql.
func (t *gitHubTracker) graphQLURL() string {
	base := t.client.BaseURL
	if strings.HasSuffix(base.Path, "/api/v3/") {
		u := *base
		u.Path = strings.TrimSuffix(base.Path, "v3/") + "graphql"
		return u.String()
	}
	return "graphql"
}

// ListRecentComments returns the newest limit comments, newest first. The
// per-issue endpoint pages oldest-first and ignores sort parameters, so the
// tail pages are read after the first response reveals the last page.
func (t *gitHubTracker) ListRecentComments(ctx context.Context, ref model.IssueRef, limit int) ([]model.Comment, error) {
	if limit <= 0 {
		return nil, nil
	}

	first, resp, err := t.listCommentPage(ctx, ref, 1, limit)
	if err != nil {
		return nil, err
	}

	comments := first
	if resp.LastPage > 1 {
		comments = nil
		for page := resp.LastPage; page >= 1 && len(comments) < limit; page-- {
			batch := first
			if page > 1 {
				if batch, _, err = t.listCommentPage(ctx, ref, page, limit); err != nil {
					return nil, err
				}
			}
			comments = append(batch, comments...)
		}
	}

	result := make([]model.Comment, 0, len(comments))
	for _, c := range comments {
		result = append(result, mapper.MapComment(c))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (t *gitHubTracker) listCommentPage(ctx context.Context, ref model.IssueRef, page, perPage int) ([]*github.IssueComment, *github.Response, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}
	comments, resp, err := t.client.Issues.ListComments(ctx, ref.Owner, ref.Repo, ref.Number, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("listing comments on %s (page %d): %w", ref, page, err)
	}
	return comments, resp, nil
}

func (t *gitHubTracker) ListTimelineEvents(ctx context.Context, ref model.IssueRef, limit int) ([]model.TimelineEvent, error) {
	if limit <= 0 {
		return nil, nil
	}

	timeline, _, err := t.client.Issues.ListIssueTimeline(ctx, ref.Owner, ref.Repo, ref.Number, &github.ListOptions{PerPage: limit})
	if err != nil {
		return nil, fmt.Errorf("listing timeline of %s: %w", ref, err)
	}

	var events []model.TimelineEvent
	for _, entry := range timeline {
		kind, ok := model.ParseTimelineEventKind(entry.GetEvent())
		if !ok {
			continue
		}
		events = append(events, model.TimelineEvent{
			Kind:      kind,
			Actor:     entry.GetActor().GetLogin(),
			Label:     entry.GetLabel().GetName(),
			CreatedAt: entry.GetCreatedAt().Time,
		})
	}
	return events, nil
}

func isNotFound(err error) bool {
	var errResp *github.ErrorResponse
	return errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound
}
