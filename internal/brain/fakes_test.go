package brain_test

import (
	"context"
	"fmt"
	"sync"

	"basegraph.app/triage/common/llm"
	"basegraph.app/triage/internal/model"
)

type trackerCall struct {
	Method string
	Ref    model.IssueRef
	Args   []any
}

type fakeTracker struct {
	mu    sync.Mutex
	calls []trackerCall

	errs      map[string]error
	comments  []model.Comment
	timeline  []model.TimelineEvent
	newNumber int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{errs: map[string]error{}, newNumber: 99}
}

func (f *fakeTracker) record(method string, ref model.IssueRef, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, trackerCall{Method: method, Ref: ref, Args: args})
	return f.errs[method]
}

func (f *fakeTracker) Calls() []trackerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]trackerCall(nil), f.calls...)
}

func (f *fakeTracker) Methods() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, c.Method)
	}
	return out
}

func (f *fakeTracker) AddLabels(ctx context.Context, ref model.IssueRef, labels []string) error {
	return f.record("AddLabels", ref, labels)
}

func (f *fakeTracker) RemoveLabel(ctx context.Context, ref model.IssueRef, label string) error {
	return f.record("RemoveLabel", ref, label)
}

func (f *fakeTracker) SetIssueState(ctx context.Context, ref model.IssueRef, state model.IssueState) error {
	return f.record("SetIssueState", ref, state)
}

func (f *fakeTracker) SetIssueTitle(ctx context.Context, ref model.IssueRef, title string) error {
	return f.record("SetIssueTitle", ref, title)
}

func (f *fakeTracker) SetIssueType(ctx context.Context, ref model.IssueRef, issueType model.IssueType) error {
	return f.record("SetIssueType", ref, issueType)
}

func (f *fakeTracker) TransferIssue(ctx context.Context, issueNodeID, targetRepoNodeID string) (int, error) {
	if err := f.record("TransferIssue", model.IssueRef{}, issueNodeID, targetRepoNodeID); err != nil {
		return 0, err
	}
	return f.newNumber, nil
}

func (f *fakeTracker) ListRecentComments(ctx context.Context, ref model.IssueRef, limit int) ([]model.Comment, error) {
	if err := f.record("ListRecentComments", ref, limit); err != nil {
		return nil, err
	}
	return append([]model.Comment(nil), f.comments...), nil
}

func (f *fakeTracker) ListTimelineEvents(ctx context.Context, ref model.IssueRef, limit int) ([]model.TimelineEvent, error) {
	if err := f.record("ListTimelineEvents", ref, limit); err != nil {
		return nil, err
	}
	return append([]model.TimelineEvent(nil), f.timeline...), nil
}

// fakeAgent answers every classifier call with the same response.
type fakeAgent struct {
	mu       sync.Mutex
	requests []llm.AgentRequest

	response *llm.AgentResponse
	err      error
}

func replyWith(content string) *fakeAgent {
	return &fakeAgent{response: &llm.AgentResponse{Content: content}}
}

func (f *fakeAgent) ChatWithTools(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeAgent) Model() string {
	return "fake-model"
}

func (f *fakeAgent) Requests() []llm.AgentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.AgentRequest(nil), f.requests...)
}

type fakeTranslator struct {
	mu    sync.Mutex
	calls []string

	result string
	err    error
}

func (f *fakeTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("%s:%s->%s", text, sourceLang, targetLang))
	return f.result, f.err
}

func (f *fakeTranslator) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// inlineTasks runs background tasks synchronously and keeps their errors.
type inlineTasks struct {
	names []string
	errs  map[string]error
}

func newInlineTasks() *inlineTasks {
	return &inlineTasks{errs: map[string]error{}}
}

func (t *inlineTasks) Go(name string, fn func(ctx context.Context) error) {
	t.names = append(t.names, name)
	if err := fn(context.Background()); err != nil {
		t.errs[name] = err
	}
}
