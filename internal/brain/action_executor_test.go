package brain_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/triage/internal/brain"
	"basegraph.app/triage/internal/model"
)

var _ = Describe("Action executor", func() {
	var (
		ctx     context.Context
		tracker *fakeTracker
		issue   model.Issue
	)

	BeforeEach(func() {
		ctx = context.Background()
		tracker = newFakeTracker()
		issue = model.Issue{NodeID: "I_7", Ref: model.IssueRef{Owner: "acme", Repo: "framework", Number: 7}}
	})

	It("maps every action kind to its tracker call", func() {
		actions := []model.IntendedAction{
			model.AddLabels("a", "b"),
			model.RemoveLabel("needs reproduction"),
			model.SetState(model.IssueStateOpen),
			model.SetTitle("[fr:translated] Hello"),
			model.SetIssueType(model.IssueTypeBug),
			model.TransferToRepository("I_7", "R_spam"),
		}
		outcomes := brain.NewActionExecutor(tracker, brain.DefaultFailurePolicy, 2).Execute(ctx, issue, actions)

		Expect(outcomes).To(HaveLen(len(actions)))
		for i, o := range outcomes {
			Expect(o.Action).To(Equal(actions[i]))
			Expect(o.Succeeded()).To(BeTrue())
		}
		Expect(tracker.Calls()).To(ConsistOf(
			trackerCall{Method: "AddLabels", Ref: issue.Ref, Args: []any{[]string{"a", "b"}}},
			trackerCall{Method: "RemoveLabel", Ref: issue.Ref, Args: []any{"needs reproduction"}},
			trackerCall{Method: "SetIssueState", Ref: issue.Ref, Args: []any{model.IssueStateOpen}},
			trackerCall{Method: "SetIssueTitle", Ref: issue.Ref, Args: []any{"[fr:translated] Hello"}},
			trackerCall{Method: "SetIssueType", Ref: issue.Ref, Args: []any{model.IssueTypeBug}},
			trackerCall{Method: "TransferIssue", Args: []any{"I_7", "R_spam"}},
		))
	})

	It("settles all actions when some fail", func() {
		tracker.errs["AddLabels"] = errors.New("label service down")
		actions := []model.IntendedAction{
			model.AddLabels("pending triage"),
			model.SetState(model.IssueStateOpen),
		}

		outcomes := brain.NewActionExecutor(tracker, brain.DefaultFailurePolicy, 0).Execute(ctx, issue, actions)

		Expect(outcomes[0].Succeeded()).To(BeFalse())
		Expect(outcomes[0].Error).To(ContainSubstring("label service down"))
		Expect(outcomes[1].Succeeded()).To(BeTrue())
		Expect(tracker.Methods()).To(ConsistOf("AddLabels", "SetIssueState"))
	})

	It("returns the error of a single action", func() {
		tracker.errs["TransferIssue"] = errors.New("forbidden")

		err := brain.NewActionExecutor(tracker, brain.DefaultFailurePolicy, 0).
			ExecuteOne(ctx, issue, model.TransferToRepository("I_7", "R_spam"))
		Expect(err).To(MatchError(ContainSubstring("forbidden")))
	})
})
