package mapper_test

import (
	"context"
	"fmt"

	"basegraph.app/triage/internal/domain"
	"basegraph.app/triage/internal/mapper"
	"basegraph.app/triage/internal/model"
	"github.com/google/go-github/v68/github"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const repoJSON = `{"id": 1, "node_id": "R_repo", "name": "framework", "full_name": "acme/framework", "owner": {"login": "acme"}}`

func issuePayload(action, extra string) []byte {
	return []byte(fmt.Sprintf(`{
		"action": %q,
		"issue": {
			"id": 42, "node_id": "I_abc", "number": 7,
			"title": "Crash on start", "body": "It crashes",
			"state": "open",
			"user": {"login": "reporter", "type": "User"},
			"author_association": "NONE",
			"labels": [{"name": "needs reproduction"}]
		},
		"repository": %s,
		"sender": {"login": "reporter", "type": "User"},
		"installation": {"id": 99}
		%s
	}`, action, repoJSON, extra))
}

var _ = Describe("GitHubEventMapper", func() {
	var (
		m   *mapper.GitHubEventMapper
		ctx context.Context
	)

	BeforeEach(func() {
		m = mapper.NewGitHubEventMapper()
		ctx = context.Background()
	})

	DescribeTable("maps issues actions",
		func(action string, expected domain.EventType) {
			event, err := m.Map(ctx, mapper.Delivery{ID: "d-1", EventType: "issues", Payload: issuePayload(action, "")})
			Expect(err).NotTo(HaveOccurred())
			Expect(event.Type).To(Equal(expected))
			Expect(event.DeliveryID).To(Equal("d-1"))
		},
		Entry("opened", "opened", domain.EventTypeIssueOpened),
		Entry("edited", "edited", domain.EventTypeIssueEdited),
		Entry("closed", "closed", domain.EventTypeIssueClosed),
		Entry("labeled", "labeled", domain.EventTypeIssueLabeled),
	)

	It("projects the issue fields", func() {
		event, err := m.Map(ctx, mapper.Delivery{EventType: "issues", Payload: issuePayload("opened", "")})
		Expect(err).NotTo(HaveOccurred())

		Expect(event.Issue.ID).To(Equal(int64(42)))
		Expect(event.Issue.NodeID).To(Equal("I_abc"))
		Expect(event.Issue.Ref).To(Equal(model.IssueRef{Owner: "acme", Repo: "framework", Number: 7}))
		Expect(event.Issue.Title).To(Equal("Crash on start"))
		Expect(event.Issue.State).To(Equal(model.IssueStateOpen))
		Expect(event.Issue.Labels).To(ConsistOf("needs reproduction"))
		Expect(event.Issue.AuthorRole).To(Equal(model.AuthorRoleNone))
		Expect(event.Issue.AuthorIsBot).To(BeFalse())
		Expect(event.Issue.IsPullRequest).To(BeFalse())
		Expect(event.RepositoryNodeID).To(Equal("R_repo"))
		Expect(event.InstallationID).To(Equal(int64(99)))
	})

	It("captures the added label", func() {
		event, err := m.Map(ctx, mapper.Delivery{EventType: "issues", Payload: issuePayload("labeled", `, "label": {"name": "spam"}`)})
		Expect(err).NotTo(HaveOccurred())
		Expect(event.Label).To(Equal("spam"))
	})

	It("maps created comments", func() {
		payload := []byte(fmt.Sprintf(`{
			"action": "created",
			"issue": {"id": 1, "number": 3, "state": "closed", "state_reason": "completed",
				"user": {"login": "someone"}, "pull_request": {"url": "https://api.github.com/pulls/3"}},
			"comment": {"id": 5, "body": "still broken", "author_association": "member",
				"user": {"login": "dependabot[bot]", "type": "Bot"}, "created_at": "2024-05-01T10:00:00Z"},
			"repository": %s,
			"sender": {"login": "dependabot[bot]", "type": "Bot"}
		}`, repoJSON))

		event, err := m.Map(ctx, mapper.Delivery{EventType: "issue_comment", Payload: payload})
		Expect(err).NotTo(HaveOccurred())
		Expect(event.Type).To(Equal(domain.EventTypeCommentCreated))
		Expect(event.Issue.State).To(Equal(model.IssueStateClosed))
		Expect(event.Issue.CloseReason).To(Equal(model.CloseReasonCompleted))
		Expect(event.Issue.IsPullRequest).To(BeTrue())
		Expect(event.Comment).NotTo(BeNil())
		Expect(event.Comment.Body).To(Equal("still broken"))
		Expect(event.Comment.AuthorRole).To(Equal(model.AuthorRoleMember))
		Expect(event.Comment.AuthorIsBot).To(BeTrue())
		Expect(event.ActorIsBot()).To(BeTrue())
		Expect(event.ActorRole()).To(Equal(model.AuthorRoleMember))
		Expect(event.SenderIsBot).To(BeTrue())
	})

	DescribeTable("rejects deliveries triage does not handle",
		func(eventType string, payload []byte) {
			_, err := m.Map(ctx, mapper.Delivery{EventType: eventType, Payload: payload})
			Expect(err).To(MatchError(mapper.ErrUnsupportedEvent))
		},
		Entry("ping", "ping", []byte(`{"zen": "hi"}`)),
		Entry("push", "push", []byte(`{}`)),
		Entry("issues.assigned", "issues", issuePayload("assigned", "")),
		Entry("issue_comment.deleted", "issue_comment", []byte(`{"action": "deleted"}`)),
	)

	It("reports malformed payloads", func() {
		_, err := m.Map(ctx, mapper.Delivery{EventType: "issues", Payload: []byte(`{not json`)})
		Expect(err).To(MatchError(mapper.ErrMalformedPayload))
	})

	It("reports payloads without an issue", func() {
		_, err := m.Map(ctx, mapper.Delivery{EventType: "issues", Payload: []byte(`{"action": "opened"}`)})
		Expect(err).To(MatchError(mapper.ErrMalformedPayload))
	})
})

var _ = Describe("IsBot", func() {
	DescribeTable("detects bot accounts",
		func(user *github.User, expected bool) {
			Expect(mapper.IsBot(user)).To(Equal(expected))
		},
		Entry("nil", nil, false),
		Entry("bot type", &github.User{Login: github.Ptr("renovate"), Type: github.Ptr("Bot")}, true),
		Entry("bot suffix", &github.User{Login: github.Ptr("github-actions[bot]")}, true),
		Entry("human", &github.User{Login: github.Ptr("octocat"), Type: github.Ptr("User")}, false),
	)
})
