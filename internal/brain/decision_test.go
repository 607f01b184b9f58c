package brain_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/triage/internal/brain"
	"basegraph.app/triage/internal/model"
)

var _ = Describe("Decision engine", func() {
	cfg := brain.DecisionConfig{SpamRepoNodeID: "R_spam", RuntimeLabel: "nitro"}
	issue := model.Issue{NodeID: "I_1", Title: "Crash on start", State: model.IssueStateOpen}

	Describe("DecideNewIssue", func() {
		It("only transfers spam", func() {
			for _, a := range []model.IssueAnalysis{
				{IssueType: model.IssueTypeSpam, SpokenLanguage: "en"},
				{IssueType: model.IssueTypeSpam, SpokenLanguage: "fr", PossibleRegression: true, RelatesToRuntimeSubsystem: true},
			} {
				d := brain.DecideNewIssue(cfg, issue, a)
				Expect(d.Actions).To(Equal([]model.IntendedAction{model.TransferToRepository("I_1", "R_spam")}))
				Expect(d.Translation).To(BeNil())
			}
		})

		It("labels a bug without reproduction and sets its type", func() {
			d := brain.DecideNewIssue(cfg, issue, model.IssueAnalysis{
				IssueType:      model.IssueTypeBug,
				SpokenLanguage: "en",
			})
			Expect(d.Flow).To(Equal(brain.FlowNewIssue))
			Expect(d.Actions).To(ConsistOf(
				model.AddLabels(model.LabelNeedsReproduction),
				model.SetIssueType(model.IssueTypeBug),
			))
			Expect(d.Translation).To(BeNil())
		})

		It("batches every qualifying label into one action", func() {
			d := brain.DecideNewIssue(cfg, issue, model.IssueAnalysis{
				IssueType:                 model.IssueTypeBug,
				SpokenLanguage:            "en",
				PossibleRegression:        true,
				RelatesToRuntimeSubsystem: true,
			})
			var labelActions []model.IntendedAction
			for _, a := range d.Actions {
				if a.Kind == model.ActionAddLabels {
					labelActions = append(labelActions, a)
				}
			}
			Expect(labelActions).To(HaveLen(1))
			Expect(labelActions[0].Labels).To(Equal([]string{
				model.LabelNeedsReproduction, model.LabelPossibleRegression, "nitro",
			}))
		})

		It("falls back to the default runtime label", func() {
			d := brain.DecideNewIssue(brain.DecisionConfig{}, issue, model.IssueAnalysis{
				IssueType:                 model.IssueTypeFeature,
				SpokenLanguage:            "en",
				RelatesToRuntimeSubsystem: true,
			})
			Expect(d.Actions).To(ContainElement(model.AddLabels(model.DefaultRuntimeSubsystemLabel)))
		})

		DescribeTable("issue type updates",
			func(t model.IssueType, expectTypeAction bool) {
				d := brain.DecideNewIssue(cfg, issue, model.IssueAnalysis{IssueType: t, SpokenLanguage: "en", ReproductionProvided: true})
				if expectTypeAction {
					Expect(d.Actions).To(ContainElement(model.SetIssueType(t)))
				} else {
					Expect(d.Actions).To(BeEmpty())
				}
			},
			Entry("bug", model.IssueTypeBug, true),
			Entry("feature", model.IssueTypeFeature, true),
			Entry("documentation", model.IssueTypeDocumentation, true),
			Entry("chore", model.IssueTypeChore, false),
			Entry("help wanted", model.IssueTypeHelpWanted, false),
		)

		It("requests a title translation for non-English issues", func() {
			d := brain.DecideNewIssue(cfg, issue, model.IssueAnalysis{IssueType: model.IssueTypeFeature, SpokenLanguage: "de"})
			Expect(d.Translation).To(Equal(&brain.TranslationRequest{Title: "Crash on start", SourceLang: "de"}))
			Expect(d.Actions).To(Equal([]model.IntendedAction{model.SetIssueType(model.IssueTypeFeature)}))
		})
	})

	Describe("TranslatedTitle", func() {
		It("prefixes the language", func() {
			action, ok := brain.TranslatedTitle("ja", "  Build fails  ")
			Expect(ok).To(BeTrue())
			Expect(action).To(Equal(model.SetTitle("[ja:translated] Build fails")))
		})

		It("yields nothing for a blank translation", func() {
			_, ok := brain.TranslatedTitle("ja", "  ")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("edited issues", func() {
		It("reviews only issues waiting for a reproduction", func() {
			Expect(brain.NeedsEditReview(issue)).To(BeFalse())
			labelled := issue
			labelled.Labels = []string{"Needs Reproduction"}
			Expect(brain.NeedsEditReview(labelled)).To(BeTrue())
		})

		It("removes the label once a reproduction is provided", func() {
			Expect(brain.DecideIssueEdited(model.CommentAnalysis{ReproductionProvided: true}).Actions).
				To(Equal([]model.IntendedAction{model.RemoveLabel(model.LabelNeedsReproduction)}))
			Expect(brain.DecideIssueEdited(model.CommentAnalysis{PossibleRegression: true}).Actions).To(BeEmpty())
		})

		It("is a pure function of its input", func() {
			a := model.CommentAnalysis{ReproductionProvided: true}
			Expect(brain.DecideIssueEdited(a)).To(Equal(brain.DecideIssueEdited(a)))
		})
	})

	Describe("CommentRoute", func() {
		It("routes by state and label", func() {
			closed := issue
			closed.State = model.IssueStateClosed
			Expect(brain.CommentRoute(closed)).To(Equal(brain.FlowCommentClosed))

			waiting := issue
			waiting.Labels = []string{model.LabelNeedsReproduction}
			Expect(brain.CommentRoute(waiting)).To(Equal(brain.FlowCommentOpen))

			Expect(brain.CommentRoute(issue)).To(Equal(brain.FlowNothingToReview))
		})
	})

	Describe("DecideOpenComment", func() {
		It("removes the label when the comment provides a reproduction", func() {
			Expect(brain.DecideOpenComment(model.CommentAnalysis{ReproductionProvided: true}).Actions).
				To(Equal([]model.IntendedAction{model.RemoveLabel(model.LabelNeedsReproduction)}))
			Expect(brain.DecideOpenComment(model.CommentAnalysis{}).NoOp()).To(BeTrue())
		})
	})

	Describe("DecideClosedComment", func() {
		reopen := func(labels ...string) []model.IntendedAction {
			return []model.IntendedAction{model.SetState(model.IssueStateOpen), model.AddLabels(labels...)}
		}

		DescribeTable("reopen rules",
			func(in brain.ClosedCommentInput, expected []model.IntendedAction) {
				d := brain.DecideClosedComment(in)
				if expected == nil {
					Expect(d.Actions).To(BeEmpty())
					Expect(d.SkipReason).NotTo(BeEmpty())
				} else {
					Expect(d.Actions).To(Equal(expected))
				}
			},
			Entry("reproduction supplied on a labelled issue always reopens",
				brain.ClosedCommentInput{
					HasNeedsReproductionLabel: true,
					ActorRole:                 model.AuthorRoleOwner,
					Analysis:                  model.ClosedIssueAnalysis{ReproductionProvided: true, Confidence: model.ConfidenceLow},
				},
				[]model.IntendedAction{model.RemoveLabel(model.LabelNeedsReproduction), model.SetState(model.IssueStateOpen)}),
			Entry("reproduction without the label and no signal does nothing",
				brain.ClosedCommentInput{
					ActorRole: model.AuthorRoleNone,
					Analysis:  model.ClosedIssueAnalysis{ReproductionProvided: true, Confidence: model.ConfidenceHigh},
				},
				nil),
			Entry("duplicate not shown to differ stays closed despite a regression",
				brain.ClosedCommentInput{
					ClosedAsDuplicate: true,
					ActorRole:         model.AuthorRoleNone,
					Analysis:          model.ClosedIssueAnalysis{PossibleRegression: true, Confidence: model.ConfidenceHigh},
				},
				nil),
			Entry("duplicate shown to differ reopens",
				brain.ClosedCommentInput{
					ClosedAsDuplicate: true,
					ActorRole:         model.AuthorRoleNone,
					Analysis:          model.ClosedIssueAnalysis{ShouldReopen: true, IsDifferentFromDuplicate: true, Confidence: model.ConfidenceHigh},
				},
				reopen(model.LabelPendingTriage)),
			Entry("collaborators reopen themselves",
				brain.ClosedCommentInput{
					ActorRole: model.AuthorRoleCollaborator,
					Analysis:  model.ClosedIssueAnalysis{PossibleRegression: true, ShouldReopen: true, Confidence: model.ConfidenceHigh},
				},
				nil),
			Entry("medium confidence without regression stays closed",
				brain.ClosedCommentInput{
					ActorRole: model.AuthorRoleContributor,
					Analysis:  model.ClosedIssueAnalysis{ShouldReopen: true, Confidence: model.ConfidenceMedium},
				},
				nil),
			Entry("regression bypasses the confidence gate",
				brain.ClosedCommentInput{
					ActorRole: model.AuthorRoleContributor,
					Analysis:  model.ClosedIssueAnalysis{PossibleRegression: true, Confidence: model.ConfidenceLow},
				},
				reopen(model.LabelPendingTriage, model.LabelPossibleRegression)),
			Entry("high confidence reopen",
				brain.ClosedCommentInput{
					ActorRole: model.AuthorRoleNone,
					Analysis:  model.ClosedIssueAnalysis{ShouldReopen: true, Confidence: model.ConfidenceHigh},
				},
				reopen(model.LabelPendingTriage)),
		)

		It("never reopens for collaborator-or-higher actors", func() {
			for _, role := range []model.AuthorRole{model.AuthorRoleOwner, model.AuthorRoleMember, model.AuthorRoleCollaborator} {
				for _, c := range []model.Confidence{model.ConfidenceLow, model.ConfidenceMedium, model.ConfidenceHigh} {
					d := brain.DecideClosedComment(brain.ClosedCommentInput{
						ActorRole: role,
						Analysis:  model.ClosedIssueAnalysis{PossibleRegression: true, ShouldReopen: true, Confidence: c},
					})
					Expect(d.Actions).NotTo(ContainElement(model.SetState(model.IssueStateOpen)))
				}
			}
		})
	})

	Describe("DecideLabeled", func() {
		It("transfers on the spam label", func() {
			d := brain.DecideLabeled(cfg, issue, "Spam")
			Expect(d.Actions).To(Equal([]model.IntendedAction{model.TransferToRepository("I_1", "R_spam")}))
		})

		It("ignores any other label", func() {
			d := brain.DecideLabeled(cfg, issue, "bug")
			Expect(d.Actions).To(BeEmpty())
			Expect(d.SkipReason).To(ContainSubstring("bug"))
		})
	})
})
