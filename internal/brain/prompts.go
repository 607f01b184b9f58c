package brain

const newIssueInstructions = `Categorise the issue below. The user message starts with the issue title as a heading, followed by the issue body.
- issueType is "spam" only for content unrelated to the project (advertising, gibberish, link farms).
- reproductionProvided is true when the body links to a runnable reproduction (StackBlitz, CodeSandbox, a GitHub repository) or gives complete steps to reproduce.
- spokenLanguage describes the language of the title.`

const commentScreeningInstructions = `The user message is a comment (or an updated issue body) on an issue labelled "needs reproduction".
Decide whether it now provides a reproduction: a link to a runnable reproduction (StackBlitz, CodeSandbox, a GitHub repository) or complete steps to reproduce.
Saying "I have the same problem" is not a reproduction.`

const closedIssueBaseInstructions = `The user message describes a closed issue: its body, the most recent comments (newest first), its status history and its current state.
A new comment was just added. Decide whether the new information justifies reopening the issue.`

const closedNotPlannedInstructions = `The issue was closed as not planned. Only recommend reopening when the comments bring substantially new information, such as a reproduction or evidence of broader impact.`

const closedNotPlannedReopenedInstructions = `The issue has already been reopened several times. Be conservative: set shouldReopen only when the evidence is compelling and set confidence accordingly.`

const closedDuplicateInstructions = `The issue was closed as a duplicate. Set isDifferentFromDuplicate only when the comments clearly show a different problem from the one it duplicates (different cause, different affected version or different behaviour).`

const closedCompletedInstructions = `The issue was closed as completed. Recommend reopening only if the comments report that the problem has come back (a regression) after the fix.`

// closedIssueInstructions picks the system-prompt variant for re-evaluating a
// closed issue from how it was closed.
func closedIssueInstructions(ec EnhancedContext) string {
	instructions := closedIssueBaseInstructions
	switch {
	case ec.WasClosedAsDuplicate():
		instructions += "\n\n" + closedDuplicateInstructions
	case ec.WasClosedAsNotPlanned():
		instructions += "\n\n" + closedNotPlannedInstructions
		if ec.HasBeenReopenedMultipleTimes() {
			instructions += "\n" + closedNotPlannedReopenedInstructions
		}
	case ec.WasClosedAsCompleted():
		instructions += "\n\n" + closedCompletedInstructions
	}
	return instructions
}
