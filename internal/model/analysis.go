package model

import (
	"strings"

	"basegraph.app/triage/internal/normalize"
)

type IssueType string

const (
	IssueTypeBug           IssueType = "bug"
	IssueTypeFeature       IssueType = "feature"
	IssueTypeDocumentation IssueType = "documentation"
	IssueTypeChore         IssueType = "chore"
	IssueTypeHelpWanted    IssueType = "help-wanted"
	IssueTypeSpam          IssueType = "spam"
)

// TrackerTypeName is the issue-type name set on the tracker, or "" when the
// type has no tracker counterpart.
func (t IssueType) TrackerTypeName() string {
	switch t {
	case IssueTypeBug, IssueTypeFeature, IssueTypeDocumentation:
		s := string(t)
		return strings.ToUpper(s[:1]) + s[1:]
	}
	return ""
}

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// IssueAnalysis is the classification of a newly opened issue.
type IssueAnalysis struct {
	IssueType                 IssueType `json:"issueType" jsonschema:"enum=bug,enum=feature,enum=documentation,enum=chore,enum=help-wanted,enum=spam"`
	ReproductionProvided      bool      `json:"reproductionProvided"`
	SpokenLanguage            string    `json:"spokenLanguage" jsonschema:"default=en" jsonschema_description:"The language of the title in ISO 639-1 format. Do not include country codes, only language code."`
	PossibleRegression        bool      `json:"possibleRegression" jsonschema_description:"If the issue is reported on upgrade to a new version of the framework, it is a possible regression."`
	RelatesToRuntimeSubsystem bool      `json:"relatesToRuntimeSubsystem" jsonschema_description:"If the issue is reported only in relation to a single deployment provider, it is possibly a server runtime issue."`
}

// Normalize reduces SpokenLanguage to a bare ISO 639-1 code.
func (a *IssueAnalysis) Normalize() {
	a.SpokenLanguage = normalize.Language(a.SpokenLanguage)
}

// CommentAnalysis is the narrow classification used to screen a single comment or edited body.
type CommentAnalysis struct {
	ReproductionProvided bool `json:"reproductionProvided"`
	PossibleRegression   bool `json:"possibleRegression" jsonschema_description:"If the issue reported is a bug and the bug has reappeared on upgrade to a new version of the framework, it is a possible regression."`
}

// ClosedIssueAnalysis re-evaluates a closed issue with its recent comments and status history.
type ClosedIssueAnalysis struct {
	ReproductionProvided     bool       `json:"reproductionProvided"`
	PossibleRegression       bool       `json:"possibleRegression" jsonschema_description:"If the issue reported is a bug and the bug has reappeared on upgrade to a new version of the framework, it is a possible regression."`
	ShouldReopen             bool       `json:"shouldReopen" jsonschema_description:"Whether a closed issue should be reopened based on new evidence or context."`
	IsDifferentFromDuplicate bool       `json:"isDifferentFromDuplicate" jsonschema_description:"For issues marked as duplicate, whether the evidence suggests this is actually a different issue."`
	Confidence               Confidence `json:"confidence" jsonschema:"enum=low,enum=medium,enum=high,default=low" jsonschema_description:"Confidence level in the analysis based on available context."`
}
