package model

import (
	"fmt"
	"strings"
)

type ActionKind string

const (
	ActionAddLabels    ActionKind = "add_labels"
	ActionRemoveLabel  ActionKind = "remove_label"
	ActionSetState     ActionKind = "set_state"
	ActionSetTitle     ActionKind = "set_title"
	ActionSetIssueType ActionKind = "set_issue_type"
	ActionTransfer     ActionKind = "transfer_to_repository"
)

// IntendedAction is one tracker mutation decided for a pass. Only the fields
// belonging to Kind are set; build values with the constructors below.
type IntendedAction struct {
	Kind         ActionKind `json:"kind"`
	Labels       []string   `json:"labels,omitempty"`
	Label        string     `json:"label,omitempty"`
	State        IssueState `json:"state,omitempty"`
	Title        string     `json:"title,omitempty"`
	IssueType    IssueType  `json:"issue_type,omitempty"`
	IssueNodeID  string     `json:"issue_node_id,omitempty"`
	TargetRepoID string     `json:"target_repository_id,omitempty"`
}

func AddLabels(names ...string) IntendedAction {
	return IntendedAction{Kind: ActionAddLabels, Labels: names}
}

func RemoveLabel(name string) IntendedAction {
	return IntendedAction{Kind: ActionRemoveLabel, Label: name}
}

func SetState(state IssueState) IntendedAction {
	return IntendedAction{Kind: ActionSetState, State: state}
}

func SetTitle(title string) IntendedAction {
	return IntendedAction{Kind: ActionSetTitle, Title: title}
}

func SetIssueType(t IssueType) IntendedAction {
	return IntendedAction{Kind: ActionSetIssueType, IssueType: t}
}

func TransferToRepository(issueNodeID, targetRepoID string) IntendedAction {
	return IntendedAction{Kind: ActionTransfer, IssueNodeID: issueNodeID, TargetRepoID: targetRepoID}
}

func (a IntendedAction) String() string {
	switch a.Kind {
	case ActionAddLabels:
		return fmt.Sprintf("AddLabels(%s)", strings.Join(a.Labels, ", "))
	case ActionRemoveLabel:
		return fmt.Sprintf("RemoveLabel(%s)", a.Label)
	case ActionSetState:
		return fmt.Sprintf("SetState(%s)", a.State)
	case ActionSetTitle:
		return fmt.Sprintf("SetTitle(%q)", a.Title)
	case ActionSetIssueType:
		return fmt.Sprintf("SetIssueType(%s)", a.IssueType)
	case ActionTransfer:
		return fmt.Sprintf("TransferToRepository(%s)", a.TargetRepoID)
	}
	return string(a.Kind)
}

// ActionOutcome is the settled result of executing one IntendedAction.
type ActionOutcome struct {
	Action IntendedAction `json:"action"`
	Err    error          `json:"-"`
	Error  string         `json:"error,omitempty"`
}

func (o ActionOutcome) Succeeded() bool {
	return o.Err == nil
}
