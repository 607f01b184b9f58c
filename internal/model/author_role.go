package model

import "strings"

// AuthorRole is the tracker's author_association value.
type AuthorRole string

const (
	AuthorRoleOwner        AuthorRole = "OWNER"
	AuthorRoleMember       AuthorRole = "MEMBER"
	AuthorRoleCollaborator AuthorRole = "COLLABORATOR"
	AuthorRoleContributor  AuthorRole = "CONTRIBUTOR"
	AuthorRoleFirstTimer   AuthorRole = "FIRST_TIMER"
	AuthorRoleFirstTime    AuthorRole = "FIRST_TIME_CONTRIBUTOR"
	AuthorRoleMannequin    AuthorRole = "MANNEQUIN"
	AuthorRoleNone         AuthorRole = "NONE"
)

// ParseAuthorRole upper-cases s; unknown values are kept verbatim.
func ParseAuthorRole(s string) AuthorRole {
	if s == "" {
		return AuthorRoleNone
	}
	return AuthorRole(strings.ToUpper(s))
}

// IsCollaboratorOrHigher reports whether the author can reopen or relabel issues themselves.
func (r AuthorRole) IsCollaboratorOrHigher() bool {
	switch r {
	case AuthorRoleOwner, AuthorRoleMember, AuthorRoleCollaborator:
		return true
	}
	return false
}
