// Package users holds the user, organization and persona records the SDK
// receives from the backend and from a hosting parent page.
package users

import (
	"encoding/json"
	"strconv"
)

// ID is an identifier that the backend serializes inconsistently: some
// endpoints return numbers, others strings. It always compares as a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Int64 returns the numeric form of the ID, or 0 when it is not numeric.
func (id ID) Int64() int64 {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Organization is a workspace a user belongs to. Exactly one organization in
// a user's list has SelectedStatus set at any time.
type Organization struct {
	ID             ID      `json:"id"`
	Name           string  `json:"name"`
	Slug           string  `json:"slug,omitempty"`
	Domain         string  `json:"domain,omitempty"`
	SelectedStatus bool    `json:"selectedStatus"`
	Credits        *int64  `json:"credits,omitempty"`
	UserRoleIDs    []int64 `json:"user_role_ids,omitempty"`
}

// Persona is a lightweight persona record, as cached in the persona cookie or
// returned by the personas API.
type Persona struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// User is the authenticated user record carried inside the persisted session.
type User struct {
	ID            ID             `json:"id"`
	Email         string         `json:"email"`
	Name          string         `json:"name,omitempty"`
	Organizations []Organization `json:"organizations,omitempty"`
	Personas      []Persona      `json:"personas,omitempty"`
	UserRoleIDs   []int64        `json:"userRoleIds,omitempty"`
}

// SelectedOrganization returns the organization marked as selected, or nil
// when none is.
func (u *User) SelectedOrganization() *Organization {
	if u == nil {
		return nil
	}
	for i := range u.Organizations {
		if u.Organizations[i].SelectedStatus {
			return &u.Organizations[i]
		}
	}
	return nil
}

// HasOrganization reports whether the user belongs to the given organization.
func (u *User) HasOrganization(id ID) bool {
	if u == nil {
		return false
	}
	for i := range u.Organizations {
		if u.Organizations[i].ID == id {
			return true
		}
	}
	return false
}

// SelectOrganization marks the organization with the given ID as selected and
// clears the flag on every other entry, preserving the exactly-one-selected
// invariant. It returns the selected organization, or nil when the ID is not
// in the list (in which case the list is left untouched).
func (u *User) SelectOrganization(id ID) *Organization {
	if u == nil || !u.HasOrganization(id) {
		return nil
	}
	var selected *Organization
	for i := range u.Organizations {
		if u.Organizations[i].ID == id {
			u.Organizations[i].SelectedStatus = true
			selected = &u.Organizations[i]
		} else {
			u.Organizations[i].SelectedStatus = false
		}
	}
	return selected
}

// RoleIDsForOrganization returns the user's role IDs scoped to the given
// organization, falling back to the user-level role IDs.
func (u *User) RoleIDsForOrganization(id ID) []int64 {
	if u == nil {
		return nil
	}
	for i := range u.Organizations {
		if u.Organizations[i].ID == id && len(u.Organizations[i].UserRoleIDs) > 0 {
			return u.Organizations[i].UserRoleIDs
		}
	}
	return u.UserRoleIDs
}
