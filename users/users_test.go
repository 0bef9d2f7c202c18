package users_test

import (
	"encoding/json"
	"testing"

	"github.com/developersupreme/supreme-ai-sdk-sub000/users"
	"github.com/stretchr/testify/require"
)

func TestIDUnmarshalAcceptsStringsAndNumbers(t *testing.T) {
	var record struct {
		A users.ID `json:"a"`
		B users.ID `json:"b"`
	}
	err := json.Unmarshal([]byte(`{"a": "5", "b": 5}`), &record)
	require.NoError(t, err)
	require.Equal(t, users.ID("5"), record.A)
	require.Equal(t, users.ID("5"), record.B)
	require.Equal(t, record.A, record.B)
	require.Equal(t, int64(5), record.A.Int64())
}

func TestIDInt64NonNumeric(t *testing.T) {
	require.Zero(t, users.ID("org-abc").Int64())
}

func testUser() *users.User {
	return &users.User{
		ID:          "2",
		Email:       "john@example.com",
		UserRoleIDs: []int64{9},
		Organizations: []users.Organization{
			{ID: "5", Name: "Acme", SelectedStatus: true, UserRoleIDs: []int64{3}},
			{ID: "7", Name: "Globex"},
		},
	}
}

func TestSelectedOrganization(t *testing.T) {
	u := testUser()
	selected := u.SelectedOrganization()
	require.NotNil(t, selected)
	require.Equal(t, users.ID("5"), selected.ID)

	var nilUser *users.User
	require.Nil(t, nilUser.SelectedOrganization())
}

func TestSelectOrganizationKeepsExactlyOneSelected(t *testing.T) {
	u := testUser()

	selected := u.SelectOrganization("7")
	require.NotNil(t, selected)
	require.Equal(t, users.ID("7"), selected.ID)

	count := 0
	for _, org := range u.Organizations {
		if org.SelectedStatus {
			count++
			require.Equal(t, users.ID("7"), org.ID)
		}
	}
	require.Equal(t, 1, count)
}

func TestSelectOrganizationUnknownIDLeavesListUntouched(t *testing.T) {
	u := testUser()

	require.Nil(t, u.SelectOrganization("999"))
	require.Equal(t, users.ID("5"), u.SelectedOrganization().ID)
}

func TestRoleIDsForOrganization(t *testing.T) {
	u := testUser()

	// Organization-scoped roles win.
	require.Equal(t, []int64{3}, u.RoleIDsForOrganization("5"))
	// An organization without roles falls back to the user-level roles.
	require.Equal(t, []int64{9}, u.RoleIDsForOrganization("7"))
	require.Equal(t, []int64{9}, u.RoleIDsForOrganization("999"))
}
