package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteDepartments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	smith := mustDepartment(t, db, "Smith St")
	jones := mustDepartment(t, db, "Jones Rd")

	require.NoError(t, AddFavoriteDepartment(ctx, db, testUserID, smith.ID))
	require.NoError(t, AddFavoriteDepartment(ctx, db, testUserID, smith.ID))
	require.NoError(t, AddFavoriteDepartment(ctx, db, testUserID, jones.ID))
	require.NoError(t, AddFavoriteDepartment(ctx, db, "someone-else", jones.ID))

	assert.Equal(t, 2, countRows(t, db, "SELECT COUNT(*) FROM favorite_departments WHERE user_id = $1", testUserID))

	favs, err := ListFavoriteDepartments(ctx, db, testUserID)
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, "Jones Rd", favs[0].Name)

	require.NoError(t, RemoveFavoriteDepartment(ctx, db, testUserID, jones.ID))
	require.NoError(t, RemoveFavoriteDepartment(ctx, db, testUserID, jones.ID))

	favs, err = ListFavoriteDepartments(ctx, db, testUserID)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, smith.ID, favs[0].ID)

	assert.ErrorIs(t, AddFavoriteDepartment(ctx, db, testUserID, "missing"), ErrNotFound)
}
