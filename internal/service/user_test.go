package service_test

import (
	"context"
	"testing"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserHashesPassword(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	svc := service.NewUserService(db)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, service.CreateUserParams{
		Email:    "Cook@Example.com",
		Username: "cook",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, "cook@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
	assert.True(t, svc.CheckPassword(user, "s3cret-pass"))
	assert.False(t, svc.CheckPassword(user, "wrong"))

	_, err = svc.CreateUser(ctx, service.CreateUserParams{Email: "other@example.com", Username: "cook", Password: "x"})
	assert.ErrorIs(t, err, service.ErrConflict)

	_, err = svc.CreateUser(ctx, service.CreateUserParams{})
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)
}

func TestGetAndListUsersWithSubscriptionFlag(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	viewer := testhelpers.CreateTestUser(t, db, "viewer")
	chef := testhelpers.CreateTestUser(t, db, "chef")
	_, err := service.NewSubscriptionService(db).Subscribe(context.Background(), viewer.ID, chef.ID, 0)
	require.NoError(t, err)

	svc := service.NewUserService(db)
	ctx := context.Background()

	got, err := svc.GetUser(ctx, viewer.ID, chef.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSubscribed)

	anon, err := svc.GetUser(ctx, 0, chef.ID)
	require.NoError(t, err)
	assert.False(t, anon.IsSubscribed)

	_, err = svc.GetUser(ctx, 0, 999)
	assert.ErrorIs(t, err, service.ErrNotFound)

	list, total, err := svc.ListUsers(ctx, viewer.ID, types.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 2)
	assert.False(t, list[0].IsSubscribed)
	assert.True(t, list[1].IsSubscribed)
}

func TestIsAdmin(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	user := testhelpers.CreateTestUser(t, db, "boss")
	svc := service.NewUserService(db)

	ok, err := svc.IsAdmin(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	testhelpers.MakeAdmin(t, db, user)
	ok, err = svc.IsAdmin(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}
