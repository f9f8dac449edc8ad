package user

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/ADI-2707/BillSwift/internal/common"
	"github.com/ADI-2707/BillSwift/internal/notify"
	"github.com/ADI-2707/BillSwift/internal/store"
)

type fakeStore struct {
	byID map[int64]store.User
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (store.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return store.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeStore) ListPending(_ context.Context) ([]store.User, error) {
	var out []store.User
	for _, u := range f.byID {
		if !u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]store.User, error) {
	var out []store.User
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeStore) Approve(_ context.Context, id int64) (bool, error) {
	u, ok := f.byID[id]
	if !ok || u.IsActive {
		return false, nil
	}
	u.IsActive = true
	f.byID[id] = u
	return true, nil
}

func seededStore() *fakeStore {
	return &fakeStore{byID: map[int64]store.User{
		1: {ID: 1, FirstName: "Asha", Email: "asha@example.com", IsActive: false, CreatedAt: time.Now()},
		2: {ID: 2, FirstName: "Ravi", Email: "ravi@example.com", IsActive: true, CreatedAt: time.Now()},
	}}
}

func TestListPendingOnlyInactive(t *testing.T) {
	svc, err := NewService(seededStore(), nil)
	require.NoError(t, err)

	pending, err := svc.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, int64(1), pending[0].ID)

	all, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestApproveActivatesAndNotifies(t *testing.T) {
	users := seededStore()
	mail := &common.InMemoryEmail{}
	svc, err := NewService(users, &notify.Mailer{Mail: mail})
	require.NoError(t, err)

	user, err := svc.Approve(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, user.IsActive)
	require.True(t, users.byID[1].IsActive)

	require.Len(t, mail.Outbox, 1)
	require.Equal(t, "asha@example.com", mail.Outbox[0].To)
}

func TestApproveAlreadyActiveConflicts(t *testing.T) {
	svc, err := NewService(seededStore(), nil)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), 2)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)
}

func TestApproveUnknownUser(t *testing.T) {
	svc, err := NewService(seededStore(), nil)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), 99)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 404, appErr.HTTPStatus)
}
