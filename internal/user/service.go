// Package user implements the admin account management endpoints: listing
// accounts, surfacing pending signups and approving them.
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ADI-2707/BillSwift/internal/common"
	"github.com/ADI-2707/BillSwift/internal/notify"
	"github.com/ADI-2707/BillSwift/internal/store"
)

// Store is the persistence surface the user service needs.
type Store interface {
	GetByID(ctx context.Context, id int64) (store.User, error)
	ListPending(ctx context.Context) ([]store.User, error)
	ListAll(ctx context.Context) ([]store.User, error)
	Approve(ctx context.Context, id int64) (bool, error)
}

// Service orchestrates account approval.
type Service struct {
	users  Store
	mailer *notify.Mailer
}

// NewService constructs the user admin service.
func NewService(users Store, mailer *notify.Mailer) (*Service, error) {
	if users == nil {
		return nil, errors.New("user: store is required")
	}
	return &Service{users: users, mailer: mailer}, nil
}

// ListPending returns accounts waiting for approval, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]store.User, error) {
	users, err := s.users.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending users: %w", err)
	}
	return users, nil
}

// ListAll returns every account.
func (s *Service) ListAll(ctx context.Context) ([]store.User, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Approve activates a pending account and notifies the applicant. Approving
// an already active account is a conflict, not a no-op, so the admin UI can
// tell the difference.
func (s *Service) Approve(ctx context.Context, id int64) (store.User, error) {
	activated, err := s.users.Approve(ctx, id)
	if err != nil {
		return store.User{}, fmt.Errorf("approve user: %w", err)
	}
	if !activated {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.User{}, common.NotFoundError("user not found")
			}
			return store.User{}, fmt.Errorf("load user: %w", err)
		}
		if user.IsActive {
			return store.User{}, common.ConflictError("account is already active")
		}
		return store.User{}, common.NotFoundError("user not found")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return store.User{}, fmt.Errorf("load user: %w", err)
	}
	if s.mailer != nil {
		s.mailer.AccountApproved(user)
	}
	return user, nil
}
