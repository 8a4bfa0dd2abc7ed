// Package services – UserService
//
// This file implements the UserService, the admin-facing principal
// operations: paginated listing, lookup, and block/unblock. Blocking also
// tears down every live session for the principal so existing credentials
// stop working immediately.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/dkraev/tg-bot-backend/internal/domain"
	"github.com/dkraev/tg-bot-backend/internal/repo"
)

// PrincipalPage is one page of principals plus the unfiltered total.
type PrincipalPage struct {
	Items []domain.Principal `json:"items"`
	Total int64              `json:"total"`
}

// UserService exposes principal management on top of the repo layer.
type UserService struct {
	DB       *gorm.DB
	Sessions *SessionService
	Log      zerolog.Logger
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, sessions *SessionService, log zerolog.Logger) *UserService {
	return &UserService{DB: db, Sessions: sessions, Log: log}
}

// ListPage returns one page of principals ordered by most recent activity.
func (s *UserService) ListPage(ctx context.Context, offset, limit int) (*PrincipalPage, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	total, err := repo.CountPrincipals(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	items, err := repo.ListPrincipalsPage(ctx, s.DB, offset, limit)
	if err != nil {
		return nil, err
	}
	return &PrincipalPage{Items: items, Total: total}, nil
}

// Get returns one principal or ErrPrincipalNotFound.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.Principal, error) {
	p, err := repo.GetPrincipal(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	return p, nil
}

// Block marks the principal blocked and invalidates all of their sessions.
func (s *UserService) Block(ctx context.Context, id int64, reason string) error {
	if err := repo.SetPrincipalBlocked(ctx, s.DB, id, true, reason); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrPrincipalNotFound
		}
		return err
	}
	if err := s.Sessions.InvalidateAllForPrincipal(ctx, id); err != nil {
		s.Log.Error().Err(err).Int64("principal_id", id).Msg("failed to invalidate sessions for blocked principal")
	}
	s.Log.Info().Int64("principal_id", id).Str("reason", reason).Msg("principal blocked")
	return nil
}

// Unblock clears the blocked flag and reason.
func (s *UserService) Unblock(ctx context.Context, id int64) error {
	if err := repo.SetPrincipalBlocked(ctx, s.DB, id, false, ""); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrPrincipalNotFound
		}
		return err
	}
	s.Log.Info().Int64("principal_id", id).Msg("principal unblocked")
	return nil
}
