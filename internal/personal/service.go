// Package personal keeps per-user festival shortlists: the wishlist and the
// recently viewed history.
package personal

import (
	"context"
	"errors"
	"time"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/auth"
	"ms-festbuzz/internal/db"
	"ms-festbuzz/internal/models"

	"github.com/google/uuid"
)

type Store interface {
	GetFestival(ctx context.Context, id string) (*models.Festival, error)

	AddWishlistItem(ctx context.Context, item *models.WishlistItem) error
	DeleteWishlistItem(ctx context.Context, userID, festID string) error
	ListWishlist(ctx context.Context, userID string, page models.Page) ([]models.WishlistItem, int, error)
	WishlistContains(ctx context.Context, userID, festID string) (bool, error)
	CountWishlist(ctx context.Context, userID string) (int, error)
	ClearWishlist(ctx context.Context, userID string) (int, error)

	FindRecentlyViewed(ctx context.Context, userID, festID string) (*models.RecentlyViewed, error)
	CreateRecentlyViewed(ctx context.Context, rv *models.RecentlyViewed) error
	UpdateRecentlyViewed(ctx context.Context, rv *models.RecentlyViewed) error
	ListRecentlyViewed(ctx context.Context, userID string, page models.Page, byCount bool) ([]models.RecentlyViewed, int, error)
	DeleteRecentlyViewed(ctx context.Context, userID, festID string) error
	ClearRecentlyViewed(ctx context.Context, userID string) (int, error)
}

type Service struct {
	Store Store
	Now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{Store: store, Now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) festivalExists(ctx context.Context, festID string) error {
	_, err := s.Store.GetFestival(ctx, festID)
	return db.AppError(err, "festival not found", "")
}

func (s *Service) AddToWishlist(ctx context.Context, p auth.Principal, festID string) (*models.WishlistItem, error) {
	if err := s.festivalExists(ctx, festID); err != nil {
		return nil, err
	}
	item := &models.WishlistItem{ID: uuid.NewString(), UserID: p.UserID, FestID: festID, AddedAt: s.Now()}
	if err := s.Store.AddWishlistItem(ctx, item); err != nil {
		return nil, db.AppError(err, "", "festival is already in your wishlist")
	}
	return item, nil
}

func (s *Service) RemoveFromWishlist(ctx context.Context, p auth.Principal, festID string) error {
	return db.AppError(s.Store.DeleteWishlistItem(ctx, p.UserID, festID), "festival is not in your wishlist", "")
}

func (s *Service) Wishlist(ctx context.Context, p auth.Principal, page models.Page) ([]models.WishlistItem, models.Pagination, error) {
	items, total, err := s.Store.ListWishlist(ctx, p.UserID, page)
	if err != nil {
		return nil, models.Pagination{}, db.AppError(err, "", "")
	}
	return items, models.NewPagination(page, total), nil
}

func (s *Service) InWishlist(ctx context.Context, p auth.Principal, festID string) (bool, error) {
	ok, err := s.Store.WishlistContains(ctx, p.UserID, festID)
	return ok, db.AppError(err, "", "")
}

func (s *Service) WishlistCount(ctx context.Context, p auth.Principal) (int, error) {
	n, err := s.Store.CountWishlist(ctx, p.UserID)
	return n, db.AppError(err, "", "")
}

func (s *Service) ClearWishlist(ctx context.Context, p auth.Principal) (int, error) {
	n, err := s.Store.ClearWishlist(ctx, p.UserID)
	return n, db.AppError(err, "", "")
}

// RecordView inserts a view of festID or bumps the existing one.
func (s *Service) RecordView(ctx context.Context, p auth.Principal, festID string) (*models.RecentlyViewed, error) {
	if err := s.festivalExists(ctx, festID); err != nil {
		return nil, err
	}
	now := s.Now()

	rv, err := s.Store.FindRecentlyViewed(ctx, p.UserID, festID)
	if errors.Is(err, db.ErrNotFound) {
		rv = &models.RecentlyViewed{ID: uuid.NewString(), UserID: p.UserID, FestID: festID, ViewedAt: now, ViewCount: 1}
		err = s.Store.CreateRecentlyViewed(ctx, rv)
		if !errors.Is(err, db.ErrDuplicate) {
			return rv, db.AppError(err, "", "")
		}
		// a concurrent view inserted first
		rv, err = s.Store.FindRecentlyViewed(ctx, p.UserID, festID)
	}
	if err != nil {
		return nil, db.AppError(err, "", "")
	}

	rv.ViewCount++
	rv.ViewedAt = now
	if err := s.Store.UpdateRecentlyViewed(ctx, rv); err != nil {
		return nil, db.AppError(err, "", "")
	}
	return rv, nil
}

func (s *Service) RecentlyViewed(ctx context.Context, p auth.Principal, page models.Page) ([]models.RecentlyViewed, models.Pagination, error) {
	items, total, err := s.Store.ListRecentlyViewed(ctx, p.UserID, page, false)
	if err != nil {
		return nil, models.Pagination{}, db.AppError(err, "", "")
	}
	return items, models.NewPagination(page, total), nil
}

// MostViewed returns up to limit festivals ordered by view count.
func (s *Service) MostViewed(ctx context.Context, p auth.Principal, limit int) ([]models.RecentlyViewed, error) {
	if limit < 1 {
		return nil, apperr.Validation("limit must be positive")
	}
	items, _, err := s.Store.ListRecentlyViewed(ctx, p.UserID, models.Page{Number: 1, Size: limit}, true)
	return items, db.AppError(err, "", "")
}

func (s *Service) RemoveView(ctx context.Context, p auth.Principal, festID string) error {
	return db.AppError(s.Store.DeleteRecentlyViewed(ctx, p.UserID, festID), "festival is not in your history", "")
}

func (s *Service) ClearViews(ctx context.Context, p auth.Principal) (int, error) {
	n, err := s.Store.ClearRecentlyViewed(ctx, p.UserID)
	return n, db.AppError(err, "", "")
}
