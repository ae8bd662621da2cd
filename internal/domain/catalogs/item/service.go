package item

import (
	"context"
	"strings"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain"
	"ledgerbook/pkg/logger"
)

// Service provides business logic for the item catalog.
type Service struct {
	repo  Repository
	hooks *domain.HookRegistry[*Item]
}

// NewService creates a new item service.
func NewService(repo Repository) *Service {
	svc := &Service{
		repo:  repo,
		hooks: domain.NewHookRegistry[*Item](),
	}
	svc.hooks.On(domain.BeforeCreate, normalize)
	svc.hooks.On(domain.BeforeUpdate, normalize)
	return svc
}

// Hooks exposes lifecycle hooks for extension.
func (s *Service) Hooks() *domain.HookRegistry[*Item] {
	return s.hooks
}

func normalize(_ context.Context, it *Item) error {
	it.Name = strings.TrimSpace(it.Name)
	it.SKU = strings.ToUpper(strings.TrimSpace(it.SKU))
	return nil
}

// Create registers a new item with its opening stock.
func (s *Service) Create(ctx context.Context, it *Item) error {
	if err := s.hooks.Run(ctx, domain.BeforeCreate, it); err != nil {
		return err
	}
	if err := it.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, it); err != nil {
		return err
	}
	logger.Info(ctx, "item created", "id", it.ID, "business_id", it.BusinessID, "stock", it.StockQuantity.String())
	return s.hooks.Run(ctx, domain.AfterCreate, it)
}

// GetByID retrieves an item.
func (s *Service) GetByID(ctx context.Context, businessID string, itemID id.ID) (*Item, error) {
	return s.repo.GetByID(ctx, businessID, itemID)
}

// Update changes catalog fields. Stock levels only move through documents.
func (s *Service) Update(ctx context.Context, it *Item) error {
	if err := s.hooks.Run(ctx, domain.BeforeUpdate, it); err != nil {
		return err
	}
	if err := it.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, it); err != nil {
		return err
	}
	return s.hooks.Run(ctx, domain.AfterUpdate, it)
}

// Delete removes an item from the catalog. Historical document lines that
// still reference it become stock no-ops.
func (s *Service) Delete(ctx context.Context, businessID string, itemID id.ID) error {
	it, err := s.repo.GetByID(ctx, businessID, itemID)
	if err != nil {
		return err
	}
	if err := s.hooks.Run(ctx, domain.BeforeDelete, it); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, businessID, itemID); err != nil {
		return err
	}
	logger.Info(ctx, "item deleted", "id", itemID, "business_id", businessID)
	return nil
}

// List retrieves items.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Item], error) {
	if filter.BusinessID == "" {
		return domain.ListResult[*Item]{}, apperror.NewValidation("business is required")
	}
	return s.repo.List(ctx, filter)
}
