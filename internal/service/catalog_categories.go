package service

import (
	"context"
	"strings"

	"ecommerce-api/internal/domain"
	"ecommerce-api/internal/logger"
	"ecommerce-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errBlankName = domain.Validation("name must not be blank")

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errBlankName
	}
	return name, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, name, description string) (*domain.Category, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	category := &domain.Category{
		ID:            uuid.New(),
		Name:          name,
		Description:   description,
		Lifecycle:     domain.LifecycleActive,
		CreatedAt:     now,
		UpdatedAt:     now,
		SubCategories: []domain.SubCategory{},
	}
	if err := s.uow.Categories().Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory replaces name and description; the name stays unique
func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, name, description string) (*domain.Category, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	var category *domain.Category
	err = s.uow.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		if category, err = tx.Categories().FindByID(ctx, id); err != nil {
			return err
		}
		category.Name = name
		category.Description = description
		category.UpdatedAt = s.now()
		if err := tx.Categories().Update(ctx, category); err != nil {
			return err
		}
		category.SubCategories, err = tx.SubCategories().ListByCategory(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *catalogService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	category, err := s.uow.Categories().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if category.SubCategories, err = s.uow.SubCategories().ListByCategory(ctx, id); err != nil {
		return nil, err
	}
	return category, nil
}

// ListCategories returns live categories, each with its live subcategories
func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.uow.Categories().List(ctx)
	if err != nil {
		return nil, err
	}
	for _, category := range categories {
		if category.SubCategories, err = s.uow.SubCategories().ListByCategory(ctx, category.ID); err != nil {
			return nil, err
		}
	}
	return categories, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	err := s.uow.WithinTx(ctx, func(tx repository.Store) error {
		return tx.Categories().MarkDeleted(ctx, id, s.now())
	})
	if err != nil {
		return err
	}
	logger.FromCtx(ctx, s.logger).Info("Category deleted", zap.String("category_id", id.String()))
	return nil
}

// CreateSubCategory files a new subcategory under a live category
func (s *catalogService) CreateSubCategory(ctx context.Context, categoryID uuid.UUID, name, description string) (*domain.SubCategory, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sub := &domain.SubCategory{
		ID:          uuid.New(),
		CategoryID:  categoryID,
		Name:        name,
		Description: description,
		Lifecycle:   domain.LifecycleActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.uow.WithinTx(ctx, func(tx repository.Store) error {
		category, err := tx.Categories().FindByID(ctx, categoryID)
		if err != nil {
			return err
		}
		sub.CategoryName = category.Name
		return tx.SubCategories().Create(ctx, sub)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *catalogService) UpdateSubCategory(ctx context.Context, id uuid.UUID, name, description string) (*domain.SubCategory, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	var sub *domain.SubCategory
	err = s.uow.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		if sub, err = tx.SubCategories().FindByID(ctx, id); err != nil {
			return err
		}
		sub.Name = name
		sub.Description = description
		sub.UpdatedAt = s.now()
		return tx.SubCategories().Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *catalogService) ListSubCategories(ctx context.Context, categoryID uuid.UUID) ([]domain.SubCategory, error) {
	if _, err := s.uow.Categories().FindByID(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.uow.SubCategories().ListByCategory(ctx, categoryID)
}

func (s *catalogService) DeleteSubCategory(ctx context.Context, id uuid.UUID) error {
	return s.uow.SubCategories().MarkDeleted(ctx, id, s.now())
}
