package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"greendrake/estate/internal/logging"
	"greendrake/estate/internal/models"
	"greendrake/estate/internal/rules"
	"greendrake/estate/internal/store"
	"greendrake/estate/internal/utils"
)

// ICatalogService manages property types and tags.
type ICatalogService interface {
	CreateType(ctx context.Context, name string) (*models.PropertyType, error)
	GetType(ctx context.Context, id utils.SixID) (*models.PropertyType, error)
	ListTypes(ctx context.Context) ([]models.PropertyType, error)
	CreateTag(ctx context.Context, name string) (*models.PropertyTag, error)
	GetTag(ctx context.Context, id utils.SixID) (*models.PropertyTag, error)
	ListTags(ctx context.Context) ([]models.PropertyTag, error)
}

type catalogService struct {
	store store.Store
	log   *zap.Logger
}

func NewCatalogService(st store.Store, logger *zap.Logger) ICatalogService {
	return &catalogService{store: st, log: logging.OrNop(logger).Named("catalog")}
}

func (s *catalogService) CreateType(ctx context.Context, name string) (*models.PropertyType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, rules.Validation("name", "property type name is required")
	}
	t := &models.PropertyType{Name: name, CreatedAt: time.Now().UTC()}
	if err := s.store.PropertyTypes().Create(ctx, t); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, rules.Validation("name", rules.MsgPropertyTypeNameTaken)
		}
		return nil, fmt.Errorf("failed to create property type: %w", err)
	}
	s.log.Info("property type created", zap.String("type_id", t.ID.String()))
	return t, nil
}

func (s *catalogService) GetType(ctx context.Context, id utils.SixID) (*models.PropertyType, error) {
	t, err := s.store.PropertyTypes().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "property type", id)
	}
	return t, nil
}

func (s *catalogService) ListTypes(ctx context.Context) ([]models.PropertyType, error) {
	return s.store.PropertyTypes().List(ctx)
}

func (s *catalogService) CreateTag(ctx context.Context, name string) (*models.PropertyTag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, rules.Validation("name", "property tag name is required")
	}
	t := &models.PropertyTag{Name: name, CreatedAt: time.Now().UTC()}
	if err := s.store.PropertyTags().Create(ctx, t); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, rules.Validation("name", rules.MsgPropertyTagNameTaken)
		}
		return nil, fmt.Errorf("failed to create property tag: %w", err)
	}
	s.log.Info("property tag created", zap.String("tag_id", t.ID.String()))
	return t, nil
}

func (s *catalogService) GetTag(ctx context.Context, id utils.SixID) (*models.PropertyTag, error) {
	t, err := s.store.PropertyTags().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "property tag", id)
	}
	return t, nil
}

func (s *catalogService) ListTags(ctx context.Context) ([]models.PropertyTag, error) {
	return s.store.PropertyTags().List(ctx)
}
