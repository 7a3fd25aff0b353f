package service

import (
	"context"
	"errors"

	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrTemplateNotFound     = errors.New("program template not found")
	ErrTemplateAccessDenied = errors.New("access denied to modify this template")
	ErrTemplateInUse        = errors.New("template has subscriptions and can no longer be modified")
)

// --- Service Interface ---

// CatalogService is the read contract the rest of the engine consumes
// templates through. Templates it hands out are always normalized: legacy
// JSON-blob templates are lifted on read, and a template that fails
// validation never becomes visible.
type CatalogService interface {
	CreateTemplate(ctx context.Context, trainerID primitive.ObjectID, tmpl *domain.ProgramTemplate) (*domain.ProgramTemplate, error)
	GetTemplate(ctx context.Context, id primitive.ObjectID) (*domain.ProgramTemplate, error)
	ListTemplates(ctx context.Context, filter repository.TemplateFilter) ([]domain.ProgramTemplate, error)
	UpdateTemplate(ctx context.Context, trainerID primitive.ObjectID, tmpl *domain.ProgramTemplate) (*domain.ProgramTemplate, error)
}

// --- Service Implementation ---

type catalogService struct {
	templateRepo     repository.TemplateRepository
	subscriptionRepo repository.SubscriptionRepository
	logger           *zap.Logger
}

// NewCatalogService creates a new instance of catalogService.
func NewCatalogService(
	templateRepo repository.TemplateRepository,
	subscriptionRepo repository.SubscriptionRepository,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		templateRepo:     templateRepo,
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
	}
}

// CreateTemplate validates and persists a new template. Validation happens
// at authoring time, not at read time.
func (s *catalogService) CreateTemplate(ctx context.Context, trainerID primitive.ObjectID, tmpl *domain.ProgramTemplate) (*domain.ProgramTemplate, error) {
	if trainerID == primitive.NilObjectID {
		return nil, errors.New("trainer ID is required")
	}
	tmpl.AuthorID = trainerID

	if err := tmpl.Validate(); err != nil {
		return nil, err // wraps domain.ErrMalformedTemplate
	}

	id, err := s.templateRepo.Create(ctx, tmpl)
	if err != nil {
		return nil, err
	}
	tmpl.ID = id
	return tmpl, nil
}

// GetTemplate retrieves a template and lifts it to the normalized shape.
func (s *catalogService) GetTemplate(ctx context.Context, id primitive.ObjectID) (*domain.ProgramTemplate, error) {
	tmpl, err := s.templateRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if err := domain.LiftLegacyTemplate(tmpl); err != nil {
		// A stored template that cannot be lifted violates the catalog
		// invariant upstream; treat it as missing rather than leak a
		// half-formed template to subscribers.
		s.logger.Error("stored template failed legacy lift",
			zap.String("templateId", id.Hex()), zap.Error(err))
		return nil, ErrTemplateNotFound
	}
	return tmpl, nil
}

// ListTemplates retrieves templates matching the filter. Templates that fail
// the legacy lift are logged and skipped, never surfaced.
func (s *catalogService) ListTemplates(ctx context.Context, filter repository.TemplateFilter) ([]domain.ProgramTemplate, error) {
	templates, err := s.templateRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	visible := make([]domain.ProgramTemplate, 0, len(templates))
	for i := range templates {
		if err := domain.LiftLegacyTemplate(&templates[i]); err != nil {
			s.logger.Error("stored template failed legacy lift, skipping",
				zap.String("templateId", templates[i].ID.Hex()), zap.Error(err))
			continue
		}
		visible = append(visible, templates[i])
	}
	return visible, nil
}

// UpdateTemplate defends template immutability: once any subscription
// references the template, structural edits are rejected.
func (s *catalogService) UpdateTemplate(ctx context.Context, trainerID primitive.ObjectID, tmpl *domain.ProgramTemplate) (*domain.ProgramTemplate, error) {
	existing, err := s.templateRepo.GetByID(ctx, tmpl.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if existing.AuthorID != trainerID {
		return nil, ErrTemplateAccessDenied
	}

	count, err := s.subscriptionRepo.CountByTemplateID(ctx, tmpl.ID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrTemplateInUse
	}

	tmpl.AuthorID = existing.AuthorID
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	if err := s.templateRepo.Update(ctx, tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}
