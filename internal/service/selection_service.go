package service

import (
	"context"
	"errors"
	"fmt"

	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrUnexpectedSelections = errors.New("template does not declare exercise slots")
	ErrMissingRequiredSlot  = errors.New("missing selection for required slot")
	ErrUnknownSlot          = errors.New("selection references a slot the template does not declare")
)

// SlotWarning flags an advisory mismatch between a chosen exercise and the
// slot's declared constraints. Warnings never block resolution; the slot
// metadata nudges, it does not enforce.
type SlotWarning struct {
	SlotNumber int    `json:"slotNumber"`
	Label      string `json:"label"`
	Reason     string `json:"reason"`
}

// ValidatedSelections is the result of a successful resolution.
type ValidatedSelections struct {
	TemplateID primitive.ObjectID         `json:"templateId"`
	Selections map[int]primitive.ObjectID `json:"selections"` // slot number -> exercise
	Warnings   []SlotWarning              `json:"warnings,omitempty"`
}

// --- Service Interface ---

// SelectionService maps an athlete's chosen exercises onto a template's
// declared slots.
type SelectionService interface {
	// ResolveSelections validates a selection map against a template without
	// persisting anything.
	ResolveSelections(ctx context.Context, templateID primitive.ObjectID, selections map[int]primitive.ObjectID) (*ValidatedSelections, error)
	// StageSelections validates and persists selections before any
	// subscription exists, returning a staging token the join flow re-binds.
	StageSelections(ctx context.Context, userID, templateID primitive.ObjectID, selections map[int]primitive.ObjectID) (string, *ValidatedSelections, error)
	// SelectionsForStagingToken loads a staged selection set as a map.
	SelectionsForStagingToken(ctx context.Context, token string) (map[int]primitive.ObjectID, error)
	// PersistForSubscription writes one selection row per entry, bound to
	// the subscription.
	PersistForSubscription(ctx context.Context, userID, subscriptionID, templateID primitive.ObjectID, selections map[int]primitive.ObjectID) error
	// BindStaged re-binds a staged selection set to a new subscription.
	BindStaged(ctx context.Context, token string, subscriptionID primitive.ObjectID) error
	GetSubscriptionSelections(ctx context.Context, subscriptionID primitive.ObjectID) ([]domain.UserExerciseSelection, error)
}

// --- Service Implementation ---

type selectionService struct {
	catalog       CatalogService
	selectionRepo repository.SelectionRepository
	exerciseRepo  repository.ExerciseRepository
}

// NewSelectionService creates a new instance of selectionService.
func NewSelectionService(
	catalog CatalogService,
	selectionRepo repository.SelectionRepository,
	exerciseRepo repository.ExerciseRepository,
) SelectionService {
	return &selectionService{
		catalog:       catalog,
		selectionRepo: selectionRepo,
		exerciseRepo:  exerciseRepo,
	}
}

// ResolveSelections validates the selection map against the template's
// declared slots.
func (s *selectionService) ResolveSelections(ctx context.Context, templateID primitive.ObjectID, selections map[int]primitive.ObjectID) (*ValidatedSelections, error) {
	tmpl, err := s.catalog.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	return s.resolveAgainst(ctx, tmpl, selections)
}

func (s *selectionService) resolveAgainst(ctx context.Context, tmpl *domain.ProgramTemplate, selections map[int]primitive.ObjectID) (*ValidatedSelections, error) {
	// 1. A template without slots accepts no selections at all.
	if !tmpl.HasExerciseSlots {
		if len(selections) > 0 {
			return nil, ErrUnexpectedSelections
		}
		return &ValidatedSelections{TemplateID: tmpl.ID, Selections: map[int]primitive.ObjectID{}}, nil
	}

	// 2. Every selection must reference a declared slot.
	for slotNumber := range selections {
		if tmpl.SlotByNumber(slotNumber) == nil {
			return nil, fmt.Errorf("%w: slot %d", ErrUnknownSlot, slotNumber)
		}
	}

	// 3. Every required slot must be covered; the error names the slot label
	// so the UI can say "select an exercise for slot X".
	for _, slot := range tmpl.RequiredSlots() {
		if _, ok := selections[slot.SlotNumber]; !ok {
			return nil, fmt.Errorf("%w: %q (slot %d)", ErrMissingRequiredSlot, slot.Label, slot.SlotNumber)
		}
	}

	// 4. Compatibility with the slot's declared movement pattern / muscles /
	// equipment is advisory metadata: mismatches become warnings, not errors.
	warnings := s.compatibilityWarnings(ctx, tmpl, selections)

	return &ValidatedSelections{
		TemplateID: tmpl.ID,
		Selections: selections,
		Warnings:   warnings,
	}, nil
}

// compatibilityWarnings compares each chosen exercise against the slot's
// advisory constraints. Unresolvable exercises (not in the library) produce
// a warning too; resolution stays permissive either way.
func (s *selectionService) compatibilityWarnings(ctx context.Context, tmpl *domain.ProgramTemplate, selections map[int]primitive.ObjectID) []SlotWarning {
	ids := make([]primitive.ObjectID, 0, len(selections))
	for _, exerciseID := range selections {
		ids = append(ids, exerciseID)
	}
	exercises, err := s.exerciseRepo.GetByIDs(ctx, ids)
	if err != nil {
		// Warnings are best-effort; a library read failure must not block.
		return nil
	}
	byID := make(map[primitive.ObjectID]*domain.Exercise, len(exercises))
	for i := range exercises {
		byID[exercises[i].ID] = &exercises[i]
	}

	var warnings []SlotWarning
	for slotNumber, exerciseID := range selections {
		slot := tmpl.SlotByNumber(slotNumber)
		ex, ok := byID[exerciseID]
		if !ok {
			warnings = append(warnings, SlotWarning{
				SlotNumber: slotNumber,
				Label:      slot.Label,
				Reason:     "exercise not found in library",
			})
			continue
		}
		if slot.MovementPattern != "" && ex.MovementPattern != "" && slot.MovementPattern != ex.MovementPattern {
			warnings = append(warnings, SlotWarning{
				SlotNumber: slotNumber,
				Label:      slot.Label,
				Reason:     fmt.Sprintf("movement pattern %q does not match slot's %q", ex.MovementPattern, slot.MovementPattern),
			})
		}
		if len(slot.EquipmentOptions) > 0 && ex.Equipment != "" && !contains(slot.EquipmentOptions, ex.Equipment) {
			warnings = append(warnings, SlotWarning{
				SlotNumber: slotNumber,
				Label:      slot.Label,
				Reason:     fmt.Sprintf("equipment %q not among the slot's options", ex.Equipment),
			})
		}
		if len(slot.MuscleTargets) > 0 && len(ex.MuscleTargets) > 0 && !intersects(slot.MuscleTargets, ex.MuscleTargets) {
			warnings = append(warnings, SlotWarning{
				SlotNumber: slotNumber,
				Label:      slot.Label,
				Reason:     "exercise targets none of the slot's muscle groups",
			})
		}
	}
	return warnings
}

// StageSelections validates and persists a selection set under a fresh
// staging token, for flows where the athlete picks exercises before joining.
func (s *selectionService) StageSelections(ctx context.Context, userID, templateID primitive.ObjectID, selections map[int]primitive.ObjectID) (string, *ValidatedSelections, error) {
	validated, err := s.ResolveSelections(ctx, templateID, selections)
	if err != nil {
		return "", nil, err
	}

	token := uuid.NewString()
	rows := make([]domain.UserExerciseSelection, 0, len(validated.Selections))
	for slotNumber, exerciseID := range validated.Selections {
		rows = append(rows, domain.UserExerciseSelection{
			StagingToken: token,
			UserID:       userID,
			TemplateID:   templateID,
			SlotNumber:   slotNumber,
			ExerciseID:   exerciseID,
		})
	}
	if err := s.selectionRepo.CreateMany(ctx, rows); err != nil {
		return "", nil, err
	}
	return token, validated, nil
}

// SelectionsForStagingToken loads staged selections back into map form.
func (s *selectionService) SelectionsForStagingToken(ctx context.Context, token string) (map[int]primitive.ObjectID, error) {
	rows, err := s.selectionRepo.GetByStagingToken(ctx, token)
	if err != nil {
		return nil, err
	}
	selections := make(map[int]primitive.ObjectID, len(rows))
	for _, row := range rows {
		selections[row.SlotNumber] = row.ExerciseID
	}
	return selections, nil
}

// PersistForSubscription writes one UserExerciseSelection per entry, bound
// to the subscription. The unique (subscription, slot) index guarantees at
// most one selection per slot.
func (s *selectionService) PersistForSubscription(ctx context.Context, userID, subscriptionID, templateID primitive.ObjectID, selections map[int]primitive.ObjectID) error {
	if len(selections) == 0 {
		return nil
	}
	rows := make([]domain.UserExerciseSelection, 0, len(selections))
	for slotNumber, exerciseID := range selections {
		subID := subscriptionID
		rows = append(rows, domain.UserExerciseSelection{
			SubscriptionID: &subID,
			UserID:         userID,
			TemplateID:     templateID,
			SlotNumber:     slotNumber,
			ExerciseID:     exerciseID,
		})
	}
	return s.selectionRepo.CreateMany(ctx, rows)
}

// BindStaged re-binds a staged selection set to a freshly created subscription.
func (s *selectionService) BindStaged(ctx context.Context, token string, subscriptionID primitive.ObjectID) error {
	return s.selectionRepo.BindStagedToSubscription(ctx, token, subscriptionID)
}

// GetSubscriptionSelections returns the selections bound to a subscription.
func (s *selectionService) GetSubscriptionSelections(ctx context.Context, subscriptionID primitive.ObjectID) ([]domain.UserExerciseSelection, error) {
	return s.selectionRepo.GetBySubscriptionID(ctx, subscriptionID)
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
