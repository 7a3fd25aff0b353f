package service

// In-memory repository fakes backing the service tests. They mimic the
// observable semantics of the mongo implementations: ErrNotFound on misses,
// duplicate-key rejection on selections, and exclusivity on activation.

import (
	"context"
	"errors"
	"sync"
	"time"

	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- User repository ---

type fakeUserRepo struct {
	users map[primitive.ObjectID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
}

func (r *fakeUserRepo) put(u *domain.User) *domain.User {
	if u.ID == primitive.NilObjectID {
		u.ID = primitive.NewObjectID()
	}
	r.users[u.ID] = u
	return u
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	cp := *user
	r.put(&cp)
	user.ID = cp.ID
	return cp.ID, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) AddAthleteIDToTrainer(_ context.Context, trainerID, athleteID primitive.ObjectID) error {
	trainer, ok := r.users[trainerID]
	if !ok {
		return repository.ErrNotFound
	}
	trainer.AthleteIDs = append(trainer.AthleteIDs, athleteID)
	return nil
}

func (r *fakeUserRepo) GetAthletesByTrainerID(_ context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	var athletes []domain.User
	for _, u := range r.users {
		if u.TrainerID != nil && *u.TrainerID == trainerID {
			athletes = append(athletes, *u)
		}
	}
	return athletes, nil
}

func (r *fakeUserRepo) SetTrainerForAthlete(_ context.Context, athleteID, trainerID primitive.ObjectID) error {
	athlete, ok := r.users[athleteID]
	if !ok {
		return repository.ErrNotFound
	}
	athlete.TrainerID = &trainerID
	return nil
}

// --- Template repository ---

type fakeTemplateRepo struct {
	templates map[primitive.ObjectID]*domain.ProgramTemplate
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: make(map[primitive.ObjectID]*domain.ProgramTemplate)}
}

func (r *fakeTemplateRepo) put(t *domain.ProgramTemplate) *domain.ProgramTemplate {
	if t.ID == primitive.NilObjectID {
		t.ID = primitive.NewObjectID()
	}
	for i := range t.Phases {
		if t.Phases[i].ID == primitive.NilObjectID {
			t.Phases[i].ID = primitive.NewObjectID()
		}
	}
	r.templates[t.ID] = t
	return t
}

func (r *fakeTemplateRepo) Create(_ context.Context, tmpl *domain.ProgramTemplate) (primitive.ObjectID, error) {
	r.put(tmpl)
	return tmpl.ID, nil
}

func (r *fakeTemplateRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ProgramTemplate, error) {
	t, ok := r.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	cp.Phases = append([]domain.ProgramPhase(nil), t.Phases...)
	cp.Slots = append([]domain.ExerciseSlot(nil), t.Slots...)
	return &cp, nil
}

func (r *fakeTemplateRepo) List(_ context.Context, filter repository.TemplateFilter) ([]domain.ProgramTemplate, error) {
	var out []domain.ProgramTemplate
	for _, t := range r.templates {
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if filter.Difficulty != "" && t.Difficulty != filter.Difficulty {
			continue
		}
		if filter.AuthorID != nil && t.AuthorID != *filter.AuthorID {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTemplateRepo) Update(_ context.Context, tmpl *domain.ProgramTemplate) error {
	if _, ok := r.templates[tmpl.ID]; !ok {
		return repository.ErrNotFound
	}
	r.templates[tmpl.ID] = tmpl
	return nil
}

// --- Subscription repository ---

// fakeSubscriptionRepo holds a reference to the ad-hoc fake because the real
// implementation clears both collections during ActivateExclusively.
type fakeSubscriptionRepo struct {
	subs  map[primitive.ObjectID]*domain.ProgramSubscription
	adhoc *fakeAdhocRepo
}

func newFakeSubscriptionRepo(adhoc *fakeAdhocRepo) *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{
		subs:  make(map[primitive.ObjectID]*domain.ProgramSubscription),
		adhoc: adhoc,
	}
}

func (r *fakeSubscriptionRepo) Create(_ context.Context, sub *domain.ProgramSubscription) (primitive.ObjectID, error) {
	cp := *sub
	if cp.ID == primitive.NilObjectID {
		cp.ID = primitive.NewObjectID()
	}
	cp.CreatedAt = time.Now().UTC()
	cp.StartDate = cp.CreatedAt
	r.subs[cp.ID] = &cp
	return cp.ID, nil
}

func (r *fakeSubscriptionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ProgramSubscription, error) {
	sub, ok := r.subs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *fakeSubscriptionRepo) GetByUserID(_ context.Context, userID primitive.ObjectID) ([]domain.ProgramSubscription, error) {
	var out []domain.ProgramSubscription
	for _, sub := range r.subs {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) GetNonTerminalByUserAndTemplate(_ context.Context, userID, templateID primitive.ObjectID) (*domain.ProgramSubscription, error) {
	for _, sub := range r.subs {
		if sub.UserID == userID && sub.ProgramID == templateID && !sub.Status.IsTerminal() {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSubscriptionRepo) Update(_ context.Context, sub *domain.ProgramSubscription) error {
	if _, ok := r.subs[sub.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *sub
	cp.UpdatedAt = time.Now().UTC()
	r.subs[sub.ID] = &cp
	return nil
}

func (r *fakeSubscriptionRepo) ActivateExclusively(_ context.Context, userID, subscriptionID primitive.ObjectID) error {
	target, ok := r.subs[subscriptionID]
	if !ok || target.UserID != userID || target.Status.IsTerminal() {
		return repository.ErrNotFound
	}
	for _, sub := range r.subs {
		if sub.UserID == userID {
			sub.IsCurrentlyActive = false
		}
	}
	_ = r.adhoc.DeactivateAllForUser(context.Background(), userID)
	target.IsCurrentlyActive = true
	target.Status = domain.SubscriptionActive
	return nil
}

func (r *fakeSubscriptionRepo) DeactivateAllForUser(_ context.Context, userID primitive.ObjectID) error {
	for _, sub := range r.subs {
		if sub.UserID == userID {
			sub.IsCurrentlyActive = false
		}
	}
	return nil
}

func (r *fakeSubscriptionRepo) CountByTemplateID(_ context.Context, templateID primitive.ObjectID) (int64, error) {
	var n int64
	for _, sub := range r.subs {
		if sub.ProgramID == templateID {
			n++
		}
	}
	return n, nil
}

// --- Ad-hoc session repository ---

type fakeAdhocRepo struct {
	sessions map[primitive.ObjectID]*domain.AdhocSession
}

func newFakeAdhocRepo() *fakeAdhocRepo {
	return &fakeAdhocRepo{sessions: make(map[primitive.ObjectID]*domain.AdhocSession)}
}

func (r *fakeAdhocRepo) Create(_ context.Context, session *domain.AdhocSession) (primitive.ObjectID, error) {
	cp := *session
	cp.ID = primitive.NewObjectID()
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	r.sessions[cp.ID] = &cp
	return cp.ID, nil
}

func (r *fakeAdhocRepo) GetByUserID(_ context.Context, userID primitive.ObjectID) ([]domain.AdhocSession, error) {
	var out []domain.AdhocSession
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeAdhocRepo) DeactivateAllForUser(_ context.Context, userID primitive.ObjectID) error {
	for _, s := range r.sessions {
		if s.UserID == userID {
			s.IsCurrentlyActive = false
		}
	}
	return nil
}

// --- Selection repository ---

type fakeSelectionRepo struct {
	rows []domain.UserExerciseSelection
}

func newFakeSelectionRepo() *fakeSelectionRepo {
	return &fakeSelectionRepo{}
}

func (r *fakeSelectionRepo) CreateMany(_ context.Context, selections []domain.UserExerciseSelection) error {
	for _, sel := range selections {
		if sel.SubscriptionID != nil {
			for _, existing := range r.rows {
				if existing.SubscriptionID != nil &&
					*existing.SubscriptionID == *sel.SubscriptionID &&
					existing.SlotNumber == sel.SlotNumber {
					return errors.New("duplicate selection for slot")
				}
			}
		}
		sel.ID = primitive.NewObjectID()
		r.rows = append(r.rows, sel)
	}
	return nil
}

func (r *fakeSelectionRepo) GetBySubscriptionID(_ context.Context, subscriptionID primitive.ObjectID) ([]domain.UserExerciseSelection, error) {
	var out []domain.UserExerciseSelection
	for _, sel := range r.rows {
		if sel.SubscriptionID != nil && *sel.SubscriptionID == subscriptionID {
			out = append(out, sel)
		}
	}
	return out, nil
}

func (r *fakeSelectionRepo) GetByStagingToken(_ context.Context, token string) ([]domain.UserExerciseSelection, error) {
	var out []domain.UserExerciseSelection
	for _, sel := range r.rows {
		if sel.SubscriptionID == nil && sel.StagingToken == token {
			out = append(out, sel)
		}
	}
	return out, nil
}

func (r *fakeSelectionRepo) BindStagedToSubscription(_ context.Context, token string, subscriptionID primitive.ObjectID) error {
	bound := false
	for i := range r.rows {
		if r.rows[i].SubscriptionID == nil && r.rows[i].StagingToken == token {
			subID := subscriptionID
			r.rows[i].SubscriptionID = &subID
			r.rows[i].StagingToken = ""
			bound = true
		}
	}
	if !bound {
		return repository.ErrNotFound
	}
	return nil
}

// --- Performance repository ---

type fakePerformanceRepo struct {
	rows []domain.WorkoutPerformance
}

func newFakePerformanceRepo() *fakePerformanceRepo {
	return &fakePerformanceRepo{}
}

func (r *fakePerformanceRepo) Create(_ context.Context, perf *domain.WorkoutPerformance) (primitive.ObjectID, error) {
	cp := *perf
	cp.ID = primitive.NewObjectID()
	cp.CompletedAt = time.Now().UTC()
	r.rows = append(r.rows, cp)
	return cp.ID, nil
}

func (r *fakePerformanceRepo) GetBySubscriptionID(_ context.Context, subscriptionID primitive.ObjectID) ([]domain.WorkoutPerformance, error) {
	var out []domain.WorkoutPerformance
	for _, p := range r.rows {
		if p.SubscriptionID == subscriptionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePerformanceRepo) CountBySubscriptionID(_ context.Context, subscriptionID primitive.ObjectID) (int64, error) {
	var n int64
	for _, p := range r.rows {
		if p.SubscriptionID == subscriptionID {
			n++
		}
	}
	return n, nil
}

// --- Exercise repository ---

type fakeExerciseRepo struct {
	exercises map[primitive.ObjectID]*domain.Exercise
}

func newFakeExerciseRepo() *fakeExerciseRepo {
	return &fakeExerciseRepo{exercises: make(map[primitive.ObjectID]*domain.Exercise)}
}

func (r *fakeExerciseRepo) put(e *domain.Exercise) *domain.Exercise {
	if e.ID == primitive.NilObjectID {
		e.ID = primitive.NewObjectID()
	}
	r.exercises[e.ID] = e
	return e
}

func (r *fakeExerciseRepo) Create(_ context.Context, exercise *domain.Exercise) (primitive.ObjectID, error) {
	r.put(exercise)
	return exercise.ID, nil
}

func (r *fakeExerciseRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	e, ok := r.exercises[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *fakeExerciseRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.Exercise, error) {
	var out []domain.Exercise
	for _, id := range ids {
		if e, ok := r.exercises[id]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

// --- Notifier ---

type notifyEvent struct {
	recipientID primitive.ObjectID
	templateKey string
	payload     map[string]string
}

// fakeNotifier records every dispatch. Notifications are sent from a
// goroutine, so reads go through the mutex and tests poll via events().
type fakeNotifier struct {
	mu   sync.Mutex
	sent []notifyEvent
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{}
}

func (n *fakeNotifier) Notify(_ context.Context, recipientID primitive.ObjectID, templateKey string, payload map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notifyEvent{recipientID: recipientID, templateKey: templateKey, payload: payload})
	return nil
}

func (n *fakeNotifier) events() []notifyEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyEvent(nil), n.sent...)
}

// --- Wiring helper ---

type testEnv struct {
	userRepo     *fakeUserRepo
	templateRepo *fakeTemplateRepo
	subRepo      *fakeSubscriptionRepo
	adhocRepo    *fakeAdhocRepo
	selRepo      *fakeSelectionRepo
	perfRepo     *fakePerformanceRepo
	exRepo       *fakeExerciseRepo
	notifier     *fakeNotifier

	catalog       CatalogService
	selections    SelectionService
	subscriptions SubscriptionService
	progress      ProgressService
}

func newTestEnv() *testEnv {
	adhocRepo := newFakeAdhocRepo()
	env := &testEnv{
		userRepo:     newFakeUserRepo(),
		templateRepo: newFakeTemplateRepo(),
		subRepo:      newFakeSubscriptionRepo(adhocRepo),
		adhocRepo:    adhocRepo,
		selRepo:      newFakeSelectionRepo(),
		perfRepo:     newFakePerformanceRepo(),
		exRepo:       newFakeExerciseRepo(),
		notifier:     newFakeNotifier(),
	}
	logger := zap.NewNop()
	env.catalog = NewCatalogService(env.templateRepo, env.subRepo, logger)
	env.selections = NewSelectionService(env.catalog, env.selRepo, env.exRepo)
	env.subscriptions = NewSubscriptionService(
		env.subRepo, env.perfRepo, env.userRepo, env.adhocRepo,
		env.catalog, env.selections, env.notifier, logger,
	)
	env.progress = NewProgressService(env.subRepo, env.perfRepo, env.catalog, logger)
	return env
}
