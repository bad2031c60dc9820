package assessment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

// fakeStore is an in-memory Store used to exercise the engine's state
// machine without a database, mirroring the optimistic-concurrency
// contract of internal/store.DB.AppendResponse.
type fakeStore struct {
	mu sync.Mutex

	assignments   map[uuid.UUID]*models.AssignedAssessment
	templates     map[uuid.UUID]*models.AssessmentTemplate
	configs       map[uuid.UUID]*models.AssessmentConfig
	bank          []models.Item
	templateItems map[uuid.UUID][]models.TemplateItem
	sessions      map[uuid.UUID]*models.Session
	responses     map[uuid.UUID][]models.Response
	results       map[uuid.UUID]*models.Result
	recs          map[uuid.UUID][]models.RecommendedItem

	// loadHook, when set, runs after LoadSession reads its snapshot but
	// before returning it, letting tests force two callers to observe
	// the same pre-mutation state before either commits a change.
	loadHook func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		assignments:   map[uuid.UUID]*models.AssignedAssessment{},
		templates:     map[uuid.UUID]*models.AssessmentTemplate{},
		configs:       map[uuid.UUID]*models.AssessmentConfig{},
		templateItems: map[uuid.UUID][]models.TemplateItem{},
		sessions:      map[uuid.UUID]*models.Session{},
		responses:     map[uuid.UUID][]models.Response{},
		results:       map[uuid.UUID]*models.Result{},
		recs:          map[uuid.UUID][]models.RecommendedItem{},
	}
}

func (f *fakeStore) CreateSession(ctx context.Context, assignedID uuid.UUID, snapshot models.TemplateSnapshot, startingAbility float64, ttl time.Duration, now time.Time) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &models.Session{
		ID:               uuid.New(),
		AssignedID:       assignedID,
		CurrentAbility:   startingAbility,
		Status:           models.SessionInProgress,
		TemplateSnapshot: snapshot,
		StartedAt:        now,
		ExpiresAt:        now.Add(ttl),
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeStore) LoadSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	f.mu.Lock()
	s, ok := f.sessions[sessionID]
	var cp models.Session
	if ok {
		cp = *s
	}
	f.mu.Unlock()
	if !ok {
		return nil, apperr.New(apperr.NotFound, "session not found")
	}
	if f.loadHook != nil {
		f.loadHook()
	}
	return &cp, nil
}

func (f *fakeStore) LatestSessionForAssignment(ctx context.Context, assignedID uuid.UUID) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.AssignedID == assignedID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "no session for assignment")
}

func (f *fakeStore) AppendResponse(ctx context.Context, sessionID uuid.UUID, expectedIndex int, resp models.Response) (*models.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "session not found")
	}
	if s.CurrentIndex != expectedIndex {
		return nil, apperr.New(apperr.Conflict, "concurrent update")
	}
	resp.ID = uuid.New()
	resp.SessionID = sessionID
	f.responses[sessionID] = append(f.responses[sessionID], resp)
	s.CurrentIndex++
	s.QuestionsAnswered++
	return &resp, nil
}

func (f *fakeStore) ResponsesForSession(ctx context.Context, sessionID uuid.UUID) ([]models.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Response, len(f.responses[sessionID]))
	copy(out, f.responses[sessionID])
	return out, nil
}

func (f *fakeStore) UpdateSessionProgress(ctx context.Context, sessionID uuid.UUID, theta, se float64, status models.SessionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return apperr.New(apperr.NotFound, "session not found")
	}
	s.CurrentAbility = theta
	s.StandardError = se
	s.Status = status
	return nil
}

func (f *fakeStore) FinalizeSession(ctx context.Context, sessionID uuid.UUID, result models.Result, recs []models.RecommendedItem, now time.Time) (*models.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "session not found")
	}
	result.ID = uuid.New()
	result.SessionID = sessionID
	result.CreatedAt = now
	f.results[sessionID] = &result
	for i := range recs {
		recs[i].ResultID = result.ID
		recs[i].ID = uuid.New()
	}
	f.recs[result.ID] = recs
	s.Status = models.SessionCompleted
	s.CompletedAt = &now
	if assignment, ok := f.assignments[s.AssignedID]; ok {
		assignment.Status = models.AssignmentCompleted
	}
	return &result, nil
}

func (f *fakeStore) ResultForSession(ctx context.Context, sessionID uuid.UUID) (*models.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.results[sessionID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "result not found")
	}
	return r, nil
}

func (f *fakeStore) RecommendationsForResult(ctx context.Context, resultID uuid.UUID) ([]models.RecommendedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recs[resultID], nil
}

func (f *fakeStore) CancelSession(ctx context.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return apperr.New(apperr.NotFound, "session not found")
	}
	s.Status = models.SessionCancelled
	return nil
}

func (f *fakeStore) AssignedAssessmentByID(ctx context.Context, assignedID uuid.UUID) (*models.AssignedAssessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[assignedID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "assignment not found")
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) MarkAssignmentInProgress(ctx context.Context, assignedID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[assignedID]
	if !ok {
		return apperr.New(apperr.NotFound, "assignment not found")
	}
	a.Status = models.AssignmentInProgress
	return nil
}

func (f *fakeStore) TemplateByID(ctx context.Context, templateID uuid.UUID) (*models.AssessmentTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tpl, ok := f.templates[templateID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "template not found")
	}
	return tpl, nil
}

func (f *fakeStore) ActiveConfigForTemplate(ctx context.Context, templateID uuid.UUID) (*models.AssessmentConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.configs[templateID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "config not found")
	}
	return cfg, nil
}

func (f *fakeStore) ActiveItemsForTemplate(ctx context.Context, pathwayID uuid.UUID) ([]models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Item, len(f.bank))
	copy(out, f.bank)
	return out, nil
}

func (f *fakeStore) ItemByID(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.bank {
		if it.ID == itemID {
			cp := it
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "item not found")
}

func (f *fakeStore) TemplateItemsForTemplate(ctx context.Context, templateID uuid.UUID) ([]models.TemplateItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.templateItems[templateID], nil
}

func (f *fakeStore) RecordAudit(ctx context.Context, entry models.AuditLog) error {
	return nil
}
