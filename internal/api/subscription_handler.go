// internal/api/subscription_handler.go
package api

import (
	"errors"
	"net/http"

	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
	selectionService    service.SelectionService
	progressService     service.ProgressService
}

func NewSubscriptionHandler(
	subscriptionService service.SubscriptionService,
	selectionService service.SelectionService,
	progressService service.ProgressService,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		selectionService:    selectionService,
		progressService:     progressService,
	}
}

// --- DTOs ---

type JoinProgramRequest struct {
	// Selections maps slot numbers to exercise IDs. Mutually exclusive with
	// StagingToken.
	Selections   map[string]string `json:"selections"`
	StagingToken string            `json:"stagingToken"`
	Activate     bool              `json:"activate"`
}

type UpdateStatusRequest struct {
	Status domain.SubscriptionStatus `json:"status" binding:"required,oneof=ACTIVE PAUSED ARCHIVED COMPLETED"`
}

type LogPerformanceRequest struct {
	SetsCompleted int    `json:"setsCompleted" binding:"min=0"`
	Notes         string `json:"notes"`
	Advance       bool   `json:"advance"`
}

type StartAdhocSessionRequest struct {
	Name string `json:"name" binding:"required"`
}

// --- Handler Methods ---

// JoinProgram godoc
// @Summary Join a program template
// @Description Enrolls the caller in a template. Repeating the call while an enrollment is live returns the existing subscription with 409.
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param templateId path string true "Template ID"
// @Param options body JoinProgramRequest false "Slot selections and activation flag"
// @Success 201 {object} domain.ProgramSubscription
// @Failure 400 {object} gin.H "Missing required slot / unknown slot"
// @Failure 404 {object} gin.H "Template not found"
// @Failure 409 {object} domain.ProgramSubscription "Already enrolled; body is the existing subscription"
// @Router /programs/{templateId}/join [post]
func (h *SubscriptionHandler) JoinProgram(c *gin.Context) {
	userID, ok := objectIDFromToken(c)
	if !ok {
		return
	}
	templateID, err := primitive.ObjectIDFromHex(c.Param("templateId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	// An empty body is a valid join with no selections.
	var req JoinProgramRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
	}

	opts := service.JoinOptions{
		StagingToken: req.StagingToken,
		Activate:     req.Activate,
	}
	if len(req.Selections) > 0 {
		selections, err := parseSelections(req.Selections)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		opts.Selections = selections
	}

	sub, err := h.subscriptionService.Join(c.Request.Context(), userID, templateID, opts)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyEnrolled) {
			// Idempotent join: surface the live subscription.
			c.JSON(http.StatusConflict, sub)
			return
		}
		abortSubscriptionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// ListMySubscriptions godoc
// @Summary List the caller's subscriptions
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.ProgramSubscription
// @Router /subscriptions [get]
func (h *SubscriptionHandler) ListMySubscriptions(c *gin.Context) {
	userID, ok := objectIDFromToken(c)
	if !ok {
		return
	}
	subs, err := h.subscriptionService.GetUserSubscriptions(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list subscriptions.")
		return
	}
	if subs == nil {
		subs = []domain.ProgramSubscription{}
	}
	c.JSON(http.StatusOK, subs)
}

// GetSubscription godoc
// @Summary Get one subscription
// @Description Visible to the owner and to trainers.
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Success 200 {object} domain.ProgramSubscription
// @Failure 404 {object} gin.H "Subscription not found"
// @Router /subscriptions/{id} [get]
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	sub, ok := h.loadVisibleSubscription(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Activate godoc
// @Summary Make a subscription the single currently-active session
// @Description Deactivates every other subscription and ad-hoc session of the user in the same transaction.
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Success 200 {object} domain.ProgramSubscription
// @Failure 400 {object} gin.H "Required slot selections missing"
// @Failure 409 {object} gin.H "Subscription is archived or completed"
// @Router /subscriptions/{id}/activate [post]
func (h *SubscriptionHandler) Activate(c *gin.Context) {
	userID, ok := objectIDFromToken(c)
	if !ok {
		return
	}
	subscriptionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid subscription ID format.")
		return
	}

	sub, err := h.subscriptionService.SetActive(c.Request.Context(), subscriptionID, userID)
	if err != nil {
		abortSubscriptionError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// UpdateStatus godoc
// @Summary Transition a subscription's lifecycle status
// @Description Allowed transitions: ACTIVE<->PAUSED, and either to ARCHIVED or COMPLETED. Terminal states never transition.
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Param status body UpdateStatusRequest true "Target status"
// @Success 200 {object} domain.ProgramSubscription
// @Failure 409 {object} gin.H "Transition not allowed from current status"
// @Router /subscriptions/{id}/status [patch]
func (h *SubscriptionHandler) UpdateStatus(c *gin.Context) {
	actorID, ok := objectIDFromToken(c)
	if !ok {
		return
	}
	subscriptionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid subscription ID format.")
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	sub, err := h.subscriptionService.SetStatus(c.Request.Context(), subscriptionID, actorID, req.Status)
	if err != nil {
		abortSubscriptionError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Advance godoc
// @Summary Advance the progression cursor by one day
// @Description Rolls day 7 into the next week, crosses phase boundaries, and completes the subscription past the final week.
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Success 200 {object} domain.ProgramSubscription
// @Failure 409 {object} gin.H "Subscription is archived or completed"
// @Router /subscriptions/{id}/advance [post]
func (h *SubscriptionHandler) Advance(c *gin.Context) {
	userID, ok := objectIDFromToken(c)
	if !ok {
		return
	}
	subscriptionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid subscription ID format.")
		return
	}

	// Only the owner advances their own cursor.
	sub, err := h.subscriptionService.GetSubscription(c.Request.Context(), subscriptionID)
	if err != nil {
		abortSubscriptionError(c, err)
		return
	}
	if sub.UserID != userID {
		abortWithError(c, http.StatusForbidden, service.ErrNotAuthorized.Error())
		return
	}

	sub, err = h.subscriptionService.Advance(c.Request.Context(), subscriptionID)
	if err != nil {
		abortSubscriptionError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// LogPerformance godoc
// @Summary Record a completed workout against the current cursor
// @Description Persists a performance entry, folds a completion into the adherence rate, and optionally advances the cursor.
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Param performance body LogPerformanceRequest true "Performance details"
// @Success 201 {object} domain.ProgramSubscription "Updated subscription after logging"
// @Failure 409 {object} gin.H "Subscription is archived or completed"
// @Router /subscriptions/{id}/performances [post]
func (h *SubscriptionHandler) LogPerformance(c *gin.Context) {
	userID, ok := objectIDFromToken(c)
	if !ok {
		return
	}
	subscriptionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid subscription ID format.")
		return
	}

	var req LogPerformanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	sub, err := h.subscriptionService.LogPerformance(c.Request.Context(), userID, subscriptionID, service.PerformanceEntry{
		SetsCompleted: req.SetsCompleted,
		Notes:         req.Notes,
		AndAdvance:    req.Advance,
	})
	if err != nil {
		abortSubscriptionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// ListPerformances godoc
// @Summary List logged performances for a subscription
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Success 200 {array} domain.WorkoutPerformance
// @Router /subscriptions/{id}/performances [get]
func (h *SubscriptionHandler) ListPerformances(c *gin.Context) {
	sub, ok := h.loadVisibleSubscription(c)
	if !ok {
		return
	}
	performances, err := h.progressService.GetPerformances(c.Request.Context(), sub.ID)
	if err != nil {
		abortSubscriptionError(c, err)
		return
	}
	if performances == nil {
		performances = []domain.WorkoutPerformance{}
	}
	c.JSON(http.StatusOK, performances)
}

// GetProgress godoc
// @Summary Progress summary for a subscription
// @Description Current phase, percent complete, adherence rate and workout counts.
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Success 200 {object} service.ProgressSummary
// @Router /subscriptions/{id}/progress [get]
func (h *SubscriptionHandler) GetProgress(c *gin.Context) {
	sub, ok := h.loadVisibleSubscription(c)
	if !ok {
		return
	}
	summary, err := h.progressService.GetProgress(c.Request.Context(), sub.ID)
	if err != nil {
		abortSubscriptionError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetSelections godoc
// @Summary Slot selections bound to a subscription
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subscription ID"
// @Success 200 {array} domain.UserExerciseSelection
// @Router /subscriptions/{id}/selections [get]
func (h *SubscriptionHandler) GetSelections(c *gin.Context) {
	sub, ok := h.loadVisibleSubscription(c)
	if !ok {
		return
	}
	selections, err := h.selectionService.GetSubscriptionSelections(c.Request.Context(), sub.ID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to load selections.")
		return
	}
	if selections == nil {
		selections = []domain.UserExerciseSelection{}
	}
	c.JSON(http.StatusOK, selections)
}

// AssignProgram godoc
// @Summary Assign a program to a coached athlete (Trainer only)
// @Description Joins the athlete to the template on the trainer's behalf and notifies them.
// @Tags Trainer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param athleteId path string true "Athlete ID"
// @Param templateId path string true "Template ID"
// @Param options body JoinProgramRequest false "Slot selections and activation flag"
// @Success 201 {object} domain.ProgramSubscription
// @Failure 403 {object} gin.H "No active coaching relationship"
// @Failure 409 {object} domain.ProgramSubscription "Athlete already enrolled; body is the existing subscription"
// @Router /trainer/athletes/{athleteId}/programs/{templateId} [post]
func (h *SubscriptionHandler) AssignProgram(c *gin.Context) {
	trainerID, ok := objectIDFromToken(c)
	if !ok {
		return
	}
	athleteID, err := primitive.ObjectIDFromHex(c.Param("athleteId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid athlete ID format.")
		return
	}
	templateID, err := primitive.ObjectIDFromHex(c.Param("templateId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	var req JoinProgramRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
	}

	opts := service.JoinOptions{
		StagingToken: req.StagingToken,
		Activate:     req.Activate,
	}
	if len(req.Selections) > 0 {
		selections, err := parseSelections(req.Selections)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		opts.Selections = selections
	}

	sub, err := h.subscriptionService.Assign(c.Request.Context(), trainerID, athleteID, templateID, opts)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyEnrolled) {
			c.JSON(http.StatusConflict, sub)
			return
		}
		abortSubscriptionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// StartAdhocSession godoc
// @Summary Start a free-form training session
// @Description Creates an ad-hoc session and makes it the caller's single active session, deactivating every program subscription.
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param session body StartAdhocSessionRequest true "Session name"
// @Success 201 {object} domain.AdhocSession
// @Failure 400 {object} gin.H "Missing session name"
// @Router /sessions/adhoc [post]
func (h *SubscriptionHandler) StartAdhocSession(c *gin.Context) {
	userID, ok := objectIDFromToken(c)
	if !ok {
		return
	}

	var req StartAdhocSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	session, err := h.subscriptionService.StartAdhocSession(c.Request.Context(), userID, req.Name)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to start session.")
		return
	}
	c.JSON(http.StatusCreated, session)
}

// ListAdhocSessions godoc
// @Summary List the caller's ad-hoc sessions
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.AdhocSession
// @Router /sessions/adhoc [get]
func (h *SubscriptionHandler) ListAdhocSessions(c *gin.Context) {
	userID, ok := objectIDFromToken(c)
	if !ok {
		return
	}
	sessions, err := h.subscriptionService.GetAdhocSessions(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list sessions.")
		return
	}
	if sessions == nil {
		sessions = []domain.AdhocSession{}
	}
	c.JSON(http.StatusOK, sessions)
}

// loadVisibleSubscription fetches the subscription and enforces read
// visibility: the owner always sees it, trainers see their athletes' data.
func (h *SubscriptionHandler) loadVisibleSubscription(c *gin.Context) (*domain.ProgramSubscription, bool) {
	userID, ok := objectIDFromToken(c)
	if !ok {
		return nil, false
	}
	subscriptionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid subscription ID format.")
		return nil, false
	}

	sub, err := h.subscriptionService.GetSubscription(c.Request.Context(), subscriptionID)
	if err != nil {
		abortSubscriptionError(c, err)
		return nil, false
	}
	if sub.UserID != userID {
		role, err := getUserRoleFromContext(c)
		if err != nil || role != domain.RoleTrainer {
			abortWithError(c, http.StatusForbidden, service.ErrNotAuthorized.Error())
			return nil, false
		}
	}
	return sub, true
}

// abortSubscriptionError maps subscription lifecycle errors to HTTP statuses.
func abortSubscriptionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubscriptionNotFound),
		errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrAthleteNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotAuthorized),
		errors.Is(err, service.ErrNoActiveRelationship):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrCannotActivateTerminal),
		errors.Is(err, service.ErrInvalidTransition):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrMissingRequiredSlot),
		errors.Is(err, service.ErrUnknownSlot),
		errors.Is(err, service.ErrUnexpectedSelections):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrDataIntegrity):
		abortWithError(c, http.StatusInternalServerError, "Subscription data could not be resolved.")
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred.")
	}
}
