// internal/api/template_handler.go
package api

import (
	"errors"
	"net/http"
	"strconv"

	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/repository"
	"peakform/coach-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TemplateHandler struct {
	catalogService   service.CatalogService
	selectionService service.SelectionService
}

func NewTemplateHandler(catalogService service.CatalogService, selectionService service.SelectionService) *TemplateHandler {
	return &TemplateHandler{
		catalogService:   catalogService,
		selectionService: selectionService,
	}
}

// --- DTOs ---

// SelectionsRequest maps slot numbers (as JSON object keys) to exercise IDs.
type SelectionsRequest struct {
	Selections map[string]string `json:"selections" binding:"required"`
}

type StageSelectionsResponse struct {
	StagingToken string                `json:"stagingToken"`
	Warnings     []service.SlotWarning `json:"warnings,omitempty"`
}

// parseSelections converts the wire shape into the service shape.
func parseSelections(raw map[string]string) (map[int]primitive.ObjectID, error) {
	selections := make(map[int]primitive.ObjectID, len(raw))
	for slotStr, exerciseHex := range raw {
		slotNumber, err := strconv.Atoi(slotStr)
		if err != nil {
			return nil, errors.New("slot keys must be numeric: " + slotStr)
		}
		exerciseID, err := primitive.ObjectIDFromHex(exerciseHex)
		if err != nil {
			return nil, errors.New("invalid exercise ID for slot " + slotStr)
		}
		selections[slotNumber] = exerciseID
	}
	return selections, nil
}

// --- Handler Methods ---

// CreateTemplate godoc
// @Summary Create a program template
// @Description Validates and stores a new periodized program template.
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param template body domain.ProgramTemplate true "Template definition"
// @Success 201 {object} domain.ProgramTemplate
// @Failure 400 {object} gin.H "Malformed template structure"
// @Failure 401 {object} gin.H "Unauthorized"
// @Router /templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	trainerID, ok := objectIDFromToken(c)
	if !ok {
		return
	}

	var tmpl domain.ProgramTemplate
	if err := c.ShouldBindJSON(&tmpl); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	created, err := h.catalogService.CreateTemplate(c.Request.Context(), trainerID, &tmpl)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedTemplate) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to create template.")
		}
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetTemplate godoc
// @Summary Get a single program template
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Success 200 {object} domain.ProgramTemplate
// @Failure 404 {object} gin.H "Template not found"
// @Router /templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	templateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	tmpl, err := h.catalogService.GetTemplate(c.Request.Context(), templateID)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve template.")
		}
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// ListTemplates godoc
// @Summary List program templates
// @Description Lists templates, optionally filtered by category/difficulty, or only the caller's own (mine=true).
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.ProgramTemplate
// @Router /templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	filter := repository.TemplateFilter{
		Category:   c.Query("category"),
		Difficulty: c.Query("difficulty"),
	}
	if c.Query("mine") == "true" {
		userID, ok := objectIDFromToken(c)
		if !ok {
			return
		}
		filter.AuthorID = &userID
	}

	templates, err := h.catalogService.ListTemplates(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list templates.")
		return
	}
	if templates == nil {
		templates = []domain.ProgramTemplate{}
	}
	c.JSON(http.StatusOK, templates)
}

// UpdateTemplate godoc
// @Summary Update a program template
// @Description Rejected once any athlete is subscribed to the template.
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Success 200 {object} domain.ProgramTemplate
// @Failure 409 {object} gin.H "Template already has subscriptions"
// @Router /templates/{id} [put]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	trainerID, ok := objectIDFromToken(c)
	if !ok {
		return
	}
	templateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	var tmpl domain.ProgramTemplate
	if err := c.ShouldBindJSON(&tmpl); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	tmpl.ID = templateID

	updated, err := h.catalogService.UpdateTemplate(c.Request.Context(), trainerID, &tmpl)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTemplateNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrTemplateAccessDenied):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrTemplateInUse):
			abortWithError(c, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrMalformedTemplate):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to update template.")
		}
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ValidateSelections godoc
// @Summary Dry-run slot selection validation
// @Description Validates a selection map against the template's slots without persisting anything.
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Param selections body SelectionsRequest true "Slot number to exercise ID map"
// @Success 200 {object} service.ValidatedSelections
// @Failure 400 {object} gin.H "Missing required slot / unknown slot / unexpected selections"
// @Router /templates/{id}/selections/validate [post]
func (h *TemplateHandler) ValidateSelections(c *gin.Context) {
	templateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	var req SelectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	selections, err := parseSelections(req.Selections)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	validated, err := h.selectionService.ResolveSelections(c.Request.Context(), templateID, selections)
	if err != nil {
		abortSelectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, validated)
}

// StageSelections godoc
// @Summary Stage slot selections before joining
// @Description Persists a validated selection set under a staging token for a later join.
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Param selections body SelectionsRequest true "Slot number to exercise ID map"
// @Success 201 {object} StageSelectionsResponse
// @Router /templates/{id}/selections/stage [post]
func (h *TemplateHandler) StageSelections(c *gin.Context) {
	userID, ok := objectIDFromToken(c)
	if !ok {
		return
	}
	templateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	var req SelectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	selections, err := parseSelections(req.Selections)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	token, validated, err := h.selectionService.StageSelections(c.Request.Context(), userID, templateID, selections)
	if err != nil {
		abortSelectionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, StageSelectionsResponse{
		StagingToken: token,
		Warnings:     validated.Warnings,
	})
}

// abortSelectionError maps slot-resolution errors to HTTP statuses.
func abortSelectionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTemplateNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrMissingRequiredSlot),
		errors.Is(err, service.ErrUnknownSlot),
		errors.Is(err, service.ErrUnexpectedSelections):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve selections.")
	}
}

// objectIDFromToken pulls the authenticated user's ObjectID out of the gin
// context, aborting the request on failure.
func objectIDFromToken(c *gin.Context) (primitive.ObjectID, bool) {
	idStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID format in token.")
		return primitive.NilObjectID, false
	}
	return id, true
}
