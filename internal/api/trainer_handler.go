// internal/api/trainer_handler.go
package api

import (
	"errors"
	"fmt"
	"net/http"

	"peakform/coach-app/internal/service"

	"github.com/gin-gonic/gin"
)

type TrainerHandler struct {
	trainerService service.TrainerService
}

func NewTrainerHandler(trainerService service.TrainerService) *TrainerHandler {
	return &TrainerHandler{trainerService: trainerService}
}

// --- DTOs ---

type AddAthleteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// --- Handler Methods ---

// AddAthlete godoc
// @Summary Add an athlete to the trainer's roster (Trainer only)
// @Description Finds an existing athlete user by email and links them to the calling trainer.
// @Tags Trainer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param athlete body AddAthleteRequest true "Athlete's email"
// @Success 200 {object} UserResponse "Athlete added (or already on the roster)"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Athlete not found"
// @Failure 409 {object} gin.H "Athlete coached by another trainer"
// @Router /trainer/athletes [post]
func (h *TrainerHandler) AddAthlete(c *gin.Context) {
	trainerID, ok := objectIDFromToken(c)
	if !ok {
		return
	}

	var req AddAthleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	athlete, err := h.trainerService.AddAthleteByEmail(c.Request.Context(), trainerID, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAthleteNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrAthleteNotRole):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrAthleteAlreadyCoached):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to add athlete.")
		}
		return
	}

	c.JSON(http.StatusOK, MapUserToResponse(athlete))
}

// ListAthletes godoc
// @Summary List the trainer's coached athletes (Trainer only)
// @Tags Trainer
// @Produce json
// @Security BearerAuth
// @Success 200 {array} UserResponse
// @Router /trainer/athletes [get]
func (h *TrainerHandler) ListAthletes(c *gin.Context) {
	trainerID, ok := objectIDFromToken(c)
	if !ok {
		return
	}

	athletes, err := h.trainerService.GetCoachedAthletes(c.Request.Context(), trainerID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list athletes.")
		return
	}

	c.JSON(http.StatusOK, MapUsersToResponse(athletes))
}
