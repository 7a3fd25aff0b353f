package api

import (
	"net/http"

	"peakform/coach-app/internal/domain"
	"peakform/coach-app/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	trainerService service.TrainerService,
	catalogService service.CatalogService,
	selectionService service.SelectionService,
	subscriptionService service.SubscriptionService,
	progressService service.ProgressService,
) {

	authHandler := NewAuthHandler(authService)
	trainerHandler := NewTrainerHandler(trainerService)
	templateHandler := NewTemplateHandler(catalogService, selectionService)
	subscriptionHandler := NewSubscriptionHandler(subscriptionService, selectionService, progressService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": role})
		})

		// --- Template Catalog ---
		templateGroup := protected.Group("/templates")
		{
			templateGroup.GET("", templateHandler.ListTemplates)
			templateGroup.GET("/:id", templateHandler.GetTemplate)
			templateGroup.POST("", RoleMiddleware(domain.RoleTrainer), templateHandler.CreateTemplate)
			templateGroup.PUT("/:id", RoleMiddleware(domain.RoleTrainer), templateHandler.UpdateTemplate)

			// Slot selection: dry-run validation and pre-join staging.
			templateGroup.POST("/:id/selections/validate", templateHandler.ValidateSelections)
			templateGroup.POST("/:id/selections/stage", templateHandler.StageSelections)
		}

		// --- Enrollment ---
		// POST /api/v1/programs/{templateId}/join
		protected.POST("/programs/:templateId/join", subscriptionHandler.JoinProgram)

		// --- Subscription Lifecycle & Progress ---
		subscriptionGroup := protected.Group("/subscriptions")
		{
			subscriptionGroup.GET("", subscriptionHandler.ListMySubscriptions)
			subscriptionGroup.GET("/:id", subscriptionHandler.GetSubscription)
			subscriptionGroup.POST("/:id/activate", subscriptionHandler.Activate)
			subscriptionGroup.PATCH("/:id/status", subscriptionHandler.UpdateStatus)
			subscriptionGroup.POST("/:id/advance", subscriptionHandler.Advance)
			subscriptionGroup.POST("/:id/performances", subscriptionHandler.LogPerformance)
			subscriptionGroup.GET("/:id/performances", subscriptionHandler.ListPerformances)
			subscriptionGroup.GET("/:id/progress", subscriptionHandler.GetProgress)
			subscriptionGroup.GET("/:id/selections", subscriptionHandler.GetSelections)
		}

		// --- Ad-hoc Sessions ---
		// Free-form training outside any template; shares the single-active
		// invariant with program subscriptions.
		sessionGroup := protected.Group("/sessions")
		{
			sessionGroup.POST("/adhoc", subscriptionHandler.StartAdhocSession)
			sessionGroup.GET("/adhoc", subscriptionHandler.ListAdhocSessions)
		}

		// --- Trainer Specific Routes ---
		trainerApiGroup := protected.Group("/trainer")
		trainerApiGroup.Use(RoleMiddleware(domain.RoleTrainer))
		{
			// POST /api/v1/trainer/athletes
			trainerApiGroup.POST("/athletes", trainerHandler.AddAthlete)
			// GET /api/v1/trainer/athletes
			trainerApiGroup.GET("/athletes", trainerHandler.ListAthletes)

			// POST /api/v1/trainer/athletes/{athleteId}/programs/{templateId}
			trainerApiGroup.POST("/athletes/:athleteId/programs/:templateId", subscriptionHandler.AssignProgram)
		}
	}
}
