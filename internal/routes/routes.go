package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/medirx/internal/config"
	"github.com/example/medirx/internal/handlers"
	"github.com/example/medirx/internal/ledger"
	"github.com/example/medirx/internal/middleware"
	"github.com/example/medirx/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	ledgerService := ledger.NewService(db)
	recorder := ledger.NewRecorder(ledgerService)
	tokenService := services.NewTokenService(db, cfg)

	authHandler := handlers.NewAuthHandler(db, tokenService)
	doctorHandler := handlers.NewDoctorHandler(db)
	prescriptionHandler := handlers.NewPrescriptionHandler(db, recorder)
	comparisonHandler := handlers.NewComparisonHandler(db, recorder)
	activityHandler := handlers.NewActivityHandler(db)
	badgeHandler := handlers.NewBadgeHandler(db, ledgerService)
	rewardHandler := handlers.NewRewardHandler(db, ledgerService)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", authHandler.Logout)

	// Public doctor directory
	doctors := api.Group("/doctors")
	doctors.Get("/", doctorHandler.ListDoctors)
	doctors.Get("/:id", doctorHandler.GetDoctor)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Post("/auth/logout-all", authHandler.LogoutAll)

	folders := protected.Group("/folders")
	folders.Get("/", prescriptionHandler.ListFolders)
	folders.Post("/", prescriptionHandler.CreateFolder)
	folders.Put("/:id", prescriptionHandler.UpdateFolder)
	folders.Delete("/:id", prescriptionHandler.DeleteFolder)

	prescriptions := protected.Group("/prescriptions")
	prescriptions.Get("/", prescriptionHandler.ListPrescriptions)
	prescriptions.Post("/", prescriptionHandler.CreatePrescription)
	prescriptions.Get("/:id", prescriptionHandler.GetPrescription)
	prescriptions.Delete("/:id", prescriptionHandler.DeletePrescription)

	comparisons := protected.Group("/comparisons")
	comparisons.Get("/", comparisonHandler.ListComparisons)
	comparisons.Post("/", comparisonHandler.CompareMedicines)

	rewards := protected.Group("/rewards")
	rewards.Get("/balance", rewardHandler.GetBalance)
	rewards.Get("/details", rewardHandler.GetRewardDetails)
	rewards.Get("/transactions", rewardHandler.ListTransactions)
	rewards.Post("/convert", rewardHandler.ConvertRewardPoints)
	rewards.Get("/conversions/summary", rewardHandler.GetConversionSummary)

	// Admin-only configuration
	admin := protected.Group("", middleware.RequireRole("admin"))

	admin.Post("/doctors", doctorHandler.CreateDoctor)
	admin.Put("/doctors/:id", doctorHandler.UpdateDoctor)
	admin.Delete("/doctors/:id", doctorHandler.DeleteDoctor)

	activities := admin.Group("/activities")
	activities.Get("/", activityHandler.ListActivities)
	activities.Post("/", activityHandler.CreateActivity)
	activities.Put("/:id", activityHandler.UpdateActivity)
	activities.Delete("/:id", activityHandler.DeleteActivity)

	rules := admin.Group("/reward-rules")
	rules.Get("/", activityHandler.ListRewardRules)
	rules.Post("/", activityHandler.CreateRewardRule)
	rules.Put("/:id", activityHandler.UpdateRewardRule)

	badges := admin.Group("/badges")
	badges.Get("/", badgeHandler.ListBadges)
	badges.Post("/", badgeHandler.CreateBadge)
	badges.Get("/:id", badgeHandler.GetBadge)
	badges.Put("/:id", badgeHandler.UpdateBadge)
	badges.Delete("/:id", badgeHandler.DeleteBadge)

	assignments := admin.Group("/badge-assignments")
	assignments.Post("/", badgeHandler.AssignBadge)
	assignments.Put("/:id", badgeHandler.UpdateBadgeAssignment)
	assignments.Delete("/:id", badgeHandler.RemoveBadgeAssignment)

	admin.Get("/users/:userId/badges", badgeHandler.ListUserBadges)
}
