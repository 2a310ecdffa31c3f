package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/recallhq/memory-api/internal/config"
	"github.com/recallhq/memory-api/internal/database"
	"github.com/recallhq/memory-api/internal/handlers"
	"github.com/recallhq/memory-api/internal/middleware"
	"github.com/recallhq/memory-api/internal/mirror"
	"github.com/recallhq/memory-api/internal/repository"
	"github.com/recallhq/memory-api/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Connect to the sync queue
	queue, err := mirror.NewRedisQueue(cfg.RedisHost+":"+cfg.RedisPort, cfg.RedisPassword, cfg.SyncQueue)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer queue.Close()

	// Initialize repositories and services
	db := database.GetDB()
	memoryRepo := repository.NewMemoryRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	userRepo := repository.NewUserRepository(db)
	keyRepo := repository.NewAPIKeyRepository(db)

	memoryService := services.NewMemoryService(memoryRepo, queue, logger)
	teamService := services.NewTeamService(teamRepo, orgRepo, userRepo, memoryService)
	orgService := services.NewOrganizationService(orgRepo, teamRepo, memoryService)
	authService := services.NewAuthService(userRepo, keyRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	memoryHandler := handlers.NewMemoryHandler(memoryService)
	teamHandler := handlers.NewTeamHandler(teamService)
	orgHandler := handlers.NewOrganizationHandler(orgService)

	// Initialize Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Memory API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.GET("/api-keys", middleware.RequireAPIKey(), authHandler.GetAPIKeys)
			auth.POST("/api-keys/regenerate-primary", middleware.RequireAPIKey(), authHandler.RegeneratePrimaryKey)
			auth.POST("/api-keys/regenerate-secondary", middleware.RequireAPIKey(), authHandler.RegenerateSecondaryKey)
		}

		// Memory routes (protected)
		memories := api.Group("/memories")
		memories.Use(middleware.RequireAPIKey())
		{
			me := memories.Group("/users/me")
			{
				me.GET("", memoryHandler.ListUserMemories)
				me.POST("", memoryHandler.CreateUserMemory)
				me.GET("/:memory_id", memoryHandler.GetUserMemory)
				me.PATCH("/:memory_id", memoryHandler.UpdateUserMemory)
				me.DELETE("/:memory_id", memoryHandler.DeleteUserMemory)
			}

			teams := memories.Group("/teams/:team_id")
			teams.Use(middleware.RequireTeamAccess())
			{
				teams.GET("", memoryHandler.ListTeamMemories)
				teams.POST("", memoryHandler.CreateTeamMemory)
				teams.GET("/:memory_id", memoryHandler.GetTeamMemory)
				teams.PATCH("/:memory_id", memoryHandler.UpdateTeamMemory)
				teams.DELETE("/:memory_id", memoryHandler.DeleteTeamMemory)
			}

			orgs := memories.Group("/orgs/:org_id")
			orgs.Use(middleware.RequireOrganizationAccess())
			{
				orgs.GET("", memoryHandler.ListOrganizationMemories)
				orgs.POST("", memoryHandler.CreateOrganizationMemory)
				orgs.GET("/:memory_id", memoryHandler.GetOrganizationMemory)
				orgs.PATCH("/:memory_id", memoryHandler.UpdateOrganizationMemory)
				orgs.DELETE("/:memory_id", memoryHandler.DeleteOrganizationMemory)
			}
		}

		// Organization and team management routes (protected)
		orgs := api.Group("/organizations")
		orgs.Use(middleware.RequireAPIKey())
		{
			orgs.GET("", orgHandler.ListOrganizations)
			orgs.POST("", orgHandler.CreateOrganization)
			orgs.GET("/:org_id", middleware.RequireOrganizationAccess(), orgHandler.GetOrganization)
			orgs.DELETE("/:org_id", middleware.RequireOrganizationAccess(), middleware.RequireOrganizationAdmin(), orgHandler.DeleteOrganization)

			teams := orgs.Group("/:org_id/teams")
			teams.Use(middleware.RequireOrganizationAccess())
			{
				teams.GET("", teamHandler.ListTeams)
				teams.POST("", middleware.RequireOrganizationAdmin(), teamHandler.CreateTeam)
				teams.GET("/:team_id", teamHandler.GetTeam)
				teams.PATCH("/:team_id", middleware.RequireOrganizationAdmin(), teamHandler.UpdateTeam)
				teams.DELETE("/:team_id", middleware.RequireOrganizationAdmin(), teamHandler.DeleteTeam)
				teams.GET("/:team_id/members", teamHandler.ListMembers)
				teams.POST("/:team_id/members", middleware.RequireOrganizationAdmin(), teamHandler.AddMember)
				teams.DELETE("/:team_id/members/:user_id", middleware.RequireOrganizationAdmin(), teamHandler.RemoveMember)
			}
		}
	}

	// Start server
	log.Println("Server starting on :8080")
	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
