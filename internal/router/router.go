// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/partforge/catalog-backend/internal/config"
	"github.com/partforge/catalog-backend/internal/handlers"
	"github.com/partforge/catalog-backend/internal/middleware"
	"github.com/partforge/catalog-backend/internal/services"
)

func Initialize(db *gorm.DB, cfg *config.Config) (*gin.Engine, error) {
	// Initialize services
	normalizerService := services.NewNormalizerService()
	ledgerService := services.NewLedgerService(db, cfg.Engine.LedgerDedupWindowHours)
	classifierService := services.NewClassifierService(db, cfg.Engine.ClassifierFloor)
	dedupService := services.NewDedupService(db, ledgerService, cfg.Engine.DedupNameSimilarity)
	catalogService := services.NewCatalogService(db, ledgerService)
	ingestService := services.NewIngestService(db, normalizerService, ledgerService, classifierService)
	reportService := services.NewReportService(db, normalizerService, cfg.Engine.UnderTrackedThreshold)

	compatService := services.NewCompatService(db)
	if err := compatService.LoadConstraints(); err != nil {
		return nil, err
	}

	// Initialize handlers
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	ingestHandler := handlers.NewIngestHandler(ingestService)
	buildHandler := handlers.NewBuildHandler(compatService)
	repairHandler := handlers.NewRepairHandler(dedupService, reportService, classifierService)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Catalog query routes
		catalog := v1.Group("/catalog")
		{
			catalog.GET("/:category", catalogHandler.ListComponents)
			catalog.GET("/:category/:id", catalogHandler.GetComponent)
			catalog.GET("/:category/:id/history", catalogHandler.GetHistory)
		}

		// Ingestion route for the scraping collaborator
		ingest := v1.Group("/ingest")
		ingest.Use(middleware.IngestRateLimit())
		{
			ingest.POST("", ingestHandler.Ingest)
		}

		// Build evaluation
		builds := v1.Group("/builds")
		{
			builds.POST("/evaluate", buildHandler.Evaluate)
		}

		// Repair reports and confirm-gated merges
		repair := v1.Group("/repair")
		{
			repair.GET("/duplicates/:category", repairHandler.GetDuplicates)
			repair.GET("/unclassified/:category", repairHandler.GetUnclassified)
			repair.GET("/held/:category", repairHandler.GetHeldForReview)
			repair.GET("/misfiled/:category", repairHandler.GetMisfiled)
			repair.GET("/under-tracked", repairHandler.GetUnderTracked)
			repair.POST("/merge", middleware.RepairRateLimit(), repairHandler.Merge)
		}
	}

	return r, nil
}
