package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	handler "crm-reconciliation-backend/internal/handlers"
	"crm-reconciliation-backend/internal/logger"
	"crm-reconciliation-backend/internal/repository"
	"crm-reconciliation-backend/internal/scoring"
	"crm-reconciliation-backend/internal/services/leads"
	"crm-reconciliation-backend/internal/services/matching"
	service "crm-reconciliation-backend/internal/services/reconciliation"
)

type Options struct {
	Policy      matching.Policy
	PhoneRegion string
	Log         *logger.Logger
}

// RegisterRoutes wires repositories, services and handlers under /api.
// The reconciliation service is returned so the caller can wait for
// background imports on shutdown.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, opts Options) *service.ReconciliationService {
	reconService := service.NewReconciliationService(service.Repositories{
		Transactions: repository.NewBankTransactionRepository(db),
		Invoices:     repository.NewInvoiceRepository(db),
		Expenses:     repository.NewExpenseRepository(db),
		Payments:     repository.NewPaymentRepository(db),
		Batches:      repository.NewImportBatchRepository(db),
	}, matching.NewMatcher(opts.Policy), opts.Log)

	leadService := leads.NewService(
		repository.NewLeadRepository(db),
		scoring.NewScorer(scoring.DefaultWeights()),
		opts.PhoneRegion,
		opts.Log,
	)

	reconHandler := handler.NewReconciliationHandler(reconService, opts.Log)
	targetHandler := handler.NewTargetHandler(reconService, opts.Log)
	leadHandler := handler.NewLeadHandler(leadService, opts.Log)

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	recon := api.Group("/reconciliation")
	recon.GET("/transactions", reconHandler.ListTransactions)
	recon.GET("/transactions/:id", reconHandler.GetTransaction)
	recon.GET("/transactions/:id/suggestions", reconHandler.Suggestions)
	recon.POST("/transactions/:id/match", reconHandler.Match)
	recon.POST("/transactions/:id/unmatch", reconHandler.Unmatch)
	recon.POST("/transactions/:id/ignore", reconHandler.Ignore)
	recon.POST("/transactions/:id/unignore", reconHandler.Unignore)
	recon.POST("/import", reconHandler.Upload)
	recon.GET("/import/:batchId", reconHandler.GetBatch)

	api.POST("/invoices", targetHandler.CreateInvoice)
	api.POST("/expenses", targetHandler.CreateExpense)
	api.POST("/payments", targetHandler.CreatePayment)

	leadRoutes := api.Group("/leads")
	{
		leadRoutes.GET("", leadHandler.List)
		leadRoutes.POST("", leadHandler.Create)
		leadRoutes.GET("/:id", leadHandler.Get)
		leadRoutes.PATCH("/:id", leadHandler.Update)
		leadRoutes.POST("/:id/convert", leadHandler.Convert)
	}

	return reconService
}
