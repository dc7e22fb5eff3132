// internal/handlers/ingest.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/partforge/catalog-backend/internal/services"
	"github.com/partforge/catalog-backend/internal/utils"
)

type IngestHandler struct {
	ingestService *services.IngestService
}

func NewIngestHandler(ingestService *services.IngestService) *IngestHandler {
	return &IngestHandler{ingestService: ingestService}
}

type ingestRequest struct {
	Tuples []services.IngestTuple `json:"tuples" binding:"required"`
}

// Ingest handles POST /v1/ingest. Every tuple in the batch gets an explicit
// per-tuple status; a rejected tuple never blocks its neighbors.
func (h *IngestHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid ingest payload", err.Error())
		return
	}

	if len(req.Tuples) == 0 {
		utils.BadRequestResponse(c, "Batch must contain at least one tuple", nil)
		return
	}

	results := h.ingestService.Ingest(req.Tuples)

	accepted := 0
	for _, r := range results {
		if r.Status != services.TupleRejected {
			accepted++
		}
	}

	utils.SuccessResponseWithMeta(c, results, gin.H{
		"total":    len(results),
		"accepted": accepted,
		"rejected": len(results) - accepted,
	})
}
