// internal/interfaces/http/handlers/import.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maloune/storefront/internal/domain/product"
	"github.com/maloune/storefront/internal/domain/supplier"
	"github.com/maloune/storefront/internal/interfaces/http/middleware"
	"github.com/sirupsen/logrus"
)

// ImportService searches the supplier and imports its products
type ImportService interface {
	Search(ctx context.Context, query string, page, pageSize int) ([]product.Preview, int, error)
	SearchAndImport(ctx context.Context, query string, page, pageSize, limit int) (*product.ImportSummary, error)
	ImportMany(ctx context.Context, records []supplier.Record) *product.ImportSummary
}

// ImportHandler handles the admin supplier import endpoints
type ImportHandler struct {
	importer ImportService
	logger   *logrus.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importer ImportService, logger *logrus.Logger) *ImportHandler {
	return &ImportHandler{
		importer: importer,
		logger:   logger,
	}
}

// SearchRequest represents a supplier search
type SearchRequest struct {
	Query    string `json:"query" binding:"required"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// ImportRequest imports either explicit records or the results of a search
type ImportRequest struct {
	Records  []supplier.Record `json:"records"`
	Query    string            `json:"query"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Limit    int               `json:"limit"`
}

// Search handles POST /admin/import/search
func (h *ImportHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	previews, total, err := h.importer.Search(c.Request.Context(), req.Query, req.Page, req.PageSize)
	if err != nil {
		h.supplierError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Supplier products retrieved successfully",
		"data": gin.H{
			"products": previews,
			"total":    total,
		},
	})
}

// Import handles POST /admin/import
func (h *ImportHandler) Import(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	log := h.logger.WithField("operator", c.GetString(middleware.OperatorKey))

	var summary *product.ImportSummary
	switch {
	case len(req.Records) > 0:
		summary = h.importer.ImportMany(c.Request.Context(), req.Records)
	case req.Query != "":
		var err error
		summary, err = h.importer.SearchAndImport(c.Request.Context(), req.Query, req.Page, req.PageSize, req.Limit)
		if err != nil {
			h.supplierError(c, err)
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Either records or query is required",
		})
		return
	}

	log.WithField("summary", summary.String()).Info("Admin import finished")

	c.JSON(http.StatusOK, gin.H{
		"message": "Import finished",
		"data":    summary,
	})
}

func (h *ImportHandler) supplierError(c *gin.Context, err error) {
	var apiErr *supplier.APIError

	switch {
	case errors.Is(err, supplier.ErrSupplierUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Supplier API unavailable, please retry shortly",
		})
	case errors.Is(err, supplier.ErrAuthFailed):
		h.logger.WithError(err).Error("Supplier authentication failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Supplier authentication failed",
		})
	case errors.As(err, &apiErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error": apiErr.Message,
			"code":  apiErr.Code,
		})
	default:
		h.logger.WithError(err).Error("Supplier request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Supplier request failed",
		})
	}
}
