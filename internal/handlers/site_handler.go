package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/jhcramos/urbix-api/internal/errors"
	"github.com/jhcramos/urbix-api/internal/middleware"
	"github.com/jhcramos/urbix-api/internal/models"
	"github.com/jhcramos/urbix-api/internal/resolver"
	"github.com/jhcramos/urbix-api/internal/services"
)

// SiteHandler handles site intelligence HTTP requests.
type SiteHandler struct {
	service services.SiteService
}

// NewSiteHandler creates a new SiteHandler instance.
func NewSiteHandler(service services.SiteService) *SiteHandler {
	return &SiteHandler{
		service: service,
	}
}

// SiteRequest represents the site selector query parameters. Exactly one of
// lot+plan, lat+lng or address is used, in that order of precedence.
type SiteRequest struct {
	Lot     string   `form:"lot" binding:"omitempty,max=20"`
	Plan    string   `form:"plan" binding:"omitempty,max=20"`
	Address string   `form:"address" binding:"omitempty,max=200"`
	Lat     *float64 `form:"lat" binding:"omitempty,min=-90,max=90"`
	Lng     *float64 `form:"lng" binding:"omitempty,min=-180,max=180"`
}

// BuildabilityRequest adds the optional zone override.
type BuildabilityRequest struct {
	SiteRequest
	Zone string `form:"zone" binding:"omitempty,max=120"`
}

// SearchRequest represents the address search query parameters.
type SearchRequest struct {
	Q     string `form:"q" binding:"required,min=3"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

// StatsUnavailableResponse is returned by the stats endpoint without a local index.
type StatsUnavailableResponse struct {
	Database string `json:"database"`
}

// selector converts the request into a resolver selector.
func (r SiteRequest) selector() resolver.Selector {
	sel := resolver.Selector{Lot: r.Lot, Plan: r.Plan, Address: r.Address}
	if r.Lat != nil && r.Lng != nil {
		sel.Point = &models.Point{Lat: *r.Lat, Lng: *r.Lng}
	}
	return sel.Normalize()
}

// Report handles GET /api/v1/site-report endpoint.
// It resolves the site and returns the full composed report.
func (h *SiteHandler) Report(c *gin.Context) {
	var req SiteRequest
	if !bindSite(c, &req) {
		return
	}
	logRequest(c, "Processing site report request", req)

	report, err := h.service.Report(c.Request.Context(), req.selector())
	if err != nil {
		apierrors.FromError(c, err, "Failed to build site report")
		return
	}

	middleware.SetSite(c, middleware.Site{
		LotPlan:  report.SiteInfo.LotPlan,
		Source:   report.SiteInfo.ParcelSource,
		Degraded: report.Snapshot.Degraded,
	})
	c.JSON(http.StatusOK, report)
}

// Lookup handles GET /api/v1/lookup endpoint.
// It returns the resolved parcel with its zone and centroids.
func (h *SiteHandler) Lookup(c *gin.Context) {
	var req SiteRequest
	if !bindSite(c, &req) {
		return
	}
	logRequest(c, "Processing lookup request", req)

	res, err := h.service.Lookup(c.Request.Context(), req.selector())
	if err != nil {
		apierrors.FromError(c, err, "Failed to look up parcel")
		return
	}

	middleware.SetSite(c, middleware.Site{
		LotPlan:  res.Parcel.LotPlan(),
		Source:   res.Source,
		Degraded: res.Degraded,
	})
	c.JSON(http.StatusOK, res)
}

// Buildability handles GET /api/v1/buildability endpoint.
func (h *SiteHandler) Buildability(c *gin.Context) {
	var req BuildabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	if !pairedCoordinates(c, req.SiteRequest) {
		return
	}
	logRequest(c, "Processing buildability request", req.SiteRequest)

	res, err := h.service.Buildability(c.Request.Context(), req.selector(), req.Zone)
	if err != nil {
		apierrors.FromError(c, err, "Failed to calculate buildability")
		return
	}

	middleware.SetSite(c, middleware.Site{
		LotPlan:  res.SiteInfo.LotPlan,
		Source:   res.SiteInfo.ParcelSource,
		Degraded: res.Degraded,
	})
	c.JSON(http.StatusOK, res)
}

// Search handles GET /api/v1/search endpoint.
func (h *SiteHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.Limit == 0 {
		req.Limit = services.DefaultSearchLimit
	}

	res, err := h.service.Search(c.Request.Context(), req.Q, req.Limit)
	if err != nil {
		apierrors.FromError(c, err, "Failed to search addresses")
		return
	}

	c.JSON(http.StatusOK, res)
}

// Stats handles GET /api/v1/stats endpoint.
func (h *SiteHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		if errors.Is(err, services.ErrIndexUnavailable) {
			c.JSON(http.StatusOK, StatsUnavailableResponse{Database: "not available"})
			return
		}
		apierrors.InternalServerError(c, "Failed to read index statistics", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func bindSite(c *gin.Context, req *SiteRequest) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		bindError(c, err)
		return false
	}
	return pairedCoordinates(c, *req)
}

func bindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		apierrors.ValidationError(c, validationErrors)
		return
	}
	apierrors.BadRequest(c, "Invalid query parameters", nil)
}

// pairedCoordinates rejects a lat without a lng and vice versa.
func pairedCoordinates(c *gin.Context, req SiteRequest) bool {
	if (req.Lat == nil) != (req.Lng == nil) {
		apierrors.BadRequest(c, "lat and lng must be provided together", nil)
		return false
	}
	return true
}

func logRequest(c *gin.Context, msg string, req SiteRequest) {
	log := middleware.GetLogger(c)
	if log == nil {
		return
	}
	fields := map[string]interface{}{}
	if req.Lot != "" || req.Plan != "" {
		fields["lot"] = req.Lot
		fields["plan"] = req.Plan
	}
	if req.Lat != nil && req.Lng != nil {
		fields["lat"] = *req.Lat
		fields["lng"] = *req.Lng
	}
	if req.Address != "" {
		fields["address"] = req.Address
	}
	log.Info(msg, fields)
}
