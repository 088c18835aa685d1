package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"casecounsel/internal/app"
	"casecounsel/internal/transport/http/response"
)

type LawyerHandler struct {
	lawyerService *app.LawyerService
}

type UpsertLawyerProfileRequest struct {
	Name            string  `json:"name" binding:"required,max=128"`
	Specialty       string  `json:"specialty" binding:"required,max=128"`
	City            string  `json:"city" binding:"max=128"`
	Latitude        float64 `json:"latitude" binding:"gte=-90,lte=90"`
	Longitude       float64 `json:"longitude" binding:"gte=-180,lte=180"`
	YearsExperience int     `json:"years_experience" binding:"gte=0,lte=80"`
	Bio             string  `json:"bio" binding:"max=2000"`
}

func NewLawyerHandler(lawyerService *app.LawyerService) *LawyerHandler {
	return &LawyerHandler{lawyerService: lawyerService}
}

func (h *LawyerHandler) UpsertProfile(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req UpsertLawyerProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	lawyer, err := h.lawyerService.UpsertProfile(app.LawyerProfileInput{
		UserID:          userID,
		Name:            req.Name,
		Specialty:       req.Specialty,
		City:            req.City,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		YearsExperience: req.YearsExperience,
		Bio:             req.Bio,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrNotLawyer):
			response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "save lawyer profile failed")
		}
		return
	}

	response.OK(c, lawyer)
}

func (h *LawyerHandler) Get(c *gin.Context) {
	lawyerID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || lawyerID64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid lawyer id")
		return
	}

	lawyer, err := h.lawyerService.Get(uint(lawyerID64))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrLawyerNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch lawyer failed")
		}
		return
	}

	response.OK(c, lawyer)
}

func (h *LawyerHandler) Search(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	lawyers, err := h.lawyerService.Search(c.Query("q"), c.Query("city"), limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "search lawyers failed")
		return
	}
	response.OK(c, lawyers)
}

func (h *LawyerHandler) Nearby(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "lat and lng are required")
		return
	}

	radiusKM := 25.0
	if raw := c.Query("radius_km"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid radius_km")
			return
		}
		radiusKM = parsed
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	nearby, err := h.lawyerService.Nearby(lat, lng, radiusKM, limit)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "nearby search failed")
		}
		return
	}
	response.OK(c, nearby)
}
