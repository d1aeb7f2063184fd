package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"anoa.com/pharmatrade/internal/modules/pharmacy/dto"
	pharmacy "anoa.com/pharmatrade/internal/modules/pharmacy/service"
	"anoa.com/pharmatrade/pkg/response"
)

type PharmacyHandler struct {
	service pharmacy.PharmacyService
}

func NewPharmacyHandler(service pharmacy.PharmacyService) *PharmacyHandler {
	return &PharmacyHandler{service: service}
}

func (h *PharmacyHandler) CreatePharmacy(c *gin.Context) {
	var req dto.CreatePharmacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *PharmacyHandler) GetPharmacies(c *gin.Context) {
	var filter dto.PharmacyFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, err)
		return
	}

	res, err := h.service.ListPaginated(c.Request.Context(), filter, filter.Page, filter.SizeOrDefault())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *PharmacyHandler) GetPharmacy(c *gin.Context) {
	id, err := response.ParamID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *PharmacyHandler) GetPharmacyByName(c *gin.Context) {
	res, err := h.service.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *PharmacyHandler) SearchPharmacies(c *gin.Context) {
	var query dto.SearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err)
		return
	}

	res, err := h.service.Search(c.Request.Context(), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *PharmacyHandler) CountPharmacies(c *gin.Context) {
	var filter dto.PharmacyFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, err)
		return
	}

	n, err := h.service.Count(c.Request.Context(), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *PharmacyHandler) CheckName(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	exists, err := h.service.NameExists(c.Request.Context(), name)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func (h *PharmacyHandler) UpdatePharmacy(c *gin.Context) {
	id, err := response.ParamID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.UpdatePharmacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Update(c.Request.Context(), userID, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *PharmacyHandler) DeletePharmacy(c *gin.Context) {
	id, err := response.ParamID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "pharmacy deleted successfully"})
}
