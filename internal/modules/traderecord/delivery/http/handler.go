package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"anoa.com/pharmatrade/internal/modules/traderecord/dto"
	traderecord "anoa.com/pharmatrade/internal/modules/traderecord/service"
	"anoa.com/pharmatrade/pkg/response"
)

type RecordHandler struct {
	service traderecord.TradeRecordService
}

func NewRecordHandler(service traderecord.TradeRecordService) *RecordHandler {
	return &RecordHandler{service: service}
}

func (h *RecordHandler) CreateRecord(c *gin.Context) {
	var req dto.CreateRecordRequest
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

func (h *RecordHandler) GetRecords(c *gin.Context) {
	var filter dto.RecordFilter
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

func (h *RecordHandler) CountRecords(c *gin.Context) {
	var filter dto.RecordFilter
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

func (h *RecordHandler) GetRecord(c *gin.Context) {
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

func (h *RecordHandler) GetRecentRecords(c *gin.Context) {
	var query dto.RecentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err)
		return
	}

	res, err := h.service.RecentForPharmacy(c.Request.Context(), query.PharmacyID, limitOrDefault(query.Limit))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

// GetRecordsBetween lists the pair's trades. Without dates it covers
// everything up to now.
func (h *RecordHandler) GetRecordsBetween(c *gin.Context) {
	var query dto.PairQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err)
		return
	}

	from, to := query.From, query.To
	if to.IsZero() {
		to = time.Now()
	} else {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	res, err := h.service.Between(c.Request.Context(), query.PharmacyID, query.CounterpartyID, from, to)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *RecordHandler) GetBalance(c *gin.Context) {
	var query dto.PairQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.BalanceSummary(c.Request.Context(), userID, query.PharmacyID, query.CounterpartyID, limitOrDefault(query.Limit))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *RecordHandler) GetBalances(c *gin.Context) {
	var query dto.BalanceListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.BalanceList(c.Request.Context(), userID, query.PharmacyID, query.SortBy)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *RecordHandler) UpdateRecord(c *gin.Context) {
	id, err := response.ParamID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.UpdateRecordRequest
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

// DeleteRecord answers 200 with removed=false while the other party has not
// deleted the record yet.
func (h *RecordHandler) DeleteRecord(c *gin.Context) {
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

	removed, err := h.service.Delete(c.Request.Context(), userID, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DeleteRecordResponse{Removed: removed})
}

func limitOrDefault(limit int) int {
	if limit == 0 {
		return traderecord.DefaultRecentLimit
	}
	return limit
}
