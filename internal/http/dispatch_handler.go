package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/waste-dispatch/internal/model"
	"github.com/nurpe/waste-dispatch/internal/service"
)

type autoDispatchRequest struct {
	ReportID      uuid.UUID      `json:"report_id" binding:"required"`
	Priority      model.Priority `json:"priority"`
	ScheduledDate *string        `json:"scheduled_date"`
}

type manualDispatchRequest struct {
	ReportID      uuid.UUID      `json:"report_id" binding:"required"`
	TeamID        uuid.UUID      `json:"team_id" binding:"required"`
	TruckID       uuid.UUID      `json:"truck_id" binding:"required"`
	Priority      model.Priority `json:"priority"`
	ScheduledDate *string        `json:"scheduled_date"`
}

type dispatchStatusRequest struct {
	Status           model.DispatchStatus `json:"status" binding:"required"`
	Notes            *string              `json:"notes"`
	Images           []string             `json:"images"`
	EstimatedArrival *string              `json:"estimated_arrival"`
}

func (h *Handler) createAutoDispatch(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req autoDispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	scheduled, err := parseOptionalDate(req.ScheduledDate)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid scheduled_date")
		return
	}

	detail, err := h.dispatches.CreateAutoDispatch(c.Request.Context(), service.CreateAutoDispatchInput{
		Principal:     principal,
		ReportID:      req.ReportID,
		Priority:      req.Priority,
		ScheduledDate: scheduled,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, detail)
}

func (h *Handler) createManualDispatch(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req manualDispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	scheduled, err := parseOptionalDate(req.ScheduledDate)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid scheduled_date")
		return
	}

	detail, err := h.dispatches.CreateManualDispatch(c.Request.Context(), service.CreateManualDispatchInput{
		Principal:     principal,
		ReportID:      req.ReportID,
		TeamID:        req.TeamID,
		TruckID:       req.TruckID,
		Priority:      req.Priority,
		ScheduledDate: scheduled,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, detail)
}

func (h *Handler) updateDispatchStatus(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dispatchStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	eta, err := parseOptionalDate(req.EstimatedArrival)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid estimated_arrival")
		return
	}

	detail, err := h.dispatches.UpdateDispatchStatus(c.Request.Context(), service.UpdateDispatchStatusInput{
		Principal:        principal,
		DispatchID:       id,
		Status:           req.Status,
		Notes:            req.Notes,
		Images:           req.Images,
		EstimatedArrival: eta,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, detail)
}

func (h *Handler) getDispatch(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.dispatches.GetDispatch(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, detail)
}

func (h *Handler) getDispatchByReport(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	reportID, ok := pathID(c, "reportId")
	if !ok {
		return
	}
	detail, err := h.dispatches.GetDispatchByReport(c.Request.Context(), principal, reportID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, detail)
}

func (h *Handler) listDispatches(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	page, ok := pageQuery(c)
	if !ok {
		return
	}
	teamID, ok := optionalUUIDQuery(c, "team_id")
	if !ok {
		return
	}
	from, ok := optionalDateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := optionalDateQuery(c, "to")
	if !ok {
		return
	}

	result, err := h.dispatches.ListDispatches(c.Request.Context(), principal, model.DispatchFilter{
		Status: optionalQuery[model.DispatchStatus](c, "status"),
		TeamID: teamID,
		From:   from,
		To:     to,
	}, page)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (h *Handler) exportDispatches(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	from, err := parseDate(c.Query("from"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid from")
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid to")
		return
	}

	result, err := h.dispatches.ExportDispatches(c.Request.Context(), principal, from, to)
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, contentTypeXLSX, result)
}

func (h *Handler) collectionSheet(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.dispatches.CollectionSheet(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, contentTypePDF, result)
}
