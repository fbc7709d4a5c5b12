package http

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nurpe/waste-dispatch/internal/model"
	"github.com/nurpe/waste-dispatch/internal/service"
)

func (h *Handler) submitReport(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		fail(c, http.StatusBadRequest, "image is required")
		return
	}
	longitude, err := strconv.ParseFloat(strings.TrimSpace(c.PostForm("longitude")), 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid longitude")
		return
	}
	latitude, err := strconv.ParseFloat(strings.TrimSpace(c.PostForm("latitude")), 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid latitude")
		return
	}

	src, err := file.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "unreadable image")
		return
	}
	defer src.Close()
	image, err := io.ReadAll(src)
	if err != nil {
		fail(c, http.StatusBadRequest, "unreadable image")
		return
	}
	contentType := file.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(image)
	}

	report, err := h.reports.SubmitReport(c.Request.Context(), service.SubmitReportInput{
		Principal:   principal,
		Image:       image,
		ContentType: contentType,
		Location: model.Location{
			Longitude: longitude,
			Latitude:  latitude,
			Address:   strings.TrimSpace(c.PostForm("address")),
		},
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, report)
}

func (h *Handler) listReports(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	page, ok := pageQuery(c)
	if !ok {
		return
	}
	submitter, ok := optionalUUIDQuery(c, "submitter_id")
	if !ok {
		return
	}
	result, err := h.reports.ListReports(c.Request.Context(), principal, model.ReportFilter{
		Status:      optionalQuery[model.ReportStatus](c, "status"),
		SubmitterID: submitter,
	}, page)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (h *Handler) getReport(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	report, err := h.reports.GetReport(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, report)
}
