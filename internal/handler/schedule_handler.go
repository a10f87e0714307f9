package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-sync-api/internal/service"
	appErrors "github.com/noah-isme/sma-sync-api/pkg/errors"
	"github.com/noah-isme/sma-sync-api/pkg/export"
	"github.com/noah-isme/sma-sync-api/pkg/response"
)

// ScheduleHandler exposes timetable endpoints.
type ScheduleHandler struct {
	service *service.ScheduleService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
}

// NewScheduleHandler constructs a schedule handler.
func NewScheduleHandler(svc *service.ScheduleService, csv *export.CSVExporter, pdf *export.PDFExporter) *ScheduleHandler {
	return &ScheduleHandler{service: svc, csv: csv, pdf: pdf}
}

func scheduleFilterFromQuery(c *gin.Context) service.ScheduleFilter {
	return service.ScheduleFilter{
		ClassRef:     c.Query("class_ref"),
		TeacherRef:   c.Query("teacher_ref"),
		Day:          c.Query("day"),
		AcademicYear: c.Query("academic_year"),
	}
}

// List godoc
// @Summary List schedule entries
// @Tags Schedules
// @Produce json
// @Param class_ref query string false "Filter by class"
// @Param teacher_ref query string false "Filter by teacher"
// @Param day query string false "Filter by day"
// @Param academic_year query string false "Filter by academic year"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context(), scheduleFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "schedules retrieved", entries)
}

// Get godoc
// @Summary Get schedule entry
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "schedule retrieved", entry)
}

// Create godoc
// @Summary Create schedule entry
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.ScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "schedule created", entry)
}

// Update godoc
// @Summary Update schedule entry
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.ScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "schedule updated", entry)
}

// Delete godoc
// @Summary Delete schedule entry
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export the filtered timetable as CSV or PDF
// @Tags Schedules
// @Produce text/csv
// @Param format query string false "csv or pdf" default(csv)
// @Param class_ref query string false "Filter by class"
// @Param teacher_ref query string false "Filter by teacher"
// @Param day query string false "Filter by day"
// @Param academic_year query string false "Filter by academic year"
// @Success 200 {file} binary
// @Router /schedules/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	dataset, err := h.service.ExportDataset(c.Request.Context(), scheduleFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	stamp := time.Now().Format("20060102")
	switch c.DefaultQuery("format", "csv") {
	case "pdf":
		payload, err := h.pdf.Render(dataset, "Jadwal Pelajaran")
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=schedules-%s.pdf", stamp))
		c.Data(http.StatusOK, "application/pdf", payload)
	case "csv":
		payload, err := h.csv.Render(dataset)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=schedules-%s.csv", stamp))
		c.Data(http.StatusOK, "text/csv", payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}
