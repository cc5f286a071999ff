package mcu

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medicheck/mcu/internal/platform/auth"
	"github.com/medicheck/mcu/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDokter, auth.RolePerawat))
	read.GET("/mcu-records", h.ListRecords)
	read.GET("/mcu-records/:id", h.GetRecord)
	read.GET("/mcu-records/:id/report", h.GenerateReport)
	read.GET("/upload-batches", h.ListBatches)
	read.GET("/upload-batches/:id", h.GetBatch)
	read.GET("/pdf-history", h.ListHistory)

	write := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RolePerawat))
	write.POST("/mcu-records", h.CreateRecord)
	write.PUT("/mcu-records/:id", h.UpdateRecord)
	write.DELETE("/mcu-records/:id", h.DeleteRecord)
	write.POST("/mcu-records/upload", h.UploadWorkbook)
	write.DELETE("/upload-batches/:id", h.DeleteBatch)
	write.DELETE("/pdf-history/:id", h.DeleteHistory)

	export := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDokter))
	export.POST("/mcu-records/export", h.ExportReports)
}

func (h *Handler) CreateRecord(c echo.Context) error {
	var rec Record
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateRecord(c.Request().Context(), &rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) GetRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.GetRecord(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListRecords(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{Search: c.QueryParam("search")}
	if raw := c.QueryParam("batch_id"); raw != "" {
		bid, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid batch_id")
		}
		f.BatchID = &bid
	}
	items, total, err := h.svc.ListRecords(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var rec Record
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec.ID = id
	if err := h.svc.UpdateRecord(c.Request().Context(), &rec); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "record not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) DeleteRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteRecord(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "record not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadWorkbook ingests a multipart xlsx upload as a new batch.
func (h *Handler) UploadWorkbook(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	batch, res, err := h.svc.ImportWorkbook(c.Request().Context(), fh.Filename, auth.UserNameFromContext(c.Request().Context()), src)
	if err != nil {
		if errors.Is(err, ErrParse) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"batch":        batch,
		"imported":     len(res.Records),
		"skipped_rows": res.SkippedRows,
		"total_rows":   res.TotalRows,
	})
}

func (h *Handler) GetBatch(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.GetBatch(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "batch not found")
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBatches(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListBatches(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteBatch(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	removed, err := h.svc.DeleteBatch(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "batch not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted_records": removed})
}

// GenerateReport streams one record's PDF report.
func (h *Handler) GenerateReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rendered, err := h.svc.GenerateReport(c.Request().Context(), id, auth.UserNameFromContext(c.Request().Context()))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "record not found")
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+rendered.FileName+`"`)
	return c.Blob(http.StatusOK, "application/pdf", rendered.Content)
}

type exportRequest struct {
	RecordIDs []uuid.UUID `json:"record_ids"`
}

// ExportReports renders the selected records and returns them as a single
// zip archive, with the per-record outcome in a trailer header.
func (h *Handler) ExportReports(c echo.Context) error {
	var req exportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.RecordIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "record_ids is required")
	}

	d := NewZipDelivery()
	sum, err := h.svc.ExportReports(c.Request().Context(), req.RecordIDs, auth.UserNameFromContext(c.Request().Context()), d)
	if err != nil {
		if errors.Is(err, ErrDelivery) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, sum)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	content, err := d.Bytes()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="mcu_reports.zip"`)
	return c.Blob(http.StatusOK, "application/zip", content)
}

func (h *Handler) DeleteHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteHistory(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "history entry not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListHistory(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListHistory(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
