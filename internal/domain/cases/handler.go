package cases

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
	read.GET("/cases", h.List)
	read.GET("/cases/:id", h.Get)
	read.GET("/cases/:id/assessment", h.GetAssessment)
	read.GET("/cases/:id/conclusion", h.GetConclusion)
	read.GET("/cases/:id/documents", h.ListDocuments)
	read.GET("/documents/:id/url", h.DocumentURL)
	read.POST("/cases/:id/report", h.Report)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/cases", h.Open)
	admin.POST("/cases/:id/cancel", h.Cancel)

	nurse := api.Group("", auth.RequireRole(auth.RolePerawat))
	nurse.POST("/cases/:id/assessment", h.SubmitAssessment)
	nurse.POST("/cases/:id/documents", h.AttachDocument)

	doctor := api.Group("", auth.RequireRole(auth.RoleDokter))
	doctor.POST("/cases/:id/conclusion", h.Conclude)
}

type openRequest struct {
	PatientID      uuid.UUID `json:"patient_id"`
	AssignedNurse  string    `json:"assigned_nurse"`
	AssignedDoctor string    `json:"assigned_doctor"`
}

func (h *Handler) Open(c echo.Context) error {
	var req openRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	cs, err := h.svc.Open(c.Request().Context(), req.PatientID, req.AssignedNurse, req.AssignedDoctor)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, cs)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cs, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "case not found")
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) SubmitAssessment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var a NursingAssessment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SubmitAssessment(c.Request().Context(), id, &a, auth.UserNameFromContext(c.Request().Context())); err != nil {
		return caseError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAssessment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Assessment(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "assessment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) GetConclusion(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	concl, err := h.svc.Conclusion(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "conclusion not found")
	}
	return c.JSON(http.StatusOK, concl)
}

func (h *Handler) AttachDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	docType := c.FormValue("doc_type")
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	contentType := fh.Header.Get("Content-Type")
	doc, err := h.svc.AttachDocument(c.Request().Context(), id, docType, fh.Filename, contentType, src, auth.UserNameFromContext(c.Request().Context()))
	if err != nil {
		return caseError(err)
	}
	return c.JSON(http.StatusCreated, doc)
}

func (h *Handler) ListDocuments(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	docs, err := h.svc.ListDocuments(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, docs)
}

func (h *Handler) DocumentURL(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	url, err := h.svc.DocumentURL(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

func (h *Handler) Conclude(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var concl DoctorConclusion
	if err := c.Bind(&concl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cs, err := h.svc.Conclude(c.Request().Context(), id, &concl, auth.UserNameFromContext(c.Request().Context()))
	if err != nil {
		return caseError(err)
	}
	return c.JSON(http.StatusOK, cs)
}

// Report streams the PDF of a completed case.
func (h *Handler) Report(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rendered, err := h.svc.Report(c.Request().Context(), id, auth.UserNameFromContext(c.Request().Context()))
	if err != nil {
		return caseError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+rendered.FileName+`"`)
	return c.Blob(http.StatusOK, "application/pdf", rendered.Content)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Cancel(c.Request().Context(), id); err != nil {
		return caseError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func caseError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "case not found")
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
