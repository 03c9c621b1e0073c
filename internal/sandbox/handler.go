package sandbox

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
	"github.com/Multiverse88/Dentalpro/internal/platform/middleware"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	authGroup := api.Group("/auth", middleware.RateLimit(middleware.DefaultAuthRateLimit()))
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)

	api.GET("/patients", h.ListPatients)
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients/:id", h.GetPatient)
	api.PUT("/patients/:id", h.UpdatePatient)
	api.DELETE("/patients/:id", h.DeletePatient)

	api.POST("/treatments", h.CreateTreatment)
	api.PUT("/treatments/:id", h.UpdateTreatment)
	api.DELETE("/treatments/:id", h.DeleteTreatment)

	api.GET("/records", h.ListRecords)
	api.POST("/records", h.CreateRecord)

	api.GET("/appointments", h.ListAppointments)
	api.POST("/appointments", h.CreateAppointment)
	api.PUT("/appointments/:id", h.UpdateAppointment)
	api.DELETE("/appointments/:id", h.DeleteAppointment)

	api.GET("/queue", h.ListQueue)
	api.POST("/queue", h.CreateQueueEntry)
	api.PUT("/queue/:id", h.UpdateQueueEntry)
	api.DELETE("/queue/:id", h.DeleteQueueEntry)
}

// httpError maps service errors onto statuses. notFound is the message used
// when the resource is missing.
func httpError(err error, notFound string) error {
	var verr *dental.ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	case errors.Is(err, ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, "Email already registered")
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func bindError(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
}

func numericID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// -- Auth Handlers --

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	u, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return httpError(err, "")
	}
	return c.JSON(http.StatusCreated, authResponse{User: u})
}

func (h *Handler) Login(c echo.Context) error {
	var req dental.LoginForm
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	if err := req.Validate(); err != nil {
		return httpError(err, "")
	}
	token, u, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpError(err, "")
	}
	return c.JSON(http.StatusOK, authResponse{Token: token, User: u})
}

// -- Patient Handlers --

func (h *Handler) ListPatients(c echo.Context) error {
	patients, err := h.svc.ListPatients(c.Request().Context())
	if err != nil {
		return httpError(err, "")
	}
	return c.JSON(http.StatusOK, patients)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.GetPatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err, "Patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	p, err := h.svc.CreatePatient(c.Request().Context(), req)
	if err != nil {
		return httpError(err, "")
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	p, err := h.svc.UpdatePatient(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return httpError(err, "Patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	if err := h.svc.DeletePatient(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err, "Patient not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Treatment Handlers --

func (h *Handler) CreateTreatment(c echo.Context) error {
	var req treatmentRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	t, err := h.svc.CreateTreatment(c.Request().Context(), req)
	if err != nil {
		return httpError(err, "Patient not found")
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) UpdateTreatment(c echo.Context) error {
	var req treatmentRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	t, err := h.svc.UpdateTreatment(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return httpError(err, "Treatment not found")
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteTreatment(c echo.Context) error {
	if err := h.svc.DeleteTreatment(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err, "Treatment not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Record Handlers --

func (h *Handler) ListRecords(c echo.Context) error {
	recs, err := h.svc.ListRecords(c.Request().Context(), c.QueryParam("patientId"))
	if err != nil {
		return httpError(err, "Patient not found")
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *Handler) CreateRecord(c echo.Context) error {
	var req recordRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	r, err := h.svc.CreateRecord(c.Request().Context(), req)
	if err != nil {
		return httpError(err, "Patient not found")
	}
	return c.JSON(http.StatusCreated, r)
}

// -- Appointment Handlers --

func (h *Handler) ListAppointments(c echo.Context) error {
	appts, err := h.svc.ListAppointments(c.Request().Context())
	if err != nil {
		return httpError(err, "")
	}
	return c.JSON(http.StatusOK, appts)
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var req appointmentRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	a, err := h.svc.CreateAppointment(c.Request().Context(), req)
	if err != nil {
		return httpError(err, "Patient not found")
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := numericID(c)
	if err != nil {
		return err
	}
	var req appointmentRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	a, err := h.svc.UpdateAppointment(c.Request().Context(), id, req)
	if err != nil {
		return httpError(err, "Appointment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := numericID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteAppointment(c.Request().Context(), id); err != nil {
		return httpError(err, "Appointment not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Queue Handlers --

func (h *Handler) ListQueue(c echo.Context) error {
	q, err := h.svc.ListQueue(c.Request().Context())
	if err != nil {
		return httpError(err, "")
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) CreateQueueEntry(c echo.Context) error {
	var req queueRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	e, err := h.svc.Enqueue(c.Request().Context(), req)
	if err != nil {
		return httpError(err, "Patient not found")
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) UpdateQueueEntry(c echo.Context) error {
	id, err := numericID(c)
	if err != nil {
		return err
	}
	var req queueRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	e, err := h.svc.UpdateQueueEntry(c.Request().Context(), id, req)
	if err != nil {
		return httpError(err, "Queue entry not found")
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteQueueEntry(c echo.Context) error {
	id, err := numericID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteQueueEntry(c.Request().Context(), id); err != nil {
		return httpError(err, "Queue entry not found")
	}
	return c.NoContent(http.StatusNoContent)
}
