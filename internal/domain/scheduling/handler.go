package scheduling

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/appointment", h.CreateAppointment)
	api.PUT("/appointment/:id", h.UpdateAppointment)
	api.PATCH("/appointment/:id/status", h.UpdateStatus)
	api.DELETE("/appointment/:id", h.DeleteAppointment)

	api.GET("/appointments", h.ListAppointments)
	api.GET("/appointments/doctor/:doctorId", h.ListByDoctor)
	api.GET("/appointments/patient/:patientId", h.ListByPatient)

	api.POST("/schedule", h.UpsertSchedule, auth.RequireUserType(auth.TypeDoctor))
	api.GET("/schedule/doctor/:doctorId", h.GetScheduleByDoctor)
	api.PUT("/schedule/:id", h.UpdateSchedule)
	api.DELETE("/schedule/:id", h.DeleteSchedule)
}

// httpError maps service errors onto HTTP status codes. Rule violations
// surface their reason verbatim; storage failures become a generic 500.
func httpError(err error) error {
	var rej *RejectionError
	switch {
	case errors.As(err, &rej):
		return echo.NewHTTPError(http.StatusBadRequest, rej.Reason)
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, ErrNotAssignedDoctor), errors.Is(err, ErrDoctorProfileMissing):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type createAppointmentRequest struct {
	DoctorID  uuid.UUID `json:"doctorId" validate:"required"`
	PatientID uuid.UUID `json:"patientId" validate:"required"`
	Date      string    `json:"date" validate:"required"`
	Time      string    `json:"time" validate:"required"`
	Status    string    `json:"status" validate:"omitempty,oneof=pending confirmed completed canceled"`
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var req createAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	appt, err := h.svc.CreateAppointment(c.Request().Context(), CreateAppointmentInput{
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		Date:      req.Date,
		Time:      req.Time,
		Status:    req.Status,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

type updateAppointmentRequest struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Status string `json:"status" validate:"omitempty,oneof=pending confirmed completed canceled"`
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	var req updateAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	appt, err := h.svc.UpdateAppointment(c.Request().Context(), id, UpdateAppointmentInput{
		Date:   req.Date,
		Time:   req.Time,
		Status: req.Status,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	userID, err := actingUserID(c)
	if err != nil {
		return err
	}
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	appt, err := h.svc.UpdateStatus(c.Request().Context(), id, userID, req.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	userID, err := actingUserID(c)
	if err != nil {
		return err
	}

	if err := h.svc.DeleteAppointment(c.Request().Context(), id, userID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "appointment deleted"})
}

func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAppointments(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByDoctor(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type scheduleRequest struct {
	AvailableDays []string `json:"availableDays" validate:"required,min=1"`
	StartHour     int      `json:"startHour" validate:"required,min=1,max=12"`
	StartMinute   int      `json:"startMinute" validate:"min=0,max=59"`
	StartPeriod   string   `json:"startPeriod" validate:"required,oneof=AM PM"`
	EndHour       int      `json:"endHour" validate:"required,min=1,max=12"`
	EndMinute     int      `json:"endMinute" validate:"min=0,max=59"`
	EndPeriod     string   `json:"endPeriod" validate:"required,oneof=AM PM"`
}

func (r *scheduleRequest) toInput() ScheduleInput {
	return ScheduleInput{
		AvailableDays: r.AvailableDays,
		StartHour:     r.StartHour,
		StartMinute:   r.StartMinute,
		StartPeriod:   r.StartPeriod,
		EndHour:       r.EndHour,
		EndMinute:     r.EndMinute,
		EndPeriod:     r.EndPeriod,
	}
}

func (h *Handler) UpsertSchedule(c echo.Context) error {
	userID, err := actingUserID(c)
	if err != nil {
		return err
	}
	var req scheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sched, err := h.svc.UpsertSchedule(c.Request().Context(), userID, req.toInput())
	if errors.Is(err, ErrDoctorProfileMissing) {
		// The route already guarantees a doctor user type, so a missing
		// profile is an absent resource rather than a permissions problem.
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) GetScheduleByDoctor(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	sched, err := h.svc.GetScheduleByDoctor(c.Request().Context(), doctorID)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "schedule not found")
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) UpdateSchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid schedule id")
	}
	userID, err := actingUserID(c)
	if err != nil {
		return err
	}
	var req scheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sched, err := h.svc.UpdateSchedule(c.Request().Context(), id, userID, req.toInput())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) DeleteSchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid schedule id")
	}
	userID, err := actingUserID(c)
	if err != nil {
		return err
	}

	if err := h.svc.DeleteSchedule(c.Request().Context(), id, userID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "schedule deleted"})
}

// actingUserID reads the authenticated user id the auth middleware stored
// on the echo context.
func actingUserID(c echo.Context) (uuid.UUID, error) {
	raw, _ := c.Get("user_id").(string)
	if raw == "" {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	return id, nil
}
