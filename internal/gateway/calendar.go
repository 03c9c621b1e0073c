package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/Multiverse88/Dentalpro/internal/domain/calendar"
)

// Appointment and queue calls report fixed messages rather than the
// backend's.
const (
	MsgListAppointments  = "Gagal memuat data appointment"
	MsgCreateAppointment = "Gagal menambah appointment"
	MsgUpdateAppointment = "Gagal update appointment"
	MsgDeleteAppointment = "Gagal hapus appointment"
	MsgListQueue         = "Gagal memuat data antrian"
	MsgCreateQueue       = "Gagal menambah antrian"
	MsgUpdateQueue       = "Gagal update antrian"
	MsgDeleteQueue       = "Gagal hapus antrian"
)

func (c *Client) doCalendar(ctx context.Context, msg string, r request) error {
	err := c.do(ctx, r)
	if err == nil || errors.Is(err, ErrNotAuthenticated) {
		return err
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return &Error{Op: r.op, StatusCode: apiErr.StatusCode, Message: msg, Err: apiErr}
	}
	return &Error{Op: r.op, Message: msg, Err: err}
}

// -- Appointments --

func (c *Client) ListAppointments(ctx context.Context) ([]calendar.Appointment, error) {
	var out []calendar.Appointment
	err := c.doCalendar(ctx, MsgListAppointments, request{
		op: "list appointments", method: http.MethodGet, path: "/appointments", out: &out, auth: true,
	})
	return out, err
}

func (c *Client) CreateAppointment(ctx context.Context, a calendar.Appointment) (calendar.Appointment, error) {
	var out calendar.Appointment
	err := c.doCalendar(ctx, MsgCreateAppointment, request{
		op: "create appointment", method: http.MethodPost, path: "/appointments", body: a, out: &out, auth: true,
	})
	return out, err
}

func (c *Client) UpdateAppointment(ctx context.Context, id calendar.FlexID, a calendar.Appointment) (calendar.Appointment, error) {
	var out calendar.Appointment
	err := c.doCalendar(ctx, MsgUpdateAppointment, request{
		op: "update appointment", method: http.MethodPut, path: "/appointments/" + url.PathEscape(id.String()), body: a, out: &out, auth: true,
	})
	return out, err
}

func (c *Client) DeleteAppointment(ctx context.Context, id calendar.FlexID) error {
	return c.doCalendar(ctx, MsgDeleteAppointment, request{
		op: "delete appointment", method: http.MethodDelete, path: "/appointments/" + url.PathEscape(id.String()), auth: true,
	})
}

// -- Queue --

func (c *Client) ListQueue(ctx context.Context) ([]calendar.QueueEntry, error) {
	var out []calendar.QueueEntry
	err := c.doCalendar(ctx, MsgListQueue, request{
		op: "list queue", method: http.MethodGet, path: "/queue", out: &out, auth: true,
	})
	return out, err
}

func (c *Client) CreateQueueEntry(ctx context.Context, e calendar.QueueEntry) (calendar.QueueEntry, error) {
	var out calendar.QueueEntry
	err := c.doCalendar(ctx, MsgCreateQueue, request{
		op: "create queue entry", method: http.MethodPost, path: "/queue", body: e, out: &out, auth: true,
	})
	return out, err
}

func (c *Client) UpdateQueueEntry(ctx context.Context, id calendar.FlexID, e calendar.QueueEntry) (calendar.QueueEntry, error) {
	var out calendar.QueueEntry
	err := c.doCalendar(ctx, MsgUpdateQueue, request{
		op: "update queue entry", method: http.MethodPut, path: "/queue/" + url.PathEscape(id.String()), body: e, out: &out, auth: true,
	})
	return out, err
}

func (c *Client) DeleteQueueEntry(ctx context.Context, id calendar.FlexID) error {
	return c.doCalendar(ctx, MsgDeleteQueue, request{
		op: "delete queue entry", method: http.MethodDelete, path: "/queue/" + url.PathEscape(id.String()), auth: true,
	})
}
