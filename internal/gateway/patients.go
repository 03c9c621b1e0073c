package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
)

// -- Auth --

type AuthResponse struct {
	Token string      `json:"token"`
	User  dental.User `json:"user"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an operator account. It does not log in.
func (c *Client) Register(ctx context.Context, name, email, password string) (dental.User, error) {
	var out AuthResponse
	err := c.do(ctx, request{
		op:     "register",
		method: http.MethodPost,
		path:   "/auth/register",
		body:   registerRequest{Name: name, Email: email, Password: password},
		out:    &out,
	})
	return out.User, err
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, request{
		op:     "login",
		method: http.MethodPost,
		path:   "/auth/login",
		body:   dental.LoginForm{Email: email, Password: password},
		out:    &out,
	})
	return out, err
}

// -- Patients --

// newPatientRequest carries only demographics; the backend assigns the chart.
type newPatientRequest struct {
	Name        string        `json:"name"`
	DateOfBirth string        `json:"date_of_birth"`
	Gender      dental.Gender `json:"gender"`
	Contact     string        `json:"contact"`
	Address     string        `json:"address,omitempty"`
}

func patientPath(id string) string {
	return "/patients/" + url.PathEscape(id)
}

func (c *Client) ListPatients(ctx context.Context) ([]dental.Patient, error) {
	var out []dental.Patient
	err := c.do(ctx, request{op: "list patients", method: http.MethodGet, path: "/patients", out: &out, auth: true})
	return out, err
}

func (c *Client) GetPatient(ctx context.Context, id string) (dental.Patient, error) {
	var out dental.Patient
	err := c.do(ctx, request{op: "get patient", method: http.MethodGet, path: patientPath(id), out: &out, auth: true})
	return out, err
}

func (c *Client) CreatePatient(ctx context.Context, p dental.Patient) (dental.Patient, error) {
	var out dental.Patient
	err := c.do(ctx, request{
		op:     "create patient",
		method: http.MethodPost,
		path:   "/patients",
		body: newPatientRequest{
			Name:        p.Name,
			DateOfBirth: p.DateOfBirth,
			Gender:      p.Gender,
			Contact:     p.Contact,
			Address:     p.Address,
		},
		out:  &out,
		auth: true,
	})
	return out, err
}

// UpdatePatient replaces the patient, teeth included.
func (c *Client) UpdatePatient(ctx context.Context, p dental.Patient) (dental.Patient, error) {
	var out dental.Patient
	err := c.do(ctx, request{op: "update patient", method: http.MethodPut, path: patientPath(p.ID), body: p, out: &out, auth: true})
	return out, err
}

func (c *Client) DeletePatient(ctx context.Context, id string) error {
	return c.do(ctx, request{op: "delete patient", method: http.MethodDelete, path: patientPath(id), auth: true})
}

// UpdatePatientTeeth reads the patient and writes it back with teeth replaced.
func (c *Client) UpdatePatientTeeth(ctx context.Context, patientID string, teeth []dental.Tooth) (dental.Patient, error) {
	p, err := c.GetPatient(ctx, patientID)
	if err != nil {
		return dental.Patient{}, err
	}
	p.ID = patientID
	p.Teeth = teeth
	return c.UpdatePatient(ctx, p)
}

// -- Treatments --

// treatmentRequest is a treatment addressed to a patient. The id is omitted on
// create; the backend assigns it.
type treatmentRequest struct {
	ID          string   `json:"id,omitempty"`
	PatientID   string   `json:"patient_id,omitempty"`
	Date        string   `json:"date"`
	ToothIDs    []int    `json:"toothIds"`
	Procedure   string   `json:"procedure"`
	Notes       string   `json:"notes,omitempty"`
	Cost        *float64 `json:"cost,omitempty"`
	PerformedBy string   `json:"performedBy,omitempty"`
}

func (c *Client) CreateTreatment(ctx context.Context, patientID string, t dental.Treatment) error {
	return c.do(ctx, request{
		op:     "create treatment",
		method: http.MethodPost,
		path:   "/treatments",
		body: treatmentRequest{
			PatientID:   patientID,
			Date:        t.Date,
			ToothIDs:    t.ToothIDs,
			Procedure:   t.Procedure,
			Notes:       t.Notes,
			Cost:        t.Cost,
			PerformedBy: t.PerformedBy,
		},
		auth: true,
	})
}

func (c *Client) UpdateTreatment(ctx context.Context, t dental.Treatment) error {
	return c.do(ctx, request{
		op:     "update treatment",
		method: http.MethodPut,
		path:   "/treatments/" + url.PathEscape(t.ID),
		body:   t,
		auth:   true,
	})
}

func (c *Client) DeleteTreatment(ctx context.Context, id string) error {
	return c.do(ctx, request{op: "delete treatment", method: http.MethodDelete, path: "/treatments/" + url.PathEscape(id), auth: true})
}

// -- Dental records --

type recordRequest struct {
	dental.RecordForm
	PatientID string `json:"patient_id"`
}

func (c *Client) ListRecords(ctx context.Context, patientID string) ([]dental.DentalRecord, error) {
	var out []dental.DentalRecord
	err := c.do(ctx, request{
		op:     "list records",
		method: http.MethodGet,
		path:   "/records?patientId=" + url.QueryEscape(patientID),
		out:    &out,
		auth:   true,
	})
	return out, err
}

func (c *Client) CreateRecord(ctx context.Context, patientID string, f dental.RecordForm) (dental.DentalRecord, error) {
	var out dental.DentalRecord
	err := c.do(ctx, request{
		op:     "create record",
		method: http.MethodPost,
		path:   "/records",
		body:   recordRequest{RecordForm: f, PatientID: patientID},
		out:    &out,
		auth:   true,
	})
	return out, err
}
