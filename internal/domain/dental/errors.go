package dental

import "fmt"

// ValidationError is returned for user input that is rejected locally,
// before anything is sent to the backend.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Messages shown verbatim to clinic staff.
const (
	MsgTreatmentIncomplete = "Mohon pilih minimal satu gigi dan isi deskripsi prosedur."
	MsgPasswordMismatch    = "Password dan konfirmasi password tidak sama."
	MsgPatientIncomplete   = "Nama, tanggal lahir, jenis kelamin, dan kontak wajib diisi."
	MsgLoginIncomplete     = "Email dan password wajib diisi."
)
