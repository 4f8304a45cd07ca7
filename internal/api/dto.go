package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"rentbook/internal/domain"

	"github.com/go-playground/validator/v10"
)

type createBookingRequest struct {
	ItemID        string `json:"item_id" validate:"required,max=64"`
	StartDate     string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string `json:"end_date" validate:"required,datetime=2006-01-02"`
	TotalAmount   *int64 `json:"total_amount,omitempty" validate:"omitempty,gte=0"`
	DepositAmount *int64 `json:"deposit_amount,omitempty" validate:"omitempty,gte=0"`
	Notes         string `json:"notes,omitempty" validate:"max=2000"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed active completed cancelled disputed"`
	Notes  string `json:"notes,omitempty" validate:"max=2000"`
}

type actionRequest struct {
	Notes string `json:"notes,omitempty" validate:"max=2000"`
}

// Rating bounds are left to the service so an out-of-range value reports
// the rating error rather than a generic validation failure.
type ratingRequest struct {
	Rating   *int   `json:"rating" validate:"required"`
	Feedback string `json:"feedback,omitempty" validate:"max=2000"`
}

var errEmptyBody = errors.New("request body is empty")

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// validationError flattens validator failures into one ErrValidation.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Validationf("%v", err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", jsonFieldName(fe), fe.Tag()))
	}
	return domain.Validationf("%s", strings.Join(parts, "; "))
}

func jsonFieldName(fe validator.FieldError) string {
	if name := fe.Field(); name != "" {
		return name
	}
	return fe.StructField()
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
