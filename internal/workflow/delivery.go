package workflow

import (
	"fmt"
	"strings"

	"sponup-backend/internal/models"
)

// ValidationError reports a single invalid input field. Nothing is written
// when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateDelivery checks the fields a reward needs for its delivery method
// and returns a cleaned copy holding only the fields that method uses
func ValidateDelivery(d models.Delivery) (*models.Delivery, error) {
	out := &models.Delivery{Method: d.Method}

	switch d.Method {
	case models.DeliveryDigital:
		code := trimmed(d.RedemptionCode)
		if code == nil {
			return nil, &ValidationError{Field: "redemption_code", Message: "redemption code is required for digital delivery"}
		}
		out.RedemptionCode = code
	case models.DeliveryPhysical:
		tracking := trimmed(d.TrackingNumber)
		if tracking == nil {
			return nil, &ValidationError{Field: "tracking_number", Message: "tracking number is required for physical delivery"}
		}
		out.TrackingNumber = tracking
		out.Carrier = trimmed(d.Carrier)
		out.EstimatedDeliveryDate = d.EstimatedDeliveryDate
	case models.DeliveryHand:
		out.Notes = trimmed(d.Notes)
	default:
		return nil, &ValidationError{Field: "delivery_method", Message: fmt.Sprintf("unknown delivery method %q", d.Method)}
	}

	return out, nil
}

// trimmed returns nil for absent or blank strings
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
