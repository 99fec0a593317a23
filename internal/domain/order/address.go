package order

import (
	"fmt"
	"regexp"
	"strings"
)

// phonePattern matches the storefront phone format: leading 0, three more
// digits, a hyphen, then exactly seven digits (e.g. 0334-6030339).
var phonePattern = regexp.MustCompile(`^0\d{3}-\d{7}$`)

// FieldError reports a shipping address field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ShippingAddress is the delivery destination captured at checkout.
type ShippingAddress struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	Country  string `json:"country"`
	ZipCode  string `json:"zipCode"`
	Phone    string `json:"phoneNumber"`
}

// Validate checks the required address fields and the phone number format.
// It returns the first *FieldError encountered.
func (a ShippingAddress) Validate() error {
	required := []struct {
		field, value string
	}{
		{"address1", a.Address1},
		{"city", a.City},
		{"country", a.Country},
		{"zipCode", a.ZipCode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &FieldError{Field: r.field, Reason: "required"}
		}
	}

	if !phonePattern.MatchString(a.Phone) {
		return &FieldError{Field: "phoneNumber", Reason: "must match format 0DDD-DDDDDDD"}
	}

	return nil
}
