// Package taxform validates the tax-compliance onboarding interview.
//
// The interview is a fixed sequence of steps; each step is validated
// independently so the UI can gate progression. Validation is pure: field
// presence and identifier shape checks only, no persistence and no
// submission. Failures come back as typed field errors keyed by field name
// so callers can attach them to inputs.
package taxform

import (
	"fmt"
	"strings"
)

// Step identifies one page of the tax interview.
type Step string

const (
	StepIdentity    Step = "identity"    // name, country of residence
	StepTaxID       Step = "tax_id"      // TIN in the shape the country requires
	StepAddress     Step = "address"     // street, city, postal code
	StepAttestation Step = "attestation" // signature and certification checkbox
)

// FieldError reports a single invalid field within a step.
type FieldError struct {
	Step  Step
	Field string
	Msg   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("taxform: %s.%s: %s", e.Step, e.Field, e.Msg)
}

// Interview holds the answers collected so far. Zero values mean
// "not answered".
type Interview struct {
	FullName string
	Country  string // ISO 3166-1 alpha-2

	TaxIDType string // "ssn" | "ein" | "vat"
	TaxID     string

	Street     string
	City       string
	PostalCode string

	Signature string
	Certified bool
}

// steps in interview order.
var steps = []Step{StepIdentity, StepTaxID, StepAddress, StepAttestation}

// Steps returns the interview steps in order.
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// ValidateStep checks one step of the interview. A nil slice means the step
// is complete and valid.
func ValidateStep(step Step, iv *Interview) []*FieldError {
	switch step {
	case StepIdentity:
		return validateIdentity(iv)
	case StepTaxID:
		return validateTaxID(iv)
	case StepAddress:
		return validateAddress(iv)
	case StepAttestation:
		return validateAttestation(iv)
	default:
		panic(fmt.Sprintf("taxform: unknown step %q", step))
	}
}

// ValidateAll checks every step in order and returns all failures.
func ValidateAll(iv *Interview) []*FieldError {
	var errs []*FieldError
	for _, step := range steps {
		errs = append(errs, ValidateStep(step, iv)...)
	}
	return errs
}

func validateIdentity(iv *Interview) []*FieldError {
	var errs []*FieldError
	if strings.TrimSpace(iv.FullName) == "" {
		errs = append(errs, &FieldError{StepIdentity, "full_name", "required"})
	}
	country := strings.TrimSpace(iv.Country)
	switch {
	case country == "":
		errs = append(errs, &FieldError{StepIdentity, "country", "required"})
	case len(country) != 2 || !isAlpha(country):
		errs = append(errs, &FieldError{StepIdentity, "country", "must be a two-letter country code"})
	}
	return errs
}

func validateTaxID(iv *Interview) []*FieldError {
	var errs []*FieldError
	id := strings.TrimSpace(iv.TaxID)
	if id == "" {
		errs = append(errs, &FieldError{StepTaxID, "tax_id", "required"})
		return errs
	}

	switch iv.TaxIDType {
	case "ssn", "ein":
		// US identifiers: exactly 9 digits, separators allowed.
		if digitCount(id) != 9 || !isDigitsAndSeparators(id) {
			errs = append(errs, &FieldError{StepTaxID, "tax_id", "must contain exactly 9 digits"})
		}
	case "vat":
		// VAT numbers lead with the country prefix and carry 8-12 digits.
		if len(id) < 2 || !isAlpha(id[:2]) {
			errs = append(errs, &FieldError{StepTaxID, "tax_id", "must start with a country prefix"})
		} else if n := digitCount(id[2:]); n < 8 || n > 12 {
			errs = append(errs, &FieldError{StepTaxID, "tax_id", "must contain 8 to 12 digits after the prefix"})
		}
	default:
		errs = append(errs, &FieldError{StepTaxID, "tax_id_type", "must be ssn, ein, or vat"})
	}
	return errs
}

func validateAddress(iv *Interview) []*FieldError {
	var errs []*FieldError
	if strings.TrimSpace(iv.Street) == "" {
		errs = append(errs, &FieldError{StepAddress, "street", "required"})
	}
	if strings.TrimSpace(iv.City) == "" {
		errs = append(errs, &FieldError{StepAddress, "city", "required"})
	}
	postal := strings.TrimSpace(iv.PostalCode)
	switch {
	case postal == "":
		errs = append(errs, &FieldError{StepAddress, "postal_code", "required"})
	case digitCount(postal) < 3:
		errs = append(errs, &FieldError{StepAddress, "postal_code", "must contain at least 3 digits"})
	}
	return errs
}

func validateAttestation(iv *Interview) []*FieldError {
	var errs []*FieldError
	if strings.TrimSpace(iv.Signature) == "" {
		errs = append(errs, &FieldError{StepAttestation, "signature", "required"})
	}
	if !iv.Certified {
		errs = append(errs, &FieldError{StepAttestation, "certified", "must be accepted"})
	}
	return errs
}

func digitCount(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}

func isDigitsAndSeparators(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '-' || c == ' ' {
			continue
		}
		return false
	}
	return true
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
			continue
		}
		return false
	}
	return true
}
