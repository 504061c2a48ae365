package taxform

import "testing"

func completeInterview() *Interview {
	return &Interview{
		FullName:   "Jane Bidder",
		Country:    "US",
		TaxIDType:  "ssn",
		TaxID:      "123-45-6789",
		Street:     "1 Auction Way",
		City:       "Springfield",
		PostalCode: "62704",
		Signature:  "Jane Bidder",
		Certified:  true,
	}
}

func TestValidateAllComplete(t *testing.T) {
	t.Parallel()
	if errs := ValidateAll(completeInterview()); len(errs) != 0 {
		t.Errorf("complete interview should validate, got %v", errs)
	}
}

func TestValidateIdentity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*Interview)
		wantField string
	}{
		{"missing name", func(iv *Interview) { iv.FullName = "  " }, "full_name"},
		{"missing country", func(iv *Interview) { iv.Country = "" }, "country"},
		{"long country code", func(iv *Interview) { iv.Country = "USA" }, "country"},
		{"numeric country", func(iv *Interview) { iv.Country = "U1" }, "country"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			iv := completeInterview()
			tt.mutate(iv)
			errs := ValidateStep(StepIdentity, iv)
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Field = %s, want %s", errs[0].Field, tt.wantField)
			}
		})
	}
}

func TestValidateTaxID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		idType  string
		id      string
		wantErr bool
	}{
		{"ssn with dashes", "ssn", "123-45-6789", false},
		{"ssn bare digits", "ssn", "123456789", false},
		{"ssn with spaces", "ssn", "123 45 6789", false},
		{"ssn too short", "ssn", "12345678", true},
		{"ssn too long", "ssn", "1234567890", true},
		{"ssn with letters", "ssn", "123-45-678a", true},
		{"ein valid", "ein", "12-3456789", false},
		{"vat valid", "vat", "DE123456789", false},
		{"vat minimum digits", "vat", "NL12345678", false},
		{"vat too few digits", "vat", "DE1234567", true},
		{"vat too many digits", "vat", "DE1234567890123", true},
		{"vat missing prefix", "vat", "123456789", true},
		{"unknown id type", "passport", "X1234567", true},
		{"empty id", "ssn", "   ", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			iv := completeInterview()
			iv.TaxIDType = tt.idType
			iv.TaxID = tt.id
			errs := ValidateStep(StepTaxID, iv)
			if gotErr := len(errs) > 0; gotErr != tt.wantErr {
				t.Errorf("errors = %v, wantErr = %v", errs, tt.wantErr)
			}
		})
	}
}

func TestValidateAddress(t *testing.T) {
	t.Parallel()

	iv := completeInterview()
	iv.Street = ""
	iv.PostalCode = "ab"
	errs := ValidateStep(StepAddress, iv)
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}
}

func TestValidateAttestation(t *testing.T) {
	t.Parallel()

	iv := completeInterview()
	iv.Certified = false
	errs := ValidateStep(StepAttestation, iv)
	if len(errs) != 1 || errs[0].Field != "certified" {
		t.Fatalf("errs = %v, want single certified error", errs)
	}
}

func TestValidateStepUnknownPanics(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown step")
		}
	}()
	ValidateStep(Step("bogus"), completeInterview())
}

func TestFieldErrorMessage(t *testing.T) {
	t.Parallel()
	err := &FieldError{StepTaxID, "tax_id", "required"}
	want := "taxform: tax_id.tax_id: required"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
