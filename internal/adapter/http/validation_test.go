package http

import (
	"errors"
	"strings"
	"testing"
)

func containsFieldMsg(fe []FieldError, field, frag string) bool {
	for _, e := range fe {
		if e.Field == field && strings.Contains(e.Message, frag) {
			return true
		}
	}
	return false
}

func TestHex32Validation(t *testing.T) {
	type P struct {
		LenderID string `validate:"hex32"`
	}
	cv := NewValidator()

	ok := P{LenderID: strings.Repeat("a", 32)}
	if err := cv.Validate(ok); err != nil {
		t.Fatalf("expected valid hex32, got err: %v", err)
	}

	for _, s := range []string{
		"",                                  // empty
		strings.Repeat("A", 32),             // uppercase
		"deadbeef",                          // too short
		strings.Repeat("g", 32),             // non-hex char
		"3f9a6a1b3d544fbe8b3a6b3e8d6b2c8",   // 31 chars
		"3f9a6a1b3d544fbe8b3a6b3e8d6b2c88x", // 33 with extra
	} {
		err := cv.Validate(P{LenderID: s})
		if err == nil {
			t.Fatalf("expected error for %q", s)
		}
		if !containsFieldMsg(ToFieldErrors(err), "LenderID", "32-char lowercase hex") {
			t.Fatalf("expected hex32 message for %q, got: %+v", s, ToFieldErrors(err))
		}
	}
}

func TestDec2Validation(t *testing.T) {
	type P struct {
		Rate float64 `validate:"dec2"`
	}
	cv := NewValidator()

	for _, v := range []float64{12.29, 2.00, 0.9, 1.2, 0} {
		if err := cv.Validate(P{Rate: v}); err != nil {
			t.Fatalf("expected dec2 OK for %v, got %v", v, err)
		}
	}
	for _, v := range []float64{1.234, 2.9999} {
		err := cv.Validate(P{Rate: v})
		if err == nil {
			t.Fatalf("expected dec2 error for %v", v)
		}
		if !containsFieldMsg(ToFieldErrors(err), "Rate", "at most 2 decimal places") {
			t.Fatalf("expected dec2 message for %v, got %+v", v, ToFieldErrors(err))
		}
	}
}

func TestRequiredAndBoundsMapping(t *testing.T) {
	type P struct {
		Mode   string  `validate:"required,oneof=EMI ONETIME"`
		Amount int64   `validate:"gt=0"`
		Rate   float64 `validate:"gte=0,lte=100,dec2"`
	}
	cv := NewValidator()

	err := cv.Validate(P{
		Mode:   "WEEKLY", // oneof
		Amount: 0,        // gt=0
		Rate:   -1,       // gte=0
	})
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	fe := ToFieldErrors(err)

	if !containsFieldMsg(fe, "Mode", "must be one of: EMI ONETIME") {
		t.Fatalf("missing oneof message for Mode: %+v", fe)
	}
	if !containsFieldMsg(fe, "Amount", "greater than 0") {
		t.Fatalf("missing gt message for Amount: %+v", fe)
	}
	if !containsFieldMsg(fe, "Rate", "greater than or equal to 0") {
		t.Fatalf("missing gte message for Rate: %+v", fe)
	}

	err = cv.Validate(P{Mode: "", Amount: 1, Rate: 101})
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	fe = ToFieldErrors(err)
	if !containsFieldMsg(fe, "Mode", "is required") {
		t.Fatalf("missing required message for Mode: %+v", fe)
	}
	if !containsFieldMsg(fe, "Rate", "less than or equal to 100") {
		t.Fatalf("missing lte message for Rate: %+v", fe)
	}
}

func TestToFieldErrors_NonValidation(t *testing.T) {
	fe := ToFieldErrors(errors.New("boom"))
	if len(fe) != 1 {
		t.Fatalf("expected 1 field error, got %d", len(fe))
	}
	if fe[0].Field != "_" || fe[0].Message != "boom" {
		t.Fatalf("unexpected mapping: %+v", fe[0])
	}
}
