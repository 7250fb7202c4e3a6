// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package validation

import (
	"strings"
	"testing"
)

// ===================================================================================================
// Singleton Validator Tests
// ===================================================================================================

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

// ===================================================================================================
// ValidateStruct Tests
// ===================================================================================================

type pollStruct struct {
	Name     string `validate:"required,max=32"`
	Interval int    `validate:"gt=0"`
	Increase int    `validate:"gte=0,lte=60000"`
	Mode     string `validate:"omitempty,oneof=fast slow"`
}

type headerStruct struct {
	Header string `validate:"omitempty,headername"`
	Param  string `validate:"queryparam"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantMsg   string
	}{
		{
			name:  "valid poll struct",
			input: &pollStruct{Name: "servers", Interval: 4000, Increase: 500, Mode: "fast"},
		},
		{
			name:      "missing name",
			input:     &pollStruct{Interval: 4000},
			wantField: "Name",
			wantMsg:   "Name is required",
		},
		{
			name:      "zero interval",
			input:     &pollStruct{Name: "a", Interval: 0},
			wantField: "Interval",
			wantMsg:   "Interval must be greater than 0",
		},
		{
			name:      "increase over bound",
			input:     &pollStruct{Name: "a", Interval: 1, Increase: 60001},
			wantField: "Increase",
			wantMsg:   "Increase must be less than or equal to 60000",
		},
		{
			name:      "name too long",
			input:     &pollStruct{Name: strings.Repeat("x", 33), Interval: 1},
			wantField: "Name",
			wantMsg:   "Name must be at most 32 characters",
		},
		{
			name:      "unknown mode",
			input:     &pollStruct{Name: "a", Interval: 1, Mode: "turbo"},
			wantField: "Mode",
			wantMsg:   "Mode must be one of: fast slow",
		},
		{
			name:  "valid header and param",
			input: &headerStruct{Header: "X-Auth-Token", Param: "changes-since"},
		},
		{
			name:  "empty header allowed",
			input: &headerStruct{Param: "since"},
		},
		{
			name:      "header with space",
			input:     &headerStruct{Header: "X Auth", Param: "since"},
			wantField: "Header",
			wantMsg:   "Header must be a valid HTTP header name",
		},
		{
			name:      "header with colon",
			input:     &headerStruct{Header: "Date:", Param: "since"},
			wantField: "Header",
			wantMsg:   "Header must be a valid HTTP header name",
		},
		{
			name:      "param needing escape",
			input:     &headerStruct{Param: "changes since"},
			wantField: "Param",
			wantMsg:   "Param must be a plain query parameter name",
		},
		{
			name:      "empty param",
			input:     &headerStruct{},
			wantField: "Param",
			wantMsg:   "Param must be a plain query parameter name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			verr := ValidateStruct(tt.input)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatalf("ValidateStruct() expected error on %s", tt.wantField)
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("len(Errors()) = %d, want 1 (%v)", len(errs), verr)
			}
			if errs[0].Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", errs[0].Field(), tt.wantField)
			}
			if errs[0].Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", errs[0].Error(), tt.wantMsg)
			}
		})
	}
}

type nestedOuter struct {
	Inner nestedInner
	Items []nestedInner `validate:"dive"`
}

type nestedInner struct {
	Value int `validate:"gt=0"`
}

func TestNestedStructValidation(t *testing.T) {
	t.Parallel()

	if verr := ValidateStruct(&nestedOuter{Inner: nestedInner{Value: 1}, Items: []nestedInner{{Value: 2}}}); verr != nil {
		t.Fatalf("unexpected error: %v", verr)
	}

	verr := ValidateStruct(&nestedOuter{Inner: nestedInner{Value: 0}, Items: []nestedInner{{Value: 0}}})
	if verr == nil {
		t.Fatal("expected nested errors")
	}
	if len(verr.Errors()) != 2 {
		t.Errorf("len(Errors()) = %d, want 2", len(verr.Errors()))
	}
}

// ===================================================================================================
// APIError Conversion Tests
// ===================================================================================================

func TestToAPIError_SingleError(t *testing.T) {
	t.Parallel()

	verr := ValidateStruct(&pollStruct{Interval: 1})
	if verr == nil {
		t.Fatal("expected validation error")
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Message != "Name is required" {
		t.Errorf("Message = %q, want %q", apiErr.Message, "Name is required")
	}
	if apiErr.Details["field"] != "Name" {
		t.Errorf("Details[field] = %v, want Name", apiErr.Details["field"])
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	t.Parallel()

	verr := ValidateStruct(&pollStruct{})
	if verr == nil {
		t.Fatal("expected validation error")
	}

	apiErr := verr.ToAPIError()
	if !strings.Contains(apiErr.Message, "Name: Name is required") {
		t.Errorf("Message = %q, want Name entry", apiErr.Message)
	}
	if !strings.Contains(apiErr.Message, "Interval: Interval must be greater than 0") {
		t.Errorf("Message = %q, want Interval entry", apiErr.Message)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Errorf("Details[fields] = %#v, want 2 entries", apiErr.Details["fields"])
	}
}

func TestRequestValidationError_Empty(t *testing.T) {
	t.Parallel()

	ve := &RequestValidationError{}
	if ve.Error() != "validation failed" {
		t.Errorf("Error() = %q, want %q", ve.Error(), "validation failed")
	}
	if ve.ToAPIError().Message != "Validation failed" {
		t.Errorf("ToAPIError().Message = %q", ve.ToAPIError().Message)
	}
}
