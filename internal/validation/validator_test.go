// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil {
		t.Fatal("GetValidator() returned nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same instance")
	}
}

type messageRequest struct {
	Room    string `validate:"required,roomkey"`
	Content string `validate:"required,notblank,max=20"`
	Limit   int    `validate:"min=1,max=100"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name     string
		input    messageRequest
		wantErr  bool
		wantTags []string
	}{
		{
			name:  "valid",
			input: messageRequest{Room: "42:client_dealership", Content: "hello", Limit: 10},
		},
		{
			name:     "unknown participants",
			input:    messageRequest{Room: "42:someone_else", Content: "hello", Limit: 10},
			wantErr:  true,
			wantTags: []string{"roomkey"},
		},
		{
			name:     "missing entity",
			input:    messageRequest{Room: ":dealership_staff", Content: "hello", Limit: 10},
			wantErr:  true,
			wantTags: []string{"roomkey"},
		},
		{
			name:     "blank content",
			input:    messageRequest{Room: "42:dealership_staff", Content: "   ", Limit: 10},
			wantErr:  true,
			wantTags: []string{"notblank"},
		},
		{
			name:     "multiple failures",
			input:    messageRequest{Room: "", Content: strings.Repeat("x", 21), Limit: 0},
			wantErr:  true,
			wantTags: []string{"required", "max", "min"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.input)
			if !tt.wantErr {
				if verr != nil {
					t.Fatalf("ValidateStruct() unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("ValidateStruct() expected error, got nil")
			}
			errs := verr.Errors()
			if len(errs) != len(tt.wantTags) {
				t.Fatalf("got %d errors, want %d: %v", len(errs), len(tt.wantTags), verr)
			}
			for i, tag := range tt.wantTags {
				if errs[i].Tag() != tag {
					t.Errorf("error[%d].Tag() = %q, want %q", i, errs[i].Tag(), tag)
				}
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	single := ValidateStruct(&messageRequest{Room: "1:dealership_staff", Content: "", Limit: 1})
	if single == nil {
		t.Fatal("expected error")
	}
	apiErr := single.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Message != "Content is required" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "Content" {
		t.Errorf("Details[field] = %v", apiErr.Details["field"])
	}

	multi := ValidateStruct(&messageRequest{})
	apiErr = multi.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 3 {
		t.Fatalf("Details[fields] = %v", apiErr.Details["fields"])
	}
	if !strings.Contains(apiErr.Message, "Room: Room is required") {
		t.Errorf("Message = %q", apiErr.Message)
	}

	empty := &RequestValidationError{}
	if empty.Error() != "validation failed" {
		t.Errorf("Error() = %q", empty.Error())
	}
	if empty.ToAPIError().Message != "Validation failed" {
		t.Errorf("empty ToAPIError().Message = %q", empty.ToAPIError().Message)
	}
}

func TestValidateVar(t *testing.T) {
	if verr := ValidateVar("roomID", "7:client_dealership", "roomkey"); verr != nil {
		t.Errorf("ValidateVar() unexpected error: %v", verr)
	}
	verr := ValidateVar("roomID", "nope", "roomkey")
	if verr == nil {
		t.Fatal("ValidateVar() expected error")
	}
	if got := verr.Errors()[0].Field(); got != "roomID" {
		t.Errorf("Field() = %q, want roomID", got)
	}
	if !strings.HasPrefix(verr.Error(), "roomID must be a room key") {
		t.Errorf("Error() = %q", verr.Error())
	}
}
