package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidation_Wrapped(t *testing.T) {
	err := fmt.Errorf("record movement: %w", Validation("quantity must be positive, got %d", -1))
	if !IsValidation(err) {
		t.Fatal("IsValidation: want true through wrapping")
	}
	if IsNotFound(err) {
		t.Error("IsNotFound: want false for plain validation")
	}
	if got := PublicMessage(err); got != "quantity must be positive, got -1" {
		t.Errorf("PublicMessage = %q", got)
	}
}

func TestNotFound_IsValidation(t *testing.T) {
	err := NotFound("reservation %d not found", 7)
	if !IsValidation(err) || !IsNotFound(err) {
		t.Errorf("NotFound should be both validation and not-found: %v", err)
	}
}

func TestPublicMessage_HidesInternalErrors(t *testing.T) {
	cases := []error{
		Consistency("product 3 vanished"),
		Configuration("product 3 has no price"),
		errors.New("dial tcp: connection refused"),
	}
	for _, err := range cases {
		if got := PublicMessage(err); got != GenericMessage {
			t.Errorf("PublicMessage(%v) = %q, want %q", err, got, GenericMessage)
		}
	}
	if !IsConsistency(cases[0]) {
		t.Error("IsConsistency: want true")
	}
	if !IsConfiguration(cases[1]) {
		t.Error("IsConfiguration: want true")
	}
}
