package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "component not found")
		if err.Error() != "[NOT_FOUND] component not found" {
			t.Errorf("expected [NOT_FOUND] component not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeParse, "script block rejected")
		expected := "[PARSE_ERROR] script block rejected: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidation, "invalid config")
		if !IsCode(err, CodeValidation) {
			t.Error("expected IsCode to return true for CodeValidation")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		if !IsCode(err, CodeInternal) {
			t.Error("expected IsCode to return true for wrapped CodeInternal")
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := New(CodeIO, "read failed")
		err = AddContext(err, CtxPath, "app.vue")
		if !strings.Contains(err.Error(), "app.vue") {
			t.Errorf("expected context path in message, got %s", err.Error())
		}
	})

	t.Run("AddContextPlainError", func(t *testing.T) {
		err := AddContext(errors.New("plain"), CtxOperation, "scan")
		if !IsCode(err, CodeInternal) {
			t.Error("expected plain errors to be wrapped as CodeInternal")
		}
	})
}
