package validator

import (
	"strings"
	"testing"

	"github.com/gin-gonic/gin/binding"
)

type roleRequest struct {
	Email string `binding:"required,email"`
	Role  string `binding:"required,expo_role"`
}

type statusRequest struct {
	Status string `binding:"required,booth_status"`
	MapRow *int   `binding:"omitempty,min=0"`
}

func TestRegisterIdempotent(t *testing.T) {
	if err := Register(); err != nil {
		t.Fatal(err)
	}
	if err := Register(); err != nil {
		t.Fatal(err)
	}
}

func TestCustomTags(t *testing.T) {
	if err := Register(); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name string
		obj  any
		ok   bool
	}{
		{"known role", &roleRequest{Email: "a@x.com", Role: "Exhibitor"}, true},
		{"unknown role", &roleRequest{Email: "a@x.com", Role: "superuser"}, false},
		{"approved", &statusRequest{Status: "approved"}, true},
		{"bad status", &statusRequest{Status: "archived"}, false},
	}
	for _, tc := range cases {
		err := binding.Validator.ValidateStruct(tc.obj)
		if (err == nil) != tc.ok {
			t.Errorf("%s: err = %v, want ok=%v", tc.name, err, tc.ok)
		}
	}
}

func TestFormatValidationError(t *testing.T) {
	if err := Register(); err != nil {
		t.Fatal(err)
	}
	neg := -1
	err := binding.Validator.ValidateStruct(&statusRequest{Status: "archived", MapRow: &neg})
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := FormatValidationError(err)
	for _, want := range []string{"status must be one of pending, approved, rejected", "map_row must be at least 0"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}
