package validation

import (
	"errors"
	"strings"
	"testing"
)

type testPoint struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

type testRequest struct {
	Name  string     `json:"name" validate:"required,max=5"`
	Point *testPoint `json:"point" validate:"required"`
}

func floatPtr(v float64) *float64 { return &v }

func TestStructNamesFieldsByJSONKey(t *testing.T) {
	t.Parallel()

	err := Struct(&testRequest{Point: &testPoint{Lat: floatPtr(95)}})
	var verr *RequestValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected RequestValidationError, got %v", err)
	}

	got := strings.Join(verr.FieldNames(), ",")
	if got != "name,point.lat,point.lng" {
		t.Fatalf("unexpected fields %q", got)
	}
	if !strings.Contains(verr.Error(), "name is required") {
		t.Fatalf("expected required message, got %q", verr.Error())
	}
	if !strings.Contains(verr.Error(), "point.lat must be a valid latitude") {
		t.Fatalf("expected latitude message, got %q", verr.Error())
	}
}

func TestStructAcceptsZeroCoordinates(t *testing.T) {
	t.Parallel()

	if err := Struct(&testRequest{Name: "a", Point: &testPoint{Lat: floatPtr(0), Lng: floatPtr(0)}}); err != nil {
		t.Fatalf("expected zero coordinates to be valid, got %v", err)
	}
}

func TestStructMissingNestedStruct(t *testing.T) {
	t.Parallel()

	err := Struct(&testRequest{Name: "abcdef"})
	var verr *RequestValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected RequestValidationError, got %v", err)
	}
	if got := strings.Join(verr.FieldNames(), ","); got != "name,point" {
		t.Fatalf("unexpected fields %q", got)
	}
}
