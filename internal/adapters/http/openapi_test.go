package http_test

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/samirrijal/canvass/api"
	"github.com/samirrijal/canvass/internal/core/domain"
)

func loadOpenAPISpec(t *testing.T) *openapi3.T {
	t.Helper()
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	spec, err := loader.LoadFromData(api.OpenAPI)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI spec: %v", err)
	}
	return spec
}

func TestOpenAPISpec(t *testing.T) {
	spec := loadOpenAPISpec(t)

	if err := spec.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI spec validation failed: %v", err)
	}

	expectedPaths := []string{
		"/",
		"/health",
		"/ready",
		"/api/v1/locations/",
		"/api/v1/locations/heatmap-data",
		"/api/v1/locations/coverage-stats",
		"/api/v1/locations/nearby",
		"/api/v1/locations/recent",
		"/graphql",
	}
	for _, path := range expectedPaths {
		if item := spec.Paths.Find(path); item == nil {
			t.Errorf("expected path %s not found in spec", path)
		}
	}

	expectedSchemas := []string{
		"VisitInput",
		"VisitResult",
		"Visit",
		"Heatmap",
		"CoverageStats",
		"VisitCreatedEvent",
		"APIError",
	}
	for _, schema := range expectedSchemas {
		if spec.Components.Schemas[schema] == nil {
			t.Errorf("expected schema %s not found", schema)
		}
	}
}

func TestOpenAPIInfo(t *testing.T) {
	spec := loadOpenAPISpec(t)

	if spec.Info.Title != "Canvass Campaign API" {
		t.Errorf("expected title 'Canvass Campaign API', got %q", spec.Info.Title)
	}
	if spec.Info.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %q", spec.Info.Version)
	}
	if len(spec.Servers) == 0 {
		t.Error("expected at least one server")
	}
}

// The documented bounds must match what the service enforces.
func TestOpenAPIVisitInputBounds(t *testing.T) {
	spec := loadOpenAPISpec(t)
	props := spec.Components.Schemas["VisitInput"].Value.Properties

	b := domain.ConstituencyBounds

	lat := props["latitude"].Value
	lon := props["longitude"].Value
	if *lat.Min != b.MinLat || *lat.Max != b.MaxLat {
		t.Errorf("latitude bounds %v..%v", *lat.Min, *lat.Max)
	}
	if *lon.Min != b.MinLon || *lon.Max != b.MaxLon {
		t.Errorf("longitude bounds %v..%v", *lon.Min, *lon.Max)
	}
}
