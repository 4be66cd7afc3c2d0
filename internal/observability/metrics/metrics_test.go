package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsHighCardinalityLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("resource_type", "rfq"),
		attribute.String("user_id", "42"),
		attribute.String("resource_id", "7"),
		attribute.String("permission", "read"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "user_id" || attr.Key == "resource_id" {
			t.Fatalf("unexpected label %s", attr.Key)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordPermissionCheck(context.Background(), "rfq", "read")
	m.RecordCacheLookup(context.Background(), true)
	m.RecordMutation(context.Background(), "acl", "create")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordPermissionCheck(context.Background(), "rfq", "full")
	m.RecordCacheLookup(context.Background(), false)
	m.RecordMutation(context.Background(), "acl_rule", "delete")
}
