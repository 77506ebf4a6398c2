package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	ChunkOutcomes       metric.Int64Counter
	RecipesExtracted    metric.Int64Counter
	PDFProcessingTime   metric.Float64Histogram
	StorageFallbacks    metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
	DatabaseOperations  metric.Int64Counter
	RequestDuration     metric.Float64Histogram
}

// InitMetrics registers the import pipeline instruments on the global meter
// provider. Every instrument is attempted; the errors are joined.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("chefshelf")
	m := &Metrics{}
	var errs []error

	counter := func(name, description string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(description))
		errs = append(errs, err)
		return c
	}
	seconds := func(name, description string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithDescription(description), metric.WithUnit("s"))
		errs = append(errs, err)
		return h
	}

	m.ChunkOutcomes = counter("ai.chunks.total", "Chunks sent to the AI provider by outcome")
	m.RecipesExtracted = counter("recipes.extracted.total", "Recipes extracted from uploaded documents")
	m.PDFProcessingTime = seconds("pdf.processing.duration", "Text extraction time per document")
	m.StorageFallbacks = counter("storage.fallbacks.total", "Operations served by the local store because the remote failed")
	m.CircuitBreakerState = counter("circuit_breaker.state_changes", "Remote store breaker transitions")
	m.DatabaseOperations = counter("database.operations.total", "Remote store operations by backend and result")
	m.RequestDuration = seconds("http.request.duration", "HTTP request duration")

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordChunk records the outcome of one chunk extraction
func (m *Metrics) RecordChunk(provider, status string, attempts int) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", provider),
		attribute.String("chunk.status", status),
		attribute.Int("chunk.attempts", attempts),
	}
	m.ChunkOutcomes.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordRecipes records how many recipes a document produced
func (m *Metrics) RecordRecipes(count int) {
	if m == nil || count == 0 {
		return
	}
	m.RecipesExtracted.Add(context.Background(), int64(count))
}

// RecordPDFProcessing records PDF processing metrics
func (m *Metrics) RecordPDFProcessing(duration float64, status string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("pdf.status", status),
		attribute.String("service", "pdf_extractor"),
	}
	m.PDFProcessingTime.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordStorageFallback records an operation that fell back to the local store
func (m *Metrics) RecordStorageFallback(operation string) {
	if m == nil {
		return
	}
	m.StorageFallbacks.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("storage.operation", operation)))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}
	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordDatabaseOperation records database operation metrics
func (m *Metrics) RecordDatabaseOperation(operation, backend string, success bool) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.String("db.backend", backend),
		attribute.Bool("db.success", success),
	}
	m.DatabaseOperations.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, route, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.String("http.status", status),
	}
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}
