package models

import "time"

// PageMarkerFormat prefixes each page's text so the model keeps positional
// context across page boundaries.
const PageMarkerFormat = "--- PAGE %d ---"

// PDFDocument is one uploaded file queued for import.
type PDFDocument struct {
	Name    string
	Content []byte
}

// ExtractedPDF is the result of running the text extractor over one document.
type ExtractedPDF struct {
	Pages          []string      `json:"-"`
	PageCount      int           `json:"page_count"`
	Method         string        `json:"method"`
	ProcessingTime time.Duration `json:"processing_time"`
	CharacterCount int           `json:"character_count"`
}

// FileReport summarizes the import of a single file.
type FileReport struct {
	Filename     string `json:"filename"`
	Pages        int    `json:"pages"`
	Chunks       int    `json:"chunks"`
	EmptyChunks  int    `json:"empty_chunks"`
	FailedChunks int    `json:"failed_chunks"`
	Recipes      int    `json:"recipes"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

// ImportResponse is returned by the synchronous import endpoint.
type ImportResponse struct {
	Recipes []Recipe     `json:"recipes"`
	Files   []FileReport `json:"files"`
	Saved   bool         `json:"saved"`
	Message string       `json:"message,omitempty"`
}

// File processing status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusSkipped    = "skipped"
)

// ExtractionMethod names the PDF text backend that produced the pages
const (
	ExtractionMethodGoPDF   = "go-pdf"
	ExtractionMethodPoppler = "poppler"
)
