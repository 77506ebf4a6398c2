package models

import "errors"

// Pipeline error taxonomy. Callers match with errors.Is; producers wrap with %w.
var (
	// ErrConfiguration means a credential is missing or was rejected. Fatal for
	// the whole operation.
	ErrConfiguration = errors.New("configuration error")

	// ErrEmptyDocument means the PDF has no pages.
	ErrEmptyDocument = errors.New("pdf has no pages")

	// ErrScannedDocument means the PDF has no selectable text (e.g. scanned images).
	ErrScannedDocument = errors.New("pdf has no selectable text; it looks like a scanned image or is empty")

	// ErrInvalidPDF means the upload is not a readable PDF.
	ErrInvalidPDF = errors.New("file is not a valid pdf")

	// ErrTimeout means loading the document or a page took too long.
	ErrTimeout = errors.New("pdf processing timed out; the file may be corrupt or protected")

	// ErrLibraryUnavailable means the configured PDF backend is not installed.
	ErrLibraryUnavailable = errors.New("pdf extraction backend unavailable")

	// ErrTransientAPI marks 429/5xx replies from the AI provider. Retried, never surfaced.
	ErrTransientAPI = errors.New("transient ai provider error")

	// ErrMalformedReply means the AI reply could not be parsed as recipe JSON.
	ErrMalformedReply = errors.New("malformed ai reply")

	// ErrStorageFailure means neither the remote database nor the local store
	// accepted a write.
	ErrStorageFailure = errors.New("failed to save recipes to both database and local storage")

	// ErrStorageUnavailable means a search found neither store readable.
	ErrStorageUnavailable = errors.New("recipes could not be read from the database or local storage")
)

// IsFileScoped reports whether err aborts only the current file of a
// multi-file import.
func IsFileScoped(err error) bool {
	return errors.Is(err, ErrEmptyDocument) ||
		errors.Is(err, ErrScannedDocument) ||
		errors.Is(err, ErrInvalidPDF) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrLibraryUnavailable)
}
