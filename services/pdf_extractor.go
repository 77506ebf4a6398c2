package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"chefshelf/internal/config"
	"chefshelf/internal/logger"
	"chefshelf/models"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"
)

const (
	// Horizontal gaps are measured in multiples of the font size. A gap wider than
	// wordGapFactor is a space; one wider than itemGapFactor starts a new text item
	// (typically a table cell such as "Farinha   25   G").
	wordGapFactor = 0.2
	itemGapFactor = 1.5
)

// PDFExtractor turns PDF bytes into ordered per-page text.
type PDFExtractor struct {
	method      string
	loadTimeout time.Duration
	pageTimeout time.Duration
	pageWorkers int
	maxFileSize int64
	lookPath    func(string) (string, error)
}

// NewPDFExtractor creates a new PDF extractor
func NewPDFExtractor(cfg *config.Config) *PDFExtractor {
	return &PDFExtractor{
		method:      cfg.PDFExtractionMethod,
		loadTimeout: cfg.PDFLoadTimeout,
		pageTimeout: cfg.PDFPageTimeout,
		pageWorkers: cfg.PDFPageWorkers,
		maxFileSize: cfg.MaxFileSize,
		lookPath:    exec.LookPath,
	}
}

// pageSource is an opened document whose pages can be read by 1-based number.
type pageSource interface {
	NumPage() int
	PageText(num int) (string, error)
}

// textItem is one run of text on a page; EOL marks the last item of a line.
type textItem struct {
	S   string
	EOL bool
}

// ExtractPages returns one string per page, each prefixed with its page marker.
func (e *PDFExtractor) ExtractPages(ctx context.Context, content []byte) (*models.ExtractedPDF, error) {
	start := time.Now()

	if len(content) < 5 || !bytes.HasPrefix(content, []byte("%PDF")) {
		return nil, models.ErrInvalidPDF
	}
	if e.maxFileSize > 0 && int64(len(content)) > e.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", models.ErrInvalidPDF, len(content), e.maxFileSize)
	}

	src, err := e.open(ctx, content)
	if err != nil {
		return nil, err
	}

	pages, err := e.readPages(ctx, src)
	if err != nil {
		return nil, err
	}

	result := &models.ExtractedPDF{
		Pages:          pages,
		PageCount:      len(pages),
		Method:         e.method,
		ProcessingTime: time.Since(start),
		CharacterCount: TextLength(pages),
	}
	logger.Info("pdf.extract.completed",
		"method", result.Method,
		"pages", result.PageCount,
		"chars", result.CharacterCount,
		"elapsed_ms", result.ProcessingTime.Milliseconds(),
	)
	return result, nil
}

func (e *PDFExtractor) open(ctx context.Context, content []byte) (pageSource, error) {
	switch e.method {
	case models.ExtractionMethodPoppler:
		if _, err := e.lookPath("pdftotext"); err != nil {
			return nil, fmt.Errorf("%w: pdftotext not found in PATH", models.ErrLibraryUnavailable)
		}
		return e.openPoppler(ctx, content)
	default:
		src, err := runWithTimeout(ctx, e.loadTimeout, func() (pageSource, error) {
			reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", models.ErrInvalidPDF, err)
			}
			return goPDFSource{reader: reader}, nil
		})
		if err != nil {
			return nil, fmt.Errorf("load document: %w", err)
		}
		return src, nil
	}
}

// readPages extracts every page concurrently and keeps page order. A page that
// fails to decode degrades to an empty body; a page that hangs fails the document.
func (e *PDFExtractor) readPages(ctx context.Context, src pageSource) ([]string, error) {
	n := src.NumPage()
	if n <= 0 {
		return nil, models.ErrEmptyDocument
	}

	pages := make([]string, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.pageWorkers, 1))

	for num := 1; num <= n; num++ {
		g.Go(func() error {
			text, err := runWithTimeout(gctx, e.pageTimeout, func() (string, error) {
				return src.PageText(num)
			})
			if err != nil {
				if errors.Is(err, models.ErrTimeout) {
					return fmt.Errorf("page %d: %w", num, err)
				}
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("pdf.extract.page_failed", "page", num, "error", err)
				text = ""
			}
			pages[num-1] = formatPage(num, text)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

// openPoppler runs pdftotext over the whole document; it separates pages with
// form feeds.
func (e *PDFExtractor) openPoppler(ctx context.Context, content []byte) (pageSource, error) {
	extractCtx, cancel := context.WithTimeout(ctx, e.loadTimeout)
	defer cancel()

	cmd := exec.CommandContext(extractCtx, "pdftotext", "-layout", "-enc", "UTF-8", "-", "-")
	cmd.Stdin = bytes.NewReader(content)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if extractCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("load document: %w", models.ErrTimeout)
		}
		return nil, fmt.Errorf("%w: pdftotext failed: %v, stderr: %s", models.ErrInvalidPDF, err, stderr.String())
	}

	pages := strings.Split(stdout.String(), "\f")
	// pdftotext terminates the last page with a form feed as well
	if len(pages) > 0 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return textPages(pages), nil
}

type goPDFSource struct {
	reader *pdf.Reader
}

func (s goPDFSource) NumPage() int {
	return s.reader.NumPage()
}

func (s goPDFSource) PageText(num int) (string, error) {
	page := s.reader.Page(num)
	if page.V.IsNull() {
		return "", nil
	}

	rows, err := page.GetTextByRow()
	if err == nil {
		if text := joinItems(rowsToItems(rows)); strings.TrimSpace(text) != "" {
			return text, nil
		}
	}

	fonts := make(map[string]*pdf.Font)
	return page.GetPlainText(fonts)
}

// textPages serves pages that were already extracted as plain text.
type textPages []string

func (p textPages) NumPage() int { return len(p) }

func (p textPages) PageText(num int) (string, error) {
	if num < 1 || num > len(p) {
		return "", fmt.Errorf("page %d out of range", num)
	}
	lines := strings.Split(strings.TrimRight(p[num-1], "\n"), "\n")
	items := make([]textItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, textItem{S: strings.TrimRight(line, " "), EOL: true})
	}
	return joinItems(items), nil
}

// rowsToItems merges the glyphs of each row into text runs, top row first.
func rowsToItems(rows pdf.Rows) []textItem {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Position > rows[j].Position
	})

	var items []textItem
	for _, row := range rows {
		runs := rowRuns(row.Content)
		for i, run := range runs {
			items = append(items, textItem{S: run, EOL: i == len(runs)-1})
		}
	}
	return items
}

func rowRuns(texts pdf.TextHorizontal) []string {
	sort.SliceStable(texts, func(i, j int) bool {
		return texts[i].X < texts[j].X
	})

	var runs []string
	var current strings.Builder
	var prevEnd float64
	started := false

	flush := func() {
		if run := strings.TrimSpace(current.String()); run != "" {
			runs = append(runs, run)
		}
		current.Reset()
	}

	for _, t := range texts {
		if t.S == "" {
			continue
		}
		if started {
			size := t.FontSize
			if size <= 0 {
				size = 10
			}
			gap := t.X - prevEnd
			switch {
			case gap > size*itemGapFactor:
				flush()
			case gap > size*wordGapFactor && !strings.HasSuffix(current.String(), " ") && t.S != " ":
				current.WriteByte(' ')
			}
		}
		current.WriteString(t.S)
		prevEnd = t.X + t.W
		started = true
	}
	flush()
	return runs
}

// joinItems follows the line structure of the page: an item that ends a line is
// followed by a newline, any other item by two spaces.
func joinItems(items []textItem) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString(item.S)
		if item.EOL {
			b.WriteByte('\n')
		} else {
			b.WriteString("  ")
		}
	}
	return b.String()
}

func formatPage(num int, text string) string {
	return fmt.Sprintf(models.PageMarkerFormat, num) + "\n" + text
}

// pageBody strips the page marker line.
func pageBody(page string) string {
	if strings.HasPrefix(page, "--- PAGE ") {
		if idx := strings.IndexByte(page, '\n'); idx >= 0 {
			return page[idx+1:]
		}
		return ""
	}
	return page
}

// TextLength counts the selectable text across pages, ignoring page markers
// and surrounding whitespace.
func TextLength(pages []string) int {
	total := 0
	for _, page := range pages {
		total += len([]rune(strings.TrimSpace(pageBody(page))))
	}
	return total
}

// runWithTimeout bounds fn, which cannot itself be cancelled. The PDF library
// panics on some malformed input, so panics are turned into errors.
func runWithTimeout[T any](ctx context.Context, d time.Duration, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- result{zero, fmt.Errorf("%w: %v", models.ErrInvalidPDF, r)}
			}
		}()
		v, err := fn()
		done <- result{v, err}
	}()

	var zero T
	if d <= 0 {
		select {
		case r := <-done:
			return r.value, r.err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.value, r.err
	case <-timer.C:
		return zero, models.ErrTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
