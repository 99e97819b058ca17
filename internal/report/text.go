package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/nao1215/docmirror/internal/model"
)

const (
	// ruleWidth is the width of section separators.
	ruleWidth = 70

	// urlColumnWidth caps the URL column of page tables.
	urlColumnWidth = 48

	// pendingPreview is how many pending URLs are listed without verbose.
	pendingPreview = 10
)

// TextWriter outputs human-readable text reports for terminal display.
// Columns are aligned by display width, so titles in CJK scripts line up.
type TextWriter struct {
	baseWriter

	// verbose lists every page record and every pending URL.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose enables verbose output with every page record.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in human-readable format.
func (w *TextWriter) Write(summary *model.Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCounts(&sb, summary)
	w.writeHTTPCodes(&sb, summary)
	w.writeFailures(&sb, summary)
	w.writePending(&sb, summary)
	if w.verbose {
		w.writeRecords(&sb, summary)
	}
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *TextWriter) writeHeader(sb *strings.Builder, s *model.Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(center("DOCMIRROR CRAWL REPORT", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	writePairs(sb, [][2]string{
		{"Base URL", s.BaseURL},
		{"Output", s.OutputDir},
		{"Method", s.Method},
		{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Duration", s.Duration().Round(time.Millisecond).String()},
		{"Status", statusText(s)},
	})
	sb.WriteString("\n")
}

func (w *TextWriter) writeCounts(sb *strings.Builder, s *model.Summary) {
	section(sb, "PAGES")

	pairs := [][2]string{
		{"Discovered", strconv.Itoa(s.Discovered)},
		{"Attempted", strconv.Itoa(s.Attempted)},
		{"Converted", strconv.Itoa(s.Converted)},
		{"Raw HTML fallback", strconv.Itoa(s.ConversionFallbacks)},
		{"Failed", strconv.Itoa(s.FailedTotal())},
		{"Skipped", strconv.Itoa(s.SkippedTotal())},
		{"Pending", strconv.Itoa(len(s.Pending))},
	}
	if s.SitemapErrors > 0 {
		pairs = append(pairs, [2]string{"Sitemap errors", strconv.Itoa(s.SitemapErrors)})
	}
	writePairs(sb, pairs)
	sb.WriteString("\n")

	if s.FailedTotal() > 0 || s.SkippedTotal() > 0 {
		var detail [][2]string
		for _, kind := range []model.FailureKind{model.FailureNetwork, model.FailureHTTP, model.FailureWrite} {
			if n := s.Failed[kind]; n > 0 {
				detail = append(detail, [2]string{"failed/" + string(kind), strconv.Itoa(n)})
			}
		}
		for _, reason := range []model.SkipReason{model.SkipRobotsDenied, model.SkipNonHTML, model.SkipOutOfScope} {
			if n := s.Skipped[reason]; n > 0 {
				detail = append(detail, [2]string{"skipped/" + string(reason), strconv.Itoa(n)})
			}
		}
		writePairs(sb, detail)
		sb.WriteString("\n")
	}
}

func (w *TextWriter) writeHTTPCodes(sb *strings.Builder, s *model.Summary) {
	codes := s.SortedHTTPCodes()
	if len(codes) == 0 {
		return
	}
	section(sb, "HTTP STATUS CODES")
	pairs := make([][2]string, 0, len(codes))
	for _, code := range codes {
		pairs = append(pairs, [2]string{strconv.Itoa(code), strconv.Itoa(s.HTTPCodes[code])})
	}
	writePairs(sb, pairs)
	sb.WriteString("\n")
}

func (w *TextWriter) writeFailures(sb *strings.Builder, s *model.Summary) {
	failed := s.FailedRecords()
	if len(failed) == 0 {
		return
	}
	section(sb, "FAILURES")
	rows := make([][]string, 0, len(failed))
	for _, r := range failed {
		rows = append(rows, []string{r.URL, r.Status, r.Error})
	}
	writeTable(sb, []string{"URL", "STATUS", "ERROR"}, rows)
	sb.WriteString("\n")
}

func (w *TextWriter) writePending(sb *strings.Builder, s *model.Summary) {
	if len(s.Pending) == 0 {
		return
	}
	section(sb, "PENDING")
	shown := s.Pending
	if !w.verbose && len(shown) > pendingPreview {
		shown = shown[:pendingPreview]
	}
	for _, u := range shown {
		fmt.Fprintf(sb, "  %s\n", u)
	}
	if rest := len(s.Pending) - len(shown); rest > 0 {
		fmt.Fprintf(sb, "  ... and %d more\n", rest)
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeRecords(sb *strings.Builder, s *model.Summary) {
	if len(s.Records) == 0 {
		return
	}
	section(sb, "ALL PAGES")
	rows := make([][]string, 0, len(s.Records))
	for _, r := range s.Records {
		rows = append(rows, []string{r.URL, r.Status, r.OutputPath, r.Title})
	}
	writeTable(sb, []string{"URL", "STATUS", "FILE", "TITLE"}, rows)
	sb.WriteString("\n")
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// writePairs writes "  key:  value" lines with the values aligned.
func writePairs(sb *strings.Builder, pairs [][2]string) {
	keyWidth := 0
	for _, p := range pairs {
		keyWidth = max(keyWidth, runewidth.StringWidth(p[0]))
	}
	for _, p := range pairs {
		fmt.Fprintf(sb, "  %s  %s\n", runewidth.FillRight(p[0]+":", keyWidth+1), p[1])
	}
}

// writeTable writes rows in columns padded to display width. The first
// column is truncated to urlColumnWidth; the last column is never padded.
func writeTable(sb *strings.Builder, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(header))
		for i := range header {
			if i >= len(row) {
				continue
			}
			v := strings.ReplaceAll(row[i], "\n", " ")
			if i == 0 {
				v = runewidth.Truncate(v, urlColumnWidth, "...")
			}
			cells[r][i] = v
			widths[i] = max(widths[i], runewidth.StringWidth(v))
		}
	}

	writeRow := func(row []string) {
		sb.WriteString(" ")
		for i, v := range row {
			sb.WriteString(" ")
			if i == len(row)-1 {
				sb.WriteString(v)
				continue
			}
			sb.WriteString(runewidth.FillRight(v, widths[i]))
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}

	writeRow(header)
	for _, row := range cells {
		writeRow(row)
	}
}

func center(s string, width int) string {
	pad := (width - runewidth.StringWidth(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}
