// Package output renders probe's CLI output: styled terminal text via
// lipgloss when attached to a TTY (detected with go-isatty), plain text
// otherwise, plus the JSON result record for piping into other tools.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	isatty "github.com/mattn/go-isatty"

	"github.com/probehq/probe/internal/engine"
)

// Palette: a lime accent theme.
const (
	colorLime     = "154"
	colorWhite    = "255"
	colorGray     = "245"
	colorDarkGray = "238"
	colorRed      = "196"
	colorYellow   = "220"
)

type styles struct {
	path    lipgloss.Style
	meta    lipgloss.Style
	score   lipgloss.Style
	dim     lipgloss.Style
	match   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
}

func newStyles() styles {
	return styles{
		path:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorLime)),
		meta:    lipgloss.NewStyle().Foreground(lipgloss.Color(colorWhite)),
		score:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorDarkGray)),
		match:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorYellow)),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorLime)),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
	}
}

// Writer provides formatted output for the CLI: styled when useColor is
// set, plain otherwise.
type Writer struct {
	out      io.Writer
	useColor bool
	st       styles
}

// New creates a Writer that auto-detects whether out is a terminal via
// go-isatty to decide whether to emit ANSI styling.
func New(out io.Writer) *Writer {
	useColor := false
	if f, ok := out.(interface{ Fd() uintptr }); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Writer{out: out, useColor: useColor, st: newStyles()}
}

// NewPlain creates a Writer that never emits ANSI styling, used for
// --json output and any destination known not to be a terminal.
func NewPlain(out io.Writer) *Writer {
	return &Writer{out: out, useColor: false, st: newStyles()}
}

func (w *Writer) render(s lipgloss.Style, text string) string {
	if !w.useColor {
		return text
	}
	return s.Render(text)
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", w.render(w.st.success, msg))
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", w.render(w.st.warning, msg))
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", w.render(w.st.failure, msg))
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Code prints a code block with indentation.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Progress prints a progress bar with message.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 {
		return
	}
	pct := float64(current) / float64(total) * 100
	bar := renderProgressBar(current, total, 30)
	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", bar, pct, msg)
	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

// ProgressDone completes a progress line with newline.
func (w *Writer) ProgressDone() {
	_, _ = fmt.Fprintln(w.out)
}

func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	pct := float64(current) / float64(total)
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// jsonResult mirrors the CLI's JSON result record exactly.
type jsonResult struct {
	Path      string  `json:"path"`
	Score     float64 `json:"score"`
	ChunkType string  `json:"chunk_type"`
	ChunkName string  `json:"chunk_name"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Snippet   string  `json:"snippet"`
}

// JSONResults writes results as a JSON array of result records.
func (w *Writer) JSONResults(results []engine.Result) error {
	out := make([]jsonResult, len(results))
	for i, r := range results {
		out[i] = jsonResult{
			Path: r.Path, Score: r.Score, ChunkType: r.ChunkType,
			ChunkName: r.ChunkName, StartLine: r.StartLine, EndLine: r.EndLine,
			Snippet: r.Snippet,
		}
	}
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Results renders ranked search results for a human reader: location,
// chunk type/name, blended score, and a highlighted snippet.
func (w *Writer) Results(results []engine.Result) {
	if len(results) == 0 {
		w.Status("", "No results.")
		return
	}
	for i, r := range results {
		loc := fmt.Sprintf("%s:%d-%d", r.Path, r.StartLine, r.EndLine)
		meta := fmt.Sprintf("[%s]", r.ChunkType)
		if r.ChunkName != "" {
			meta = fmt.Sprintf("[%s %s]", r.ChunkType, r.ChunkName)
		}
		score := w.render(w.st.score, fmt.Sprintf("score=%.3f", r.Score))
		_, _ = fmt.Fprintf(w.out, "%d. %s %s %s\n", i+1,
			w.render(w.st.path, loc), w.render(w.st.meta, meta), score)
		if r.Snippet != "" {
			_, _ = fmt.Fprintf(w.out, "   %s\n", w.renderSnippet(r.Snippet))
		}
	}
}

// renderSnippet highlights the «…» sentinel markers a matched chunk's
// terms are wrapped in (internal/index/snippet.go), stripping the
// sentinels themselves since a terminal renders emphasis instead.
func (w *Writer) renderSnippet(snippet string) string {
	var b strings.Builder
	inMatch := false
	for _, r := range snippet {
		switch r {
		case '«':
			inMatch = true
		case '»':
			inMatch = false
		default:
			if inMatch {
				b.WriteString(w.render(w.st.match, string(r)))
			} else {
				b.WriteString(w.render(w.st.dim, string(r)))
			}
		}
	}
	return b.String()
}

// jsonStats mirrors engine.Stats for --json output on `probe stats`.
type jsonStats struct {
	DocumentCount uint64 `json:"document_count"`
	FileCount     int    `json:"file_count"`
	IndexBytes    int64  `json:"index_bytes"`
	SchemaVersion uint32 `json:"schema_version"`
}

// JSONStats writes an engine.Stats value as JSON.
func (w *Writer) JSONStats(s *engine.Stats) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonStats{s.DocumentCount, s.FileCount, s.IndexBytes, s.SchemaVersion})
}

// Stats renders an engine.Stats value for a human reader.
func (w *Writer) Stats(s *engine.Stats) {
	_, _ = fmt.Fprintf(w.out, "%s %d\n", w.render(w.st.meta, "documents:"), s.DocumentCount)
	_, _ = fmt.Fprintf(w.out, "%s %d\n", w.render(w.st.meta, "files:"), s.FileCount)
	_, _ = fmt.Fprintf(w.out, "%s %d bytes\n", w.render(w.st.meta, "index size:"), s.IndexBytes)
	_, _ = fmt.Fprintf(w.out, "%s %d\n", w.render(w.st.meta, "schema version:"), s.SchemaVersion)
}
