// Package ui renders watcher output for the terminal. Styling is applied
// only when stdout is a TTY; pipes and CI get plain text.
package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/vigil-dev/vigil/internal/watcher"
)

// Color palette - single lime accent, matching the rest of the tooling.
const (
	ColorLime   = "154" // created
	ColorYellow = "220" // modified
	ColorRed    = "196" // deleted, errors
	ColorGray   = "245" // renamed, secondary text
	ColorWhite  = "255" // paths
)

// Styles holds the render styles for event output.
type Styles struct {
	Created  lipgloss.Style
	Modified lipgloss.Style
	Deleted  lipgloss.Style
	Renamed  lipgloss.Style
	Path     lipgloss.Style
	Dim      lipgloss.Style
	Error    lipgloss.Style
}

// DefaultStyles returns the colored style set.
func DefaultStyles() Styles {
	return Styles{
		Created:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Modified: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Deleted:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Renamed:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Path:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWhite)),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Error:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorRed)),
	}
}

// Renderer writes one line per delivered event.
type Renderer struct {
	out     io.Writer
	noColor bool
	styles  Styles
}

// NewRenderer creates a renderer for out. Color is disabled automatically
// when out is not a terminal, and can be forced off with noColor.
func NewRenderer(out io.Writer, noColor bool) *Renderer {
	if !noColor {
		if f, ok := out.(*os.File); ok {
			noColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
		} else {
			noColor = true
		}
	}
	return &Renderer{
		out:     out,
		noColor: noColor,
		styles:  DefaultStyles(),
	}
}

// Event writes one event line: timestamp, kind, file type, path.
func (r *Renderer) Event(ev watcher.Event) {
	ts := ev.Timestamp.Format(time.TimeOnly)
	kind := ev.Kind.String()
	ft := string(ev.FileType)

	if r.noColor {
		_, _ = fmt.Fprintf(r.out, "%s %-8s %-7s %s\n", ts, kind, ft, ev.Path)
		return
	}

	_, _ = fmt.Fprintf(r.out, "%s %s %s %s\n",
		r.styles.Dim.Render(ts),
		r.kindStyle(ev.Kind).Render(fmt.Sprintf("%-8s", kind)),
		r.styles.Dim.Render(fmt.Sprintf("%-7s", ft)),
		r.styles.Path.Render(ev.Path),
	)
}

// Errorf writes a styled error line.
func (r *Renderer) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.noColor {
		_, _ = fmt.Fprintln(r.out, msg)
		return
	}
	_, _ = fmt.Fprintln(r.out, r.styles.Error.Render(msg))
}

func (r *Renderer) kindStyle(k watcher.Kind) lipgloss.Style {
	switch k {
	case watcher.KindCreated:
		return r.styles.Created
	case watcher.KindModified:
		return r.styles.Modified
	case watcher.KindDeleted:
		return r.styles.Deleted
	default:
		return r.styles.Renamed
	}
}
