// package ui provides terminal styling for CLI output
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Default is the stylesheet used for startup output.
var Default = NewPalette("#1DB954", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func (p *Palette) Title(text string) string { return p.title.Render(text) }
func (p *Palette) OK(text string) string    { return p.ok.Render(text) }
func (p *Palette) Err(text string) string   { return p.err.Render(text) }
func (p *Palette) Warn(text string) string  { return p.warn.Render(text) }
func (p *Palette) Help(text string) string  { return p.help.Render(text) }

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
