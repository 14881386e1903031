package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// Scale adds a scale filter
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// FPS adds an fps filter
func (fb *FilterBuilder) FPS(fps float64) *FilterBuilder {
	if fps <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, "fps="+ftoa(fps))
	return fb
}

// FadeIn fades from black over duration seconds starting at start
func (fb *FilterBuilder) FadeIn(start, duration float64) *FilterBuilder {
	if duration <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("fade=t=in:st=%s:d=%s", ftoa(start), ftoa(duration)))
	return fb
}

// FadeOut fades to black over duration seconds starting at start
func (fb *FilterBuilder) FadeOut(start, duration float64) *FilterBuilder {
	if duration <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("fade=t=out:st=%s:d=%s", ftoa(start), ftoa(duration)))
	return fb
}

// DrawText renders centred text at the given y expression
func (fb *FilterBuilder) DrawText(text string, fontSize int, y string) *FilterBuilder {
	if text == "" {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf(
		"drawtext=text='%s':fontsize=%d:fontcolor=white:x=(w-text_w)/2:y=%s",
		escapeText(text), fontSize, y))
	return fb
}

// Custom adds a custom filter string
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	fb.filters = append(fb.filters, filter)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}

// escapeText escapes drawtext special characters
func escapeText(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`, `%`, `\%`)
	return r.Replace(s)
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
