package card

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"quotecard/internal/layout"
	"quotecard/internal/templates"
	"strings"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
)

const (
	CanvasWidth   = 600
	FloorHeight   = 800
	CeilingHeight = 2000

	PreviewWidth     = 300
	PreviewHeight    = 400
	PreviewFontScale = 0.5

	previewTop  = 40
	borderColor = "#dddddd"
	borderWidth = 1
)

var ErrEmptyInput = errors.New("empty input")

// Mode selects between the full-resolution card and the cheap preview.
type Mode int

const (
	ModeFull Mode = iota
	ModePreview
)

func (m Mode) String() string {
	if m == ModePreview {
		return "preview"
	}
	return "full"
}

// Surface is a composed bitmap together with the layout it was drawn from.
type Surface struct {
	dc       *gg.Context
	Lines    layout.Result
	Template templates.Template
	Mode     Mode
}

func (s *Surface) Width() int {
	return s.dc.Width()
}

func (s *Surface) Height() int {
	return s.dc.Height()
}

func (s *Surface) Image() image.Image {
	return s.dc.Image()
}

func (s *Surface) Close() error {
	return s.dc.Close()
}

// Composer lays out and draws cards. Font faces share parsed font data, so
// compositions are serialized.
type Composer struct {
	mu    sync.Mutex
	fonts *Fonts
	log   *slog.Logger
}

func NewComposer(fonts *Fonts, log *slog.Logger) *Composer {
	return &Composer{fonts: fonts, log: log}
}

// Measure returns a width oracle for the template font at scale times its
// base size.
func (c *Composer) Measure(tmpl templates.Template, scale float64) layout.MeasureFunc {
	face := c.fonts.Face(tmpl.FontFamily, tmpl.FontSize*scale)

	return func(line string) float64 {
		w, _ := text.Measure(line, face)
		return w
	}
}

// Wrap lays text out against the full-size template font and content width.
func (c *Composer) Wrap(textValue string, tmpl templates.Template) layout.Result {
	return layout.Wrap(textValue, c.Measure(tmpl, 1), ContentWidth(tmpl))
}

func ContentWidth(tmpl templates.Template) float64 {
	return CanvasWidth - 2*tmpl.Padding
}

// CanvasHeight derives the card height from the line count, bounded by
// FloorHeight and CeilingHeight.
func CanvasHeight(lineCount int, tmpl templates.Template) int {
	content := float64(lineCount) * tmpl.LineStep()
	height := max(FloorHeight, min(CeilingHeight, content+2*tmpl.Padding))

	return int(math.Ceil(height))
}

func (c *Composer) Compose(textValue string, tmpl templates.Template, mode Mode) (*Surface, error) {
	if strings.TrimSpace(textValue) == "" {
		return nil, ErrEmptyInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	lines := c.Wrap(textValue, tmpl)

	var (
		surface *Surface
		err     error
	)

	switch mode {
	case ModePreview:
		surface, err = c.composePreview(lines, tmpl)
	default:
		surface, err = c.composeFull(lines, tmpl)
	}
	if err != nil {
		return nil, fmt.Errorf("compose %s card: %w", mode, err)
	}

	c.log.Debug("Card is composed",
		"template", tmpl.Key,
		"mode", mode.String(),
		"lineCount", lines.LineCount(),
		"width", surface.Width(),
		"height", surface.Height())

	return surface, nil
}

func (c *Composer) composeFull(lines layout.Result, tmpl templates.Template) (*Surface, error) {
	width := CanvasWidth
	height := CanvasHeight(lines.LineCount(), tmpl)
	dc := gg.NewContext(width, height)

	if err := fillBackground(dc, tmpl, 1); err != nil {
		return nil, err
	}

	if tmpl.Border {
		dc.SetHexColor(borderColor)
		dc.SetLineWidth(borderWidth)
		dc.DrawRectangle(1, 1, float64(width-2), float64(height-2))
		if err := dc.Stroke(); err != nil {
			return nil, fmt.Errorf("stroke border: %w", err)
		}
	}

	c.drawLines(dc, lines, tmpl, 1, tmpl.Padding)

	return &Surface{dc: dc, Lines: lines, Template: tmpl, Mode: ModeFull}, nil
}

// composePreview keeps the full-size line breaks and draws them at
// PreviewFontScale on the fixed preview surface.
func (c *Composer) composePreview(lines layout.Result, tmpl templates.Template) (*Surface, error) {
	dc := gg.NewContext(PreviewWidth, PreviewHeight)

	if err := fillBackground(dc, tmpl, PreviewFontScale); err != nil {
		return nil, err
	}

	c.drawLines(dc, lines, tmpl, PreviewFontScale, previewTop)

	return &Surface{dc: dc, Lines: lines, Template: tmpl, Mode: ModePreview}, nil
}

func fillBackground(dc *gg.Context, tmpl templates.Template, scale float64) error {
	w, h := float64(dc.Width()), float64(dc.Height())

	if tmpl.BorderRadius > 0 {
		dc.DrawRoundedRectangle(0, 0, w, h, tmpl.BorderRadius*scale)
	} else {
		dc.DrawRectangle(0, 0, w, h)
	}

	dc.SetHexColor(tmpl.BackgroundColor)
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("fill background: %w", err)
	}

	return nil
}

func (c *Composer) drawLines(
	dc *gg.Context,
	lines layout.Result,
	tmpl templates.Template,
	scale float64,
	top float64,
) {
	face := c.fonts.Face(tmpl.FontFamily, tmpl.FontSize*scale)

	dc.SetHexColor(tmpl.TextColor)
	dc.SetFont(face)

	centre := float64(dc.Width()) / 2
	baseline := top
	step := tmpl.LineStep() * scale

	// top is the alphabetic baseline of the first line.
	for _, line := range lines.Lines {
		w, _ := text.Measure(line, face)
		dc.DrawString(line, centre-w/2, baseline)
		baseline += step
	}
}
