package card

import (
	"errors"
	"fmt"
	"quotecard/internal/templates"
	"strings"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Fonts maps template font families to loaded font sources.
type Fonts struct {
	sources  map[string]*text.FontSource
	fallback *text.FontSource
}

// DefaultFonts uses the embedded Go fonts. Go Mono carries slab serifs and
// stands in for the serif family.
func DefaultFonts() (*Fonts, error) {
	sans, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse Go Regular: %w", err)
	}

	serif, err := text.NewFontSource(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse Go Mono: %w", err)
	}

	return &Fonts{
		sources: map[string]*text.FontSource{
			templates.FontSans:  sans,
			templates.FontSerif: serif,
		},
		fallback: sans,
	}, nil
}

// LoadFonts uses the font file at path for every family. An empty path falls
// back to DefaultFonts.
func LoadFonts(path string) (*Fonts, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultFonts()
	}

	source, err := text.NewFontSourceFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load font file (path = %s): %w", path, err)
	}

	return &Fonts{
		sources:  map[string]*text.FontSource{},
		fallback: source,
	}, nil
}

func (f *Fonts) Face(family string, size float64) text.Face {
	if source, ok := f.sources[family]; ok {
		return source.Face(size)
	}
	return f.fallback.Face(size)
}

func (f *Fonts) Close() error {
	closed := make(map[*text.FontSource]struct{}, len(f.sources)+1)
	var errs []error

	for _, source := range append(mapValues(f.sources), f.fallback) {
		if _, ok := closed[source]; ok {
			continue
		}
		closed[source] = struct{}{}

		if err := source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close font source %s: %w", source.Name(), err))
		}
	}

	return errors.Join(errs...)
}

func mapValues(m map[string]*text.FontSource) []*text.FontSource {
	values := make([]*text.FontSource, 0, len(m))
	for _, v := range m {
		values = append(values, v)
	}
	return values
}
