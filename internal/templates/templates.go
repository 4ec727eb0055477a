package templates

import (
	"errors"
	"fmt"
	"strings"
)

// Default is the template a new session starts with.
const Default = "classic"

var ErrUnknownTemplate = errors.New("unknown template")

// Font families understood by the card composer.
const (
	FontSerif = "serif"
	FontSans  = "sans"
)

// Template is an immutable bundle of card style parameters.
type Template struct {
	Key             string  `json:"key"`
	Name            string  `json:"name"`
	BackgroundColor string  `json:"backgroundColor"`
	TextColor       string  `json:"textColor"`
	FontFamily      string  `json:"fontFamily"`
	FontSize        float64 `json:"fontSize"`
	LineHeight      float64 `json:"lineHeight"`
	Padding         float64 `json:"padding"`
	Border          bool    `json:"border"`
	BorderRadius    float64 `json:"borderRadius"`
}

// LineStep is the vertical distance between two baselines.
func (t Template) LineStep() float64 {
	return t.LineHeight * t.FontSize
}

//nolint:gochecknoglobals // Fixed catalogue, never mutated after init.
var registry = []Template{
	{
		Key:             "classic",
		Name:            "Classic",
		BackgroundColor: "#f9f7f7",
		TextColor:       "#333333",
		FontFamily:      FontSerif,
		FontSize:        20,
		LineHeight:      1.6,
		Padding:         100,
		Border:          true,
		BorderRadius:    0,
	},
	{
		Key:             "modern",
		Name:            "Modern",
		BackgroundColor: "#f5f7fa",
		TextColor:       "#333333",
		FontFamily:      FontSans,
		FontSize:        18,
		LineHeight:      1.5,
		Padding:         100,
		Border:          false,
		BorderRadius:    0,
	},
	{
		Key:             "warm",
		Name:            "Warm",
		BackgroundColor: "#fff5e6",
		TextColor:       "#664433",
		FontFamily:      FontSans,
		FontSize:        19,
		LineHeight:      1.6,
		Padding:         100,
		Border:          false,
		BorderRadius:    16,
	},
}

// Get returns the template registered under key.
func Get(key string) (Template, error) {
	key = strings.TrimSpace(key)

	for _, t := range registry {
		if t.Key == key {
			return t, nil
		}
	}

	return Template{}, fmt.Errorf("get %q: %w", key, ErrUnknownTemplate)
}

// MustGet is Get for keys known at compile time.
func MustGet(key string) Template {
	t, err := Get(key)
	if err != nil {
		panic(err)
	}
	return t
}

func Keys() []string {
	keys := make([]string, 0, len(registry))
	for _, t := range registry {
		keys = append(keys, t.Key)
	}
	return keys
}

// All returns a copy of the catalogue in display order.
func All() []Template {
	return append([]Template(nil), registry...)
}
