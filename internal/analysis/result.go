package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/petermazzocco/beauty-advisor/internal/apperr"
)

// Result is the model output after both response shapes are folded into
// one structure.
type Result struct {
	EventType   string
	FaceShape   string
	SkinTone    string
	SkinToneRGB []float64
	HairColor   string
	HairTexture string
	Makeup      string
	Hairstyle   string
}

// HasRecommendations reports whether the model supplied both texts.
func (r *Result) HasRecommendations() bool {
	return r.Makeup != "" && r.Hairstyle != ""
}

// color accepts either a name ("fair") or an RGB triple.
type color struct {
	Text string
	RGB  []float64
}

func (c *color) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		return nil
	case b[0] == '"':
		return json.Unmarshal(b, &c.Text)
	case b[0] == '[':
		return json.Unmarshal(b, &c.RGB)
	default:
		return fmt.Errorf("unexpected color value %s", b)
	}
}

func (c color) String() string {
	if c.Text != "" {
		return c.Text
	}
	return formatRGB(c.RGB)
}

type features struct {
	EventType            string    `json:"event_type"`
	FaceShape            string    `json:"face_shape"`
	SkinTone             color     `json:"skin_tone"`
	SkinToneRGB          []float64 `json:"skin_tone_rgb"`
	HairColor            color     `json:"hair_color"`
	HairColorRGB         []float64 `json:"hair_color_rgb"`
	HairTexture          string    `json:"hair_texture"`
	RecommendedMakeup    string    `json:"recommended_makeup"`
	RecommendedHairstyle string    `json:"recommended_hairstyle"`
}

type suggestions struct {
	Makeup    string `json:"makeup"`
	HairStyle string `json:"hair_style"`
}

type response struct {
	features
	Error           json.RawMessage `json:"error"`
	Features        *features       `json:"features"`
	Recommendations *suggestions    `json:"recommendations"`
}

// Decode normalises a model answer. It accepts the wrapped form
// {"features": {...}, "recommendations": {...}} and the flat form where
// the feature fields sit at the top level. A top-level "error" becomes an
// external analysis error.
func Decode(body []byte) (*Result, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperr.External(0, "Failed to parse model output: "+err.Error(), nil, err)
	}
	if msg := errorMessage(resp.Error); msg != "" {
		return nil, apperr.External(0, msg, nil, nil)
	}

	f := resp.features
	if resp.Features != nil {
		f = merge(f, *resp.Features)
	}

	res := &Result{
		EventType:   strings.TrimSpace(f.EventType),
		FaceShape:   strings.TrimSpace(f.FaceShape),
		SkinTone:    f.SkinTone.String(),
		SkinToneRGB: f.SkinToneRGB,
		HairColor:   f.HairColor.String(),
		HairTexture: strings.TrimSpace(f.HairTexture),
		Makeup:      f.RecommendedMakeup,
		Hairstyle:   f.RecommendedHairstyle,
	}
	if len(res.SkinToneRGB) == 0 {
		res.SkinToneRGB = f.SkinTone.RGB
	}
	if res.SkinTone == "" {
		res.SkinTone = formatRGB(res.SkinToneRGB)
	}
	if res.HairColor == "" {
		res.HairColor = formatRGB(f.HairColorRGB)
	}
	if resp.Recommendations != nil {
		if res.Makeup == "" {
			res.Makeup = resp.Recommendations.Makeup
		}
		if res.Hairstyle == "" {
			res.Hairstyle = resp.Recommendations.HairStyle
		}
	}
	return res, nil
}

// merge fills the zero fields of top from nested.
func merge(top, nested features) features {
	if top.EventType == "" {
		top.EventType = nested.EventType
	}
	if top.FaceShape == "" {
		top.FaceShape = nested.FaceShape
	}
	if top.SkinTone.Text == "" && len(top.SkinTone.RGB) == 0 {
		top.SkinTone = nested.SkinTone
	}
	if len(top.SkinToneRGB) == 0 {
		top.SkinToneRGB = nested.SkinToneRGB
	}
	if top.HairColor.Text == "" && len(top.HairColor.RGB) == 0 {
		top.HairColor = nested.HairColor
	}
	if len(top.HairColorRGB) == 0 {
		top.HairColorRGB = nested.HairColorRGB
	}
	if top.HairTexture == "" {
		top.HairTexture = nested.HairTexture
	}
	if top.RecommendedMakeup == "" {
		top.RecommendedMakeup = nested.RecommendedMakeup
	}
	if top.RecommendedHairstyle == "" {
		top.RecommendedHairstyle = nested.RecommendedHairstyle
	}
	return top
}

func errorMessage(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("false")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func formatRGB(rgb []float64) string {
	if len(rgb) < 3 {
		return ""
	}
	return fmt.Sprintf("rgb(%d, %d, %d)",
		int(math.Round(rgb[0])), int(math.Round(rgb[1])), int(math.Round(rgb[2])))
}
