package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petermazzocco/beauty-advisor/internal/apperr"
)

func TestDecodeWrappedShape(t *testing.T) {
	body := `{
		"features": {
			"face_shape": "Oval",
			"skin_tone_rgb": [180.4, 140.6, 120],
			"eye_color_rgb": [60, 70, 80],
			"hair_color_rgb": [40, 30, 20],
			"hair_texture": "Straight or Smooth"
		},
		"recommendations": {
			"makeup": "Go with neutral foundation.",
			"hair_style": "Most styles work well."
		}
	}`

	res, err := Decode([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, "Oval", res.FaceShape)
	assert.Equal(t, "rgb(180, 141, 120)", res.SkinTone)
	assert.Equal(t, []float64{180.4, 140.6, 120}, res.SkinToneRGB)
	assert.Equal(t, "rgb(40, 30, 20)", res.HairColor)
	assert.Equal(t, "Straight or Smooth", res.HairTexture)
	assert.Equal(t, "Go with neutral foundation.", res.Makeup)
	assert.Equal(t, "Most styles work well.", res.Hairstyle)
	assert.True(t, res.HasRecommendations())
}

func TestDecodeFlatFeatureFile(t *testing.T) {
	// The shape the model writes to its output file.
	body := `{
		"face_shape": "Round",
		"skin_tone_rgb": [100, 90, 80],
		"eye_color_rgb": [60, 70, 80],
		"hair_color_rgb": null,
		"hair_texture": "Curly or Coarse"
	}`

	res, err := Decode([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, "Round", res.FaceShape)
	assert.Equal(t, "rgb(100, 90, 80)", res.SkinTone)
	assert.Empty(t, res.HairColor)
	assert.Equal(t, "Curly or Coarse", res.HairTexture)
	assert.False(t, res.HasRecommendations())
}

func TestDecodeFlatAPIResponse(t *testing.T) {
	body := `{
		"event_type": "wedding",
		"face_shape": "Square",
		"skin_tone": "medium",
		"hair_color": "brown",
		"recommended_makeup": "Soft glam.",
		"recommended_hairstyle": "Loose curls."
	}`

	res, err := Decode([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, &Result{
		EventType: "wedding",
		FaceShape: "Square",
		SkinTone:  "medium",
		HairColor: "brown",
		Makeup:    "Soft glam.",
		Hairstyle: "Loose curls.",
	}, res)
}

func TestDecodeBothShapesAgree(t *testing.T) {
	wrapped, err := Decode([]byte(`{"features":{"face_shape":"Oval","skin_tone_rgb":[1,2,3],"hair_texture":"Wavy"}}`))
	require.NoError(t, err)
	flat, err := Decode([]byte(`{"face_shape":"Oval","skin_tone_rgb":[1,2,3],"hair_texture":"Wavy"}`))
	require.NoError(t, err)

	assert.Equal(t, flat, wrapped)
}

func TestDecodeModelError(t *testing.T) {
	_, err := Decode([]byte(`{"error": "No face detected"}`))
	require.Error(t, err)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindExternalAnalysis, appErr.Kind)
	assert.Equal(t, "No face detected", appErr.Message)
	assert.Equal(t, 500, appErr.HTTPStatus())
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	require.Error(t, err)
	assert.Equal(t, apperr.KindExternalAnalysis, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Failed to parse model output")
}
