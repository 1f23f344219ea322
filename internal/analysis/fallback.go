package analysis

import "strings"

const (
	NoMakeupRecommendation    = "No makeup recommendations available"
	NoHairstyleRecommendation = "No hairstyle recommendations available"

	// darkSkinBelow is the mean RGB brightness under which warm tones are
	// suggested.
	darkSkinBelow = 150
)

type makeupTemplate struct {
	lead, dark, light string
}

type hairTemplate struct {
	lead, curly, wavy, straight string
}

var makeupByShape = map[string]makeupTemplate{
	"Oval": {
		lead:  "For your oval face, most makeup styles work well.",
		dark:  "Use warm foundation shades and peach or coral blush.",
		light: "Try neutral or cool-toned foundation and rose or pink blush.",
	},
	"Round": {
		lead:  "For your round face, use contouring to define cheekbones.",
		dark:  "Warm brown and bronze tones will complement your skin.",
		light: "Taupe and cooler tones for contouring will work well.",
	},
	"Square": {
		lead:  "For your square face, soften angles with rounded contouring.",
		dark:  "Warm bronzer applied in circular motions works well.",
		light: "Rose-toned blush applied in circular motions works well.",
	},
}

var hairByShape = map[string]hairTemplate{
	"Oval": {
		lead:     "With your oval face shape, most styles work well.",
		curly:    "Embrace your natural curls with a layered cut that adds volume.",
		wavy:     "Let your waves show with long layers or a textured lob.",
		straight: "Try waves, layered bobs, or curtain bangs to enhance your natural texture.",
	},
	"Round": {
		lead:     "For your round face, styles that add length work best.",
		curly:    "A longer curly shag with layers will elongate your face.",
		wavy:     "Long, loose waves with face-framing layers will add length.",
		straight: "Long layers or volume at the crown will create more definition.",
	},
	"Square": {
		lead:     "For your square face, styles that soften your jawline are ideal.",
		curly:    "Soft curly layers around the face will balance your features.",
		wavy:     "Tousled waves that fall past the jaw will soften your angles.",
		straight: "Soft layers and waves will complement your face shape.",
	},
}

// Fallback fills whichever recommendation texts the model left empty.
func Fallback(r *Result) {
	if r.Makeup == "" {
		r.Makeup = MakeupFor(r.FaceShape, r.SkinToneRGB)
	}
	if r.Hairstyle == "" {
		r.Hairstyle = HairstyleFor(r.FaceShape, r.HairTexture)
	}
}

// MakeupFor picks makeup text by face shape and skin brightness, the mean
// of the three RGB channels.
func MakeupFor(faceShape string, skinRGB []float64) string {
	if faceShape == "" || len(skinRGB) < 3 {
		return NoMakeupRecommendation
	}
	t, ok := makeupByShape[faceShape]
	if !ok {
		return NoMakeupRecommendation
	}
	brightness := (skinRGB[0] + skinRGB[1] + skinRGB[2]) / 3
	if brightness < darkSkinBelow {
		return t.lead + " " + t.dark
	}
	return t.lead + " " + t.light
}

// HairstyleFor picks hairstyle text by face shape and hair texture. The
// texture check is by substring, curly first, so "Wavy or Slightly Curly"
// counts as curly.
func HairstyleFor(faceShape, hairTexture string) string {
	if faceShape == "" || hairTexture == "" {
		return NoHairstyleRecommendation
	}
	t, ok := hairByShape[faceShape]
	if !ok {
		return NoHairstyleRecommendation
	}
	switch {
	case strings.Contains(hairTexture, "Curly"):
		return t.lead + " " + t.curly
	case strings.Contains(hairTexture, "Wavy"):
		return t.lead + " " + t.wavy
	default:
		return t.lead + " " + t.straight
	}
}
