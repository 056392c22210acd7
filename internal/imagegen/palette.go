package imagegen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Hero image dimensions.
const (
	Width  = 1200
	Height = 628
)

const (
	vignetteStrength = 15
	blurSigma        = 0.5
)

// Palette is the colour pair and prompt of one variant label.
type Palette struct {
	Label       string
	Name        string
	From, To    color.NRGBA
	Description string
	Prompt      string
}

// Palettes lists every known variant label.
var Palettes = map[string]Palette{
	"A": {
		Label:       "A",
		Name:        "Blush & Sage",
		From:        color.NRGBA{R: 245, G: 235, B: 240, A: 255},
		To:          color.NRGBA{R: 220, G: 245, B: 230, A: 255},
		Description: "Warm blush transitioning to cool sage - balanced and sophisticated",
		Prompt: "A modern urban living room featuring nature-inspired pastel walls (muted blush, soft sage), " +
			"large windows with natural morning light, soft textured cushions, minimal mid-century furniture, " +
			"cozy rug, photorealistic, 4k, shallow depth of field.",
	},
	"B": {
		Label:       "B",
		Name:        "Sky & Lavender",
		From:        color.NRGBA{R: 240, G: 245, B: 250, A: 255},
		To:          color.NRGBA{R: 230, G: 240, B: 250, A: 255},
		Description: "Serene sky blue with soft lavender undertones - calming and modern",
		Prompt: "An airy apartment interior in pastel palette (muted pink, pale green), soft sunlight casting " +
			"warm glow on walls, plants and wooden textures, cinematic composition, photorealistic, 4k.",
	},
	"C": {
		Label:       "C",
		Name:        "Cream & Mint",
		From:        color.NRGBA{R: 250, G: 245, B: 235, A: 255},
		To:          color.NRGBA{R: 225, G: 245, B: 235, A: 255},
		Description: "Soft cream fading into fresh mint - light and airy",
		Prompt: "A hero banner style flat-lay of paint swatches and moodboard elements: pastel swatches, " +
			"color chips, fabric textures, and a small plant, top-down, modern styling, minimal text area.",
	},
}

// Gradient renders the placeholder for p: a vertical gradient from p.From to p.To,
// darkened by a black row vignette peaking at mid height, then softened with a
// Gaussian blur. The output is PNG and depends only on p and the size.
func Gradient(p Palette, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		t := float64(y) / float64(height)
		alpha := vignetteAlpha(y, height)
		row := color.NRGBA{
			R: shade(lerp(p.From.R, p.To.R, t), alpha),
			G: shade(lerp(p.From.G, p.To.G, t), alpha),
			B: shade(lerp(p.From.B, p.To.B, t), alpha),
			A: 255,
		}
		offset := y * img.Stride
		for x := 0; x < width; x++ {
			i := offset + x*4
			img.Pix[i+0] = row.R
			img.Pix[i+1] = row.G
			img.Pix[i+2] = row.B
			img.Pix[i+3] = row.A
		}
	}

	blurred := imaging.Blur(img, blurSigma)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, blurred, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding gradient: %w", err)
	}
	return buf.Bytes(), nil
}

func lerp(from, to uint8, t float64) int {
	return int(float64(from)*(1-t) + float64(to)*t)
}

// vignetteAlpha rises linearly to the middle row and falls after it.
func vignetteAlpha(y, height int) int {
	if y < height/2 {
		return int(float64(y) / float64(height) * vignetteStrength)
	}
	return int(float64(height-y) / float64(height) * vignetteStrength)
}

// shade composites black at alpha/255 over an opaque channel value.
func shade(c, alpha int) uint8 {
	return uint8((c*(255-alpha) + 127) / 255)
}
