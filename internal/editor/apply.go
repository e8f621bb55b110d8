package editor

import (
	"image"

	"golang.org/x/image/draw"
)

// Luminance weights of the saturate() color matrix.
const (
	lumR = 0.213
	lumG = 0.715
	lumB = 0.072
)

// Apply returns a copy of img with brightness, contrast and saturation
// applied in that order, each clamped to the displayable range. Alpha is
// left alone.
func Apply(img image.Image, st State) *image.NRGBA {
	out := toNRGBA(img)
	if !st.Dirty() {
		return out
	}

	br := float64(st.Brightness) / 100
	ct := float64(st.Contrast) / 100
	sat := float64(st.Saturation) / 100

	for i := 0; i+3 < len(out.Pix); i += 4 {
		r := float64(out.Pix[i]) / 255
		g := float64(out.Pix[i+1]) / 255
		bl := float64(out.Pix[i+2]) / 255

		r, g, bl = clamp(r*br), clamp(g*br), clamp(bl*br)
		r, g, bl = contrast(r, ct), contrast(g, ct), contrast(bl, ct)
		r, g, bl = saturate(r, g, bl, sat)

		out.Pix[i] = to8(r)
		out.Pix[i+1] = to8(g)
		out.Pix[i+2] = to8(bl)
	}
	return out
}

// toNRGBA copies img into a fresh NRGBA at the origin. NRGBA sources are
// copied byte for byte so translucent pixels keep their exact values.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		row := b.Dx() * 4
		for y := 0; y < b.Dy(); y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+row], src.Pix[off:off+row])
		}
		return out
	}
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func contrast(v, c float64) float64 {
	return clamp((v-0.5)*c + 0.5)
}

func saturate(r, g, b, s float64) (float64, float64, float64) {
	nr := (lumR+(1-lumR)*s)*r + (lumG-lumG*s)*g + (lumB-lumB*s)*b
	ng := (lumR-lumR*s)*r + (lumG+(1-lumG)*s)*g + (lumB-lumB*s)*b
	nb := (lumR-lumR*s)*r + (lumG-lumG*s)*g + (lumB+(1-lumB)*s)*b
	return clamp(nr), clamp(ng), clamp(nb)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func to8(v float64) uint8 {
	return uint8(v*255 + 0.5)
}
