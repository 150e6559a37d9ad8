package framebuffer

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
)

// TestCard renders colour bars, a centred circle and a caption with the
// mode, sized w by h.
func TestCard(w, h int, caption string) image.Image {
	dc := gg.NewContext(w, h)

	bars := []string{"#c0c0c0", "#c0c000", "#00c0c0", "#00c000", "#c000c0", "#c00000", "#0000c0"}
	barW := float64(w) / float64(len(bars))
	for i, hex := range bars {
		dc.SetHexColor(hex)
		dc.DrawRectangle(float64(i)*barW, 0, barW+1, float64(h)*2/3)
		dc.Fill()
	}

	// Greyscale ramp along the bottom third.
	steps := 16
	stepW := float64(w) / float64(steps)
	for i := range steps {
		v := float64(i) / float64(steps-1)
		dc.SetRGB(v, v, v)
		dc.DrawRectangle(float64(i)*stepW, float64(h)*2/3, stepW+1, float64(h)/3)
		dc.Fill()
	}

	r := float64(min(w, h)) / 4
	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(max(2, r/32))
	dc.DrawCircle(float64(w)/2, float64(h)/2, r)
	dc.Stroke()

	if caption != "" {
		dc.SetRGB(0, 0, 0)
		dc.DrawRectangle(float64(w)/2-r, float64(h)/2-10, 2*r, 20)
		dc.Fill()
		dc.SetRGB(1, 1, 1)
		dc.DrawStringAnchored(caption, float64(w)/2, float64(h)/2, 0.5, 0.35)
	}
	return dc.Image()
}

// Caption describes info for TestCard.
func Caption(info Info) string {
	return fmt.Sprintf("%dx%d %dbpp pitch %d", info.VirtualWidth, info.VirtualHeight, info.Depth, info.Pitch)
}
