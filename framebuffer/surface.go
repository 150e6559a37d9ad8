package framebuffer

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	pt "vcmailbox/propertytag"
)

// Surface draws into framebuffer memory laid out as described by Info.
type Surface struct {
	pix  []byte
	info Info
}

// NewSurface wraps pix, the CPU view of the buffer at info.Bus.
func NewSurface(pix []byte, info Info) (*Surface, error) {
	switch info.Depth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrDepth, info.Depth)
	}
	if need := int(info.Pitch) * int(info.VirtualHeight); len(pix) < need {
		return nil, fmt.Errorf("framebuffer: %d bytes for %dx%d at pitch %d", len(pix), info.VirtualWidth, info.VirtualHeight, info.Pitch)
	}
	return &Surface{pix: pix, info: info}, nil
}

func (s *Surface) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(s.info.VirtualWidth), int(s.info.VirtualHeight))
}

// Blit draws img with its top-left corner at the surface origin, clipped
// to the surface.
func (s *Surface) Blit(img image.Image) {
	src := img.Bounds()
	r := s.Bounds().Intersect(image.Rect(0, 0, src.Dx(), src.Dy()))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			s.set(x, y, color.NRGBAModel.Convert(img.At(src.Min.X+x, src.Min.Y+y)).(color.NRGBA))
		}
	}
}

// Fill paints the whole surface with c.
func (s *Surface) Fill(c color.Color) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	b := s.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			s.set(x, y, n)
		}
	}
}

// Snapshot copies the surface into an image.
func (s *Surface) Snapshot() *image.NRGBA {
	out := image.NewNRGBA(s.Bounds())
	b := s.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.SetNRGBA(x, y, s.get(x, y))
		}
	}
	return out
}

func (s *Surface) offset(x, y int) int {
	return y*int(s.info.Pitch) + x*int(s.info.Depth/8)
}

func (s *Surface) set(x, y int, c color.NRGBA) {
	r, b := c.R, c.B
	if s.info.Order == pt.PixelOrderBGR {
		r, b = b, r
	}
	off := s.offset(x, y)
	switch s.info.Depth {
	case 32:
		s.pix[off+0] = r
		s.pix[off+1] = c.G
		s.pix[off+2] = b
		s.pix[off+3] = c.A
	case 24:
		s.pix[off+0] = r
		s.pix[off+1] = c.G
		s.pix[off+2] = b
	case 16:
		v := uint16(r>>3)<<11 | uint16(c.G>>2)<<5 | uint16(b>>3)
		binary.LittleEndian.PutUint16(s.pix[off:], v)
	}
}

func (s *Surface) get(x, y int) color.NRGBA {
	off := s.offset(x, y)
	var c color.NRGBA
	switch s.info.Depth {
	case 32:
		c = color.NRGBA{R: s.pix[off], G: s.pix[off+1], B: s.pix[off+2], A: s.pix[off+3]}
	case 24:
		c = color.NRGBA{R: s.pix[off], G: s.pix[off+1], B: s.pix[off+2], A: 0xff}
	case 16:
		v := binary.LittleEndian.Uint16(s.pix[off:])
		c = color.NRGBA{
			R: uint8(v>>11) << 3,
			G: uint8(v>>5&0x3f) << 2,
			B: uint8(v&0x1f) << 3,
			A: 0xff,
		}
	}
	if s.info.Order == pt.PixelOrderBGR {
		c.R, c.B = c.B, c.R
	}
	return c
}

var _ draw.Image = (*drawAdapter)(nil)

// drawAdapter lets the image/draw package target a Surface.
type drawAdapter struct{ s *Surface }

func (d drawAdapter) ColorModel() color.Model { return color.NRGBAModel }
func (d drawAdapter) Bounds() image.Rectangle { return d.s.Bounds() }
func (d drawAdapter) At(x, y int) color.Color  { return d.s.get(x, y) }
func (d drawAdapter) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(d.s.Bounds()) {
		return
	}
	d.s.set(x, y, color.NRGBAModel.Convert(c).(color.NRGBA))
}

// Image returns s as a draw.Image.
func (s *Surface) Image() draw.Image { return drawAdapter{s: s} }
