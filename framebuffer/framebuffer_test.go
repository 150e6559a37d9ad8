package framebuffer

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcmailbox/dma"
	"vcmailbox/internal/vcsim"
	"vcmailbox/mailbox"
	pt "vcmailbox/propertytag"
)

func newMailbox(t *testing.T) (*mailbox.Mailbox, *vcsim.Firmware, *dma.Arena) {
	t.Helper()
	a, err := dma.NewArena(4<<20, 0x0010_0000)
	require.NoError(t, err)
	fw := vcsim.New(a, vcsim.DefaultProfile())
	return mailbox.New(mailbox.NewFIFO(fw), a), fw, a
}

func TestNegotiate(t *testing.T) {
	mb, fw, a := newMailbox(t)

	info, err := Negotiate(mb, Config{Width: 640, Height: 480, Depth: 32, Order: pt.PixelOrderRGB})
	require.NoError(t, err)
	assert.Equal(t, Info{
		Width: 640, Height: 480,
		VirtualWidth: 640, VirtualHeight: 480,
		Depth: 32, Order: pt.PixelOrderRGB,
		Pitch: 2560,
		Bus:   fw.Framebuffer().Bus(),
		Size:  640 * 480 * 4,
	}, info)
	assert.Zero(t, info.Bus&^busMask)

	// Envelope released, framebuffer kept.
	assert.Equal(t, 1, a.Allocated())
	assert.Len(t, fw.Submitted(), 1)

	require.NoError(t, Release(mb))
	assert.Equal(t, 0, a.Allocated())
}

func TestNegotiateRejectsDepth(t *testing.T) {
	mb, fw, _ := newMailbox(t)
	_, err := Negotiate(mb, Config{Width: 640, Height: 480, Depth: 12})
	assert.ErrorIs(t, err, ErrDepth)
	assert.Empty(t, fw.Submitted())
}

func TestNegotiateFirmwareError(t *testing.T) {
	mb, fw, a := newMailbox(t)
	fw.FailNext()
	_, err := Negotiate(mb, Config{Width: 320, Height: 240, Depth: 16})
	assert.ErrorIs(t, err, mailbox.ErrTransport)
	// The simulator allocated a buffer before failing the envelope.
	assert.Equal(t, 1, a.Allocated())
}

func surface(t *testing.T, depth, order uint32) *Surface {
	t.Helper()
	mb, _, a := newMailbox(t)
	info, err := Negotiate(mb, Config{Width: 64, Height: 48, Depth: depth, Order: order})
	require.NoError(t, err)
	blk, err := a.Resolve(info.Bus, int(info.Size))
	require.NoError(t, err)
	s, err := NewSurface(blk.Bytes(), info)
	require.NoError(t, err)
	return s
}

func TestBlitPixelFormats(t *testing.T) {
	tests := []struct {
		name  string
		depth uint32
		order uint32
		first []byte
	}{
		{name: "rgb32", depth: 32, order: pt.PixelOrderRGB, first: []byte{0x10, 0x80, 0xf0, 0xff}},
		{name: "bgr32", depth: 32, order: pt.PixelOrderBGR, first: []byte{0xf0, 0x80, 0x10, 0xff}},
		{name: "rgb24", depth: 24, order: pt.PixelOrderRGB, first: []byte{0x10, 0x80, 0xf0}},
		{name: "rgb565", depth: 16, order: pt.PixelOrderRGB, first: []byte{0x1e, 0x14}},
	}
	c := color.NRGBA{R: 0x10, G: 0x80, B: 0xf0, A: 0xff}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := surface(t, tt.depth, tt.order)
			img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
			for i := range 4 {
				img.SetNRGBA(i%2, i/2, c)
			}
			s.Blit(img)

			assert.Equal(t, tt.first, s.pix[:len(tt.first)])
			got := s.Snapshot().NRGBAAt(1, 1)
			if tt.depth == 16 {
				assert.Equal(t, color.NRGBA{R: 0x10, G: 0x80, B: 0xf0, A: 0xff}, got)
			} else {
				assert.Equal(t, c, got)
			}
			untouched := s.Snapshot().NRGBAAt(2, 2)
			assert.Equal(t, [3]uint8{}, [3]uint8{untouched.R, untouched.G, untouched.B})
		})
	}
}

func TestBlitClips(t *testing.T) {
	s := surface(t, 32, pt.PixelOrderRGB)
	s.Blit(image.NewRGBA(image.Rect(0, 0, 1000, 1000)))
	s.Fill(color.White)
	assert.Equal(t, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, s.Snapshot().NRGBAAt(63, 47))

	s.Image().Set(5, 5, color.Black)
	s.Image().Set(500, 500, color.Black)
	assert.Equal(t, color.NRGBA{A: 0xff}, s.Snapshot().NRGBAAt(5, 5))
}

func TestTestCard(t *testing.T) {
	img := TestCard(320, 240, "320x240")
	assert.Equal(t, image.Rect(0, 0, 320, 240), img.Bounds())

	// First bar is light grey, the bottom-left ramp step black.
	r, g, b, _ := img.At(5, 5).RGBA()
	assert.Equal(t, []uint32{0xc0, 0xc0, 0xc0}, []uint32{r >> 8, g >> 8, b >> 8})
	r, _, _, _ = img.At(2, 238).RGBA()
	assert.Zero(t, r>>8)

	s := surface(t, 32, pt.PixelOrderRGB)
	s.Blit(TestCard(64, 48, Caption(s.info)))
	assert.NotEqual(t, color.NRGBA{}, s.Snapshot().NRGBAAt(1, 1))
}

func TestWriteRaw(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff})
	img.SetNRGBA(1, 0, color.NRGBA{A: 0xff})

	var buf bytes.Buffer
	require.NoError(t, WriteRaw(&buf, img))
	raw := buf.Bytes()
	require.Len(t, raw, 16)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(raw[0:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(raw[4:]))
	assert.Equal(t, uint32(0xff112233), binary.LittleEndian.Uint32(raw[8:]))
	assert.Equal(t, uint32(0xff000000), binary.LittleEndian.Uint32(raw[12:]))
}
