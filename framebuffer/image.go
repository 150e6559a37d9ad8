package framebuffer

import (
	"encoding/binary"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
)

// Load decodes a PNG or JPEG file.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("framebuffer: decode %s: %w", path, err)
	}
	return img, nil
}

// WriteRaw writes img as a raw ARGB8888 dump: width and height as
// little-endian u32, then one little-endian 0xAARRGGBB word per pixel.
func WriteRaw(w io.Writer, img image.Image) error {
	b := img.Bounds()
	buf := make([]byte, 8, 8+4*b.Dx()*b.Dy())
	binary.LittleEndian.PutUint32(buf[0:], uint32(b.Dx()))
	binary.LittleEndian.PutUint32(buf[4:], uint32(b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			pixel := (a>>8)<<24 | (r>>8)<<16 | (g>>8)<<8 | bl>>8
			buf = binary.LittleEndian.AppendUint32(buf, pixel)
		}
	}
	_, err := w.Write(buf)
	return err
}
