// Package decode turns raw image bytes into contiguous interleaved HWC
// pixel buffers at the image's native bit depth.
//
// The codec is chosen by the stdlib image registry from the byte
// content, not the file name. JPEG, PNG and GIF are registered here;
// BMP, TIFF and WebP come from golang.org/x/image.
package decode

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image is a decoded sample in row-major height×width×channel layout.
// Exactly one of Pix8/Pix16 is set, according to Depth.
type Image struct {
	Height   int
	Width    int
	Channels int
	Depth    int // bits per channel: 8 or 16
	Pix8     []uint8
	Pix16    []uint16
}

// Decode decodes data into an Image. Color output has three channels in
// RGB order; grayscale output has one. Sources with more than 8 bits
// per channel keep their 16-bit values.
func Decode(data []byte, grayscale bool) (*Image, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	img := &Image{
		Height: b.Dy(),
		Width:  b.Dx(),
		Depth:  bitDepth(src),
	}
	if grayscale {
		img.Channels = 1
		if img.Depth == 16 {
			img.Pix16 = gray16Pixels(src)
		} else {
			img.Pix8 = gray8Pixels(src)
		}
	} else {
		img.Channels = 3
		if img.Depth == 16 {
			img.Pix16 = color16Pixels(src)
		} else {
			img.Pix8 = color8Pixels(src)
		}
	}
	return img, nil
}

// bitDepth reports the source's bits per channel. Anything that is not
// a known 16-bit representation is treated as 8-bit.
func bitDepth(src image.Image) int {
	switch src.(type) {
	case *image.Gray16, *image.RGBA64, *image.NRGBA64:
		return 16
	}
	return 8
}

func gray8Pixels(src image.Image) []uint8 {
	b := src.Bounds()
	out := make([]uint8, b.Dx()*b.Dy())

	if g, ok := src.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			copy(out[y*b.Dx():(y+1)*b.Dx()], g.Pix[y*g.Stride:y*g.Stride+b.Dx()])
		}
		return out
	}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out[i] = color.GrayModel.Convert(src.At(x, y)).(color.Gray).Y
			i++
		}
	}
	return out
}

func gray16Pixels(src image.Image) []uint16 {
	b := src.Bounds()
	out := make([]uint16, b.Dx()*b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out[i] = color.Gray16Model.Convert(src.At(x, y)).(color.Gray16).Y
			i++
		}
	}
	return out
}

func color8Pixels(src image.Image) []uint8 {
	b := src.Bounds()
	out := make([]uint8, b.Dx()*b.Dy()*3)

	switch s := src.(type) {
	case *image.NRGBA:
		i := 0
		for y := 0; y < b.Dy(); y++ {
			row := s.Pix[y*s.Stride : y*s.Stride+b.Dx()*4]
			for x := 0; x < b.Dx()*4; x += 4 {
				out[i] = row[x]
				out[i+1] = row[x+1]
				out[i+2] = row[x+2]
				i += 3
			}
		}
		return out
	case *image.Gray:
		// Single-channel source replicated into three channels.
		i := 0
		for y := 0; y < b.Dy(); y++ {
			row := s.Pix[y*s.Stride : y*s.Stride+b.Dx()]
			for x := 0; x < b.Dx(); x++ {
				out[i], out[i+1], out[i+2] = row[x], row[x], row[x]
				i += 3
			}
		}
		return out
	}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := src.At(x, y).RGBA()
			out[i] = uint8(r >> 8)
			out[i+1] = uint8(g >> 8)
			out[i+2] = uint8(bl >> 8)
			i += 3
		}
	}
	return out
}

func color16Pixels(src image.Image) []uint16 {
	b := src.Bounds()
	out := make([]uint16, b.Dx()*b.Dy()*3)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := src.At(x, y).RGBA()
			out[i] = uint16(r)
			out[i+1] = uint16(g)
			out[i+2] = uint16(bl)
			i += 3
		}
	}
	return out
}
