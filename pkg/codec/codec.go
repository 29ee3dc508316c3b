// Package codec turns recorded videos into sampled still frames.
package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"time"
)

// DefaultJPEGQuality is used by EncodeJPEG when quality is zero.
const DefaultJPEGQuality = 90

// ErrBadFrame is returned for frames whose pixel buffer does not match their size.
var ErrBadFrame = errors.New("malformed frame")

// Frame is one decoded RGB24 picture.
type Frame struct {
	// Index counts sampled frames from zero.
	Index int

	// Offset is the frame's position in the video.
	Offset time.Duration

	Width  int
	Height int

	// Stride is the byte length of one row, at least Width*3.
	Stride int

	RGB []byte
}

// FrameFunc receives frames in order. Returning an error stops decoding.
type FrameFunc func(Frame) error

// Decoder samples one frame every interval from an encoded video.
type Decoder interface {
	Decode(ctx context.Context, video []byte, interval time.Duration, fn FrameFunc) error
}

// Validate checks that the pixel buffer covers Height rows of Stride bytes.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadFrame, f.Width, f.Height)
	}
	if f.Stride < f.Width*3 {
		return fmt.Errorf("%w: stride %d below %d", ErrBadFrame, f.Stride, f.Width*3)
	}
	if len(f.RGB) < f.Stride*(f.Height-1)+f.Width*3 {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrBadFrame, len(f.RGB), f.Width, f.Height)
	}
	return nil
}

// Image converts the frame to an RGBA image.
func (f Frame) Image() (*image.RGBA, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		src := f.RGB[y*f.Stride : y*f.Stride+f.Width*3]
		dst := img.Pix[y*img.Stride : y*img.Stride+f.Width*4]
		for x := 0; x < f.Width; x++ {
			dst[x*4] = src[x*3]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 0xff
		}
	}
	return img, nil
}

// EncodeJPEG compresses the frame. Zero quality means DefaultJPEGQuality.
func EncodeJPEG(f Frame, quality int) ([]byte, error) {
	img, err := f.Image()
	if err != nil {
		return nil, err
	}
	if quality == 0 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode frame %d: %w", f.Index, err)
	}
	return buf.Bytes(), nil
}

// FrameName is the file name of a sampled frame, e.g. "frame_3.jpg".
func FrameName(index int) string {
	return fmt.Sprintf("frame_%d.jpg", index)
}
