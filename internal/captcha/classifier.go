package captcha

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"vtop-timetable/internal/components/assert"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Alphabet is the set of glyphs the portal renders, I, O, 0 and 1 never appear.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length is the number of characters in every captcha.
const Length = 6

// The window geometry below was measured from sample captchas of the portal's
// renderer. Re-derive all of it from new samples if the renderer changes.
const (
	windowWidth  = 24
	windowHeight = 22
	// WindowSize is the number of pixels in a single character window.
	WindowSize = windowWidth * windowHeight
)

// Window returns the crop rectangle (max exclusive) of character i.
func Window(i int) image.Rectangle {
	x1 := (i+1)*25 + 2
	y1 := 7 + 5*(i%2) + 1
	x2 := (i+2)*25 + 1
	y2 := 35 - 5*((i+1)%2)
	return image.Rect(x1, y1, x2, y2)
}

// windowBounds covers every character window.
var windowBounds image.Rectangle

func init() {
	for i := 0; i < Length; i++ {
		w := Window(i)
		assert.Equal(WindowSize, w.Dx()*w.Dy())
		windowBounds = windowBounds.Union(w)
	}
}

// DecodeError means the captcha payload could not be turned into pixels. The
// caller should fetch a new captcha.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode captcha: %s", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// luma uses integer weights with truncating division.
func luma(c color.Color) int {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return (int(n.R)*299 + int(n.G)*587 + int(n.B)*114) / 1000
}

// binarize maps pixels darker than or equal to the window mean to 1.
func binarize(img image.Image, window image.Rectangle) []float64 {
	origin := img.Bounds().Min
	pixels := make([]float64, 0, WindowSize)
	sum := 0.0
	for y := window.Min.Y; y < window.Max.Y; y++ {
		for x := window.Min.X; x < window.Max.X; x++ {
			gray := float64(luma(img.At(origin.X+x, origin.Y+y)))
			sum += gray
			pixels = append(pixels, gray)
		}
	}

	avg := sum / float64(len(pixels))
	for i, gray := range pixels {
		if gray > avg {
			pixels[i] = 0
		} else {
			pixels[i] = 1
		}
	}
	return pixels
}

// predict returns the index of the highest scoring letter, the first index
// wins ties.
func predict(pixels []float64, model *Model) int {
	best := 0
	bestVal := math.Inf(-1)
	for j, bias := range model.Biases {
		v := bias
		for p, on := range pixels {
			v += on * model.Weights[p][j]
		}
		if v > bestVal {
			bestVal = v
			best = j
		}
	}
	return best
}

// Classify reads the six character windows out of a captcha image.
func Classify(img image.Image, model *Model) (string, error) {
	size := img.Bounds().Size()
	if !windowBounds.In(image.Rect(0, 0, size.X, size.Y)) {
		return "", &DecodeError{Err: fmt.Errorf("image is %dx%d, too small for the character windows", size.X, size.Y)}
	}

	var out strings.Builder
	for i := 0; i < Length; i++ {
		pixels := binarize(img, Window(i))
		out.WriteByte(Alphabet[predict(pixels, model)])
	}
	return out.String(), nil
}

// SolveBytes decodes an encoded image (png, jpeg, gif, bmp or webp) and
// classifies it.
func SolveBytes(data []byte, model *Model) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", &DecodeError{Err: err}
	}
	return Classify(img, model)
}
