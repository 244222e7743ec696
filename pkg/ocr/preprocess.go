package ocr

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
)

// preprocessToTemp writes a cleaned-up grayscale copy of the image to a temp
// file and returns its path. The caller removes the file. Receipts photographed
// at low resolution are upscaled first; thresholding then strips background
// texture that confuses Tesseract.
func preprocessToTemp(path string, adaptive bool) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 15)
	gray = imaging.Sharpen(gray, 0.7)
	if gray.Bounds().Dy() < 900 {
		gray = imaging.Resize(gray, 0, 1300, imaging.Lanczos)
	}
	var bw *image.NRGBA
	if adaptive {
		bw = thicken(adaptiveThreshold(gray, 15, 7), 1)
	} else {
		bw = binarize(gray, 210)
	}

	f, err := os.CreateTemp("", "scan-pre-*.png")
	if err != nil {
		return "", err
	}
	_ = f.Close()
	if err := imaging.Save(bw, f.Name()); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("save preprocessed image: %w", err)
	}
	return f.Name(), nil
}

// luma returns the 8-bit average intensity of a pixel.
func luma(img image.Image, x, y int) int {
	r, g, b, _ := img.At(x, y).RGBA()
	return int((r + g + b) / 3 >> 8)
}

// binarize applies a global threshold: pixels at or below it turn black,
// everything else white.
func binarize(img image.Image, threshold int) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var v uint8 = 255
			if luma(img, x, y) <= threshold {
				v = 0
			}
			out.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}

// adaptiveThreshold thresholds each pixel against the mean of its window
// minus a bias, using a summed-area table so the window mean is O(1).
func adaptiveThreshold(img image.Image, window, bias int) *image.NRGBA {
	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	sums := make([]int, w*h)
	for y := 0; y < h; y++ {
		rowSum := 0
		for x := 0; x < w; x++ {
			rowSum += luma(img, x, y)
			if y == 0 {
				sums[x] = rowSum
			} else {
				sums[y*w+x] = sums[(y-1)*w+x] + rowSum
			}
		}
	}
	out := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
	half := window / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0, y0 := max(x-half, 0), max(y-half, 0)
			x1, y1 := min(x+half, w-1), min(y+half, h-1)
			area := (x1 - x0 + 1) * (y1 - y0 + 1)
			sum := sums[y1*w+x1] - sums[y0*w+x1] - sums[y1*w+x0] + sums[y0*w+x0]
			th := sum/area - bias
			if th < 0 {
				th = 0
			}
			if luma(img, x, y) < th {
				out.Set(x, y, color.NRGBA{0, 0, 0, 255})
			}
		}
	}
	return out
}

// thicken dilates black strokes with a 4-neighborhood, radius passes. Thin
// thermal-printer glyphs survive thresholding better after one pass.
func thicken(img *image.NRGBA, radius int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	cur := img
	for r := 0; r < radius; r++ {
		next := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				for _, d := range [][2]int{{0, 0}, {1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					x2, y2 := x+d[0], y+d[1]
					if x2 < 0 || y2 < 0 || x2 >= w || y2 >= h {
						continue
					}
					if rv, gv, bv, _ := cur.At(x2, y2).RGBA(); rv+gv+bv == 0 {
						next.Set(x, y, color.NRGBA{0, 0, 0, 255})
						break
					}
				}
			}
		}
		cur = next
	}
	return cur
}
