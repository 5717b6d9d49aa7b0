package ocr

import (
	"image"
	"image/color"
	"sort"

	xdraw "golang.org/x/image/draw"
)

// darkThreshold splits pixels into dark and light when deciding whether a
// plaque is light text on a dark background.
const darkThreshold = 125

func toGray(src image.Image) *image.Gray {
	bounds := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x-bounds.Min.X, y-bounds.Min.Y, color.GrayModel.Convert(src.At(x, y)))
		}
	}
	return gray
}

// upscale enlarges img so its short side is at least minShortSide.
func upscale(img *image.Gray, minShortSide int) *image.Gray {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	short := min(w, h)
	if minShortSide <= 0 || short == 0 || short >= minShortSide {
		return img
	}
	scale := float64(minShortSide) / float64(short)
	dst := image.NewGray(image.Rect(0, 0, int(float64(w)*scale+0.5), int(float64(h)*scale+0.5)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// invertIfDark inverts img in place when dark pixels dominate and reports
// whether it did.
func invertIfDark(img *image.Gray) bool {
	dark := 0
	for _, v := range img.Pix {
		if v < darkThreshold {
			dark++
		}
	}
	if dark*2 <= len(img.Pix) {
		return false
	}
	for i, v := range img.Pix {
		img.Pix[i] = 255 - v
	}
	return true
}

// medianFilter applies a 3x3 median filter; border pixels use the clamped
// neighbourhood.
func medianFilter(img *image.Gray) *image.Gray {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	window := make([]uint8, 0, 9)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx := min(max(x+dx, 0), w-1)
					ny := min(max(y+dy, 0), h-1)
					window = append(window, img.Pix[ny*img.Stride+nx])
				}
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			out.Pix[y*out.Stride+x] = window[len(window)/2]
		}
	}
	return out
}

// binarize maps pixels above threshold to white and the rest to black.
func binarize(img *image.Gray, threshold int) *image.Gray {
	out := image.NewGray(img.Bounds())
	for i, v := range img.Pix {
		if int(v) > threshold {
			out.Pix[i] = 255
		}
	}
	return out
}

// thresholds expands the sweep range; a non-positive step yields only start.
func thresholds(start, stop, step int) []int {
	if step <= 0 || stop < start {
		return []int{start}
	}
	var out []int
	for t := start; t <= stop; t += step {
		out = append(out, t)
	}
	return out
}
