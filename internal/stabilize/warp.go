package stabilize

import (
	"image"
	"math"

	"golang.org/x/image/math/f64"
)

// Border selects how samples outside the source are filled
type Border int

const (
	// BorderReflect101 mirrors without repeating the edge pixel:
	// gfedcb|abcdefgh|gfedcba
	BorderReflect101 Border = iota
	// BorderReplicate repeats the edge pixel: aaaaaa|abcdefgh|hhhhhhh
	BorderReplicate
)

// RotationMatrix returns the forward affine transform rotating a frame of
// the given size by angle degrees counter-clockwise about its centre,
// laid out as [a b c d e f] for x' = ax+by+c, y' = dx+ey+f.
func RotationMatrix(angle float64, width, height int) f64.Aff3 {
	cx, cy := float64(width)/2, float64(height)/2
	rad := angle * math.Pi / 180
	alpha, beta := math.Cos(rad), math.Sin(rad)
	return f64.Aff3{
		alpha, beta, (1-alpha)*cx - beta*cy,
		-beta, alpha, beta*cx + (1-alpha)*cy,
	}
}

// Invert returns the inverse of an affine transform. A singular matrix
// yields the zero transform.
func Invert(m f64.Aff3) f64.Aff3 {
	a, b, c := m[0], m[1], m[2]
	d, e, f := m[3], m[4], m[5]
	det := a*e - b*d
	if det == 0 {
		return f64.Aff3{}
	}
	inv := 1 / det
	return f64.Aff3{
		e * inv, -b * inv, (b*f - e*c) * inv,
		-d * inv, a * inv, (d*c - a*f) * inv,
	}
}

// Warp fills dst by mapping every destination pixel back through m onto
// src and sampling bilinearly. m is the forward transform; dst and src
// must not alias.
func Warp(dst, src *image.RGBA, m f64.Aff3, border Border) {
	inv := Invert(m)
	sb := src.Bounds()
	db := dst.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 {
		return
	}

	for y := 0; y < db.Dy(); y++ {
		fy := float64(y)
		row := dst.PixOffset(db.Min.X, db.Min.Y+y)
		for x := 0; x < db.Dx(); x++ {
			fx := float64(x)
			sx := inv[0]*fx + inv[1]*fy + inv[2]
			sy := inv[3]*fx + inv[4]*fy + inv[5]

			x0f, y0f := math.Floor(sx), math.Floor(sy)
			wx, wy := sx-x0f, sy-y0f
			x0, y0 := int(x0f), int(y0f)
			out := dst.Pix[row+x*4 : row+x*4+4 : row+x*4+4]

			if wx == 0 && wy == 0 {
				p := src.PixOffset(sb.Min.X+clampIndex(x0, sw, border), sb.Min.Y+clampIndex(y0, sh, border))
				copy(out, src.Pix[p:p+4])
				continue
			}

			xa, xb := clampIndex(x0, sw, border), clampIndex(x0+1, sw, border)
			ya, yb := clampIndex(y0, sh, border), clampIndex(y0+1, sh, border)
			p00 := src.PixOffset(sb.Min.X+xa, sb.Min.Y+ya)
			p10 := src.PixOffset(sb.Min.X+xb, sb.Min.Y+ya)
			p01 := src.PixOffset(sb.Min.X+xa, sb.Min.Y+yb)
			p11 := src.PixOffset(sb.Min.X+xb, sb.Min.Y+yb)

			w00 := (1 - wx) * (1 - wy)
			w10 := wx * (1 - wy)
			w01 := (1 - wx) * wy
			w11 := wx * wy
			for c := 0; c < 4; c++ {
				v := w00*float64(src.Pix[p00+c]) +
					w10*float64(src.Pix[p10+c]) +
					w01*float64(src.Pix[p01+c]) +
					w11*float64(src.Pix[p11+c])
				out[c] = clampByte(v)
			}
		}
	}
}

// Rotate writes src rotated by angle degrees about its centre into dst.
// A zero angle copies src unchanged.
func Rotate(dst, src *image.RGBA, angle float64) {
	if angle == 0 && dst.Bounds().Size() == src.Bounds().Size() {
		copyRGBA(dst, src)
		return
	}
	b := src.Bounds()
	Warp(dst, src, RotationMatrix(angle, b.Dx(), b.Dy()), BorderReflect101)
}

func copyRGBA(dst, src *image.RGBA) {
	sb, db := src.Bounds(), dst.Bounds()
	rowLen := sb.Dx() * 4
	for y := 0; y < sb.Dy(); y++ {
		so := src.PixOffset(sb.Min.X, sb.Min.Y+y)
		do := dst.PixOffset(db.Min.X, db.Min.Y+y)
		copy(dst.Pix[do:do+rowLen], src.Pix[so:so+rowLen])
	}
}

// clampIndex maps an out of range coordinate back into [0, n)
func clampIndex(p, n int, border Border) int {
	if p >= 0 && p < n {
		return p
	}
	if n == 1 {
		return 0
	}
	if border == BorderReplicate {
		if p < 0 {
			return 0
		}
		return n - 1
	}
	period := 2*n - 2
	p %= period
	if p < 0 {
		p += period
	}
	if p >= n {
		p = period - p
	}
	return p
}

func clampByte(v float64) uint8 {
	v = math.Round(v)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
