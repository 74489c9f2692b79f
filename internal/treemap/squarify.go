// Package treemap computes squarified treemap layouts (Bruls, Huizing and
// van Wijk). Sizes must be positive and sorted in descending order; rects are
// returned in the same order as the sizes.
package treemap

import "math"

// Rect is a laid-out tile. X/Y is the corner nearest the origin.
type Rect struct {
	X, Y, DX, DY float64
}

// Area returns DX*DY
func (r Rect) Area() float64 {
	return r.DX * r.DY
}

// Center returns the midpoint of the rect
func (r Rect) Center() (float64, float64) {
	return r.X + r.DX/2, r.Y + r.DY/2
}

// NormalizeSizes scales values so they sum to dx*dy
func NormalizeSizes(values []float64, dx, dy float64) []float64 {
	total := sum(values)
	out := make([]float64, len(values))
	if total == 0 {
		return out
	}
	area := dx * dy
	for i, v := range values {
		out[i] = v * area / total
	}
	return out
}

// Squarify lays sizes out in the rectangle (x, y, dx, dy). Sizes should
// already be normalised to the rectangle's area.
func Squarify(sizes []float64, x, y, dx, dy float64) []Rect {
	rects := make([]Rect, 0, len(sizes))
	for len(sizes) > 0 {
		if len(sizes) == 1 {
			return append(rects, layout(sizes, x, y, dx, dy)...)
		}

		// Grow the row while the worst aspect ratio does not get worse
		i := 1
		for i < len(sizes) && worstRatio(sizes[:i], x, y, dx, dy) >= worstRatio(sizes[:i+1], x, y, dx, dy) {
			i++
		}

		row := sizes[:i]
		rects = append(rects, layout(row, x, y, dx, dy)...)
		x, y, dx, dy = leftover(row, x, y, dx, dy)
		sizes = sizes[i:]
	}
	return rects
}

// layout places a row along the shorter side of the rectangle
func layout(sizes []float64, x, y, dx, dy float64) []Rect {
	if dx >= dy {
		return layoutRow(sizes, x, y, dy)
	}
	return layoutCol(sizes, x, y, dx)
}

// layoutRow stacks sizes vertically in a column of full height dy
func layoutRow(sizes []float64, x, y, dy float64) []Rect {
	width := sum(sizes) / dy
	rects := make([]Rect, 0, len(sizes))
	for _, size := range sizes {
		h := size / width
		rects = append(rects, Rect{X: x, Y: y, DX: width, DY: h})
		y += h
	}
	return rects
}

// layoutCol lines sizes up horizontally in a band of full width dx
func layoutCol(sizes []float64, x, y, dx float64) []Rect {
	height := sum(sizes) / dx
	rects := make([]Rect, 0, len(sizes))
	for _, size := range sizes {
		w := size / height
		rects = append(rects, Rect{X: x, Y: y, DX: w, DY: height})
		x += w
	}
	return rects
}

// leftover returns the rectangle remaining after placing sizes
func leftover(sizes []float64, x, y, dx, dy float64) (float64, float64, float64, float64) {
	covered := sum(sizes)
	if dx >= dy {
		width := covered / dy
		return x + width, y, dx - width, dy
	}
	height := covered / dx
	return x, y + height, dx, dy - height
}

func worstRatio(sizes []float64, x, y, dx, dy float64) float64 {
	worst := 0.0
	for _, r := range layout(sizes, x, y, dx, dy) {
		worst = math.Max(worst, math.Max(r.DX/r.DY, r.DY/r.DX))
	}
	return worst
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
