package image

// Rectangle is a bounding box of mismatched pixels in canvas coordinates.
type Rectangle struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// regionMergeDistance is how far apart two boxes may be and still be reported as one.
const regionMergeDistance = 10

func findRegions(mask []bool, width int, height int) []Rectangle {
	visited := make([]bool, len(mask))

	var rectangles []Rectangle
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if mask[y*width+x] && !visited[y*width+x] {
				rectangles = append(rectangles, findBoundingBox(mask, visited, x, y, width, height))
			}
		}
	}

	return mergeRectangles(rectangles)
}

// findBoundingBox flood-fills the 8-connected component containing (startX, startY).
func findBoundingBox(mask []bool, visited []bool, startX int, startY int, width int, height int) Rectangle {
	minX, minY := startX, startY
	maxX, maxY := startX, startY

	queue := []int{startY*width + startX}
	visited[startY*width+startX] = true

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		x, y := i%width, i/width

		minX = min(minX, x)
		maxX = max(maxX, x)
		minY = min(minY, y)
		maxY = max(maxY, y)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}

				nx := x + dx
				ny := y + dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				n := ny*width + nx
				if mask[n] && !visited[n] {
					visited[n] = true
					queue = append(queue, n)
				}
			}
		}
	}

	return Rectangle{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX + 1,
		Height: maxY - minY + 1,
	}
}

func mergeRectangles(rects []Rectangle) []Rectangle {
	if len(rects) <= 1 {
		return rects
	}

	merged := make([]Rectangle, 0, len(rects))
	used := make([]bool, len(rects))

	for i := 0; i < len(rects); i++ {
		if used[i] {
			continue
		}

		current := rects[i]
		mergedAny := true

		for mergedAny {
			mergedAny = false
			for j := i + 1; j < len(rects); j++ {
				if used[j] {
					continue
				}

				if current.near(rects[j], regionMergeDistance) {
					current = current.union(rects[j])
					used[j] = true
					mergedAny = true
				}
			}
		}

		merged = append(merged, current)
	}

	return merged
}

func (r Rectangle) overlaps(o Rectangle) bool {
	return !(r.X+r.Width <= o.X || o.X+o.Width <= r.X ||
		r.Y+r.Height <= o.Y || o.Y+o.Height <= r.Y)
}

func (r Rectangle) near(o Rectangle, distance int) bool {
	grown := Rectangle{
		X:      r.X - distance,
		Y:      r.Y - distance,
		Width:  r.Width + 2*distance,
		Height: r.Height + 2*distance,
	}
	return grown.overlaps(o)
}

func (r Rectangle) union(o Rectangle) Rectangle {
	minX := min(r.X, o.X)
	minY := min(r.Y, o.Y)
	maxX := max(r.X+r.Width, o.X+o.Width)
	maxY := max(r.Y+r.Height, o.Y+o.Height)

	return Rectangle{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}
