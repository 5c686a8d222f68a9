package spatial

import "math"

// estimatedPointsPerCell sizes the initial cell map.
const estimatedPointsPerCell = 4

// CellGrid buckets points into square cells of a fixed edge length and
// answers range queries by scanning the cells the query disc overlaps.
type CellGrid struct {
	cellSize float64
	points   []Point
	cells    map[int64][]int // cell ID → point indices
}

// NewCellGrid builds a CellGrid with the given cell edge length. A
// non-positive size falls back to DefaultCellSize.
func NewCellGrid(points []Point, cellSize float64) *CellGrid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	g := &CellGrid{
		cellSize: cellSize,
		points:   append([]Point(nil), points...),
		cells:    make(map[int64][]int, len(points)/estimatedPointsPerCell+1),
	}
	for i, p := range g.points {
		cx, cy := g.cellCoords(p)
		id := cellID(cx, cy)
		g.cells[id] = append(g.cells[id], i)
	}
	return g
}

// Len returns the number of indexed points.
func (g *CellGrid) Len() int { return len(g.points) }

// WithinRadius returns the indices of all points within radius of center.
func (g *CellGrid) WithinRadius(center Point, radius float64) []int {
	if radius < 0 || len(g.points) == 0 {
		return nil
	}
	r2 := radius * radius
	ring := int64(math.Ceil(radius / g.cellSize))
	cx, cy := g.cellCoords(center)

	var out []int
	for dx := -ring; dx <= ring; dx++ {
		for dy := -ring; dy <= ring; dy++ {
			for _, idx := range g.cells[cellID(cx+dx, cy+dy)] {
				p := g.points[idx]
				ddx := p.X - center.X
				ddy := p.Y - center.Y
				if ddx*ddx+ddy*ddy <= r2 {
					out = append(out, idx)
				}
			}
		}
	}
	return out
}

func (g *CellGrid) cellCoords(p Point) (int64, int64) {
	return int64(math.Floor(p.X / g.cellSize)), int64(math.Floor(p.Y / g.cellSize))
}

// cellID maps signed cell coordinates to a unique key: zigzag encoding to
// make both non-negative, then Szudzik's pairing function.
func cellID(cx, cy int64) int64 {
	a := zigzag(cx)
	b := zigzag(cy)
	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

func zigzag(v int64) int64 {
	if v >= 0 {
		return 2 * v
	}
	return -2*v - 1
}
