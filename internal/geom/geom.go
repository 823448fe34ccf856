// Package geom implements the vector/point arithmetic and swept-circle
// collision kernel shared by the world and session packages.
package geom

import "math"

// Point is a location in real (non-grid) map coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec is a velocity or displacement in map coordinates.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle, normalized so Min <= Max on both axes.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

const epsilon = 1e-10

// IsZero reports whether v is the zero vector within tolerance.
func IsZero(v Vec) bool {
	return math.Abs(v.X) < epsilon && math.Abs(v.Y) < epsilon
}

// IsEqual reports whether a and b are equal within tolerance.
func IsEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// Add returns p translated by v scaled by seconds.
func (p Point) Add(v Vec, seconds float64) Point {
	return Point{X: p.X + v.X*seconds, Y: p.Y + v.Y*seconds}
}

// NewRect builds a normalized rectangle inflated by pad on every side.
func NewRect(x0, y0, x1, y1, pad float64) Rect {
	minX, maxX := x0, x1
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := y0, y1
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return Rect{MinX: minX - pad, MinY: minY - pad, MaxX: maxX + pad, MaxY: maxY + pad}
}

// Contains reports whether p lies inside r, inclusive of the boundary.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX-epsilon && p.X <= r.MaxX+epsilon &&
		p.Y >= r.MinY-epsilon && p.Y <= r.MaxY+epsilon
}

// Clamp returns p moved onto the boundary of r along the smallest correction.
func (r Rect) Clamp(p Point) Point {
	out := p
	if out.X < r.MinX {
		out.X = r.MinX
	}
	if out.X > r.MaxX {
		out.X = r.MaxX
	}
	if out.Y < r.MinY {
		out.Y = r.MinY
	}
	if out.Y > r.MaxY {
		out.Y = r.MaxY
	}
	return out
}

// IsHorizontal reports whether r is wider than it is tall.
func (r Rect) IsHorizontal() bool {
	return (r.MaxX - r.MinX) >= (r.MaxY - r.MinY)
}

// Item is a stationary collectible exposed to the collision kernel.
type Item struct {
	ID       uint64
	Position Point
	Width    float64
}

// Gatherer is a swept segment representing an avatar's motion during a tick.
type Gatherer struct {
	ID       uint64
	Start    Point
	End      Point
	Width    float64
}

// CollectEvent is one valid (item, gatherer) pickup candidate.
type CollectEvent struct {
	ItemID     uint64
	GathererID uint64
	SqDistance float64
	Time       float64
}

// collectionResult mirrors the projection-ratio/squared-distance pair used
// to decide whether an item was swept by a gatherer.
type collectionResult struct {
	sqDistance float64
	projRatio  float64
}

func (c collectionResult) isCollected(collectRadius float64) bool {
	return c.projRatio >= 0 && c.projRatio <= 1 && c.sqDistance <= collectRadius*collectRadius
}

// tryCollectPoint projects item onto the gatherer segment start->end.
func tryCollectPoint(start, end, item Point) collectionResult {
	segX, segY := end.X-start.X, end.Y-start.Y
	segLenSq := segX*segX + segY*segY
	if segLenSq < epsilon*epsilon {
		return collectionResult{sqDistance: math.MaxFloat64, projRatio: -1}
	}
	dx, dy := item.X-start.X, item.Y-start.Y
	proj := (dx*segX + dy*segY) / segLenSq
	projX, projY := start.X+proj*segX, start.Y+proj*segY
	sqDist := (item.X-projX)*(item.X-projX) + (item.Y-projY)*(item.Y-projY)
	return collectionResult{sqDistance: sqDist, projRatio: proj}
}

// FindGatherEvents enumerates every (item, gatherer) pair whose swept
// distance falls within the combined collision radius, in ascending order
// of the projection ratio (the event's time within the tick). Stationary
// gatherers (start == end) never produce events. The kernel never mutates
// its inputs.
func FindGatherEvents(items []Item, gatherers []Gatherer) []CollectEvent {
	var events []CollectEvent
	for _, g := range gatherers {
		if g.Start.X == g.End.X && g.Start.Y == g.End.Y {
			continue
		}
		for _, it := range items {
			res := tryCollectPoint(g.Start, g.End, it.Position)
			if res.isCollected(it.Width + g.Width) {
				events = append(events, CollectEvent{
					ItemID:     it.ID,
					GathererID: g.ID,
					SqDistance: res.sqDistance,
					Time:       res.projRatio,
				})
			}
		}
	}
	// Stable sort by time; ties keep insertion order.
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && events[j].Time < events[j-1].Time; j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
	return events
}
