package relocate

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// MaxPlacementDistance is how far a candidate hit may sit from the saved
// point before it stops being a plausible correspondence, in meters.
const MaxPlacementDistance = 3.0

// searchRay is one entry of the fixed weighted ray fan. Direction vectors
// are unit length, pointing down-ish (Z=up convention, matching the sensed
// world frame).
type searchRay struct {
	dir    r3.Vec
	weight float64
}

// searchOriginOffsets are the vertical offsets (meters) above the target
// point that each ray is cast from. Multiple origins compensate for saved
// points that sit slightly inside or above the newly sensed surface.
var searchOriginOffsets = []float64{0, 0.5, 1.0}

// searchRays is the deterministic ray fan: straight down at weight 1.0,
// four rays ~25° off-vertical at 0.8, four rays ~45° off-vertical at 0.6.
// A single straight-down ray frequently misses thin or angled real-world
// surfaces; the fan trades a bounded constant amount of extra work for a
// much better hit rate. Iteration order breaks confidence ties
// (first-found wins).
var searchRays = buildSearchRays()

func buildSearchRays() []searchRay {
	rays := []searchRay{
		{dir: r3.Vec{X: 0, Y: 0, Z: -1}, weight: 1.0},
	}
	for _, tilt := range []struct {
		deg    float64
		weight float64
	}{
		{25, 0.8},
		{45, 0.6},
	} {
		tiltRad := tilt.deg * math.Pi / 180
		sin, cos := math.Sin(tiltRad), math.Cos(tiltRad)
		for _, azimuthDeg := range []float64{0, 90, 180, 270} {
			az := azimuthDeg * math.Pi / 180
			rays = append(rays, searchRay{
				dir:    r3.Vec{X: sin * math.Cos(az), Y: sin * math.Sin(az), Z: -cos},
				weight: tilt.weight,
			})
		}
	}
	return rays
}

// Plane is a bounded rectangular surface patch from the live sensed
// geometry. U and V are unit in-plane axes; the patch extends ±HalfU and
// ±HalfV from Center along them.
type Plane struct {
	ID     string
	Center r3.Vec
	Normal r3.Vec
	U, V   r3.Vec
	HalfU  float64
	HalfV  float64
}

// NewHorizontalPlane builds an upward-facing rectangular patch, the common
// case for floors and tabletops.
func NewHorizontalPlane(id string, center r3.Vec, halfX, halfY float64) Plane {
	return Plane{
		ID:     id,
		Center: center,
		Normal: r3.Vec{X: 0, Y: 0, Z: 1},
		U:      r3.Vec{X: 1, Y: 0, Z: 0},
		V:      r3.Vec{X: 0, Y: 1, Z: 0},
		HalfU:  halfX,
		HalfV:  halfY,
	}
}

// Area returns the patch area in m².
func (p Plane) Area() float64 {
	return 4 * p.HalfU * p.HalfV
}

// OrientationAlignment returns how closely the patch normal aligns with
// "up", 0-1.
func (p Plane) OrientationAlignment() float64 {
	a := r3.Dot(r3.Unit(p.Normal), r3.Vec{X: 0, Y: 0, Z: 1})
	if a < 0 {
		a = -a
	}
	return a
}

// Triangle is one dense-mesh triangle, available in precision mode.
type Triangle struct {
	A, B, C r3.Vec
}

// SceneSnapshot is a point-in-time copy of the currently sensed geometry.
// It is built on the scene-owning context and must not be mutated after
// handoff to a search.
type SceneSnapshot struct {
	Planes    []Plane
	Triangles []Triangle
}

// SearchResult is the best candidate surface intersection for a target
// point.
type SearchResult struct {
	Transform  Transform
	Confidence float64
	SurfaceID  string // plane id, or "" for a mesh hit
}

// SearchEngine casts the fixed weighted ray fan against a scene snapshot
// to find the surface intersection closest to a saved anchor point.
type SearchEngine struct {
	MaxDistance float64 // meters; ≤0 means MaxPlacementDistance
}

// NewSearchEngine returns a search engine with the system default reach.
func NewSearchEngine() *SearchEngine {
	return &SearchEngine{MaxDistance: MaxPlacementDistance}
}

// Search casts every ray of the fan from every origin offset against the
// snapshot and retains the single highest-confidence hit. Per hit,
// confidence = rayWeight × (1 − distance(hit, near)/maxDistance). Returns
// ok=false when no ray intersects anything within reach. The sweep is a
// single bounded pass over the fixed ray/offset list; it never blocks.
func (e *SearchEngine) Search(near r3.Vec, snap *SceneSnapshot) (SearchResult, bool) {
	maxDist := e.MaxDistance
	if maxDist <= 0 {
		maxDist = MaxPlacementDistance
	}

	var best SearchResult
	found := false

	for _, offset := range searchOriginOffsets {
		origin := r3.Vec{X: near.X, Y: near.Y, Z: near.Z + offset}
		for _, ray := range searchRays {
			hit, normal, surfaceID, ok := nearestHit(origin, ray.dir, snap)
			if !ok {
				continue
			}
			dist := r3.Norm(r3.Sub(hit, near))
			if dist > maxDist {
				continue
			}
			conf := ray.weight * (1 - dist/maxDist)
			// Strictly greater keeps the first-found hit on ties.
			if !found || conf > best.Confidence {
				best = SearchResult{
					Transform:  TransformFromNormal(hit, normal),
					Confidence: conf,
					SurfaceID:  surfaceID,
				}
				found = true
			}
		}
	}

	return best, found
}

const rayEpsilon = 1e-9

// nearestHit returns the closest intersection along the ray across all
// planes and mesh triangles in the snapshot.
func nearestHit(origin, dir r3.Vec, snap *SceneSnapshot) (hit, normal r3.Vec, surfaceID string, ok bool) {
	bestT := math.Inf(1)

	for i := range snap.Planes {
		p := &snap.Planes[i]
		if t, point, hitOK := rayPlane(origin, dir, p); hitOK && t < bestT {
			bestT = t
			hit = point
			normal = r3.Unit(p.Normal)
			surfaceID = p.ID
			ok = true
		}
	}

	for i := range snap.Triangles {
		tri := &snap.Triangles[i]
		if t, point, n, hitOK := rayTriangle(origin, dir, tri); hitOK && t < bestT {
			bestT = t
			hit = point
			normal = n
			surfaceID = ""
			ok = true
		}
	}

	return hit, normal, surfaceID, ok
}

// rayPlane intersects a ray with a bounded rectangular patch.
func rayPlane(origin, dir r3.Vec, p *Plane) (t float64, hit r3.Vec, ok bool) {
	n := r3.Unit(p.Normal)
	denom := r3.Dot(dir, n)
	if math.Abs(denom) < rayEpsilon {
		return 0, r3.Vec{}, false // ray parallel to plane
	}

	t = r3.Dot(r3.Sub(p.Center, origin), n) / denom
	if t < rayEpsilon {
		return 0, r3.Vec{}, false // behind the origin
	}

	hit = r3.Add(origin, r3.Scale(t, dir))
	local := r3.Sub(hit, p.Center)
	if math.Abs(r3.Dot(local, p.U)) > p.HalfU || math.Abs(r3.Dot(local, p.V)) > p.HalfV {
		return 0, r3.Vec{}, false // outside the patch extents
	}

	return t, hit, true
}

// rayTriangle intersects a ray with a mesh triangle (Möller–Trumbore).
// The returned normal is oriented back toward the ray origin.
func rayTriangle(origin, dir r3.Vec, tri *Triangle) (t float64, hit, normal r3.Vec, ok bool) {
	edge1 := r3.Sub(tri.B, tri.A)
	edge2 := r3.Sub(tri.C, tri.A)

	pvec := r3.Cross(dir, edge2)
	det := r3.Dot(edge1, pvec)
	if math.Abs(det) < rayEpsilon {
		return 0, r3.Vec{}, r3.Vec{}, false
	}
	invDet := 1 / det

	tvec := r3.Sub(origin, tri.A)
	u := r3.Dot(tvec, pvec) * invDet
	if u < 0 || u > 1 {
		return 0, r3.Vec{}, r3.Vec{}, false
	}

	qvec := r3.Cross(tvec, edge1)
	v := r3.Dot(dir, qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, r3.Vec{}, r3.Vec{}, false
	}

	t = r3.Dot(edge2, qvec) * invDet
	if t < rayEpsilon {
		return 0, r3.Vec{}, r3.Vec{}, false
	}

	hit = r3.Add(origin, r3.Scale(t, dir))
	normal = r3.Unit(r3.Cross(edge1, edge2))
	if r3.Dot(normal, dir) > 0 {
		normal = r3.Scale(-1, normal)
	}
	return t, hit, normal, true
}
