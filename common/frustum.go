package common

import "github.com/chewxy/math32"

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// SignedDistance returns the distance of point from the plane, positive on the normal's side.
func (p Plane) SignedDistance(point [3]float32) float32 {
	return p.Normal[0]*point[0] + p.Normal[1]*point[1] + p.Normal[2]*point[2] + p.Distance
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// ExtractFrustumFromMatrix extracts frustum planes from a view-projection matrix using the
// Gribb/Hartmann method. The near plane assumes WebGPU clip depth in [0, 1].
//
// Parameters:
//   - viewProj: 16 float32 values representing the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj []float32) Frustum {
	// row(i) of a column-major matrix is {m[i], m[4+i], m[8+i], m[12+i]}.
	row := func(i int) [4]float32 {
		return [4]float32{viewProj[i], viewProj[4+i], viewProj[8+i], viewProj[12+i]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	combos := [6][4]float32{}
	for i := range 4 {
		combos[FrustumLeft][i] = r3[i] + r0[i]
		combos[FrustumRight][i] = r3[i] - r0[i]
		combos[FrustumBottom][i] = r3[i] + r1[i]
		combos[FrustumTop][i] = r3[i] - r1[i]
		combos[FrustumNear][i] = r2[i]
		combos[FrustumFar][i] = r3[i] - r2[i]
	}

	var f Frustum
	for i, c := range combos {
		f.Planes[i] = normalizePlane(c)
	}
	return f
}

// ContainsSphere reports whether a sphere intersects or lies inside the frustum.
//
// Parameters:
//   - center: sphere centre in world space
//   - radius: sphere radius
//
// Returns:
//   - bool: false only when the sphere is entirely outside one of the planes
func (f Frustum) ContainsSphere(center [3]float32, radius float32) bool {
	for _, p := range f.Planes {
		if p.SignedDistance(center) < -radius {
			return false
		}
	}
	return true
}

func normalizePlane(c [4]float32) Plane {
	p := Plane{Normal: [3]float32{c[0], c[1], c[2]}, Distance: c[3]}
	length := math32.Sqrt(c[0]*c[0] + c[1]*c[1] + c[2]*c[2])
	if length > 0 {
		inv := 1 / length
		p.Normal[0] *= inv
		p.Normal[1] *= inv
		p.Normal[2] *= inv
		p.Distance *= inv
	}
	return p
}
