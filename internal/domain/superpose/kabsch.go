// Package superpose fits unbound chains onto the frame of a bound complex by
// least-squares superposition of corresponding alpha carbons.
package superpose

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/biocad/anbase/internal/domain/structure"
	"github.com/biocad/anbase/pkg/errors"
)

// MinFitPoints is the smallest number of point pairs a fit accepts.
const MinFitPoints = 3

// collinearTolerance is the smallest second singular value, in ångströms, of a
// centred point cloud that still spans a plane.
const collinearTolerance = 1e-3

// Transform is a rigid motion x' = R·x + T.
type Transform struct {
	R [3][3]float64
	T structure.Vec3
}

// Identity returns the transform that leaves every point in place.
func Identity() Transform {
	return Transform{R: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// Apply moves v.
func (t Transform) Apply(v structure.Vec3) structure.Vec3 {
	return structure.Vec3{
		X: t.R[0][0]*v.X + t.R[0][1]*v.Y + t.R[0][2]*v.Z + t.T.X,
		Y: t.R[1][0]*v.X + t.R[1][1]*v.Y + t.R[1][2]*v.Z + t.T.Y,
		Z: t.R[2][0]*v.X + t.R[2][1]*v.Y + t.R[2][2]*v.Z + t.T.Z,
	}
}

// ApplyAll returns the moved copies of pts.
func (t Transform) ApplyAll(pts []structure.Vec3) []structure.Vec3 {
	out := make([]structure.Vec3, len(pts))
	for i, p := range pts {
		out[i] = t.Apply(p)
	}
	return out
}

// RMSD is the root-mean-square deviation of two equally long point lists.
func RMSD(a, b []structure.Vec3) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		d := a[i].Sub(b[i])
		sum += d.Dot(d)
	}
	return math.Sqrt(sum / float64(len(a)))
}

// Kabsch returns the proper rotation and translation that minimise the RMSD
// of mobile onto target, and that RMSD.
func Kabsch(mobile, target []structure.Vec3) (Transform, float64, error) {
	n := len(mobile)
	if n != len(target) {
		return Transform{}, 0, errors.Newf(errors.CodeInvalidParam,
			"point count mismatch: %d vs %d", n, len(target))
	}
	if n < MinFitPoints {
		return Transform{}, 0, errors.Newf(errors.ErrCodeInsufficientFitPoints,
			"need at least %d fit points, got %d", MinFitPoints, n)
	}

	cp, cq := structure.Centroid(mobile), structure.Centroid(target)
	p, q := centred(mobile, cp), centred(target, cq)
	if collinear(p) || collinear(q) {
		return Transform{}, 0, errors.New(errors.ErrCodeCollinearFitPoints, "fit points are collinear")
	}

	var h mat.Dense
	h.Mul(p.T(), q)

	var svd mat.SVD
	if !svd.Factorize(&h, mat.SVDFull) {
		return Transform{}, 0, errors.New(errors.CodeInternal, "svd did not converge")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var vut mat.Dense
	vut.Mul(&v, u.T())
	d := 1.0
	if mat.Det(&vut) < 0 {
		d = -1
	}
	dm := mat.NewDiagDense(3, []float64{1, 1, d})

	var vd, r mat.Dense
	vd.Mul(&v, dm)
	r.Mul(&vd, u.T())

	var t Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t.R[i][j] = r.At(i, j)
		}
	}
	rc := Transform{R: t.R}.Apply(cp)
	t.T = cq.Sub(rc)

	return t, RMSD(t.ApplyAll(mobile), target), nil
}

func centred(pts []structure.Vec3, c structure.Vec3) *mat.Dense {
	m := mat.NewDense(len(pts), 3, nil)
	for i, p := range pts {
		d := p.Sub(c)
		m.Set(i, 0, d.X)
		m.Set(i, 1, d.Y)
		m.Set(i, 2, d.Z)
	}
	return m
}

func collinear(m *mat.Dense) bool {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDNone) {
		return true
	}
	vals := svd.Values(nil)
	return len(vals) < 2 || vals[1] < collinearTolerance
}

//Personal.AI order the ending
