// Package sequence implements the pairwise alignment primitives and the
// identity/mismatch comparator used to match chains across structures.
package sequence

import "strings"

// Gap is the character used for alignment gaps.
const Gap = '-'

// Mode selects how the ends of the two sequences are treated.
type Mode int

const (
	// Overlap is a global alignment whose terminal gaps are free on both
	// sequences.
	Overlap Mode = iota
	// Local is a Smith-Waterman alignment of the best-scoring segment pair.
	Local
)

// Scoring holds a substitution matrix and affine gap costs. Costs are positive
// numbers subtracted from the score; the first gap column of a run costs Open
// and every further column costs Extend. "A" costs apply to gap columns
// inserted into the first sequence, "B" costs to the second.
type Scoring struct {
	Matrix      Matrix
	OpenA, ExtA int
	OpenB, ExtB int
}

// Symmetric returns a Scoring that uses the same gap costs on both sequences.
func Symmetric(m Matrix, open, extend int) Scoring {
	return Scoring{Matrix: m, OpenA: open, ExtA: extend, OpenB: open, ExtB: extend}
}

// Alignment is a pairwise alignment. A and B have equal length. For Overlap
// alignments they spell out the full input sequences; for Local alignments
// only the aligned segment, starting at StartA and StartB.
type Alignment struct {
	A, B           string
	Score          int
	StartA, StartB int
}

// Span returns the column range [first, last] in which both rows hold a
// residue, or ok=false when no such column exists.
func (al Alignment) Span() (first, last int, ok bool) {
	first, last = -1, -1
	for k := 0; k < len(al.A); k++ {
		if al.A[k] != Gap && al.B[k] != Gap {
			if first < 0 {
				first = k
			}
			last = k
		}
	}
	return first, last, first >= 0
}

// MatchSpan returns the column range [first, last] between the first and last
// identical residue pair.
func (al Alignment) MatchSpan() (first, last int, ok bool) {
	first, last = -1, -1
	for k := 0; k < len(al.A); k++ {
		if al.A[k] != Gap && al.A[k] == al.B[k] {
			if first < 0 {
				first = k
			}
			last = k
		}
	}
	return first, last, first >= 0
}

const (
	stM = iota
	stX // residue of A against a gap in B
	stY // gap in A against a residue of B
	stStop
)

const negInf = -1 << 40

// Align computes the optimal alignment of a and b under sc and mode.
// Ties prefer a substitution over a gap in B over a gap in A, which keeps the
// output deterministic.
func Align(a, b string, sc Scoring, mode Mode) Alignment {
	n, m := len(a), len(b)
	if sc.Matrix == nil {
		sc.Matrix = IdentityMatrix{}
	}
	if n == 0 || m == 0 {
		if mode == Local {
			return Alignment{}
		}
		return Alignment{
			A: a + strings.Repeat(string(Gap), m),
			B: strings.Repeat(string(Gap), n) + b,
		}
	}

	w := m + 1
	size := (n + 1) * w
	M := make([]int, size)
	X := make([]int, size)
	Y := make([]int, size)
	tM := make([]uint8, size)
	tX := make([]uint8, size)
	tY := make([]uint8, size)

	for i := 0; i <= n; i++ {
		for j := 0; j <= m; j++ {
			c := i*w + j
			M[c], X[c], Y[c] = negInf, negInf, negInf
			tM[c], tX[c], tY[c] = stStop, stStop, stStop
		}
	}
	M[0] = 0
	if mode == Overlap {
		for i := 1; i <= n; i++ {
			X[i*w] = 0
		}
		for j := 1; j <= m; j++ {
			Y[j] = 0
		}
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			c := i*w + j
			d := (i-1)*w + j - 1
			s := sc.Matrix.Score(a[i-1], b[j-1])

			best, from := M[d], uint8(stM)
			if X[d] > best {
				best, from = X[d], stX
			}
			if Y[d] > best {
				best, from = Y[d], stY
			}
			if mode == Local && best <= 0 {
				best, from = 0, stStop
			}
			if best > negInf {
				M[c], tM[c] = best+s, from
			}

			u := (i-1)*w + j
			bx, fx := M[u]-sc.OpenB, uint8(stM)
			if v := X[u] - sc.ExtB; v > bx {
				bx, fx = v, stX
			}
			if v := Y[u] - sc.OpenB; v > bx {
				bx, fx = v, stY
			}
			if M[u] > negInf || X[u] > negInf || Y[u] > negInf {
				X[c], tX[c] = bx, fx
			}

			l := i*w + j - 1
			by, fy := M[l]-sc.OpenA, uint8(stM)
			if v := X[l] - sc.OpenA; v > by {
				by, fy = v, stX
			}
			if v := Y[l] - sc.ExtA; v > by {
				by, fy = v, stY
			}
			if M[l] > negInf || X[l] > negInf || Y[l] > negInf {
				Y[c], tY[c] = by, fy
			}
		}
	}

	bi, bj, bst, bestScore := 0, 0, stM, negInf
	consider := func(i, j int) {
		c := i*w + j
		for _, cand := range [...]struct {
			v  int
			st int
		}{{M[c], stM}, {X[c], stX}, {Y[c], stY}} {
			if mode == Local && cand.st != stM {
				continue
			}
			if cand.v > bestScore {
				bi, bj, bst, bestScore = i, j, cand.st, cand.v
			}
		}
	}
	if mode == Local {
		for i := 1; i <= n; i++ {
			for j := 1; j <= m; j++ {
				consider(i, j)
			}
		}
		if bestScore <= 0 {
			return Alignment{}
		}
	} else {
		for j := 1; j <= m; j++ {
			consider(n, j)
		}
		for i := 1; i < n; i++ {
			consider(i, m)
		}
	}

	var ra, rb []byte
	i, j, st := bi, bj, bst
	for i > 0 && j > 0 {
		c := i*w + j
		switch st {
		case stM:
			ra = append(ra, a[i-1])
			rb = append(rb, b[j-1])
			st = int(tM[c])
			i, j = i-1, j-1
		case stX:
			ra = append(ra, a[i-1])
			rb = append(rb, Gap)
			st = int(tX[c])
			i--
		default:
			ra = append(ra, Gap)
			rb = append(rb, b[j-1])
			st = int(tY[c])
			j--
		}
		if st == stStop {
			break
		}
	}
	reverse(ra)
	reverse(rb)

	if mode == Local {
		return Alignment{A: string(ra), B: string(rb), Score: bestScore, StartA: i, StartB: j}
	}

	// Overlap: pad the free leading and trailing overhangs.
	var sa, sb strings.Builder
	sa.WriteString(a[:i])
	sb.WriteString(strings.Repeat(string(Gap), i))
	sa.WriteString(strings.Repeat(string(Gap), j))
	sb.WriteString(b[:j])
	sa.Write(ra)
	sb.Write(rb)
	sa.WriteString(a[bi:])
	sb.WriteString(strings.Repeat(string(Gap), n-bi))
	sa.WriteString(strings.Repeat(string(Gap), m-bj))
	sb.WriteString(b[bj:])
	return Alignment{A: sa.String(), B: sb.String(), Score: bestScore}
}

func reverse(s []byte) {
	for l, r := 0, len(s)-1; l < r; l, r = l+1, r-1 {
		s[l], s[r] = s[r], s[l]
	}
}

//Personal.AI order the ending
