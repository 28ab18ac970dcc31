package sequence

// Matching thresholds. A length difference above twice (len(shorter)/20) is
// never a legitimate truncation, and len(target)/20 mismatches are tolerated
// when verifying a search hit.
const (
	lengthDivisor   = 20
	mismatchDivisor = 20
)

// DefaultScoring is the comparator scoring: BLOSUM62 with gap costs high
// enough that internal gaps are effectively forbidden.
var DefaultScoring = Symmetric(Blosum62{}, 100, 100)

// Comparator scores amino-acid sequence similarity. It is stateless and safe
// for concurrent use.
type Comparator struct {
	scoring Scoring
}

// ComparatorOption configures a Comparator.
type ComparatorOption func(*Comparator)

// WithScoring overrides the alignment scoring.
func WithScoring(sc Scoring) ComparatorOption {
	return func(c *Comparator) { c.scoring = sc }
}

// NewComparator builds a Comparator using DefaultScoring unless overridden.
func NewComparator(opts ...ComparatorOption) *Comparator {
	c := &Comparator{scoring: DefaultScoring}
	for _, o := range opts {
		o(c)
	}
	return c
}

// LengthCutoff is the largest tolerated length difference for a sequence
// pair whose shorter member has length n.
func LengthCutoff(n int) int {
	return 2 * (n / lengthDivisor)
}

// AllowedMismatches is the mismatch budget for a target of length n.
func AllowedMismatches(n int) int {
	return n / mismatchDivisor
}

func (c *Comparator) align(a, b string) Alignment {
	return Align(a, b, c.scoring, Overlap)
}

// MismatchCount counts differing columns of the alignment of a and b between
// the first and last column where both sequences have a residue. Sequences
// that do not align at all count as len(a) mismatches.
func (c *Comparator) MismatchCount(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" || b == "" {
		return len(a)
	}
	if len(a) == len(b) {
		if h := hamming(a, b); h <= AllowedMismatches(len(b)) {
			return h
		}
	}
	al := c.align(a, b)
	first, last, ok := al.Span()
	if !ok {
		return len(a)
	}
	n := 0
	for k := first; k <= last; k++ {
		if al.A[k] != al.B[k] {
			n++
		}
	}
	if len(a) == len(b) {
		if h := hamming(a, b); h < n {
			return h
		}
	}
	return n
}

// identityMismatches counts the mismatched columns of the alignment of the
// longer against the shorter sequence, ignoring only the terminal gap runs of
// the shorter one. Residues of the shorter sequence hanging over the ends of
// the longer one are mismatches.
func (c *Comparator) identityMismatches(a, b string) (mismatches, shorter int) {
	long, short := a, b
	if len(short) > len(long) {
		long, short = short, long
	}
	if len(a) == len(b) {
		if h := hamming(a, b); h == 0 {
			return 0, len(short)
		}
	}
	al := c.align(long, short)
	sa := al.B
	lead := 0
	for lead < len(sa) && sa[lead] == Gap {
		lead++
	}
	trail := 0
	for trail < len(sa)-lead && sa[len(sa)-1-trail] == Gap {
		trail++
	}
	for k := lead; k < len(sa)-trail; k++ {
		if al.A[k] != sa[k] {
			mismatches++
		}
	}
	if len(a) == len(b) {
		if h := hamming(a, b); h < mismatches {
			mismatches = h
		}
	}
	return mismatches, len(short)
}

// Identity returns the fraction of the shorter sequence matched by the longer
// one, in [0, 1]. Terminal truncation of the shorter sequence is not
// penalized.
func (c *Comparator) Identity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	mm, n := c.identityMismatches(a, b)
	if mm > n {
		mm = n
	}
	return float64(n-mm) / float64(n)
}

// IsSubsequenceOf reports whether short is an exact, possibly terminally
// truncated, copy of long: identity 1.0 within the length-difference cutoff.
// The relation is symmetric in its arguments.
func (c *Comparator) IsSubsequenceOf(short, long string) bool {
	if short == long {
		return short != ""
	}
	if short == "" || long == "" {
		return false
	}
	if lengthDiff(short, long) > LengthCutoff(minLen(short, long)) {
		return false
	}
	if len(short) == len(long) {
		return false
	}
	return c.Identity(short, long) == 1.0
}

// Matches is the tolerant comparison used to verify homolog-search hits.
// Within the length-difference cutoff it accepts up to AllowedMismatches of
// target, and retries with either sequence trimmed by half the cutoff at
// either end to absorb ambiguous terminal residues.
func (c *Comparator) Matches(query, target string) bool {
	if query == target {
		return query != ""
	}
	if query == "" || target == "" {
		return false
	}
	cutoff := LengthCutoff(minLen(query, target))
	if lengthDiff(query, target) > cutoff {
		return false
	}
	allowed := AllowedMismatches(len(target))
	if mm, _ := c.identityMismatches(query, target); mm <= allowed {
		return true
	}
	half := cutoff / 2
	if half == 0 {
		return false
	}
	for _, v := range trimmedVariants(query, target, half) {
		if mm, _ := c.identityMismatches(v[0], v[1]); mm <= allowed {
			return true
		}
	}
	return false
}

// trimmedVariants trims w residues from the start or end of either sequence.
func trimmedVariants(q, t string, w int) [][2]string {
	var out [][2]string
	if len(q) > w {
		out = append(out, [2]string{q[w:], t}, [2]string{q[:len(q)-w], t})
	}
	if len(t) > w {
		out = append(out, [2]string{q, t[w:]}, [2]string{q, t[:len(t)-w]})
	}
	return out
}

func hamming(a, b string) int {
	n := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}

func lengthDiff(a, b string) int {
	if len(a) > len(b) {
		return len(a) - len(b)
	}
	return len(b) - len(a)
}

func minLen(a, b string) int {
	if len(a) < len(b) {
		return len(a)
	}
	return len(b)
}

//Personal.AI order the ending
