package curation

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/biocad/anbase/internal/config"
	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/internal/domain/structure"
	"github.com/biocad/anbase/internal/infrastructure/rcsb"
	"github.com/biocad/anbase/pkg/errors"
)

const (
	heavySeq   = "EVQLVESGGGLVQPGGSLRLSCAAS"
	lightSeq   = "DIQMTQSPSSLSASVGDRVTITCRA"
	antigenSeq = "KVFGRCELAAAMKRHGLDNYRGYSLGNWVCAAK"

	boundName = "1ABC_H+L-C"

	sourceTSV = "pdb\tHchain\tLchain\tantigen_chain\tantigen_type\n" +
		"1abc\tH\tL\tC\tprotein\n" +
		"9zzz\tH\tL\tC\tprotein\n" +
		"8bad\tH\tL\tNA\tNA\n"
)

var threeLetter = func() map[byte]string {
	out := map[byte]string{}
	for three, one := range structure.AminoThreeToOne {
		if three != "MSE" {
			out[one] = three
		}
	}
	return out
}()

// helix returns the alpha-carbon trace of an ideal helix of n residues along
// x, starting at origin.
func helix(n int, origin structure.Vec3) []structure.Vec3 {
	out := make([]structure.Vec3, n)
	for i := range out {
		th := float64(i) * 100 * math.Pi / 180
		out[i] = origin.Add(structure.Vec3{X: 1.5 * float64(i), Y: 2.3 * math.Cos(th), Z: 2.3 * math.Sin(th)})
	}
	return out
}

// motion is a rigid move: a rotation about z followed by a shift.
func motion(v structure.Vec3) structure.Vec3 {
	c, s := math.Cos(math.Pi/6), math.Sin(math.Pi/6)
	return structure.Vec3{X: c*v.X - s*v.Y + 40, Y: s*v.X + c*v.Y + 5, Z: v.Z - 3}
}

func chain(id, seq string, cas []structure.Vec3) structure.Chain {
	c := structure.Chain{ID: id}
	for i := range seq {
		c.Residues = append(c.Residues, structure.Residue{
			Name: threeLetter[seq[i]],
			Seq:  i + 1,
			Atoms: []structure.Atom{{
				Name: "CA", Element: "C", Coord: cas[i], Occupancy: 1,
			}},
		})
	}
	return c
}

var (
	heavyOrigin   = structure.Vec3{}
	lightOrigin   = structure.Vec3{Y: 8}
	antigenOrigin = structure.Vec3{Z: 8}
)

func boundStructure() *structure.Structure {
	return &structure.Structure{ID: "1ABC", Chains: []structure.Chain{
		chain("H", heavySeq, helix(len(heavySeq), heavyOrigin)),
		chain("L", lightSeq, helix(len(lightSeq), lightOrigin)),
		chain("C", antigenSeq, helix(len(antigenSeq), antigenOrigin)),
	}}
}

func unboundAntibody() *structure.Structure {
	s := &structure.Structure{ID: "2XYZ", Chains: []structure.Chain{
		chain("A", heavySeq, helix(len(heavySeq), heavyOrigin)),
		chain("B", lightSeq, helix(len(lightSeq), lightOrigin)),
	}}
	return s.Transformed(motion)
}

// unboundAntigen returns the moved antigen, optionally carrying a ligand next
// to one of its interface residues.
func unboundAntigen(withLigand bool) *structure.Structure {
	s := &structure.Structure{ID: "7LYZ", Chains: []structure.Chain{
		chain("A", antigenSeq, helix(len(antigenSeq), antigenOrigin)),
	}}
	if withLigand {
		ca, _ := s.Chains[0].Residues[10].CA()
		s.Chains[0].Residues = append(s.Chains[0].Residues, structure.Residue{
			Name: "NAG", Seq: 501, Hetero: true,
			Atoms: []structure.Atom{{Name: "C1", Element: "C", Coord: ca.Coord.Add(structure.Vec3{X: 0.5}), Occupancy: 1}},
		})
	}
	return s.Transformed(motion)
}

// world is an in-memory structure database.
type world struct {
	mu      sync.Mutex
	hits    map[string][]rcsb.Hit
	entries map[string]rcsb.Entry
	infos   map[string]abag.EntryInfo
	files   map[string]*structure.Structure
	fetched map[string]int

	// onSearch, when set, replaces the hit lookup.
	onSearch func(ctx context.Context, seq string) ([]rcsb.Hit, error)
}

func newWorld(t *testing.T, ligand bool) *world {
	t.Helper()
	hit := func(id, entity string) rcsb.Hit { return rcsb.Hit{PDBID: id, EntityID: entity} }
	return &world{
		hits: map[string][]rcsb.Hit{
			heavySeq:   {hit("1ABC", "1"), hit("2XYZ", "1")},
			lightSeq:   {hit("1ABC", "2"), hit("2XYZ", "2")},
			antigenSeq: {hit("1ABC", "3"), hit("7LYZ", "1")},
		},
		entries: map[string]rcsb.Entry{
			"1ABC": {PDBID: "1ABC", Entities: []rcsb.Entity{
				{ID: "1", Chains: []string{"H"}, Name: "FAB HEAVY CHAIN", Sequence: heavySeq},
				{ID: "2", Chains: []string{"L"}, Name: "FAB LIGHT CHAIN", Sequence: lightSeq},
				{ID: "3", Chains: []string{"C"}, Name: "LYSOZYME C", Sequence: antigenSeq},
			}},
			"2XYZ": {PDBID: "2XYZ", Entities: []rcsb.Entity{
				{ID: "1", Chains: []string{"A"}, Name: "FAB HEAVY CHAIN", Sequence: heavySeq},
				{ID: "2", Chains: []string{"B"}, Name: "FAB LIGHT CHAIN", Sequence: lightSeq},
			}},
			"7LYZ": {PDBID: "7LYZ", Entities: []rcsb.Entity{
				{ID: "1", Chains: []string{"A"}, Name: "LYSOZYME C", Sequence: antigenSeq},
			}},
		},
		infos: map[string]abag.EntryInfo{
			"1ABC": {PDBID: "1ABC", Resolution: 2.1, Method: "X-RAY DIFFRACTION"},
			"2XYZ": {PDBID: "2XYZ", Resolution: 1.8, Method: "X-RAY DIFFRACTION"},
			"7LYZ": {PDBID: "7LYZ", Resolution: 1.2, Method: "X-RAY DIFFRACTION"},
			"9ZZZ": {PDBID: "9ZZZ", Resolution: 3.0, Method: "X-RAY DIFFRACTION", Obsolete: true},
		},
		files: map[string]*structure.Structure{
			"1ABC": boundStructure(),
			"2XYZ": unboundAntibody(),
			"7LYZ": unboundAntigen(ligand),
		},
		fetched: map[string]int{},
	}
}

// mutateAntigen replaces residue i of the unbound antigen 7LYZ, in both its
// entry sequence and its structure, with the one-letter code res.
func (w *world) mutateAntigen(i int, res byte) string {
	mutated := antigenSeq[:i] + string(res) + antigenSeq[i+1:]
	w.entries["7LYZ"].Entities[0].Sequence = mutated
	w.files["7LYZ"].Chains[0].Residues[i].Name = threeLetter[res]
	return mutated
}

func (w *world) Search(ctx context.Context, seq string) ([]rcsb.Hit, error) {
	if w.onSearch != nil {
		return w.onSearch(ctx, seq)
	}
	return w.hits[seq], nil
}

func (w *world) FetchEntity(ctx context.Context, pdbID, entityID string) (rcsb.Entity, error) {
	e, err := w.FetchEntry(ctx, pdbID)
	if err != nil {
		return rcsb.Entity{}, err
	}
	ent, ok := e.Entity(entityID)
	if !ok {
		return rcsb.Entity{}, errors.New(errors.ErrCodeRemoteNotFound, "fasta not found").WithDetail(pdbID)
	}
	return ent, nil
}

func (w *world) FetchEntry(_ context.Context, pdbID string) (rcsb.Entry, error) {
	e, ok := w.entries[strings.ToUpper(pdbID)]
	if !ok {
		return rcsb.Entry{}, errors.New(errors.ErrCodeRemoteNotFound, "fasta not found").WithDetail(pdbID)
	}
	return e, nil
}

func (w *world) FetchEntryInfo(_ context.Context, pdbID string) (abag.EntryInfo, error) {
	if info, ok := w.infos[strings.ToUpper(pdbID)]; ok {
		return info, nil
	}
	return abag.UnknownEntry(pdbID), nil
}

func (w *world) StructurePath(_ context.Context, pdbID, dir string) (string, error) {
	id := strings.ToUpper(pdbID)
	path := filepath.Join(dir, id+".pdb")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	s, ok := w.files[id]
	if !ok {
		return "", errors.New(errors.ErrCodeRemoteNotFound, "structure not found").WithDetail(id)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := structure.WriteFile(path, s); err != nil {
		return "", err
	}
	w.mu.Lock()
	w.fetched[id]++
	w.mu.Unlock()
	return path, nil
}

func testConfig(t *testing.T) config.PipelineConfig {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "sabdab_summary.tsv")
	require.NoError(t, os.WriteFile(src, []byte(sourceTSV), 0o644))
	return config.PipelineConfig{
		RunID:              "test",
		SummaryPath:        src,
		DataDir:            filepath.Join(root, "data"),
		OutDir:             filepath.Join(root, "out"),
		Workers:            2,
		DupWorkers:         2,
		Pairing:            config.PairingUU,
		AntigenTypes:       config.DefaultAntigenTypes,
		MaxCandidates:      50,
		TopCandidates:      5,
		InterfaceCutoff:    10,
		EpitopeCutoff:      6.5,
		GapCutoffExtension: 5,
		LongGapLength:      15,
	}
}
