package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/biocad/anbase/internal/domain/abag"
)

func TestCheckNames(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  bool
	}{
		{"single name", []string{"LYSOZYME C"}, true},
		{"identical names", []string{"LYSOZYME C", "LYSOZYME C"}, true},
		{"heavy and light", []string{"Fab heavy chain", "Fab light chain"}, true},
		{"suffixed tokens", []string{"MAB HEAVY-CHAIN 4", "MAB LIGHT-CHAIN 4"}, true},
		{"different word counts", []string{"FAB HEAVY CHAIN", "LIGHT CHAIN"}, false},
		{"unrelated molecules", []string{"LYSOZYME C", "INSULIN A"}, false},
		{"antibody with antigen", []string{"FAB HEAVY CHAIN", "FAB LIGHT CHAIN", "HEMAGGLUTININ HA1 CHAIN"}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckNames(tt.names))
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	f := newFinder(newAntibodyRemote(), nil)
	cand := abag.Candidate{PDBID: "2XYZ", ChainIDs: []string{"A", "B"}, Kind: abag.KindAntibody}
	seqs := []string{heavySeq, lightSeq}

	first := f.Validate(context.Background(), cand, seqs)
	second := f.Validate(context.Background(), cand, seqs)
	assert.True(t, first)
	assert.Equal(t, first, second)
}

func TestValidate_Rejections(t *testing.T) {
	f := newFinder(newAntibodyRemote(), nil)
	seqs := []string{heavySeq, lightSeq}

	assert.False(t, f.Validate(context.Background(),
		abag.Candidate{PDBID: "4GHI", ChainIDs: []string{"A", "B"}, Kind: abag.KindAntibody}, seqs), "ambiguous residue")
	assert.False(t, f.Validate(context.Background(),
		abag.Candidate{PDBID: "2XYZ", ChainIDs: []string{"A", "Z"}, Kind: abag.KindAntibody}, seqs), "missing chain")
	assert.False(t, f.Validate(context.Background(),
		abag.Candidate{PDBID: "2XYZ", ChainIDs: []string{"B", "A"}, Kind: abag.KindAntibody}, seqs), "swapped roles")
	assert.False(t, f.Validate(context.Background(),
		abag.Candidate{PDBID: "0NOP", ChainIDs: []string{"A", "B"}, Kind: abag.KindAntibody}, seqs), "unknown entry")
	assert.False(t, f.Validate(context.Background(),
		abag.Candidate{PDBID: "2XYZ", ChainIDs: []string{"A"}, Kind: abag.KindAntibody}, seqs), "group size")
}
