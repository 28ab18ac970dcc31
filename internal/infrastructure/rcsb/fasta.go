package rcsb

import (
	"bytes"
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/biocad/anbase/internal/domain/sequence"
	"github.com/biocad/anbase/pkg/errors"
)

// Entity is one FASTA record of an entry: a polymer entity and the chains
// that carry it.
type Entity struct {
	ID       string   `json:"id"`
	Chains   []string `json:"chains"`
	Name     string   `json:"name"`
	Organism string   `json:"organism,omitempty"`
	Sequence string   `json:"sequence"`
}

// Entry is the FASTA view of a structure entry.
type Entry struct {
	PDBID    string   `json:"pdb_id"`
	Entities []Entity `json:"entities"`
}

// Sequences maps every chain id, label and author alike, to its canonical
// sequence. A chain listed by two entities keeps the later one.
func (e Entry) Sequences() map[string]string {
	out := make(map[string]string)
	for _, ent := range e.Entities {
		for _, ch := range ent.Chains {
			out[ch] = ent.Sequence
		}
	}
	return out
}

// Names lists the molecule name of every entity in entry order.
func (e Entry) Names() []string {
	out := make([]string, len(e.Entities))
	for i, ent := range e.Entities {
		out[i] = ent.Name
	}
	return out
}

// Entity looks an entity up by id.
func (e Entry) Entity(id string) (Entity, bool) {
	for _, ent := range e.Entities {
		if ent.ID == id {
			return ent, true
		}
	}
	return Entity{}, false
}

var authChain = regexp.MustCompile(`\[auth ([^\]]+)\]`)

// ParseChainNames reads the chain field of an RCSB FASTA header, e.g.
// "Chains A, B[auth C]". Author ids come first, followed by the label ids.
func ParseChainNames(field string) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			names = append(names, s)
		}
	}
	for _, m := range authChain.FindAllStringSubmatch(field, -1) {
		add(m[1])
	}
	rest := authChain.ReplaceAllString(field, "")
	rest = strings.ReplaceAll(rest, "Chains", "")
	rest = strings.ReplaceAll(rest, "Chain", "")
	rest = strings.ReplaceAll(rest, " ", "")
	for _, s := range strings.Split(rest, ",") {
		add(s)
	}
	return names
}

// ParseEntry parses an RCSB FASTA document with headers of the form
// ">1ABC_1|Chains A, B|name|organism".
func ParseEntry(pdbID string, data []byte) (Entry, error) {
	records, err := sequence.ReadFasta(bytes.NewReader(data))
	if err != nil {
		return Entry{}, errors.Wrap(err, errors.ErrCodeFastaParse, "failed to parse fasta entry")
	}
	if len(records) == 0 {
		return Entry{}, errors.New(errors.ErrCodeFastaParse, "fasta entry has no records").WithDetail(pdbID)
	}
	entry := Entry{PDBID: strings.ToUpper(pdbID)}
	for _, r := range records {
		fields := strings.Split(r.Header, "|")
		if len(fields) < 2 {
			return Entry{}, errors.New(errors.ErrCodeFastaParse, "malformed fasta header").WithDetail(r.Header)
		}
		ent := Entity{
			Chains:   ParseChainNames(fields[1]),
			Sequence: r.Sequence,
		}
		if i := strings.LastIndexByte(fields[0], '_'); i >= 0 {
			ent.ID = fields[0][i+1:]
		}
		if len(fields) > 2 {
			ent.Name = strings.TrimSpace(fields[2])
		}
		if len(fields) > 3 {
			ent.Organism = strings.TrimSpace(fields[3])
		}
		if len(ent.Chains) == 0 {
			return Entry{}, errors.New(errors.ErrCodeFastaParse, "fasta header lists no chains").WithDetail(r.Header)
		}
		entry.Entities = append(entry.Entities, ent)
	}
	return entry, nil
}

// FetchEntry downloads and parses the FASTA entry of pdbID.
func (c *Client) FetchEntry(ctx context.Context, pdbID string) (Entry, error) {
	id := strings.ToUpper(pdbID)
	return memoized(ctx, c, EndpointFastaEntry, func(ctx context.Context) (Entry, error) {
		return c.fetchFasta(ctx, EndpointFastaEntry, c.cfg.FastaURL+"/fasta/entry/"+id, id)
	}, id)
}

// FetchEntity downloads the FASTA record of a single polymer entity.
func (c *Client) FetchEntity(ctx context.Context, pdbID, entityID string) (Entity, error) {
	id := strings.ToUpper(pdbID)
	return memoized(ctx, c, EndpointFastaEntity, func(ctx context.Context) (Entity, error) {
		entry, err := c.fetchFasta(ctx, EndpointFastaEntity, c.cfg.FastaURL+"/fasta/entity/"+id+"_"+entityID, id)
		if err != nil {
			return Entity{}, err
		}
		if ent, ok := entry.Entity(entityID); ok {
			return ent, nil
		}
		return entry.Entities[0], nil
	}, id, entityID)
}

func (c *Client) fetchFasta(ctx context.Context, endpoint, url, id string) (Entry, error) {
	res, err := c.do(ctx, request{endpoint: endpoint, method: http.MethodGet, url: url, accept: "text/plain"})
	if err != nil {
		return Entry{}, err
	}
	switch res.Status {
	case StatusNotFound:
		return Entry{}, errors.New(errors.ErrCodeRemoteNotFound, "fasta not found").WithDetail(id)
	case StatusTimeout:
		return Entry{}, timeoutError(endpoint, id)
	}
	return ParseEntry(id, res.Body)
}

//Personal.AI order the ending
