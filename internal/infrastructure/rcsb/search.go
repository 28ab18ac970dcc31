package rcsb

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

// Hit is one polymer entity returned by the sequence search.
type Hit struct {
	PDBID    string `json:"pdb_id"`
	EntityID string `json:"entity_id"`
}

// ParseHit splits a "PDBID_ENTITY" identifier.
func ParseHit(identifier string) (Hit, bool) {
	i := strings.LastIndexByte(identifier, '_')
	if i <= 0 || i == len(identifier)-1 {
		return Hit{}, false
	}
	return Hit{PDBID: strings.ToUpper(identifier[:i]), EntityID: identifier[i+1:]}, true
}

type searchQuery struct {
	Query          searchNode     `json:"query"`
	RequestOptions requestOptions `json:"request_options"`
	ReturnType     string         `json:"return_type"`
}

type searchNode struct {
	Type       string           `json:"type"`
	Service    string           `json:"service"`
	Parameters searchParameters `json:"parameters"`
}

type searchParameters struct {
	EValueCutoff   float64 `json:"evalue_cutoff"`
	IdentityCutoff float64 `json:"identity_cutoff"`
	SequenceType   string  `json:"sequence_type"`
	Value          string  `json:"value"`
}

type requestOptions struct {
	ScoringStrategy string   `json:"scoring_strategy"`
	Paginate        paginate `json:"paginate"`
}

type paginate struct {
	Start int `json:"start"`
	Rows  int `json:"rows"`
}

type searchResponse struct {
	TotalCount int `json:"total_count"`
	ResultSet  []struct {
		Identifier string  `json:"identifier"`
		Score      float64 `json:"score"`
	} `json:"result_set"`
}

func (c *Client) searchBody(seq string) ([]byte, error) {
	return json.Marshal(searchQuery{
		Query: searchNode{
			Type:    "terminal",
			Service: "sequence",
			Parameters: searchParameters{
				EValueCutoff:   c.cfg.EValueCutoff,
				IdentityCutoff: c.cfg.IdentityCutoff,
				SequenceType:   "protein",
				Value:          seq,
			},
		},
		RequestOptions: requestOptions{
			ScoringStrategy: "sequence",
			Paginate:        paginate{Start: 0, Rows: c.cfg.Rows},
		},
		ReturnType: "polymer_entity",
	})
}

// Search returns the polymer entities whose sequence matches seq within the
// configured identity and e-value cutoffs. No hits is an empty slice, not an
// error.
func (c *Client) Search(ctx context.Context, seq string) ([]Hit, error) {
	if seq == "" {
		return nil, errors.New(errors.ErrCodeSequenceEmpty, "empty search sequence")
	}
	return memoized(ctx, c, EndpointSearch, func(ctx context.Context) ([]Hit, error) {
		return c.search(ctx, seq)
	}, seq, c.cfg.IdentityCutoff, c.cfg.EValueCutoff, c.cfg.Rows)
}

func (c *Client) search(ctx context.Context, seq string) ([]Hit, error) {
	body, err := c.searchBody(seq)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode search query")
	}
	res, err := c.do(ctx, request{
		endpoint: EndpointSearch,
		method:   http.MethodPost,
		url:      c.cfg.SearchURL + "/rcsbsearch/v2/query",
		body:     body,
		accept:   "application/json",
	})
	if err != nil {
		return nil, err
	}
	switch res.Status {
	case StatusNotFound:
		return []Hit{}, nil
	case StatusTimeout:
		return nil, timeoutError(EndpointSearch, abbreviate(seq))
	}
	if len(res.Body) == 0 {
		return []Hit{}, nil
	}

	var resp searchResponse
	if err := json.Unmarshal(res.Body, &resp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRemoteMalformed, "failed to decode search response")
	}
	hits := make([]Hit, 0, len(resp.ResultSet))
	for _, r := range resp.ResultSet {
		h, ok := ParseHit(r.Identifier)
		if !ok {
			c.logger.Warn("Skipping malformed search identifier", logging.String("identifier", r.Identifier))
			continue
		}
		hits = append(hits, h)
	}
	return hits, nil
}

func abbreviate(seq string) string {
	if len(seq) > 16 {
		return seq[:16] + "..."
	}
	return seq
}

//Personal.AI order the ending
