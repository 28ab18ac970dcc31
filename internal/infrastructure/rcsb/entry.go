package rcsb

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/biocad/anbase/internal/domain/abag"
	"github.com/biocad/anbase/pkg/errors"
)

const obsoleteStatus = "OBS"

type entryDocument struct {
	EntryInfo struct {
		ResolutionCombined []float64 `json:"resolution_combined"`
		ExperimentalMethod string    `json:"experimental_method"`
	} `json:"rcsb_entry_info"`
	VrptSummary struct {
		PDBResolution json.RawMessage `json:"pdbresolution"`
	} `json:"pdbx_vrpt_summary"`
	Exptl []struct {
		Method string `json:"method"`
	} `json:"exptl"`
	DatabaseStatus struct {
		StatusCode string `json:"status_code"`
	} `json:"pdbx_database_status"`
}

// ParseEntryInfo extracts resolution, method and obsolescence from a core
// entry document. Missing values take the abag fallbacks.
func ParseEntryInfo(pdbID string, data []byte) (abag.EntryInfo, error) {
	var doc entryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return abag.UnknownEntry(pdbID), errors.Wrap(err, errors.ErrCodeRemoteMalformed, "failed to decode entry")
	}
	info := abag.UnknownEntry(strings.ToUpper(pdbID))

	switch {
	case len(doc.EntryInfo.ResolutionCombined) > 0:
		info.Resolution = doc.EntryInfo.ResolutionCombined[0]
	default:
		if r, ok := flexibleFloat(doc.VrptSummary.PDBResolution); ok {
			info.Resolution = r
		}
	}

	switch {
	case len(doc.Exptl) > 0 && doc.Exptl[0].Method != "":
		info.Method = doc.Exptl[0].Method
	case doc.EntryInfo.ExperimentalMethod != "":
		info.Method = doc.EntryInfo.ExperimentalMethod
	}

	info.Obsolete = strings.EqualFold(doc.DatabaseStatus.StatusCode, obsoleteStatus)
	return info, nil
}

// flexibleFloat accepts numbers and numeric strings.
func flexibleFloat(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// FetchEntryInfo returns the metadata of pdbID. An entry unknown to the
// service yields the fallback metadata without error; a timed out call
// yields the fallback metadata together with an ErrCodeRemoteTimeout error.
func (c *Client) FetchEntryInfo(ctx context.Context, pdbID string) (abag.EntryInfo, error) {
	id := strings.ToUpper(pdbID)
	info, err := memoized(ctx, c, EndpointEntry, func(ctx context.Context) (abag.EntryInfo, error) {
		res, err := c.do(ctx, request{
			endpoint: EndpointEntry,
			method:   http.MethodGet,
			url:      c.cfg.DataURL + "/rest/v1/core/entry/" + id,
			accept:   "application/json",
		})
		if err != nil {
			return abag.UnknownEntry(id), err
		}
		switch res.Status {
		case StatusNotFound:
			return abag.UnknownEntry(id), nil
		case StatusTimeout:
			return abag.UnknownEntry(id), timeoutError(EndpointEntry, id)
		}
		return ParseEntryInfo(id, res.Body)
	}, id)
	if err != nil {
		return abag.UnknownEntry(id), err
	}
	return info, nil
}

//Personal.AI order the ending
