package rcsb

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/biocad/anbase/pkg/errors"
)

// FetchStructure downloads the PDB-format coordinates of pdbID.
func (c *Client) FetchStructure(ctx context.Context, pdbID string) ([]byte, error) {
	id := strings.ToUpper(pdbID)
	res, err := c.do(ctx, request{
		endpoint: EndpointStructure,
		method:   http.MethodGet,
		url:      c.cfg.FilesURL + "/download/" + id + ".pdb",
		accept:   "chemical/x-pdb, text/plain",
	})
	if err != nil {
		return nil, err
	}
	switch res.Status {
	case StatusNotFound:
		return nil, errors.New(errors.ErrCodeRemoteNotFound, "structure not found").WithDetail(id)
	case StatusTimeout:
		return nil, timeoutError(EndpointStructure, id)
	}
	return res.Body, nil
}

// StructurePath returns dir/{ID}.pdb, downloading it first when absent. The
// file is written to a temporary name and renamed so an interrupted
// download never leaves a truncated structure behind.
func (c *Client) StructurePath(ctx context.Context, pdbID, dir string) (string, error) {
	id := strings.ToUpper(pdbID)
	path := filepath.Join(dir, id+".pdb")
	if st, err := os.Stat(path); err == nil && st.Size() > 0 {
		return path, nil
	}
	data, err := c.FetchStructure(ctx, id)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStructureWrite, "failed to create data dir")
	}
	tmp, err := os.CreateTemp(dir, id+".*.part")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStructureWrite, "failed to create structure file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, errors.ErrCodeStructureWrite, "failed to write structure file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, errors.ErrCodeStructureWrite, "failed to close structure file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, errors.ErrCodeStructureWrite, "failed to move structure file")
	}
	return path, nil
}

//Personal.AI order the ending
