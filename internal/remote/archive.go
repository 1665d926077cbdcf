package remote

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"infranest/internal/artifact"
	"infranest/internal/doc"
)

// maxArchiveSize caps how much of a zip answer is buffered.
const maxArchiveSize = 64 << 20

func isZip(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mt == "application/zip" || mt == "application/x-zip-compressed")
}

// attachmentName recovers the project name from a download name of the
// form <name>-<framework>.zip.
func attachmentName(disposition, framework string) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	file := params["filename"]
	name := strings.TrimSuffix(file, path.Ext(file))
	return strings.TrimSuffix(name, "-"+framework)
}

// readArchive turns a zip body into an artifact, keeping the archive's
// entry order as the file order. Directory entries are skipped.
func readArchive(r io.Reader, id, name, framework string) (*artifact.Artifact, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxArchiveSize+1))
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	if len(data) > maxArchiveSize {
		return nil, fmt.Errorf("archive exceeds %d bytes", maxArchiveSize)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	pairs := make([]any, 0, 2*len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close() //nolint:errcheck // read-only entry
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		pairs = append(pairs, f.Name, string(content))
	}
	return &artifact.Artifact{
		ID:        id,
		Name:      name,
		Framework: framework,
		Files:     doc.Pairs(pairs...),
	}, nil
}
