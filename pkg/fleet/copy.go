package fleet

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
)

// CopyFile uploads a local file into a container's filesystem. The file
// is read fully, packed as a single-entry tar archive named after the
// destination's base name, and extracted into the destination's parent
// directory by the engine.
func (m *Manager) CopyFile(ctx context.Context, id, localPath, containerPath string) error {
	_, eng, err := m.Lookup(ctx, id)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}

	archive, err := tarSingleFile(path.Base(containerPath), data)
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", localPath, err)
	}

	dir := path.Dir(containerPath)
	if dir == "." {
		dir = "/"
	}

	if err := eng.PutArchive(ctx, id, dir, bytes.NewReader(archive)); err != nil {
		return fmt.Errorf("failed to upload %s to container %s: %w", localPath, id, err)
	}

	m.logger.Debug().
		Str("container_id", id).
		Str("path", containerPath).
		Int("bytes", len(data)).
		Msg("file copied to container")
	return nil
}

// tarSingleFile builds an in-memory tar archive holding one regular
// file entry.
func tarSingleFile(name string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	hdr := &tar.Header{
		Name: name,
		Mode: 0644,
		Size: int64(len(data)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, err
	}
	if _, err := tw.Write(data); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
