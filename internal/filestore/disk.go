package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"boxstore/internal/ids"
)

const metaSuffix = ".meta"

// diskMeta is the sidecar record keeping content-type fidelity for a
// stored payload.
type diskMeta struct {
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// DiskDriver stores each file under root/<boxId>/<id> with a sidecar
// metadata record. Payloads are written to a temporary file and renamed
// into place, so a request aborted mid-upload never publishes a partial
// file. Generated ids contain no dots, which keeps them disjoint from
// the sidecar names.
type DiskDriver struct {
	root   string
	policy SecurityPolicy
}

var _ Driver = (*DiskDriver)(nil)

// NewDisk creates the root directory if needed.
func NewDisk(root string, policy SecurityPolicy) (*DiskDriver, error) {
	if root == "" {
		return nil, fmt.Errorf("disk driver: root directory is required")
	}
	if policy == nil {
		policy = AllowAll
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("disk driver: create root: %w", err)
	}
	return &DiskDriver{root: root, policy: policy}, nil
}

func (d *DiskDriver) CheckSecurity(ctx context.Context, boxID, fileID string, write bool) bool {
	return d.policy(ctx, boxID, fileID, write)
}

func (d *DiskDriver) boxDir(boxID string) string {
	return filepath.Join(d.root, boxID)
}

func (d *DiskDriver) Save(ctx context.Context, boxID string, r io.Reader, contentType string, size int64) (FileInfo, error) {
	if contentType == "" {
		contentType = DefaultContentType
	}

	dir := d.boxDir(boxID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return FileInfo{}, fmt.Errorf("create box directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return FileInfo{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		os.Remove(tmpName)
		return FileInfo{}, err
	}

	id := ids.New()
	info := FileInfo{ID: id, ContentType: contentType, Size: written}

	if err := d.writeMeta(dir, id, diskMeta{ContentType: contentType, Size: written}); err != nil {
		os.Remove(tmpName)
		return FileInfo{}, err
	}

	// Renaming the payload is the publish point; List and Get key off it.
	if err := os.Rename(tmpName, filepath.Join(dir, id)); err != nil {
		os.Remove(tmpName)
		os.Remove(filepath.Join(dir, id+metaSuffix))
		return FileInfo{}, fmt.Errorf("publish file: %w", err)
	}
	return info, nil
}

func (d *DiskDriver) writeMeta(dir, id string, meta diskMeta) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".meta-*")
	if err != nil {
		return fmt.Errorf("create metadata temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close metadata: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, id+metaSuffix)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish metadata: %w", err)
	}
	return nil
}

func (d *DiskDriver) readMeta(dir, id string, fallbackSize int64) diskMeta {
	b, err := os.ReadFile(filepath.Join(dir, id+metaSuffix))
	if err != nil {
		return diskMeta{ContentType: DefaultContentType, Size: fallbackSize}
	}
	var meta diskMeta
	if err := json.Unmarshal(b, &meta); err != nil || meta.ContentType == "" {
		return diskMeta{ContentType: DefaultContentType, Size: fallbackSize}
	}
	return meta
}

func (d *DiskDriver) Get(ctx context.Context, boxID, id string) (*File, error) {
	dir := d.boxDir(boxID)

	f, err := os.Open(filepath.Join(dir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	meta := d.readMeta(dir, id, st.Size())

	return &File{
		FileInfo: FileInfo{ID: id, ContentType: meta.ContentType, Size: st.Size()},
		Content:  f,
	}, nil
}

func (d *DiskDriver) List(ctx context.Context, boxID string) ([]FileInfo, error) {
	dir := d.boxDir(boxID)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []FileInfo{}, nil
		}
		return nil, err
	}

	infos := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		// Skip sidecars and unpublished temp files.
		if e.IsDir() || strings.HasPrefix(name, ".") || strings.HasSuffix(name, metaSuffix) {
			continue
		}
		var size int64
		if fi, err := e.Info(); err == nil {
			size = fi.Size()
		}
		meta := d.readMeta(dir, name, size)
		infos = append(infos, FileInfo{ID: name, ContentType: meta.ContentType, Size: size})
	}
	return infos, nil
}

func (d *DiskDriver) Delete(ctx context.Context, boxID, id string) (int, error) {
	dir := d.boxDir(boxID)

	if err := os.Remove(filepath.Join(dir, id)); err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	// Sidecar removal is best effort; the payload is already gone.
	os.Remove(filepath.Join(dir, id+metaSuffix))
	return 1, nil
}
