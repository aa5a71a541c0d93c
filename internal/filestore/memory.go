package filestore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"boxstore/internal/ids"
)

type memFile struct {
	data        []byte
	contentType string
}

// MemoryDriver holds payloads in process memory; ephemeral. Uploads are
// buffered fully before they are published, so an aborted request never
// leaves a partial file behind.
type MemoryDriver struct {
	mu     sync.RWMutex
	boxes  map[string]map[string]memFile
	policy SecurityPolicy
}

var _ Driver = (*MemoryDriver)(nil)

// NewMemory creates an empty in-memory driver. A nil policy means open
// access.
func NewMemory(policy SecurityPolicy) *MemoryDriver {
	if policy == nil {
		policy = AllowAll
	}
	return &MemoryDriver{
		boxes:  make(map[string]map[string]memFile),
		policy: policy,
	}
}

func (m *MemoryDriver) CheckSecurity(ctx context.Context, boxID, fileID string, write bool) bool {
	return m.policy(ctx, boxID, fileID, write)
}

func (m *MemoryDriver) Save(ctx context.Context, boxID string, r io.Reader, contentType string, size int64) (FileInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return FileInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	if contentType == "" {
		contentType = DefaultContentType
	}

	id := ids.New()

	m.mu.Lock()
	defer m.mu.Unlock()

	box := m.boxes[boxID]
	if box == nil {
		box = make(map[string]memFile)
		m.boxes[boxID] = box
	}
	box[id] = memFile{data: data, contentType: contentType}

	return FileInfo{ID: id, ContentType: contentType, Size: int64(len(data))}, nil
}

func (m *MemoryDriver) Get(ctx context.Context, boxID, id string) (*File, error) {
	m.mu.RLock()
	f, ok := m.boxes[boxID][id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &File{
		FileInfo: FileInfo{ID: id, ContentType: f.contentType, Size: int64(len(f.data))},
		Content:  io.NopCloser(bytes.NewReader(f.data)),
	}, nil
}

func (m *MemoryDriver) List(ctx context.Context, boxID string) ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	box := m.boxes[boxID]
	infos := make([]FileInfo, 0, len(box))
	for id, f := range box {
		infos = append(infos, FileInfo{ID: id, ContentType: f.contentType, Size: int64(len(f.data))})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

func (m *MemoryDriver) Delete(ctx context.Context, boxID, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	box := m.boxes[boxID]
	if _, ok := box[id]; !ok {
		return 0, nil
	}
	delete(box, id)
	if len(box) == 0 {
		delete(m.boxes, boxID)
	}
	return 1, nil
}
