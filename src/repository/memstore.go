package repository

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	app "imageserv/src/app"
)

type (
	// MemoryStore is an in-process app.Gateway. It backs S3_DRIVER=memory and
	// serves as the fake store in tests.
	MemoryStore struct {
		mu      sync.RWMutex
		buckets map[string]*bucket
		order   []string
		now     func() time.Time
	}

	bucket struct {
		objects map[string]object
	}

	object struct {
		data         []byte
		contentType  string
		lastModified time.Time
	}
)

var _ app.Gateway = (*MemoryStore)(nil)

func NewMemoryStore(buckets ...string) *MemoryStore {
	m := &MemoryStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
	for _, name := range buckets {
		m.createLocked(name)
	}
	return m
}

func (m *MemoryStore) createLocked(name string) {
	if _, ok := m.buckets[name]; ok {
		return
	}
	m.buckets[name] = &bucket{objects: make(map[string]object)}
	m.order = append(m.order, name)
}

func (m *MemoryStore) lookup(name string) (*bucket, error) {
	b, ok := m.buckets[name]
	if !ok {
		return nil, fmt.Errorf("bucket %s: %w", name, app.ErrBucketNotFound)
	}
	return b, nil
}

func (m *MemoryStore) PutObject(ctx context.Context, bucketName, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read body for %s/%s: %w", bucketName, key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("put object %s/%s: size %d does not match body length %d", bucketName, key, size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.lookup(bucketName)
	if err != nil {
		return err
	}
	b.objects[key] = object{data: data, contentType: contentType, lastModified: m.now().UTC()}
	return nil
}

func (m *MemoryStore) GetObject(ctx context.Context, bucketName, key string) ([]byte, app.ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, err := m.lookup(bucketName)
	if err != nil {
		return nil, app.ObjectInfo{}, err
	}
	obj, ok := b.objects[key]
	if !ok {
		return nil, app.ObjectInfo{}, fmt.Errorf("get object %s/%s: no such key", bucketName, key)
	}
	return append([]byte(nil), obj.data...), info(key, obj), nil
}

// DeleteObject is a no-op for missing keys, like S3.
func (m *MemoryStore) DeleteObject(ctx context.Context, bucketName, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.lookup(bucketName)
	if err != nil {
		return err
	}
	delete(b.objects, key)
	return nil
}

// ListObjects returns the first app.ListPageSize keys in lexical order, as S3 does.
func (m *MemoryStore) ListObjects(ctx context.Context, bucketName string) ([]app.ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, err := m.lookup(bucketName)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(b.objects))
	for key := range b.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if len(keys) > app.ListPageSize {
		keys = keys[:app.ListPageSize]
	}

	result := make([]app.ObjectInfo, 0, len(keys))
	for _, key := range keys {
		result = append(result, info(key, b.objects[key]))
	}
	return result, nil
}

func (m *MemoryStore) HeadObject(ctx context.Context, bucketName, key string) (app.ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, err := m.lookup(bucketName)
	if err != nil {
		return app.ObjectInfo{}, err
	}
	obj, ok := b.objects[key]
	if !ok {
		return app.ObjectInfo{}, fmt.Errorf("head object %s/%s: no such key", bucketName, key)
	}
	return info(key, obj), nil
}

func (m *MemoryStore) HeadBucket(ctx context.Context, bucketName string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.lookup(bucketName)
	return err
}

func (m *MemoryStore) CreateBucket(ctx context.Context, bucketName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucketName]; ok {
		return fmt.Errorf("create bucket %s: already exists", bucketName)
	}
	m.createLocked(bucketName)
	return nil
}

// ListBuckets returns bucket names in creation order.
func (m *MemoryStore) ListBuckets(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...), nil
}

func info(key string, obj object) app.ObjectInfo {
	return app.ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		LastModified: obj.lastModified,
		ContentType:  obj.contentType,
	}
}
