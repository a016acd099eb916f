package handlers

import (
	"context"
	"io"
	"sync"

	"loyalty-backend/notify"
	"loyalty-backend/storage"
)

type mockStorage struct {
	mu          sync.Mutex
	UploadFn    func(kind storage.Kind, filename string) (string, error)
	DeleteFn    func(ref string) error
	Uploads     []string
	DeleteCalls []string
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		DeleteCalls: []string{},
	}
}

func (m *mockStorage) Upload(ctx context.Context, kind storage.Kind, filename, contentType string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadFn != nil {
		return m.UploadFn(kind, filename)
	}
	ref := "https://storage.googleapis.com/test-bucket/" + string(kind) + "/" + filename
	m.Uploads = append(m.Uploads, ref)
	return ref, nil
}

func (m *mockStorage) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, ref)
	if m.DeleteFn != nil {
		return m.DeleteFn(ref)
	}
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(ctx context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}
