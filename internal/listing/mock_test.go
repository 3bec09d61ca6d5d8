package listing

import (
	"context"
	"sync"

	"github.com/npezzotti/roomrent/internal/types"
	"github.com/stretchr/testify/mock"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) CheckBucket(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStorage) Upload(ctx context.Context, path, contentType string, data []byte) error {
	return m.Called(ctx, path, contentType, data).Error(0)
}

func (m *mockStorage) PublicURL(path string) string {
	return "https://cdn.example.com/room-images/" + path
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.RoomEvent
}

func (p *recordingPublisher) Publish(ev types.RoomEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}
