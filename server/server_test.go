package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	mu          sync.Mutex
	listenErr   error
	shutdownErr error
	stopped     chan struct{}
	shutdowns   int
}

func newFakeServer() *fakeServer {
	return &fakeServer{stopped: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stopped
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
	if f.shutdowns == 1 {
		close(f.stopped)
	}
	return f.shutdownErr
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	fake := newFakeServer()
	svc := NewHTTPServerService(fake, 0)
	assert.Equal(t, 10*time.Second, svc.shutdownTimeout)
	assert.Equal(t, "http-server", svc.String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.Equal(t, 1, fake.shutdowns)
}

func TestHTTPServerService_ListenFailure(t *testing.T) {
	fake := newFakeServer()
	fake.listenErr = errors.New("address in use")

	err := NewHTTPServerService(fake, time.Second).Serve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fake.listenErr)
}

func TestHTTPServerService_ShutdownFailure(t *testing.T) {
	fake := newFakeServer()
	fake.shutdownErr = errors.New("stuck connections")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewHTTPServerService(fake, time.Second).Serve(ctx)
	assert.ErrorIs(t, err, fake.shutdownErr)
}

func TestTree_RunsAPIService(t *testing.T) {
	tree := NewTree(nil, TreeConfig{ShutdownTimeout: time.Second})
	fake := newFakeServer()
	tree.AddAPIService(NewHTTPServerService(fake, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	// let the service start
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.shutdowns)
}
