package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hunyoung529/onepick/internal/docstore/memstore"
	"github.com/hunyoung529/onepick/internal/models"
	"github.com/stretchr/testify/require"
)

func TestUnsubscribeWaitsForRunningCallback(t *testing.T) {
	ctx := context.Background()
	svc := NewProfileService(memstore.New(), discardLogger())

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	sub, err := svc.SubscribeProfile(ctx, "u1", func(p *models.UserProfile) {
		if calls.Add(1) == 2 {
			close(entered)
			<-release
		}
	})
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())

	_, err = svc.SetNickname(ctx, identity("u1"), "Alice")
	require.NoError(t, err)

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("change not delivered")
	}

	unsubscribed := make(chan struct{})
	go func() {
		sub.Unsubscribe()
		close(unsubscribed)
	}()

	select {
	case <-unsubscribed:
		t.Fatal("Unsubscribe returned while a callback was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-unsubscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("Unsubscribe did not return")
	}
	after := calls.Load()

	_, err = svc.SetNickname(ctx, identity("u1"), "Bob")
	require.NoError(t, err)

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop")
	}
	require.Equal(t, after, calls.Load())
}
