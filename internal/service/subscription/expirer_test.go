package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestExpirer_RunsUntilCancelled(t *testing.T) {
	subs := new(MockSubscriptionRepository)
	svc := newTestService(subs, new(MockUserRepository))

	subs.On("ExpireLapsed", mock.Anything).Return(int64(2), nil)

	expirer := NewExpirer(svc, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		expirer.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expirer did not stop after cancel")
	}

	subs.AssertCalled(t, "ExpireLapsed", mock.Anything)
	assert.True(t, len(subs.Calls) >= 2)
}
