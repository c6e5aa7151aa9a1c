package checksum

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myysophia/filehub-backend/internal/db/models"
	"github.com/myysophia/filehub-backend/internal/storage"
	"github.com/myysophia/filehub-backend/internal/tests/mocks"
)

// fakeUpdater 记录MD5写回调用
type fakeUpdater struct {
	mu      sync.Mutex
	updates []string // "md5:status"
}

func (f *fakeUpdater) UpdateMD5(id uint, md5 string, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, md5+":"+status)
	return nil
}

func (f *fakeUpdater) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		return ""
	}
	return f.updates[len(f.updates)-1]
}

func TestCalculator_ComputesAndPersists(t *testing.T) {
	provider := &mocks.MockProvider{}
	provider.On("Object", "tester/a.txt").
		Return(io.NopCloser(strings.NewReader("hello")), nil)

	factory := &mocks.MockFactory{}
	factory.On("GetProvider", storage.ProviderLocal).Return(provider, nil)

	updater := &fakeUpdater{}
	calculator := NewCalculator(factory, updater, 1)
	defer calculator.Stop()

	err := calculator.Enqueue(&models.File{
		Model:     models.Model{ID: 1},
		Provider:  storage.ProviderLocal,
		ObjectKey: "tester/a.txt",
	})
	require.NoError(t, err)

	// "hello" 的MD5
	expected := "5d41402abc4b2a76b9719d911017c592:" + models.MD5StatusCompleted
	assert.Eventually(t, func() bool {
		return updater.last() == expected
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCalculator_SkipsFilesWithMD5(t *testing.T) {
	factory := &mocks.MockFactory{}
	updater := &fakeUpdater{}
	calculator := NewCalculator(factory, updater, 1)
	defer calculator.Stop()

	err := calculator.Enqueue(&models.File{
		Model: models.Model{ID: 1},
		MD5:   "already-there",
	})
	require.NoError(t, err)
	assert.Empty(t, updater.updates)
}

func TestCalculator_EnqueueAfterStopReturnsError(t *testing.T) {
	factory := &mocks.MockFactory{}
	updater := &fakeUpdater{}
	calculator := NewCalculator(factory, updater, 1)

	calculator.Stop()
	// 重复Stop是无害的空操作
	calculator.Stop()

	err := calculator.Enqueue(&models.File{
		Model:     models.Model{ID: 3},
		Provider:  storage.ProviderLocal,
		ObjectKey: "late.txt",
	})
	assert.Error(t, err)
	assert.Empty(t, updater.updates)
}

func TestCalculator_ObjectFailureMarksFailed(t *testing.T) {
	provider := &mocks.MockProvider{}
	provider.On("Object", "gone.txt").Return(nil, assert.AnError)

	factory := &mocks.MockFactory{}
	factory.On("GetProvider", storage.ProviderLocal).Return(provider, nil)

	updater := &fakeUpdater{}
	calculator := NewCalculator(factory, updater, 1)
	defer calculator.Stop()

	err := calculator.Enqueue(&models.File{
		Model:     models.Model{ID: 2},
		Provider:  storage.ProviderLocal,
		ObjectKey: "gone.txt",
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return updater.last() == ":"+models.MD5StatusFailed
	}, 2*time.Second, 10*time.Millisecond)
}
