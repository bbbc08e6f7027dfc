package id

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewInvocationID(t *testing.T) {
	id := NewInvocationID()

	assert.True(t, strings.HasPrefix(id.String(), "inv_"))
	assert.Len(t, id.String(), len("inv_")+26)
}

func TestInvocationIDsSortByCreation(t *testing.T) {
	g := NewGenerator()
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = g.GenerateWithPrefix(InvocationPrefix)
	}
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
}

func TestConcurrentGenerationIsUnique(t *testing.T) {
	const workers, perWorker = 8, 200
	var (
		mu   sync.Mutex
		seen = make(map[InvocationID]struct{})
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := NewInvocationID()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*perWorker)
}

func TestNewActivityLogID(t *testing.T) {
	_, err := uuid.Parse(NewActivityLogID())
	assert.NoError(t, err)
}
