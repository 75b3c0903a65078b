package backup

import (
	"fmt"
	"sync"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorSet_EmptyIsNil(t *testing.T) {
	set := NewErrorSet()
	assert.NoError(t, set.Err(ResponseTypeCreate))
	assert.Equal(t, []string{}, set.IDs(CategoryBackup))
}

func TestErrorSet_ConcurrentAdd(t *testing.T) {
	set := NewErrorSet()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			category := CategoryBackup
			if i%2 == 0 {
				category = CategoryDelete
			}
			set.Add(category, fmt.Sprintf("id%03d", i), errInjected)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, set.Len())
	assert.Len(t, set.IDs(CategoryBackup), 50)
	assert.Len(t, set.IDs(CategoryDelete), 50)
	assert.Equal(t, "id000", set.IDs(CategoryDelete)[0])
}

func TestErrorSet_IDsSortedAndDeduplicated(t *testing.T) {
	set := NewErrorSet()
	set.Add(CategoryBackup, "c", errInjected)
	set.Add(CategoryBackup, "a", errInjected)
	set.Add(CategoryBackup, "c", errInjected)

	assert.Equal(t, []string{"a", "c"}, set.IDs(CategoryBackup))
	assert.Len(t, set.Failures(), 3)
}

func TestBatchError_Messages(t *testing.T) {
	g := goldie.New(t)

	tests := []struct {
		name         string
		responseType string
		backup       []string
		delete       []string
	}{
		{"create_backup_only", ResponseTypeCreate, []string{"cc03", "aa01"}, nil},
		{"delete_only", ResponseTypeDelete, nil, []string{"b", "a"}},
		{"update_both_categories", ResponseTypeUpdate, []string{"new2"}, []string{"old1", "old3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := NewErrorSet()
			for _, id := range tt.backup {
				set.Add(CategoryBackup, id, errInjected)
			}
			for _, id := range tt.delete {
				set.Add(CategoryDelete, id, errInjected)
			}

			err := set.Err(tt.responseType)
			require.Error(t, err)
			g.Assert(t, tt.name, []byte(err.Error()))
		})
	}
}

func TestBatchError_Unwrap(t *testing.T) {
	set := NewErrorSet()
	set.Add(CategoryBackup, "a", NewWriteError("boom", errInjected))
	set.Add(CategoryDelete, "b", NewStageError("missing", ErrNotFound))

	err := set.Err(ResponseTypeUpdate)
	assert.ErrorIs(t, err, errInjected)
	assert.ErrorIs(t, err, ErrWrite)
	assert.ErrorIs(t, err, ErrNotFound)

	batchErr, ok := AsBatchError(fmt.Errorf("wrapped: %w", err))
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, batchErr.FailedIDs(CategoryBackup))
	assert.Equal(t, []string{"b"}, batchErr.FailedIDs(CategoryDelete))
	assert.Nil(t, batchErr.FailedIDs("other"))
}
