package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"greendrake/estate/internal/utils"
)

// mongoDuplicate builds an error IsMongoDuplicateKeyError recognises.
func mongoDuplicate(key string) error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: fmt.Sprintf("E11000 duplicate key error collection: estate.properties index: _id_ dup key: { : \"%s\" }", key),
	}}}
}

func TestWithRetries_FirstAttempt(t *testing.T) {
	calls := 0
	err := WithRetries(func() error { calls++; return nil }, 3, IsMongoDuplicateKeyError)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_OtherErrorStopsImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("connection reset")
	err := WithRetries(func() error { calls++; return boom }, 3, IsMongoDuplicateKeyError)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_Exhausted(t *testing.T) {
	calls := 0
	err := WithRetries(func() error {
		calls++
		return mongoDuplicate("0000000001")
	}, 2, IsMongoDuplicateKeyError)
	require.Error(t, err)
	assert.True(t, IsMongoDuplicateKeyError(err))
	assert.Equal(t, 3, calls)
}

func TestTry_CollisionResolvesWithFreshID(t *testing.T) {
	original := utils.NewSixIDHook
	defer func() { utils.NewSixIDHook = original }()

	taken := utils.SixID{1, 2, 3, 4, 5, 1}
	free := utils.SixID{1, 2, 3, 4, 5, 2}
	queue := []utils.SixID{taken, taken, free}
	utils.NewSixIDHook = func() (utils.SixID, bool) {
		if len(queue) == 0 {
			return utils.SixID{}, false
		}
		id := queue[0]
		queue = queue[1:]
		return id, true
	}

	existing := map[utils.SixID]bool{taken: true}
	calls := 0
	err := Try(func() error {
		calls++
		id := utils.NewSixID()
		if existing[id] {
			return mongoDuplicate(id.String())
		}
		existing[id] = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, existing[free])
	assert.Empty(t, queue)
}

func TestTrySQL(t *testing.T) {
	calls := 0
	err := TrySQL(func() error {
		calls++
		if calls == 1 {
			return fmt.Errorf("insert property: %w", gorm.ErrDuplicatedKey)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	assert.False(t, IsSQLDuplicateKeyError(gorm.ErrRecordNotFound))
	assert.False(t, IsMongoDuplicateKeyError(gorm.ErrDuplicatedKey))
}

func TestIsMongoDuplicateKeyError_Bulk(t *testing.T) {
	bulk := mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{{WriteError: mongo.WriteError{Code: 11000}}}}
	assert.True(t, IsMongoDuplicateKeyError(bulk))
	assert.False(t, IsMongoDuplicateKeyError(mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 121}}}))
}
