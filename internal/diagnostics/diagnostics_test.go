package diagnostics

import (
	"context"
	"errors"
	"testing"

	"github.com/npezzotti/roomrent/internal/testutil"
	"github.com/npezzotti/roomrent/internal/types"
	"github.com/stretchr/testify/assert"
)

type bucketFunc func(ctx context.Context) error

func (f bucketFunc) CheckBucket(ctx context.Context) error {
	return f(ctx)
}

func TestChecker_Run(t *testing.T) {
	user := &types.User{Id: "u1", Role: types.RoleOwner}

	tcases := []struct {
		name     string
		bucket   error
		user     *types.User
		expected Report
	}{
		{
			name:   "bucket present",
			bucket: nil,
			user:   user,
			expected: Report{
				HasEnv:              true,
				Session:             user,
				StorageBucket:       "room-images",
				StorageBucketExists: true,
				Errors:              []string{},
			},
		},
		{
			name:   "bucket missing",
			bucket: errors.New("Bucket not found"),
			expected: Report{
				HasEnv:        true,
				StorageBucket: "room-images",
				Errors:        []string{"storage check failed: Bucket not found"},
			},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewChecker(bucketFunc(func(context.Context) error { return tc.bucket }), "room-images", true, testutil.TestLogger(t))
			assert.Equal(t, tc.expected, c.Run(context.Background(), tc.user))
		})
	}
}
