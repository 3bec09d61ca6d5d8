// Package diagnostics reports whether the BaaS project is usable from this
// deployment.
package diagnostics

import (
	"context"
	"fmt"

	"github.com/npezzotti/roomrent/internal/types"
	"go.uber.org/zap"
)

type BucketChecker interface {
	CheckBucket(ctx context.Context) error
}

type Report struct {
	HasEnv              bool        `json:"has_env"`
	Session             *types.User `json:"session"`
	StorageBucket       string      `json:"storage_bucket"`
	StorageBucketExists bool        `json:"storage_bucket_exists"`
	Errors              []string    `json:"errors"`
}

type Checker struct {
	storage BucketChecker
	bucket  string
	hasEnv  bool
	log     *zap.Logger
}

// NewChecker returns a checker for bucket. hasEnv records whether the project
// URL and key were configured.
func NewChecker(storage BucketChecker, bucket string, hasEnv bool, logger *zap.Logger) *Checker {
	return &Checker{storage: storage, bucket: bucket, hasEnv: hasEnv, log: logger}
}

// Run checks the storage bucket. user is the caller's session, if any, and is
// echoed back in the report.
func (c *Checker) Run(ctx context.Context, user *types.User) Report {
	r := Report{
		HasEnv:        c.hasEnv,
		Session:       user,
		StorageBucket: c.bucket,
		Errors:        make([]string, 0),
	}

	if err := c.storage.CheckBucket(ctx); err != nil {
		c.log.Warn("storage check failed", zap.String("bucket", c.bucket), zap.Error(err))
		r.Errors = append(r.Errors, fmt.Sprintf("storage check failed: %v", err))
	} else {
		r.StorageBucketExists = true
	}

	return r
}
