package tasks

import (
	"context"
	"time"
)

type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueTaskAfter(task TaskInterface, delay time.Duration)
}

type SharerInterface interface {
	SharePost(ctx context.Context, postID int64) error
}

type TokenManagerInterface interface {
	VerifyToken(ctx context.Context) bool
	RefreshToken(ctx context.Context) bool
}
