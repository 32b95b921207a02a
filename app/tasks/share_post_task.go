package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type SharePostTask struct {
	Task
	postID int64
	sharer SharerInterface
}

func NewSharePostTask(postID int64, sharer SharerInterface) *SharePostTask {
	return &SharePostTask{
		Task:   NewTask(TaskTypeSharePost),
		postID: postID,
		sharer: sharer,
	}
}

func (t *SharePostTask) Execute(ctx context.Context) error {
	if err := t.sharer.SharePost(ctx, t.postID); err != nil {
		return fmt.Errorf("share post %d: %w", t.postID, err)
	}

	slog.Debug("Post shared", "post_id", t.postID, "duration", t.GetDuration().String())

	return nil
}
