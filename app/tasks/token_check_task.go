package tasks

import (
	"context"
	"log/slog"
)

// TokenCheckTask verifies the stored access token and then attempts a
// proactive refresh. Both run in one task so the order holds with any worker
// count; a token the instance revoked is cleared by verification before a
// refresh could save it back.
type TokenCheckTask struct {
	Task
	manager TokenManagerInterface
}

func NewTokenCheckTask(manager TokenManagerInterface) *TokenCheckTask {
	return &TokenCheckTask{
		Task:    NewTask(TaskTypeTokenCheck),
		manager: manager,
	}
}

func (t *TokenCheckTask) Execute(ctx context.Context) error {
	valid := t.manager.VerifyToken(ctx)
	refreshed := t.manager.RefreshToken(ctx)

	slog.Debug("Token check completed", "valid", valid, "refreshed", refreshed, "duration", t.GetDuration().String())

	return nil
}
