package audit

import (
	"context"

	"github.com/weiawesome/plantpal/pkg/log"
)

// Audit actions.
const (
	ActionRegister   = "user.register"
	ActionFollow     = "user.follow"
	ActionUnfollow   = "user.unfollow"
	ActionCreatePost = "post.create"
	ActionDeletePost = "post.delete"
	ActionLikePost   = "post.like"
	ActionUnlikePost = "post.unlike"
	ActionAddComment = "post.comment"
)

// Field constants for audit entries.
const (
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(log.FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithTarget emits an audit entry about another user or a post.
func LogWithTarget(ctx context.Context, action string, userID string, targetID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(log.FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(log.FieldTargetID, targetID).
		Msg(msg)
}
