package actorutil

import (
	"github.com/nemotek/counters2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
)

// ReplyTarget is the explicit reply-to of req, or the sender of the current message.
func ReplyTarget(ctx actor.Context, req domain.ActorRequest) *actor.PID {
	if to := req.ReplyTo(); to != nil {
		return (*actor.PID)(to)
	}
	return ctx.Sender()
}

// Reply sends resp to the reply target of req. Fire-and-forget requests get no reply.
func Reply(ctx actor.Context, req domain.ActorRequest, resp domain.ActorResponse) {
	if to := ReplyTarget(ctx, req); to != nil {
		ctx.Send(to, resp)
	}
}
