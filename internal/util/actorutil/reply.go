package actorutil

import (
	"github.com/berfenger/cc301wb2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
)

// ReplyTo resolves where the answer to req goes: its explicit ReplyTo ref, or the sender.
func ReplyTo(ctx actor.Context, req domain.ActorRequest) *actor.PID {
	if ref := req.ReplyTo(); ref != nil {
		return (*actor.PID)(ref)
	}
	return ctx.Sender()
}

func Respond(ctx actor.Context, req domain.ActorRequest, resp domain.ActorResponse) {
	if pid := ReplyTo(ctx, req); pid != nil {
		ctx.Send(pid, resp)
	}
}
