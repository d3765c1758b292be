package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// Stash parks messages an actor cannot handle in its current behavior.
// Replayed messages keep their original sender.
type Stash struct {
	elems []stashed
}

type stashed struct {
	msg    any
	sender *actor.PID
}

func (s *Stash) Stash(ctx actor.Context, msg any) {
	s.elems = append(s.elems, stashed{msg: msg, sender: ctx.Sender()})
}

func (s *Stash) Len() int {
	return len(s.elems)
}

func (s *Stash) UnstashAll(ctx actor.Context) {
	elems := s.elems
	s.elems = nil
	for _, e := range elems {
		replay(ctx, e)
	}
}

func (s *Stash) UnstashOldest(ctx actor.Context) {
	if len(s.elems) == 0 {
		return
	}
	e := s.elems[0]
	s.elems = s.elems[1:]
	replay(ctx, e)
}

func replay(ctx actor.Context, e stashed) {
	ctx.RequestWithCustomSender(ctx.Self(), e.msg, e.sender)
}
