package domain

import (
	"github.com/asynkron/protoactor-go/actor"
)

// ActorRef lets requests name a reply target without exposing protoactor to callers.
type ActorRef actor.PID

type ActorRequest interface {
	ReplyTo() *ActorRef
}

// ActorRequestMixIn is embedded by every request. A nil ReplyToRef means
// "answer the sender".
type ActorRequestMixIn struct {
	ReplyToRef *ActorRef
}

func (r ActorRequestMixIn) ReplyTo() *ActorRef {
	return r.ReplyToRef
}

type ActorResponse interface {
	GetResponseError() error
	HasResponseError() bool
}

type ActorResponseMixIn struct {
	ResponseError error
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}
