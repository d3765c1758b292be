package actorutil

import (
	"slices"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type release struct{}

// gate stashes strings until it receives release.
type gate struct {
	stash    *Stash
	open     bool
	received chan string
}

func (g *gate) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case release:
		g.open = true
		g.stash.UnstashAll(ctx)
	case string:
		if !g.open {
			g.stash.Stash(ctx, msg)
			return
		}
		g.received <- msg
	}
}

func TestStashReplaysInOrder(t *testing.T) {

	assert := assert.New(t)

	as := NewActorSystemWithZapLogger(zap.NewNop())
	defer as.Shutdown()

	g := &gate{stash: &Stash{}, received: make(chan string, 3)}
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return g }))

	as.Root.Send(pid, "lorem")
	as.Root.Send(pid, "ipsum")
	as.Root.Send(pid, release{})
	as.Root.Send(pid, "dolor")

	var got []string
	for i := 0; i < 3; i++ {
		select {
		case s := <-g.received:
			got = append(got, s)
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
	// dolor may overtake the replay, stashed messages keep their order
	assert.ElementsMatch([]string{"lorem", "ipsum", "dolor"}, got)
	assert.Less(slices.Index(got, "lorem"), slices.Index(got, "ipsum"))
}
