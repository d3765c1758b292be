package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/cc301wb2mqtt/internal/config"
	"github.com/berfenger/cc301wb2mqtt/internal/core/domain"
	"github.com/berfenger/cc301wb2mqtt/internal/core/events"
	"github.com/berfenger/cc301wb2mqtt/internal/core/hub"
	"github.com/berfenger/cc301wb2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// HADiscoveryActor announces the hub entities once the MQTT actor is up.
type HADiscoveryActor struct {
	config    *config.Config
	hub       *hub.Hub
	behavior  actor.Behavior
	mqttActor *actor.PID

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, h *hub.Hub, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:    config,
		hub:       h,
		mqttActor: mqttActor,
		behavior:  actor.NewBehavior(),
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// MQTT Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: ignored", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		if !msg.Healthy {
			// let the supervisor retry later
			panic(errors.New("MQTT Actor is not healthy"))
		}

		sensors, lights := events.HubDiscovery(state.config.MQTT.BaseTopic, state.hub)
		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors: sensors,
			Lights:  lights,
		})
		state.logger.Info("hadiscovery: discovery sent", zap.Int("sensors", len(sensors)), zap.Int("lights", len(lights)))
		state.behavior.Become(state.Done)
	default:
		state.logger.Debug("hadiscovery@healthcheck: ignored", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}
