package actor

import (
	"context"
	"fmt"
	"time"

	adactor "github.com/berfenger/cc301wb2mqtt/internal/adapter/actor"
	"github.com/berfenger/cc301wb2mqtt/internal/config"
	"github.com/berfenger/cc301wb2mqtt/internal/core/domain"
	"github.com/berfenger/cc301wb2mqtt/internal/core/events"
	"github.com/berfenger/cc301wb2mqtt/internal/core/hub"
	. "github.com/berfenger/cc301wb2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	COMMAND_TIMEOUT = 15 * time.Second
)

type MQTTActorProvider func() *adactor.MQTTActor

// BridgeActor owns the MQTT side of a hub: it mirrors device updates to MQTT
// and turns light commands into coil writes.
type BridgeActor struct {
	config   config.Config
	hub      *hub.Hub
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	mqttActor          *actor.PID
	mqttActorProvider  MQTTActorProvider
	observerKey        string
	logger             *zap.Logger
}

type healthCheckResult struct {
	mqttActorHealthy bool
	checksReceived   int
	respondTo        *actor.PID
}

func NewBridgeActor(config config.Config, h *hub.Hub, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *BridgeActor {
	act := &BridgeActor{
		config:            config,
		hub:               h,
		behavior:          actor.NewBehavior(),
		stash:             &Stash{},
		logger:            ActorLogger(domain.ACTOR_ID_BRIDGE, logger),
		mqttActorProvider: mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *BridgeActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *BridgeActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("bridge@starting started")

		state.currentHealthCheck = healthCheckResult{}

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start HA Discovery
		if state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		state.registerObservers(ctx)

		// publish whatever the hub already knows
		for _, d := range state.hub.Devices() {
			ctx.Send(ctx.Self(), domain.DeviceUpdated{DeviceId: d.Id()})
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.removeObservers()
	default:
		state.logger.Debug("bridge@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *BridgeActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("bridge@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		// MQTT Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.DeviceUpdated:
		state.publishDevice(ctx, msg.DeviceId)
	case adactor.ParsedCommand:
		// redirect parsedCommand to the hub
		state.logger.Debug("bridge@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := ParsedMQTTCommandToCommand(*msg.Command, state.hub.Switch().Id())
			if err != nil {
				state.logger.Warn("bridge@default invalid command", zap.Error(err))
				return
			}
			if req, ok := cmd.(domain.SetCoilRequest); ok {
				state.setCoil(ctx, req)
			}
		}
	case domain.SetCoilRequest:
		state.setCoil(ctx, msg)
	case domain.SetCoilResponse:
		if msg.HasResponseError() {
			state.logger.Error("bridge@default set coil failed", zap.Int("coil", msg.Coil), zap.Bool("on", msg.On), zap.Error(msg.GetResponseError()))
			// re-publish the cached state so the UI drops the optimistic value
			ctx.Send(ctx.Self(), domain.DeviceUpdated{DeviceId: state.hub.Switch().Id()})
		} else {
			state.logger.Debug("bridge@default set coil done", zap.Int("coil", msg.Coil), zap.Bool("on", msg.On))
		}
	case *actor.Stopping:
		state.removeObservers()
	case *actor.Restarting:
		state.removeObservers()
	case *actor.Terminated:
		state.logger.Warn("bridge@default child terminated", zap.String("who", msg.Who.Id))
	default:
		state.logger.Debug("bridge@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *BridgeActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		ctx.CancelReceiveTimeout()
		state.currentHealthCheck.respond(ctx, state.hub.Running())
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("bridge@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy && msg.Id == domain.ACTOR_ID_MQTT {
			state.currentHealthCheck.mqttActorHealthy = true
		}
		if state.currentHealthCheck.allReceived() {
			ctx.CancelReceiveTimeout()
			state.currentHealthCheck.respond(ctx, state.hub.Running())

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		}
	case *actor.Stopping:
		state.removeObservers()
	default:
		state.logger.Debug("bridge@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// registerObservers hooks every hub device to this actor. Observers run on the
// hub goroutine, so they only enqueue a message.
func (state *BridgeActor) registerObservers(ctx actor.Context) {
	root := ctx.ActorSystem().Root
	self := ctx.Self()
	state.observerKey = self.String()
	for _, d := range state.hub.Devices() {
		deviceId := d.Id()
		d.Observers().Register(state.observerKey, func() {
			root.Send(self, domain.DeviceUpdated{DeviceId: deviceId})
		})
	}
}

func (state *BridgeActor) removeObservers() {
	if state.observerKey == "" {
		return
	}
	for _, d := range state.hub.Devices() {
		d.Observers().Remove(state.observerKey)
	}
}

func (state *BridgeActor) publishDevice(ctx actor.Context, deviceId string) {
	for _, d := range state.hub.Devices() {
		if d.Id() != deviceId {
			continue
		}
		for _, event := range events.DeviceToUpdateEvents(d) {
			ctx.Send(state.mqttActor, domain.PublishSensorUpdateRequest{Event: event})
		}
		return
	}
	state.logger.Warn("bridge@default update for unknown device", zap.String("device", deviceId))
}

// setCoil runs the write off the actor goroutine; it may wait for the line.
func (state *BridgeActor) setCoil(ctx actor.Context, req domain.SetCoilRequest) {
	h := state.hub
	replyTo := ctx.Self()
	if req.ReplyTo() != nil {
		replyTo = (*actor.PID)(req.ReplyTo())
	}
	NewBackgroundTask(ctx.ActorSystem().Root, func() (*domain.SetCoilResponse, error) {
		cctx, cancel := context.WithTimeout(context.Background(), COMMAND_TIMEOUT)
		defer cancel()
		err := h.SetCoil(cctx, req.Coil, req.On)
		return &domain.SetCoilResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
			Coil: req.Coil,
			On:   req.On,
		}, nil
	}).WithTimeout(COMMAND_TIMEOUT + time.Second).Recover(func(err error) domain.SetCoilResponse {
		return domain.SetCoilResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
			Coil: req.Coil,
			On:   req.On,
		}
	}).PipeTo(replyTo)
}

func (state *BridgeActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(30*time.Second, 1*time.Second)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.hub, state.mqttActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	haDiscPID, err := ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
	if err != nil {
		return nil, err
	}

	return haDiscPID, nil
}

func (state *BridgeActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider()
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *healthCheckResult) reset() {
	state.mqttActorHealthy = false
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 1
}

func (state *healthCheckResult) respond(ctx actor.Context, hubRunning bool) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_BRIDGE,
		Healthy: state.mqttActorHealthy && hubRunning,
	}
	if !hubRunning {
		resp.State = "hub stopped"
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
