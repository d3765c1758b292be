package actorutil

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/berfenger/cc301wb2mqtt/internal/core/domain"
	"github.com/berfenger/cc301wb2mqtt/internal/core/events"
	"github.com/berfenger/cc301wb2mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps a light command of switchId to a SetCoilRequest.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand, switchId string) (domain.ActorRequest, error) {
	id, coil, ok := events.ParseCoilLightId(cmd.DeviceId)
	if !ok || id != switchId {
		return nil, fmt.Errorf("unknown light %q", cmd.DeviceId)
	}
	switch strings.ToLower(strings.TrimSpace(cmd.Payload)) {
	case mqtt.MQTT_PAYLOAD_ON:
		return domain.SetCoilRequest{Coil: coil, On: true}, nil
	case mqtt.MQTT_PAYLOAD_OFF:
		return domain.SetCoilRequest{Coil: coil, On: false}, nil
	}
	return nil, fmt.Errorf("invalid light payload %q", cmd.Payload)
}
