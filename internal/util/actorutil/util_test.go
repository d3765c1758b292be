package actorutil

import (
	"errors"
	"testing"
	"time"

	"github.com/berfenger/cc301wb2mqtt/internal/core/domain"
	"github.com/berfenger/cc301wb2mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParsedMQTTCommandToCommand(t *testing.T) {

	assert := assert.New(t)

	switchId := "modbus_switcher_10_0_0_7"

	cmd, err := ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{
		DeviceId: switchId + "_coil_5",
		Command:  "light",
		Payload:  "ON",
	}, switchId)
	require.NoError(t, err)
	assert.Equal(domain.SetCoilRequest{Coil: 5, On: true}, cmd)

	cmd, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{
		DeviceId: switchId + "_coil_0",
		Payload:  "off",
	}, switchId)
	require.NoError(t, err)
	assert.Equal(domain.SetCoilRequest{Coil: 0, On: false}, cmd)

	_, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{
		DeviceId: switchId + "_coil_0",
		Payload:  "toggle",
	}, switchId)
	assert.Error(err, "payload")

	_, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{
		DeviceId: "modbus_switcher_other_coil_0",
		Payload:  "on",
	}, switchId)
	assert.Error(err, "other switch")
}

type taskResult struct {
	Value int
	Err   error
}

func TestBackgroundTask(t *testing.T) {

	assert := assert.New(t)

	as := NewActorSystemWithZapLogger(zap.Must(zap.NewDevelopment()))
	defer as.Shutdown()

	results := make(chan taskResult, 2)
	pid := as.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if msg, ok := ctx.Message().(taskResult); ok {
			results <- msg
		}
	}))

	toResult := func(err error) taskResult { return taskResult{Err: err} }

	NewBackgroundTask(as.Root, func() (*taskResult, error) {
		return &taskResult{Value: 42}, nil
	}).Recover(toResult).PipeTo(pid)

	NewBackgroundTask(as.Root, func() (*taskResult, error) {
		return nil, errors.New("lorem")
	}).Recover(toResult).PipeTo(pid)

	var values []int
	var failures int
	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			if r.Err != nil {
				failures++
			} else {
				values = append(values, r.Value)
			}
		case <-time.After(time.Second):
			t.Fatal("background task result not delivered")
		}
	}
	assert.Equal([]int{42}, values)
	assert.Equal(1, failures)
}

func TestBackgroundTaskWithoutRecover(t *testing.T) {

	_, ok := NewBackgroundTask[taskResult](nil, func() (*taskResult, error) {
		return nil, errors.New("lorem")
	}).Run()
	assert.False(t, ok)
}
