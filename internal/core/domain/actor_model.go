package domain

const (
	ACTOR_ID_BRIDGE       = "bridge"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
	Lights  []GenericLight
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

// SetCoilRequest asks the bridge to switch one relay coil.
type SetCoilRequest struct {
	ActorRequestMixIn
	Coil int
	On   bool
}

type SetCoilResponse struct {
	ActorResponseMixIn
	Coil int
	On   bool
}

// DeviceUpdated is sent by hub observers after a device finished an update.
type DeviceUpdated struct {
	DeviceId string
}
