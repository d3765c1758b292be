package domain

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement
	DeviceClass       string // voltage, power, connectivity
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string
	// AvailabilityId is the id of the device whose availability gates this entity
	AvailabilityId string
}

// GenericLight is an on/off entity backed by one relay coil.
type GenericLight struct {
	Device         Device
	Id             string
	Name           string
	UniqueId       string
	Icon           string
	AvailabilityId string
}
