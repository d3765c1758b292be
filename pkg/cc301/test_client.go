package cc301

import "context"

// TestReader returns fixed values without touching the network.
type TestReader struct {
}

func CreateTestReader() Reader {
	return TestReader{}
}

func (reader TestReader) ReadInstantValues(_ context.Context) (*Measurements, error) {
	return &Measurements{
		SummaryPower: 2450.5,
		PhasePower:   [3]float64{812.25, 830, 808.25},
		PhaseVoltage: [3]float64{229.81, 231.02, 230.4},
	}, nil
}
