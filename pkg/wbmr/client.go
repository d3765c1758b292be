package wbmr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/cc301wb2mqtt/pkg/instrument"
	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	FramingTCP        = "tcp"
	FramingRTUOverTCP = "rtuovertcp"

	MaxCoilCount = 2000
)

var ErrInvalidFraming = errors.New("wbmr: framing must be tcp or rtuovertcp")

// CoilClient reads and writes WB-MR relay coils. Every call is a full
// connect, operate, disconnect cycle; implementations do no locking.
type CoilClient interface {
	ReadCoils(ctx context.Context, count uint16) ([]bool, error)
	WriteCoil(ctx context.Context, index uint16, value bool) error
}

type ClientConfig struct {
	Host    string
	Port    uint
	SlaveId uint8
	Framing string
	Speed   uint
	Timeout time.Duration
}

// Client opens a fresh Modbus connection for every operation.
type Client struct {
	conf       modbus.ClientConfiguration
	slaveId    uint8
	instrument []instrument.Instrument
	// held until the connection of the current exchange is closed,
	// even when its caller has already given up
	exchange *semaphore.Weighted
}

func CreateClient(cfg ClientConfig, logger *zap.Logger, instrumentation *instrument.Instrument) (*Client, error) {
	framing := cfg.Framing
	if framing == "" {
		framing = FramingTCP
	}
	if framing != FramingTCP && framing != FramingRTUOverTCP {
		return nil, ErrInvalidFraming
	}

	conf := modbus.ClientConfiguration{
		URL:     fmt.Sprintf("%s://%s:%d", framing, cfg.Host, cfg.Port),
		Timeout: cfg.Timeout,
	}
	if framing == FramingRTUOverTCP {
		conf.Speed = cfg.Speed
	}

	// instrumentation
	var logInst *instrument.Instrument
	if logger != nil {
		logInst = instrument.TraceLogger(logger.With(zap.String("target", "wbmr"), zap.Uint8("slave", cfg.SlaveId)))
	}
	inst := instrument.Collect(logInst, instrumentation)

	return &Client{
		conf:       conf,
		slaveId:    cfg.SlaveId,
		instrument: inst,
		exchange:   semaphore.NewWeighted(1),
	}, nil
}

func (c *Client) ReadCoils(ctx context.Context, count uint16) ([]bool, error) {
	defer instrument.RecordTimer("ReadCoils", c.instrument)()

	var coils []bool
	err := c.withConnection(ctx, func(client *modbus.ModbusClient) error {
		var err error
		coils, err = client.ReadCoils(0, count)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(coils) != int(count) {
		return nil, fmt.Errorf("wbmr: read %d coils, expected %d", len(coils), count)
	}
	return coils, nil
}

func (c *Client) WriteCoil(ctx context.Context, index uint16, value bool) error {
	defer instrument.RecordTimer("WriteCoil", c.instrument)()

	return c.withConnection(ctx, func(client *modbus.ModbusClient) error {
		return client.WriteCoil(index, value)
	})
}

// withConnection returns as soon as ctx is done. ModbusClient cannot abort a
// request in flight, so the exchange finishes on its own goroutine, bounded by
// the client timeout, and the next call waits for its socket to be closed.
func (c *Client) withConnection(ctx context.Context, fn func(*modbus.ModbusClient) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conf := c.conf
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return context.DeadlineExceeded
		}
		if conf.Timeout == 0 || left < conf.Timeout {
			conf.Timeout = left
		}
	}

	if err := c.exchange.Acquire(ctx, 1); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		defer c.exchange.Release(1)
		done <- c.run(&conf, fn)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) run(conf *modbus.ClientConfiguration, fn func(*modbus.ModbusClient) error) error {
	client, err := modbus.NewClient(conf)
	if err != nil {
		return err
	}
	if err := client.SetUnitId(c.slaveId); err != nil {
		return err
	}
	if err := client.Open(); err != nil {
		return fmt.Errorf("wbmr: connect %s: %w", conf.URL, err)
	}
	defer client.Close()

	return fn(client)
}

var _ CoilClient = (*Client)(nil)
