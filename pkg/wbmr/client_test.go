package wbmr

import (
	"context"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/simonvetter/modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// relayBank serves coils to a simonvetter modbus server
type relayBank struct {
	mu     sync.Mutex
	unitId uint8
	coils  []bool
}

func (b *relayBank) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if req.UnitId != b.unitId {
		return nil, modbus.ErrIllegalFunction
	}
	if int(req.Addr)+int(req.Quantity) > len(b.coils) {
		return nil, modbus.ErrIllegalDataAddress
	}
	if req.IsWrite {
		for i, v := range req.Args {
			b.coils[int(req.Addr)+i] = v
		}
		return nil, nil
	}
	out := make([]bool, req.Quantity)
	copy(out, b.coils[req.Addr:])
	return out, nil
}

func (b *relayBank) HandleDiscreteInputs(_ *modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (b *relayBank) HandleHoldingRegisters(_ *modbus.HoldingRegistersRequest) ([]uint16, error) {
	return nil, modbus.ErrIllegalFunction
}

func (b *relayBank) HandleInputRegisters(_ *modbus.InputRegistersRequest) ([]uint16, error) {
	return nil, modbus.ErrIllegalFunction
}

func freePort(t *testing.T) int {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

func startRelayBank(t *testing.T, bank *relayBank) int {
	port := freePort(t)
	server, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        "tcp://127.0.0.1:" + strconv.Itoa(port),
		Timeout:    5 * time.Second,
		MaxClients: 4,
	}, bank)
	require.NoError(t, err)
	require.NoError(t, server.Start())
	t.Cleanup(func() {
		server.Stop()
	})
	return port
}

// startSilentGateway accepts connections and never answers
func startSilentGateway(t *testing.T) int {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})

	_, port, _ := net.SplitHostPort(ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

func TestClientReadWriteCoils(t *testing.T) {

	assert := assert.New(t)

	bank := &relayBank{unitId: 3, coils: []bool{false, true, false, false}}
	port := startRelayBank(t, bank)

	client, err := CreateClient(ClientConfig{
		Host:    "127.0.0.1",
		Port:    uint(port),
		SlaveId: 3,
		Timeout: 2 * time.Second,
	}, zap.Must(zap.NewDevelopment()), nil)
	require.NoError(t, err)

	coils, err := client.ReadCoils(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal([]bool{false, true, false, false}, coils)

	require.NoError(t, client.WriteCoil(context.Background(), 2, true))

	coils, err = client.ReadCoils(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal([]bool{false, true, true, false}, coils)
}

func TestClientIllegalAddress(t *testing.T) {

	bank := &relayBank{unitId: 1, coils: make([]bool, 2)}
	port := startRelayBank(t, bank)

	client, err := CreateClient(ClientConfig{
		Host:    "127.0.0.1",
		Port:    uint(port),
		SlaveId: 1,
		Timeout: 2 * time.Second,
	}, nil, nil)
	require.NoError(t, err)

	_, err = client.ReadCoils(context.Background(), 8)
	assert.ErrorIs(t, err, modbus.ErrIllegalDataAddress)
}

func TestClientConnectionRefused(t *testing.T) {

	client, err := CreateClient(ClientConfig{
		Host:    "127.0.0.1",
		Port:    uint(freePort(t)),
		SlaveId: 1,
		Timeout: time.Second,
	}, nil, nil)
	require.NoError(t, err)

	_, err = client.ReadCoils(context.Background(), 4)
	assert.Error(t, err)
	assert.Error(t, client.WriteCoil(context.Background(), 0, true))
}

func TestCreateClientFraming(t *testing.T) {

	assert := assert.New(t)

	client, err := CreateClient(ClientConfig{Host: "gw", Port: 502, Framing: FramingRTUOverTCP, Speed: 9600}, nil, nil)
	assert.NoError(err)
	assert.Equal("rtuovertcp://gw:502", client.conf.URL)
	assert.Equal(uint(9600), client.conf.Speed)

	client, err = CreateClient(ClientConfig{Host: "gw", Port: 502}, nil, nil)
	assert.NoError(err)
	assert.Equal("tcp://gw:502", client.conf.URL)

	_, err = CreateClient(ClientConfig{Host: "gw", Port: 502, Framing: "udp"}, nil, nil)
	assert.ErrorIs(err, ErrInvalidFraming)
}

func TestClientCancelledContext(t *testing.T) {

	client, err := CreateClient(ClientConfig{Host: "127.0.0.1", Port: 1}, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.ReadCoils(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientCancelInFlight(t *testing.T) {

	assert := assert.New(t)

	client, err := CreateClient(ClientConfig{
		Host:    "127.0.0.1",
		Port:    uint(startSilentGateway(t)),
		SlaveId: 1,
		Timeout: 3 * time.Second,
	}, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err = client.ReadCoils(ctx, 4)
	assert.ErrorIs(err, context.Canceled)
	assert.Less(time.Since(start), time.Second, "returns on cancel, not on the request timeout")

	// the abandoned request still owns the gateway
	ctx, cancel = context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.ErrorIs(client.WriteCoil(ctx, 0, true), context.DeadlineExceeded)
}

func TestClientDeadlineShortensTimeout(t *testing.T) {

	client, err := CreateClient(ClientConfig{
		Host:    "127.0.0.1",
		Port:    uint(startSilentGateway(t)),
		SlaveId: 1,
		Timeout: 3 * time.Second,
	}, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	assert.Error(t, client.WriteCoil(ctx, 0, true))
	assert.Less(t, time.Since(start), time.Second)
}
