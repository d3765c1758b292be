package cc301

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/berfenger/cc301wb2mqtt/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedTransport struct {
	response []byte
	err      error
	requests [][]byte
}

func (t *scriptedTransport) Exchange(_ context.Context, request []byte, responseLength int) ([]byte, error) {
	t.requests = append(t.requests, request)
	if t.err != nil {
		return nil, t.err
	}
	return t.response, nil
}

func TestClientReadInstantValues(t *testing.T) {

	assert := assert.New(t)

	codec := NewCodec(DefaultCRCParams, DefaultCurrentTransformerRatio)
	values := syntheticValues()
	transport := &scriptedTransport{response: syntheticResponse(codec, values)}

	recorded := map[string]int{}
	client := NewClient(12, codec, transport, WithInstrument(recorder(recorded)))

	m, err := client.ReadInstantValues(context.Background())
	require.NoError(t, err)
	assert.Equal(expected(values[1], 50), m.SummaryPower)
	assert.Len(transport.requests, 1)
	assert.Equal(byte(12), transport.requests[0][0])
	assert.Equal(1, recorded["ReadInstantValues"])
}

func TestClientTransportError(t *testing.T) {

	codec := NewCodec(DefaultCRCParams, DefaultCurrentTransformerRatio)
	boom := errors.New("connection refused")
	client := NewClient(1, codec, &scriptedTransport{err: boom})

	m, err := client.ReadInstantValues(context.Background())
	assert.Nil(t, m)
	assert.ErrorIs(t, err, boom)
}

func TestTCPTransportExchange(t *testing.T) {

	assert := assert.New(t)

	codec := NewCodec(DefaultCRCParams, DefaultCurrentTransformerRatio)
	values := syntheticValues()
	response := syntheticResponse(codec, values)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		req := make([]byte, RequestLength)
		if _, err := io.ReadFull(conn, req); err != nil {
			return
		}
		received <- req
		conn.Write(response)
	}()

	host, port, _ := net.SplitHostPort(ln.Addr().String())
	p, _ := strconv.Atoi(port)
	client := CreateTCPReader(host, uint(p), 3, 2*time.Second, DefaultCRCParams, 50, zap.Must(zap.NewDevelopment()))

	m, err := client.ReadInstantValues(context.Background())
	require.NoError(t, err)
	assert.Equal(expected(values[11], 1), m.PhaseVoltage[2])
	assert.Equal(codec.InstantValuesRequest(3), <-received)
}

func TestTCPTransportShortResponse(t *testing.T) {

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		req := make([]byte, 3)
		io.ReadFull(conn, req)
		conn.Write(make([]byte, 10))
		conn.Close()
	}()

	host, port, _ := net.SplitHostPort(ln.Addr().String())
	p, _ := strconv.Atoi(port)
	transport := NewTCPTransport(host, uint(p), time.Second)

	_, err = transport.Exchange(context.Background(), []byte{1, 2, 3}, ResponseLength)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestTCPTransportCancel(t *testing.T) {

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// accept and never answer
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(io.Discard, conn)
	}()

	host, port, _ := net.SplitHostPort(ln.Addr().String())
	p, _ := strconv.Atoi(port)
	transport := NewTCPTransport(host, uint(p), 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	_, err = transport.Exchange(ctx, []byte{1, 2, 3}, ResponseLength)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func recorder(calls map[string]int) *instrument.Instrument {
	return &instrument.Instrument{
		RecordTime: func(fnName string, _ time.Duration) {
			calls[fnName]++
		},
	}
}
