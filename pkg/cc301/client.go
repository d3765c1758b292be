package cc301

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/berfenger/cc301wb2mqtt/pkg/instrument"
	"github.com/sigurn/crc16"
	"go.uber.org/zap"
)

// TCPTransport opens one TCP connection per exchange and closes it afterwards.
type TCPTransport struct {
	address string
	timeout time.Duration
}

func NewTCPTransport(host string, port uint, timeout time.Duration) *TCPTransport {
	return &TCPTransport{
		address: net.JoinHostPort(host, fmt.Sprint(port)),
		timeout: timeout,
	}
}

func (t *TCPTransport) Exchange(ctx context.Context, request []byte, responseLength int) ([]byte, error) {
	dialer := net.Dialer{Timeout: t.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.address, err)
	}
	defer conn.Close()

	// tear the socket down if the caller goes away mid exchange
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	if t.timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(t.timeout)); err != nil {
			return nil, err
		}
	}

	if _, err := conn.Write(request); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	response := make([]byte, responseLength)
	if _, err := io.ReadFull(conn, response); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return response, nil
}

// Client reads the CC-301 instantaneous values over a Transport.
type Client struct {
	address    uint8
	codec      *Codec
	transport  Transport
	instrument []instrument.Instrument
}

type ClientOption func(*Client)

func WithInstrument(inst *instrument.Instrument) ClientOption {
	return func(c *Client) {
		if inst != nil {
			c.instrument = append(c.instrument, *inst)
		}
	}
}

func NewClient(address uint8, codec *Codec, transport Transport, opts ...ClientOption) *Client {
	c := &Client{
		address:   address,
		codec:     codec,
		transport: transport,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateTCPReader builds a Client talking to host:port with the given CRC
// parameters and current transformer ratio.
func CreateTCPReader(host string, port uint, address uint8, timeout time.Duration,
	params crc16.Params, ctRatio float64, logger *zap.Logger) *Client {
	logInst := instrument.TraceLogger(logger.With(zap.String("target", "cc301"), zap.Uint8("address", address)))
	return NewClient(address, NewCodec(params, ctRatio), NewTCPTransport(host, port, timeout), WithInstrument(logInst))
}

func (c *Client) ReadInstantValues(ctx context.Context) (*Measurements, error) {
	defer instrument.RecordTimer("ReadInstantValues", c.instrument)()

	response, err := c.transport.Exchange(ctx, c.codec.InstantValuesRequest(c.address), ResponseLength)
	if err != nil {
		return nil, err
	}
	return c.codec.Decode(response)
}

var _ Reader = (*Client)(nil)
