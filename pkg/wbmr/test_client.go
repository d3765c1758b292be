package wbmr

import (
	"context"
	"errors"
	"sync"
)

var ErrTestCoilFailure = errors.New("wbmr: scripted failure")

// TestCoilClient keeps coil values in memory and counts every call.
type TestCoilClient struct {
	mu         sync.Mutex
	coils      []bool
	readCalls  int
	writeCalls int
	failRead   bool
	failWrite  bool
}

func NewTestCoilClient(count int) *TestCoilClient {
	return &TestCoilClient{
		coils: make([]bool, count),
	}
}

func (c *TestCoilClient) ReadCoils(_ context.Context, count uint16) ([]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readCalls++
	if c.failRead {
		return nil, ErrTestCoilFailure
	}
	out := make([]bool, count)
	copy(out, c.coils)
	return out, nil
}

func (c *TestCoilClient) WriteCoil(_ context.Context, index uint16, value bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeCalls++
	if c.failWrite {
		return ErrTestCoilFailure
	}
	if int(index) >= len(c.coils) {
		return errors.New("wbmr: illegal data address")
	}
	c.coils[index] = value
	return nil
}

// Set changes a coil behind the client's back, like a local button press.
func (c *TestCoilClient) Set(index int, value bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coils[index] = value
}

func (c *TestCoilClient) Calls() (reads, writes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readCalls, c.writeCalls
}

func (c *TestCoilClient) SetFailures(read, write bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failRead = read
	c.failWrite = write
}
