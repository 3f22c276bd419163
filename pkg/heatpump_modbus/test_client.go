package heatpump_modbus

import (
	"errors"
	"sync"
	"time"
)

var ErrTestClientClosed = errors.New("test client is not open")

type TestTransactionKind string

const (
	TestRead  TestTransactionKind = "read"
	TestWrite TestTransactionKind = "write"
)

// TestTransaction is one call recorded by TestModbusClient.
type TestTransaction struct {
	Kind    TestTransactionKind
	Address uint16
	Value   uint16
	At      time.Time
	Err     error
}

// TestModbusClient is an in-memory register bank used by tests and by the
// simulate mode. Writes to a linked address are reflected into its read-back
// register, the way the unit exposes setpoints.
type TestModbusClient struct {
	mu           sync.Mutex
	open         bool
	registers    map[uint16]uint16
	links        map[uint16]uint16
	transactions []TestTransaction
	reads        int
	writes       int

	// ReadFault is called with the 1-based read count; a non-nil error fails that read.
	ReadFault func(n int, addr uint16) error
	// WriteFault is called with the 1-based write count.
	WriteFault func(n int, addr uint16) error
}

func CreateTestModbusClient(registers map[uint16]uint16) *TestModbusClient {
	bank := make(map[uint16]uint16, len(registers))
	for k, v := range registers {
		bank[k] = v
	}
	return &TestModbusClient{
		open:      true,
		registers: bank,
		links:     map[uint16]uint16{},
	}
}

// Link reflects every write to writeAddr into readAddr.
func (c *TestModbusClient) Link(writeAddr, readAddr uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links[writeAddr] = readAddr
}

func (c *TestModbusClient) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	return nil
}

func (c *TestModbusClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

func (c *TestModbusClient) ReadRegisters(addr uint16, quantity uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reads++
	tx := TestTransaction{Kind: TestRead, Address: addr, At: time.Now()}
	if err := c.check(c.ReadFault, c.reads, addr); err != nil {
		tx.Err = err
		c.transactions = append(c.transactions, tx)
		return nil, err
	}
	out := make([]uint16, quantity)
	for i := range out {
		out[i] = c.registers[addr+uint16(i)]
	}
	tx.Value = out[0]
	c.transactions = append(c.transactions, tx)
	return out, nil
}

func (c *TestModbusClient) WriteRegister(addr uint16, value uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writes++
	tx := TestTransaction{Kind: TestWrite, Address: addr, Value: value, At: time.Now()}
	if err := c.check(c.WriteFault, c.writes, addr); err != nil {
		tx.Err = err
		c.transactions = append(c.transactions, tx)
		return err
	}
	c.registers[addr] = value
	if readAddr, ok := c.links[addr]; ok {
		c.registers[readAddr] = value
	}
	c.transactions = append(c.transactions, tx)
	return nil
}

func (c *TestModbusClient) check(fault func(int, uint16) error, n int, addr uint16) error {
	if !c.open {
		return ErrTestClientClosed
	}
	if fault != nil {
		return fault(n, addr)
	}
	return nil
}

// Set stores a raw register value.
func (c *TestModbusClient) Set(addr uint16, value uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registers[addr] = value
}

// Register returns a raw register value.
func (c *TestModbusClient) Register(addr uint16) uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registers[addr]
}

// Transactions returns a copy of the call log.
func (c *TestModbusClient) Transactions() []TestTransaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TestTransaction, len(c.transactions))
	copy(out, c.transactions)
	return out
}

// Writes returns the successful and failed write calls in order.
func (c *TestModbusClient) Writes() []TestTransaction {
	var out []TestTransaction
	for _, tx := range c.Transactions() {
		if tx.Kind == TestWrite {
			out = append(out, tx)
		}
	}
	return out
}

// Reads returns the read calls in order.
func (c *TestModbusClient) Reads() []TestTransaction {
	var out []TestTransaction
	for _, tx := range c.Transactions() {
		if tx.Kind == TestRead {
			out = append(out, tx)
		}
	}
	return out
}
