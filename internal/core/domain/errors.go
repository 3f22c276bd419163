package domain

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is reported when a setpoint adjustment is rejected because
// the reference sensor reads outside its valid range. It is never fatal.
var ErrOutOfRange = errors.New("setpoint adjustment out of range")

// TransportOp names the bus operation that failed.
type TransportOp string

const (
	TransportRead  TransportOp = "read"
	TransportWrite TransportOp = "write"
)

// TransportFault terminates a bus transaction: unreachable bus, timeout or
// malformed response. The control loop treats it as fatal.
type TransportFault struct {
	Op      TransportOp
	Signal  Signal
	Address uint16
	Err     error
}

func (f *TransportFault) Error() string {
	return fmt.Sprintf("transport fault: %s %s @%d: %v", f.Op, f.Signal, f.Address, f.Err)
}

func (f *TransportFault) Unwrap() error {
	return f.Err
}

// IsTransportFault reports whether err carries a TransportFault.
func IsTransportFault(err error) bool {
	var f *TransportFault
	return errors.As(err, &f)
}
