package port

// Bus is the exclusive serial transaction channel to the unit. Calls are
// synchronous and bounded by the transport's own timeout.
type Bus interface {
	ReadRegisters(addr uint16, quantity uint16) ([]uint16, error)
	WriteRegister(addr uint16, value uint16) error
}
