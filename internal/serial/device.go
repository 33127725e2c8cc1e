package serial

// NullDevice is a Device for an unplugged link cable: it reads back a
// held-high line and discards whatever is sent to it.
type NullDevice struct{}

func (NullDevice) Receive(bool) {}
func (NullDevice) Send() bool   { return true }
