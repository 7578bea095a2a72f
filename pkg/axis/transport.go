package axis

// Transport is the byte stream to a motion controller. Read is
// expected to return within the port-level timeout, possibly with
// fewer bytes than requested. Any reliable byte stream satisfies the
// contract; the serial implementation lives in pkg/axis/serial.
type Transport interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

// Dialer opens the Transport for an axis.
type Dialer interface {
	Open(port string, baud int) (Transport, error)
}

// DialerFunc is the func form of Dialer.
type DialerFunc func(port string, baud int) (Transport, error)

// Open implements Dialer.
func (f DialerFunc) Open(port string, baud int) (Transport, error) {
	return f(port, baud)
}
