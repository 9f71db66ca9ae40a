package ws

// Transport is one side of a live connection.
//
// Send must not block indefinitely: implementations either enqueue without
// waiting or bound the write with a deadline. Close must be safe to call more
// than once.
type Transport interface {
	Send(data []byte) error
	Close() error
}
