package core

// Frame is a raw binary payload (e.g., an encoded wire message).
type Frame []byte

// ClientConn abstracts one attached client's outbound channel.
// Owned by the adapter; the adapter must Close() it.
type ClientConn interface {
	TrySend(Frame) error
	Close()
}
