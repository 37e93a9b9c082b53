package wayland

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const headerSize = 8

var order = binary.NativeEndian

// ErrShortMessage is reported when an event ends before all of its
// arguments were read.
var ErrShortMessage = errors.New("wayland: short message")

// Message is an outgoing request under construction.
type Message struct {
	sender uint32
	opcode uint16
	body   []byte
	fds    []int
}

// NewMessage starts a request for the object sender.
func NewMessage(sender uint32, opcode uint16) *Message {
	return &Message{sender: sender, opcode: opcode}
}

// PutUint appends an unsigned 32-bit argument.
func (msg *Message) PutUint(value uint32) *Message {
	msg.body = order.AppendUint32(msg.body, value)
	return msg
}

// PutInt appends a signed 32-bit argument.
func (msg *Message) PutInt(value int32) *Message {
	return msg.PutUint(uint32(value))
}

// PutObject appends an object id. Zero encodes a null object.
func (msg *Message) PutObject(id uint32) *Message {
	return msg.PutUint(id)
}

// PutString appends a NUL terminated, padded string.
func (msg *Message) PutString(value string) *Message {
	msg.PutUint(uint32(len(value) + 1))
	msg.body = append(msg.body, value...)
	msg.body = append(msg.body, 0)
	msg.pad()
	return msg
}

// PutArray appends a length prefixed, padded byte array.
func (msg *Message) PutArray(value []byte) *Message {
	msg.PutUint(uint32(len(value)))
	msg.body = append(msg.body, value...)
	msg.pad()
	return msg
}

// PutFd attaches a file descriptor. Ownership moves to the connection,
// which closes it once sent.
func (msg *Message) PutFd(fd int) *Message {
	msg.fds = append(msg.fds, fd)
	return msg
}

func (msg *Message) pad() {
	for len(msg.body)%4 != 0 {
		msg.body = append(msg.body, 0)
	}
}

// Bytes returns the encoded message including its header.
func (msg *Message) Bytes() []byte {
	size := headerSize + len(msg.body)
	out := make([]byte, 0, size)
	out = order.AppendUint32(out, msg.sender)
	out = order.AppendUint32(out, uint32(size)<<16|uint32(msg.opcode))
	return append(out, msg.body...)
}

// Fds returns the descriptors attached to the message.
func (msg *Message) Fds() []int {
	return msg.fds
}

// ParseHeader splits a message header. ok is false when buf does not yet
// hold a complete message.
func ParseHeader(buf []byte) (sender uint32, opcode uint16, size int, ok bool) {
	if len(buf) < headerSize {
		return 0, 0, 0, false
	}
	sender = order.Uint32(buf[0:4])
	word := order.Uint32(buf[4:8])
	size = int(word >> 16)
	opcode = uint16(word & 0xffff)
	if size < headerSize || len(buf) < size {
		return sender, opcode, size, false
	}
	return sender, opcode, size, true
}

// Reader decodes message arguments in order. The first decoding error is
// sticky and reported by Err.
type Reader struct {
	body []byte
	pos  int
	fds  []int
	err  error
}

// NewReader decodes the argument bytes of one message.
func NewReader(body []byte, fds []int) *Reader {
	return &Reader{body: body, fds: fds}
}

func (reader *Reader) take(n int) []byte {
	if reader.err != nil {
		return nil
	}
	if reader.pos+n > len(reader.body) {
		reader.err = ErrShortMessage
		return nil
	}
	chunk := reader.body[reader.pos : reader.pos+n]
	reader.pos += n
	return chunk
}

// Uint reads an unsigned 32-bit argument.
func (reader *Reader) Uint() uint32 {
	chunk := reader.take(4)
	if chunk == nil {
		return 0
	}
	return order.Uint32(chunk)
}

// Int reads a signed 32-bit argument.
func (reader *Reader) Int() int32 {
	return int32(reader.Uint())
}

// Fixed reads a 24.8 fixed point argument.
func (reader *Reader) Fixed() float64 {
	return float64(reader.Int()) / 256
}

// String reads a string argument. A null string decodes as "".
func (reader *Reader) String() string {
	length := int(reader.Uint())
	if length == 0 {
		return ""
	}
	chunk := reader.take(padded(length))
	if chunk == nil {
		return ""
	}
	return string(chunk[:length-1])
}

// Array reads an array argument.
func (reader *Reader) Array() []byte {
	length := int(reader.Uint())
	chunk := reader.take(padded(length))
	if chunk == nil {
		return nil
	}
	return append([]byte(nil), chunk[:length]...)
}

// Fd takes the next file descriptor delivered with the message. The caller
// owns it.
func (reader *Reader) Fd() int {
	if reader.err != nil {
		return -1
	}
	if len(reader.fds) == 0 {
		reader.err = fmt.Errorf("%w: missing file descriptor", ErrShortMessage)
		return -1
	}
	fd := reader.fds[0]
	reader.fds = reader.fds[1:]
	return fd
}

// Err returns the first decoding error.
func (reader *Reader) Err() error {
	return reader.err
}

// remainingFds returns descriptors that were not claimed by Fd.
func (reader *Reader) remainingFds() []int {
	return reader.fds
}

func padded(n int) int {
	return (n + 3) &^ 3
}
