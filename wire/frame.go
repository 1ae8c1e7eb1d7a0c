// Package wire defines the logical request/response frame shared by both
// transports and the dynamically typed payload tree it carries.
package wire

// ProtocolVersion is the fixed ver byte this client sends on every
// request (spec.md section 3).
const ProtocolVersion = 11

// Request is the frame a caller sends. Seq is assigned by the session
// core, never by the caller.
type Request struct {
	Ver     uint8
	Cmd     uint8
	Seq     uint64
	Opcode  uint16
	Payload Value
}

// Response is the frame the reader task decodes off the wire.
type Response struct {
	Ver     uint8
	Cmd     uint8
	Seq     uint64
	Opcode  uint16
	Payload Value
}

// Error returns the response's payload.error field, if present. Per
// spec.md section 4.2, its presence is what distinguishes a successful
// response from an API-level failure.
func (r Response) Error() (Value, bool) {
	return r.Payload.Get("error")
}
