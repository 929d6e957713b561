package cluster

import (
	"ltlmc/parallel"
	"ltlmc/wire"
)

// Codec moves the shared record of a topology over the wire.
type Codec[S any] interface {
	Encode(w *wire.Writer, sh S)
	Decode(r *wire.Reader) (S, error)
}

// SectionBind starts a new run on a worker. It is handled by the server
// and never reaches the worker instance.
const SectionBind parallel.Section = 0

func encodeCall[S any](codec Codec[S], section parallel.Section, sh S) []byte {
	w := wire.NewWriter()
	w.Uint32(uint32(section))
	codec.Encode(w, sh)
	return wire.Frame(w.Words())
}
