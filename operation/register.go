package operation

import "encoding/gob"

// Register records the concrete type of an operation with the gob
// codec. Operations that cross the process boundary in isolated mode
// are encoded as interface values, so every concrete operation type
// used with a subprocess oracle must be registered first.
func Register(ops ...Operation) {
	for _, op := range ops {
		gob.Register(op)
	}
}
