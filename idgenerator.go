package eventledger

import "github.com/gofrs/uuid"

// idFunc is a global function that generates stream id's.
// It can be changed from the outside via the SetIDFunc function.
var idFunc = uuidSeq

// SetIDFunc is used to change how stream id's are generated
// default is a random uuid
func SetIDFunc(f func() string) {
	idFunc = f
}

func uuidSeq() string {
	return uuid.Must(uuid.NewV4()).String()
}
