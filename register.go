package eventledger

import "reflect"

type registerFunc = func() interface{}

// RegisterFunc is handed to an aggregate's Register method so it can
// list its event kinds.
type RegisterFunc = func(events ...interface{})

// register maps an event kind to a func producing a fresh zero value of
// the registered type, so stored payloads can be decoded into the
// correct type.
type register struct {
	r map[string]registerFunc
}

func newRegister() *register {
	return &register{
		r: make(map[string]registerFunc),
	}
}

// Kind returns the func that generates the event data type for the kind
func (r *register) Kind(kind string) (registerFunc, bool) {
	f, ok := r.r[kind]
	return f, ok
}

// Register records the event kinds exposed by the aggregate
func (r *register) Register(a aggregate) {
	fu := func(events ...interface{}) {
		for _, event := range events {
			typ := reflect.TypeOf(event).Elem()
			r.r[typ.Name()] = func() interface{} {
				return reflect.New(typ).Interface()
			}
		}
	}
	a.Register(fu)
}
