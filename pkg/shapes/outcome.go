package shapes

import (
	"time"
)

// Endpoint names one of the two fixed calls the facade makes.
type Endpoint string

const (
	EndpointHello  Endpoint = "hello"
	EndpointShapes Endpoint = "shapes"
)

// Kind tags an Outcome.
type Kind int

const (
	// KindInvalid is the zero value. No call produces it.
	KindInvalid Kind = iota
	// KindSuccess is a 2xx hello response.
	KindSuccess
	// KindShape is a 2xx shapes response naming a shape.
	KindShape
	// KindUnknown is a 2xx shapes response without a shape.
	KindUnknown
	// KindFailure is any non-2xx response.
	KindFailure
	// KindDecodeError is a 2xx shapes response whose body could not be decoded.
	KindDecodeError
	// KindTransportError covers faults before a response was received.
	KindTransportError
)

// Legacy outcome strings delivered to string callbacks.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeUnknown   = "unknown"
	ExceptionPrefix  = "exception: "
	exceptionUnknown = "unknown error"
	exceptionUnset   = "outcome not set"
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindShape:
		return "shape"
	case KindUnknown:
		return "unknown"
	case KindFailure:
		return "failure"
	case KindDecodeError:
		return "decode_error"
	case KindTransportError:
		return "transport_error"
	default:
		return "invalid"
	}
}

// Outcome is the result of a single hello or shapes call.
type Outcome struct {
	Kind       Kind
	Endpoint   Endpoint
	Shape      string // raw value, only set for KindShape
	StatusCode int    // zero when no response was received
	Err        error  // set for KindDecodeError and KindTransportError
	RequestID  string
	StartedAt  time.Time
	Elapsed    time.Duration
}

// OK reports whether the call reached a 2xx response that was fully understood.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess || o.Kind == KindShape || o.Kind == KindUnknown
}

// String returns the outcome string: success, failure, unknown,
// the raw shape name, or "exception: <description>".
func (o Outcome) String() string {
	switch o.Kind {
	case KindSuccess:
		return OutcomeSuccess
	case KindShape:
		return o.Shape
	case KindUnknown:
		return OutcomeUnknown
	case KindFailure:
		return OutcomeFailure
	case KindInvalid:
		return ExceptionPrefix + exceptionUnset
	default:
		if o.Err == nil {
			return ExceptionPrefix + exceptionUnknown
		}
		return ExceptionPrefix + o.Err.Error()
	}
}
