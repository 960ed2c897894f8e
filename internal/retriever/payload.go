package retriever

import (
	"errors"
	"fmt"

	"github.com/Enriquefft/openclaw-sms-retriever/internal/broadcast"
)

// Intent action and extra keys used by the SMS retrieval service.
const (
	ActionSMSRetrieved = "smsretriever.action.SMS_RETRIEVED"
	ExtraStatus        = "smsretriever.extra.STATUS"
	ExtraMessage       = "smsretriever.extra.SMS_MESSAGE"
)

// StatusCode is the result code carried by an SMS retrieved intent.
type StatusCode int

const (
	StatusSuccess StatusCode = 0
	StatusTimeout StatusCode = 15
)

func (c StatusCode) String() string {
	switch c {
	case StatusSuccess:
		return "SUCCESS"
	case StatusTimeout:
		return "TIMEOUT"
	default:
		return fmt.Sprintf("STATUS(%d)", int(c))
	}
}

// Status is the value stored under ExtraStatus.
type Status struct {
	Code    StatusCode
	Message string
}

// Outcome classifies one decoded intent.
type Outcome int

const (
	OutcomeUnrecognized Outcome = iota
	OutcomeMessage
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMessage:
		return "message"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unrecognized"
	}
}

// Delivery is the typed form of an SMS retrieved intent.
type Delivery struct {
	Outcome Outcome
	Code    StatusCode
	Text    string // set only for OutcomeMessage
}

// ErrMalformedPayload is matched by every error Decode returns.
var ErrMalformedPayload = errors.New("malformed sms retriever payload")

// MalformedPayloadError names the extra that could not be decoded.
type MalformedPayloadError struct {
	Field  string
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrMalformedPayload, e.Field, e.Reason)
}

func (e *MalformedPayloadError) Is(target error) bool {
	return target == ErrMalformedPayload
}

// Decode converts an intent into a Delivery. Intents with another action, a
// missing status or a status of an unknown type decode as OutcomeUnrecognized.
// A SUCCESS status without a string message is an error.
func Decode(in broadcast.Intent) (Delivery, error) {
	if in.Action != ActionSMSRetrieved {
		return Delivery{Outcome: OutcomeUnrecognized}, nil
	}

	raw, ok := in.Get(ExtraStatus)
	if !ok {
		return Delivery{Outcome: OutcomeUnrecognized}, nil
	}
	status, ok := asStatus(raw)
	if !ok {
		return Delivery{Outcome: OutcomeUnrecognized}, nil
	}

	switch status.Code {
	case StatusSuccess:
		raw, ok := in.Get(ExtraMessage)
		if !ok {
			return Delivery{}, &MalformedPayloadError{Field: ExtraMessage, Reason: "missing"}
		}
		text, ok := raw.(string)
		if !ok {
			return Delivery{}, &MalformedPayloadError{Field: ExtraMessage, Reason: fmt.Sprintf("has type %T, want string", raw)}
		}
		return Delivery{Outcome: OutcomeMessage, Code: status.Code, Text: text}, nil

	case StatusTimeout:
		return Delivery{Outcome: OutcomeTimeout, Code: status.Code}, nil

	default:
		return Delivery{Outcome: OutcomeUnrecognized, Code: status.Code}, nil
	}
}

func asStatus(v any) (Status, bool) {
	switch s := v.(type) {
	case Status:
		return s, true
	case *Status:
		if s == nil {
			return Status{}, false
		}
		return *s, true
	default:
		return Status{}, false
	}
}

// SuccessIntent builds the intent the retrieval service sends for a matched SMS.
func SuccessIntent(message string) broadcast.Intent {
	return broadcast.Intent{
		Action: ActionSMSRetrieved,
		Extras: broadcast.Extras{
			ExtraStatus:  Status{Code: StatusSuccess},
			ExtraMessage: message,
		},
	}
}

// TimeoutIntent builds the intent the retrieval service sends when its window expires.
func TimeoutIntent() broadcast.Intent {
	return broadcast.Intent{
		Action: ActionSMSRetrieved,
		Extras: broadcast.Extras{
			ExtraStatus: Status{Code: StatusTimeout, Message: "timed out waiting for SMS"},
		},
	}
}
