package hostfunc

import (
	"encoding/json"
	"fmt"
)

// Payload is a text-encoded structured record sent by the guest.
// Raw is always present; Value is set only when Raw decodes.
type Payload struct {
	Raw   string
	Value any
}

// PayloadDecodeError reports that a payload's text is not valid JSON.
type PayloadDecodeError struct {
	Raw string
	Err error
}

func (e *PayloadDecodeError) Error() string {
	return fmt.Sprintf("decode payload: %v", e.Err)
}

func (e *PayloadDecodeError) Unwrap() error {
	return e.Err
}

// DecodePayload parses raw as any JSON value, the way JSON.parse does.
// The returned Payload always carries raw, even on error.
func DecodePayload(raw string) (Payload, error) {
	p := Payload{Raw: raw}
	if err := json.Unmarshal([]byte(raw), &p.Value); err != nil {
		p.Value = nil
		return p, &PayloadDecodeError{Raw: raw, Err: err}
	}
	return p, nil
}
