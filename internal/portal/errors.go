package portal

import "fmt"

// TransportError reports a failure to complete the remote call at the network
// layer, including non-success HTTP status codes.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("portal: request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a response that could not be interpreted: malformed
// outer or inner XML, or an expected element missing from the document.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("portal: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("portal: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
