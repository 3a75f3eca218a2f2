package broker

import "fmt"

// UpstreamError reports a failed call to a provider's token or revoke
// endpoint. Status is 0 for transport-level failures that never produced a
// response.
type UpstreamError struct {
	Provider string
	Op       string
	Status   int
	Detail   string
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s failed: %d %s", e.Provider, e.Op, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Provider, e.Op, e.Detail)
}
