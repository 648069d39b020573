package domain

// LoadState is the lifecycle of a data store.
type LoadState int

const (
	StateIdle LoadState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s LoadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
