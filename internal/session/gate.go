package session

// RequestGate enforces at most one outstanding user submission. It has no
// timeout: the gate is released only when an assistant message or an error
// event arrives, so a server that sends neither leaves it held.
type RequestGate struct {
	held bool
}

// NewRequestGate creates a free gate.
func NewRequestGate() *RequestGate {
	return &RequestGate{}
}

// TryAcquire takes the gate. Returns false without side effect when it is
// already held.
func (g *RequestGate) TryAcquire() bool {
	if g.held {
		return false
	}
	g.held = true
	return true
}

// Release frees the gate. Releasing a free gate is a no-op.
func (g *RequestGate) Release() {
	g.held = false
}

// Held reports whether a submission is outstanding.
func (g *RequestGate) Held() bool {
	return g.held
}
