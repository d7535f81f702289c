package client

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/amp-labs/amp-reconnect/statemachine"
)

const (
	StateResolving  statemachine.StateKind = "Resolving"
	StateConnecting statemachine.StateKind = "Connecting"
	StateOnline     statemachine.StateKind = "Online"
	StateBackoff    statemachine.StateKind = "Backoff"
	StateTerminal   statemachine.StateKind = "Terminal"
)

const (
	OutcomeResolved  statemachine.OutcomeKind = "Resolved"
	OutcomeConnected statemachine.OutcomeKind = "Connected"
	OutcomeRetry     statemachine.OutcomeKind = "Retry"
)

// Resolved carries the endpoint Resolving picked.
type Resolved struct {
	Endpoint netip.AddrPort
}

func (Resolved) Kind() statemachine.OutcomeKind { return OutcomeResolved }

func (r Resolved) String() string { return fmt.Sprintf("Resolved(%s)", r.Endpoint) }

// Connected hands the established connection to Online.
type Connected struct {
	Conn net.Conn
}

func (Connected) Kind() statemachine.OutcomeKind { return OutcomeConnected }

// Retry ends a backoff wait.
type Retry struct{}

func (Retry) Kind() statemachine.OutcomeKind { return OutcomeRetry }
