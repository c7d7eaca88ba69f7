package model

import (
	"context"
	"net"
)

// SecurityLayer produces listeners for the HTTP transport, either plain TCP
// or TLS depending on configuration.
type SecurityLayer interface {
	Listen(protocol, addr string) (net.Listener, error)
}

type Server interface {
	Start(securityLayer SecurityLayer) error
	Stop(ctx context.Context) error
	Address() string
}
