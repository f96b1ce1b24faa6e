package services

import (
	"context"

	"github.com/vvka-141/vload/pkg/vload"
)

type mockConnector struct {
	session vload.Session
	err     error
	calls   int
}

func (m *mockConnector) Connect(_ context.Context) (vload.Session, error) {
	m.calls++
	return m.session, m.err
}
