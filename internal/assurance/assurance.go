// Package assurance bridges the Assurance extension.
package assurance

import (
	"context"
	"log/slog"

	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/dyn"
)

// Name is the boundary module name.
const Name = "AEPAssurance"

// SDK is the vendor Assurance API.
type SDK interface {
	ExtensionVersion() string
	StartSession(url string)
}

type Module struct {
	sdk    SDK
	logger *slog.Logger
}

func New(sdk SDK, env bridge.Env) *Module {
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Module{sdk: sdk, logger: logger.With("module", Name)}
}

func (m *Module) Name() string { return Name }
func (m *Module) Close()       {}

func (m *Module) Register(t *bridge.Table) {
	t.Handle(bridge.VersionMethod, func(context.Context, *bridge.Args) (dyn.Value, error) {
		return dyn.String(m.sdk.ExtensionVersion()), nil
	})
	t.Handle("startSession", m.startSession)
}

// startSession ignores a null or empty url.
func (m *Module) startSession(_ context.Context, a *bridge.Args) (dyn.Value, error) {
	url, ok := a.OptString(0)
	if a.Err() != nil {
		return nil, a.Err()
	}
	if !ok || url == "" {
		m.logger.Debug("startSession called without url; ignoring")
		return nil, nil
	}
	m.sdk.StartSession(url)
	return nil, nil
}
