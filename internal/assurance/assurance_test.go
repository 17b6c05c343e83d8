package assurance

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/dyn"
)

type fakeSDK struct{ sessions []string }

func (f *fakeSDK) ExtensionVersion() string { return "4.1.0" }
func (f *fakeSDK) StartSession(url string)  { f.sessions = append(f.sessions, url) }

func TestStartSession(t *testing.T) {
	sdk := &fakeSDK{}
	b := bridge.New(bridge.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, b.Register(New(sdk, b.Env())))
	defer b.Close()
	ctx := context.Background()

	for _, args := range []dyn.List{nil, {dyn.Null{}}, {dyn.NewString("")}} {
		v, err := b.Call(ctx, Name, "startSession", args)
		require.NoError(t, err)
		assert.Equal(t, dyn.Null{}, v)
	}
	assert.Empty(t, sdk.sessions)

	_, err := b.Call(ctx, Name, "startSession", dyn.List{dyn.NewString("myapp://?adb_validation_sessionid=1")})
	require.NoError(t, err)
	assert.Equal(t, []string{"myapp://?adb_validation_sessionid=1"}, sdk.sessions)
}
