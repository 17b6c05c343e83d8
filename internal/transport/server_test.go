package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/simulator"
	"github.com/roach88/aepbridge/internal/testutil"
)

type response struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Kind      string `json:"kind"`
		Code      string `json:"code"`
		Message   string `json:"message"`
		Operation string `json:"operation"`
	} `json:"error"`
}

func newTestServer(t *testing.T) (*httptest.Server, *simulator.Simulator) {
	t.Helper()
	sim, err := simulator.New(nil, simulator.WithLogger(testutil.DiscardLogger()))
	require.NoError(t, err)
	b := bridge.New(bridge.WithLogger(testutil.DiscardLogger()))
	require.NoError(t, b.Register(sim.Modules(b.Env())...))
	t.Cleanup(b.Close)

	srv := httptest.NewServer(New(b, WithLogger(testutil.DiscardLogger()), WithPresenter(sim)))
	t.Cleanup(srv.Close)
	return srv, sim
}

func post(t *testing.T, srv *httptest.Server, path, body string) (int, response) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestMethods(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/methods")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out struct {
		Methods []string `json:"methods"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out.Methods, "AEPCore.trackAction")
	assert.Contains(t, out.Methods, "AEPMessaging.setMessageSettings")
}

func TestVersions(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/versions")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(t, out.OK)
	var versions map[string]string
	require.NoError(t, json.Unmarshal(out.Result, &versions))
	assert.Equal(t, "3.0.0", versions["AEPCampaignClassic"])
}

func TestCall(t *testing.T) {
	srv, sim := newTestServer(t)

	status, out := post(t, srv, "/call/AEPCore/trackAction", `["login", {"user": "u1"}]`)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, out.OK)
	assert.JSONEq(t, `null`, string(out.Result))
	assert.Equal(t, []string{"AEPCore.trackAction"}, sim.CallOps())

	status, out = post(t, srv, "/call/AEPCore/getPrivacyStatus", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `"AEP_PRIVACY_STATUS_OPT_IN"`, string(out.Result))
}

func TestCallFailures(t *testing.T) {
	srv, sim := newTestServer(t)
	sim.Fail("AEPIdentity.getExperienceCloudId", "general.network.error")

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		kind   string
		code   string
	}{
		{"unknown method", "/call/AEPCore/nope", `[]`, http.StatusOK, "PROGRAMMING", "UNKNOWN_METHOD"},
		{"decode", "/call/AEPEdge/sendEvent", `[{"data": {}}]`, http.StatusOK, "DECODE", "DECODE_FAILED"},
		{"vendor", "/call/AEPIdentity/getExperienceCloudId", `[]`, http.StatusOK, "VENDOR", "general.network.error"},
		{"not an array", "/call/AEPCore/trackAction", `{"a": 1}`, http.StatusBadRequest, "PROGRAMMING", "BAD_ARGUMENTS"},
		{"bad json", "/call/AEPCore/trackAction", `[`, http.StatusBadRequest, "PROGRAMMING", "BAD_ARGUMENTS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := post(t, srv, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.False(t, out.OK)
			require.NotNil(t, out.Error)
			assert.Equal(t, tt.kind, out.Error.Kind)
			assert.Equal(t, tt.code, out.Error.Code)
		})
	}
}

func TestCallRejectsOversizedBody(t *testing.T) {
	srv, sim := newTestServer(t)

	body := `["` + strings.Repeat("a", maxBody) + `"]`
	status, out := post(t, srv, "/call/AEPCore/trackAction", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.False(t, out.OK)
	require.NotNil(t, out.Error)
	assert.Equal(t, "PROGRAMMING", out.Error.Kind)
	assert.Contains(t, out.Error.Message, "body too large")
	assert.Empty(t, sim.CallOps())
}

type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestEventsDriveMessageDecision(t *testing.T) {
	srv, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, out := post(t, srv, "/call/AEPMessaging/setMessagingDelegate", `[]`)
	require.True(t, out.OK)

	status, _ := post(t, srv, "/messages/m-1/present", ``)
	require.Equal(t, http.StatusAccepted, status)

	f := readFrame(t, conn)
	assert.Equal(t, "shouldShowMessage", f.Event)
	assert.JSONEq(t, `{"autoTrack": true, "id": "m-1"}`, string(f.Payload))

	_, out = post(t, srv, "/call/AEPMessaging/setMessageSettings", `[true, false]`)
	require.True(t, out.OK)

	f = readFrame(t, conn)
	assert.Equal(t, "onShow", f.Event)
	assert.JSONEq(t, `{"autoTrack": true, "id": "m-1"}`, string(f.Payload))
}
