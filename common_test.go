package cloudbalance

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testAPIToken            = "11abf8fe-2a3b-4a34-a6cb-1d1a0b6f5e7e"
	testClientAllowInsecure = true
)

// newTestServer returns a server that hands every request to handle after
// checking that it carries the test token.
func newTestServer(
	t *testing.T,
	handle func(w http.ResponseWriter, r *http.Request),
) *httptest.Server {
	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "Bearer "+testAPIToken, r.Header.Get("Authorization"))
				handle(w, r)
			},
		),
	)
	t.Cleanup(server.Close)
	return server
}

// writeEnvelope answers with a successful envelope around data.
func writeEnvelope(
	t *testing.T,
	w http.ResponseWriter,
	statusCode int,
	data interface{},
) {
	dataBytes, err := json.Marshal(data)
	require.NoError(t, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	envelopeBytes, err := json.Marshal(
		APIResponse{
			Success: true,
			Message: "ok",
			Data:    dataBytes,
		},
	)
	require.NoError(t, err)
	_, err = w.Write(envelopeBytes)
	require.NoError(t, err)
}

func writeRaw(t *testing.T, w http.ResponseWriter, obj interface{}) {
	objBytes, err := json.Marshal(obj)
	require.NoError(t, err)
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(objBytes)
	require.NoError(t, err)
}

func readBody(t *testing.T, r *http.Request, obj interface{}) {
	bodyBytes, err := ioutil.ReadAll(r.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(bodyBytes, obj))
}
