package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.Error(w, "no such report", http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	rec := &Recorder{}
	client := resty.New().SetBaseURL(server.URL)
	InstrumentResty(client, rec)

	res, err := client.R().Get("/dashboard")
	require.NoError(t, err)
	require.Equal(t, "ok", res.String())
	require.True(t, rec.Has("debug", report_resty_request))
	require.True(t, rec.Has("debug", report_resty_response))
	require.False(t, rec.Has("warning", report_resty_status))

	_, err = client.R().Get("/missing")
	require.NoError(t, err)
	require.True(t, rec.Has("warning", report_resty_status))

	var message string
	for _, r := range rec.Reports() {
		if r.Level == "warning" {
			message = r.Params[1].(string)
		}
	}
	require.Contains(t, message, "GET "+server.URL+"/missing")
	require.Contains(t, message, "no such report")
}

func TestInstrumentRestyError(t *testing.T) {
	rec := &Recorder{}
	client := resty.New()
	InstrumentResty(client, rec)

	_, err := client.R().Get("http://127.0.0.1:1/unreachable")
	require.Error(t, err)
	require.True(t, rec.Has("broken", report_resty_response))
}
