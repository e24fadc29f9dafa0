package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPayload(t *testing.T) {
	payload := buildPayload("Hi", "There", map[string]string{"k": "v"}, false)
	require.NotNil(t, payload.Notification)
	assert.Equal(t, "Hi", payload.Title())
	assert.Equal(t, "There", payload.Body())
	assert.Equal(t, "v", payload.Data["k"])

	dataOnly := buildPayload("Hi", "There", nil, true)
	assert.Nil(t, dataOnly.Notification)
}

func TestSendHTTP(t *testing.T) {
	transport := httpmock.NewMockTransport()
	client := &http.Client{Transport: transport}

	var gotSecret, gotBody string
	transport.RegisterResponder(http.MethodPost, "http://worker.local/api/push", func(request *http.Request) (*http.Response, error) {
		gotSecret = request.Header.Get("X-Hub-Secret")
		raw, _ := io.ReadAll(request.Body)
		gotBody = string(raw)
		return httpmock.NewStringResponse(http.StatusAccepted, `{"status":"accepted"}`), nil
	})

	err := sendHTTP(context.Background(), client, "http://worker.local/api/push", "s3cret", buildPayload("Hi", "", nil, false))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", gotSecret)
	assert.JSONEq(t, `{"notification":{"title":"Hi","body":""}}`, gotBody)
}

func TestSendHTTP_Rejected(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, "http://worker.local/api/push",
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"error":"unauthorized"}`))

	err := sendHTTP(context.Background(), &http.Client{Transport: transport}, "http://worker.local/api/push", "", buildPayload("", "", nil, true))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push-worker status 401")
}

func TestRootCmd_RejectsUnknownTransport(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--via", "carrier-pigeon"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}
