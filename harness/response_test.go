package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseWithEnvelope(t *testing.T) {
	resp := parseResponse(200, []byte(`{"status":"ok","code":200,"return":0,"message":"Success","data":{"name":"syslogd"}}`))
	require.NotNil(t, resp.Envelope)
	assert.True(t, resp.Success())
	assert.False(t, resp.Denied())
	assert.Equal(t, 0, resp.Envelope.Return)
	assert.JSONEq(t, `{"name":"syslogd"}`, string(resp.Envelope.Data))
	assert.Equal(t, "HTTP 200 (return 0: Success)", resp.Summary())
}

func TestParseResponseWithoutEnvelope(t *testing.T) {
	resp := parseResponse(502, []byte("<html>bad gateway</html>"))
	assert.Nil(t, resp.Envelope)
	assert.False(t, resp.Success())
	assert.Equal(t, "HTTP 502: <html>bad gateway</html>", resp.Summary())
}

func TestParseResponseEmptyBody(t *testing.T) {
	resp := parseResponse(204, nil)
	assert.Nil(t, resp.Envelope)
	assert.True(t, resp.Success())
	assert.Equal(t, "HTTP 204 (empty body)", resp.Summary())
}

func TestDeniedCoversBothAuthorizationStatuses(t *testing.T) {
	assert.True(t, parseResponse(401, nil).Denied())
	assert.True(t, parseResponse(403, nil).Denied())
	assert.False(t, parseResponse(400, nil).Denied())
	assert.False(t, parseResponse(200, nil).Denied())
}

func TestSummaryTruncatesLongBodies(t *testing.T) {
	body := make([]byte, 500)
	for i := range body {
		body[i] = 'x'
	}
	summary := parseResponse(500, body).Summary()
	assert.Less(t, len(summary), 200)
	assert.Contains(t, summary, "...")
}
