package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePusher struct {
	notifyCalls int
	voipCalls   int
	err         error
}

func (f *fakePusher) SendNotifyPush(ctx context.Context, deviceToken, title, body, sound string) error {
	f.notifyCalls++
	return f.err
}

func (f *fakePusher) SendVoipPushRaw(ctx context.Context, voipToken, pushType, sound, message string) error {
	f.voipCalls++
	return f.err
}

func newTestServer(pusher Pusher, maxPerHour uint32) (*Server, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	s := &Server{Apns: pusher, Limiter: NewRateLimiter(maxPerHour)}
	r := gin.New()
	s.RegisterRoutes(r)
	return s, r
}

const validToken = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcd"

func doJSON(t *testing.T, r *gin.Engine, method, path string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPushHandlerRejectsInvalidToken(t *testing.T) {
	fp := &fakePusher{}
	_, r := newTestServer(fp, 60)

	rec := doJSON(t, r, http.MethodPost, "/relay/push", map[string]any{
		"device_token": "not-hex",
		"title":        "hi",
		"body":         "there",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, fp.notifyCalls)
}

func TestPushHandlerSuccess(t *testing.T) {
	fp := &fakePusher{}
	_, r := newTestServer(fp, 60)

	rec := doJSON(t, r, http.MethodPost, "/relay/push", map[string]any{
		"device_token": validToken,
		"title":        "hi",
		"body":         "there",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fp.notifyCalls)
}

func TestPushHandlerRateLimited(t *testing.T) {
	fp := &fakePusher{}
	_, r := newTestServer(fp, 1)

	body := map[string]any{"device_token": validToken, "title": "hi", "body": "there"}
	first := doJSON(t, r, http.MethodPost, "/relay/push", body)
	second := doJSON(t, r, http.MethodPost, "/relay/push", body)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, 1, fp.notifyCalls)
}

func TestPushHandlerUpstreamFailure(t *testing.T) {
	fp := &fakePusher{err: assert.AnError}
	_, r := newTestServer(fp, 60)

	rec := doJSON(t, r, http.MethodPost, "/relay/push", map[string]any{
		"device_token": validToken, "title": "hi", "body": "there",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestVoipHandlerSuccess(t *testing.T) {
	fp := &fakePusher{}
	_, r := newTestServer(fp, 60)

	rec := doJSON(t, r, http.MethodPost, "/relay/voip", map[string]any{
		"voip_token": validToken, "type": "incoming_call",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fp.voipCalls)
}

func TestHealthHandler(t *testing.T) {
	_, r := newTestServer(&fakePusher{}, 60)
	req := httptest.NewRequest(http.MethodGet, "/relay/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIsValidDeviceToken(t *testing.T) {
	assert.True(t, isValidDeviceToken(validToken))
	assert.False(t, isValidDeviceToken(strings.ToUpper(validToken)), "must reject uppercase hex")
	assert.False(t, isValidDeviceToken(validToken[:63]), "must reject short tokens")
	assert.False(t, isValidDeviceToken(validToken+"0"), "must reject long tokens")
}
