package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
)

type recordedCall struct {
	Method string
	Body   map[string]any
}

// fakeBotServer emulates the chat bot HTTP API. Responses are keyed by
// method name; unset methods answer ok.
type fakeBotServer struct {
	mu        sync.Mutex
	calls     []recordedCall
	responses map[string]func(w http.ResponseWriter)
	server    *httptest.Server
}

func newFakeBotServer(t *testing.T) *fakeBotServer {
	t.Helper()
	f := &fakeBotServer{responses: map[string]func(w http.ResponseWriter){}}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[len("/bottest-token/"):]
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.calls = append(f.calls, recordedCall{Method: method, Body: body})
		respond := f.responses[method]
		f.mu.Unlock()

		if respond != nil {
			respond(w)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 42},
		})
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeBotServer) client(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(f.server.URL, "test-token", 2*time.Second)
	require.NoError(t, err)
	return c
}

func (f *fakeBotServer) callsFor(method string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []recordedCall
	for _, call := range f.calls {
		if call.Method == method {
			matched = append(matched, call)
		}
	}
	return matched
}

func (f *fakeBotServer) respondWith(method string, status int, description string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method] = func(w http.ResponseWriter) {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  status,
			"description": description,
		})
	}
}

func TestValidateChannelID(t *testing.T) {
	cases := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: "123456", want: 123456},
		{raw: "-100200300", want: -100200300},
		{raw: " 77 ", want: 77},
		{raw: "", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "12.5", wantErr: true},
		{raw: "0", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ValidateChannelID(tc.raw)
		if tc.wantErr {
			require.Error(t, err, "raw %q", tc.raw)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
			continue
		}
		require.NoError(t, err, "raw %q", tc.raw)
		assert.Equal(t, tc.want, got)
	}
}

func TestSendMessage_Success(t *testing.T) {
	fake := newFakeBotServer(t)
	client := fake.client(t)

	keyboard := &InlineKeyboard{InlineKeyboard: [][]InlineButton{{
		{Text: "Mark ready", CallbackData: "order_ready_x"},
	}}}
	sent, err := client.SendMessage(context.Background(), -500, "hello", keyboard)
	require.NoError(t, err)
	assert.Equal(t, int64(42), sent.MessageID)

	calls := fake.callsFor("sendMessage")
	require.Len(t, calls, 1)
	assert.Equal(t, float64(-500), calls[0].Body["chat_id"])
	assert.Equal(t, "hello", calls[0].Body["text"])
	assert.NotNil(t, calls[0].Body["reply_markup"])
}

func TestSendMessage_MapsChannelErrors(t *testing.T) {
	cases := []struct {
		status      int
		description string
		wantCode    pkgerrors.Code
	}{
		{http.StatusBadRequest, "Bad Request: chat not found", pkgerrors.CodeChannelNotFound},
		{http.StatusForbidden, "Forbidden: bot was blocked by the user", pkgerrors.CodeChannelBlocked},
		{http.StatusUnauthorized, "Unauthorized", pkgerrors.CodeChannelAuth},
		{http.StatusTooManyRequests, "Too Many Requests", pkgerrors.CodeChannelTimeout},
	}
	for _, tc := range cases {
		fake := newFakeBotServer(t)
		fake.respondWith("sendMessage", tc.status, tc.description)
		client := fake.client(t)

		_, err := client.SendMessage(context.Background(), 1, "hi", nil)
		require.Error(t, err, "status %d", tc.status)
		assert.Equal(t, tc.wantCode, pkgerrors.As(err).Code(), "status %d", tc.status)
	}
}

func TestRemoveKeyboard(t *testing.T) {
	fake := newFakeBotServer(t)
	client := fake.client(t)

	require.NoError(t, client.RemoveKeyboard(context.Background(), 9, 42))

	calls := fake.callsFor("editMessageReplyMarkup")
	require.Len(t, calls, 1)
	assert.Equal(t, float64(42), calls[0].Body["message_id"])
}

func TestAnswerCallback_RequiresID(t *testing.T) {
	fake := newFakeBotServer(t)
	client := fake.client(t)

	err := client.AnswerCallback(context.Background(), "", "text")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	require.NoError(t, client.AnswerCallback(context.Background(), "cb-1", "working"))
	require.Len(t, fake.callsFor("answerCallbackQuery"), 1)
}
