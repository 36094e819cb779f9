package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/mohsen-hany-dev/ivasms-otp/internal/models"
)

const testToken = "123:abc"

// botServer stubs the Bot API: getMe for the client handshake plus a
// scripted sendMessage handler.
type botServer struct {
	ts         *httptest.Server
	sendCalls  []string // reply_markup payload of each sendMessage call
	rejectCopy bool     // reject sends whose button carries copy_text
	rejectAll  bool
}

func newBotServer(t *testing.T) *botServer {
	b := &botServer{}
	b.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"otp","username":"otp_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			require.NoError(t, r.ParseForm())
			markup := r.FormValue("reply_markup")
			b.sendCalls = append(b.sendCalls, markup)
			if b.rejectAll || (b.rejectCopy && strings.Contains(markup, "copy_text")) {
				fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: can't parse reply keyboard markup"}`)
				return
			}
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":42,"date":1,"chat":{"id":-100,"type":"supergroup"}}}`)
		default:
			t.Fatalf("unexpected bot API call: %s", r.URL.Path)
		}
	}))
	t.Cleanup(b.ts.Close)
	return b
}

func (b *botServer) sender(t *testing.T) *Sender {
	t.Helper()
	s, err := NewSenderWithEndpoint(testToken, b.ts.URL+"/bot%s/%s", 5*time.Second, zerolog.Nop())
	require.NoError(t, err)
	return s
}

var testGroup = models.Group{Name: "g1", ChatID: "-1001234567890", Enabled: true}

func TestSend_CopyButtonFirstTry(t *testing.T) {
	srv := newBotServer(t)
	s := srv.sender(t)

	id, err := s.Send(context.Background(), testGroup, "hello", "4321")
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	require.Len(t, srv.sendCalls, 1)
	markup := srv.sendCalls[0]
	assert.Equal(t, "4321", gjson.Get(markup, "inline_keyboard.0.0.text").String())
	assert.Equal(t, "4321", gjson.Get(markup, "inline_keyboard.0.0.copy_text.text").String())
	assert.False(t, gjson.Get(markup, "inline_keyboard.0.0.url").Exists())
}

func TestSend_FallsBackToShareLinkOnce(t *testing.T) {
	srv := newBotServer(t)
	srv.rejectCopy = true
	s := srv.sender(t)

	id, err := s.Send(context.Background(), testGroup, "hello", "4321")
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	require.Len(t, srv.sendCalls, 2, "exactly one fallback retry")
	fallback := srv.sendCalls[1]
	assert.Equal(t, "4321", gjson.Get(fallback, "inline_keyboard.0.0.text").String(),
		"fallback keeps the button label")
	assert.False(t, gjson.Get(fallback, "inline_keyboard.0.0.copy_text").Exists())
	assert.Equal(t, "https://t.me/share/url?url=4321", gjson.Get(fallback, "inline_keyboard.0.0.url").String())
}

func TestSend_BothAttemptsFail(t *testing.T) {
	srv := newBotServer(t)
	srv.rejectAll = true
	s := srv.sender(t)

	_, err := s.Send(context.Background(), testGroup, "hello", "4321")
	var dErr *DeliveryError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, "g1", dErr.Group)
	assert.Len(t, srv.sendCalls, 2, "never a third attempt")
}

func TestSend_MessageParameters(t *testing.T) {
	srv := newBotServer(t)
	var gotChatID, gotParseMode, gotPreview string
	srv.ts.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"otp","username":"otp_bot"}}`)
		default:
			require.NoError(t, r.ParseForm())
			gotChatID = r.FormValue("chat_id")
			gotParseMode = r.FormValue("parse_mode")
			gotPreview = r.FormValue("disable_web_page_preview")
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"date":1,"chat":{"id":-100,"type":"supergroup"}}}`)
		}
	})
	s := srv.sender(t)

	_, err := s.Send(context.Background(), testGroup, "body", "99")
	require.NoError(t, err)
	assert.Equal(t, "-1001234567890", gotChatID)
	assert.Equal(t, "MarkdownV2", gotParseMode)
	assert.Equal(t, "true", gotPreview)
}
