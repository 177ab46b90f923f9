package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"
)

func b64url(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestConvertMessage(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "msg-1",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "Shop <shop@example.com>"},
				{Name: "Subject", Value: "Your order shipped"},
				{Name: "Date", Value: "Sat, 30 Aug 2026 10:00:00 +0000"},
			},
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "text/plain",
					Body:     &gmailapi.MessagePartBody{Data: b64url("plain body")},
				},
				{
					MimeType: "text/html",
					Body:     &gmailapi.MessagePartBody{Data: b64url("<p>html body</p>")},
				},
			},
		},
	}

	email := convertMessage(msg)
	assert.Equal(t, "msg-1", email.ID)
	assert.Equal(t, "Shop <shop@example.com>", email.From)
	assert.Equal(t, "Your order shipped", email.Subject)

	require.NotNil(t, email.Body)
	require.Len(t, email.Body.Parts, 2)
	assert.Equal(t, "text/plain", email.Body.Parts[0].MIMEType)
	assert.Equal(t, "plain body", email.Body.Parts[0].Data)
	assert.Equal(t, "<p>html body</p>", email.Body.Parts[1].Data)
}

func TestConvertMessageNoPayload(t *testing.T) {
	email := convertMessage(&gmailapi.Message{Id: "empty"})
	assert.Equal(t, "empty", email.ID)
	assert.Nil(t, email.Body)
}

func TestDecodeBody(t *testing.T) {
	assert.Equal(t, "hello", decodeBody(b64url("hello")))

	// Gmail sometimes omits padding; raw encoding must still decode.
	raw := base64.RawURLEncoding.EncodeToString([]byte("unpadded"))
	assert.Equal(t, "unpadded", decodeBody(raw))

	assert.Equal(t, "", decodeBody("!!! not base64 !!!"))
}
