package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/proto"
)

func TestInboundMessageText(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{"nil message", nil, ""},
		{"conversation", &waE2E.Message{Conversation: proto.String(".ping")}, ".ping"},
		{"extended text", &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String(".say hi")}}, ".say hi"},
		{
			"conversation wins",
			&waE2E.Message{
				Conversation:        proto.String("plain"),
				ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("extended")},
			},
			"plain",
		},
		{"media only", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String(".ping")}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InboundMessage{Message: tt.msg}.Text())
		})
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, "connection.update", Kind(ConnectionUpdate{}))
	assert.Equal(t, "messages.upsert", Kind(MessagesUpsert{}))
	assert.Equal(t, "creds.update", Kind(CredsUpdate{}))
	assert.Equal(t, "", Kind(nil))
}
