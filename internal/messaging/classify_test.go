package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types/events"

	"whatsapp-api/internal/models"
)

func strp(s string) *string { return &s }

func TestClassify_NilMessage(t *testing.T) {
	msgType, body, mime, size, caption := classify(&events.Message{Message: nil})
	assert.Equal(t, models.MessageTypeText, msgType)
	assert.Nil(t, body)
	assert.Nil(t, mime)
	assert.Nil(t, size)
	assert.Nil(t, caption)
}

func TestClassify_PlainConversation(t *testing.T) {
	raw := &events.Message{Message: &waE2E.Message{Conversation: strp("hello there")}}
	msgType, body, _, _, _ := classify(raw)
	require.NotNil(t, body)
	assert.Equal(t, models.MessageTypeText, msgType)
	assert.Equal(t, "hello there", *body)
}

func TestClassify_ExtendedTextMessage(t *testing.T) {
	raw := &events.Message{Message: &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: strp("quoted reply")},
	}}
	msgType, body, _, _, _ := classify(raw)
	assert.Equal(t, models.MessageTypeText, msgType)
	require.NotNil(t, body)
	assert.Equal(t, "quoted reply", *body)
}

func TestClassify_ImageMessage(t *testing.T) {
	raw := &events.Message{Message: &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{
			Mimetype:   strp("image/jpeg"),
			FileLength: uint64Ptr(2048),
			Caption:    strp("a photo"),
		},
	}}
	msgType, body, mime, size, caption := classify(raw)
	assert.Equal(t, models.MessageTypeImage, msgType)
	assert.Nil(t, body)
	require.NotNil(t, mime)
	assert.Equal(t, "image/jpeg", *mime)
	require.NotNil(t, size)
	assert.EqualValues(t, 2048, *size)
	require.NotNil(t, caption)
	assert.Equal(t, "a photo", *caption)
}

func TestClassify_ImageMessage_EmptyCaptionOmitted(t *testing.T) {
	raw := &events.Message{Message: &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{Mimetype: strp("image/png"), FileLength: uint64Ptr(10)},
	}}
	_, _, _, _, caption := classify(raw)
	assert.Nil(t, caption)
}

func TestClassify_AudioMessage_NoCaption(t *testing.T) {
	raw := &events.Message{Message: &waE2E.Message{
		AudioMessage: &waE2E.AudioMessage{Mimetype: strp("audio/ogg"), FileLength: uint64Ptr(512)},
	}}
	msgType, _, mime, size, caption := classify(raw)
	assert.Equal(t, models.MessageTypeAudio, msgType)
	require.NotNil(t, mime)
	assert.Equal(t, "audio/ogg", *mime)
	require.NotNil(t, size)
	assert.EqualValues(t, 512, *size)
	assert.Nil(t, caption)
}

func TestClassify_LocationMessage(t *testing.T) {
	raw := &events.Message{Message: &waE2E.Message{LocationMessage: &waE2E.LocationMessage{}}}
	msgType, _, _, _, _ := classify(raw)
	assert.Equal(t, models.MessageTypeLocation, msgType)
}

func TestClassify_ReactionMessage(t *testing.T) {
	raw := &events.Message{Message: &waE2E.Message{
		ReactionMessage: &waE2E.ReactionMessage{Text: strp("👍")},
	}}
	msgType, body, _, _, _ := classify(raw)
	assert.Equal(t, models.MessageTypeReaction, msgType)
	require.NotNil(t, body)
	assert.Equal(t, "👍", *body)
}

func TestClassify_PollMessage(t *testing.T) {
	raw := &events.Message{Message: &waE2E.Message{PollCreationMessage: &waE2E.PollCreationMessage{}}}
	msgType, _, _, _, _ := classify(raw)
	assert.Equal(t, models.MessageTypePoll, msgType)
}

func TestIsForwarded(t *testing.T) {
	notForwarded := &events.Message{Message: &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: strp("hi")},
	}}
	assert.False(t, isForwarded(notForwarded))

	forwarded := &events.Message{Message: &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text:        strp("hi"),
			ContextInfo: &waE2E.ContextInfo{IsForwarded: boolPtr(true)},
		},
	}}
	assert.True(t, isForwarded(forwarded))
}

func TestMentionedIDs(t *testing.T) {
	raw := &events.Message{Message: &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text:        strp("hi @a @b"),
			ContextInfo: &waE2E.ContextInfo{MentionedJID: []string{"a@s.whatsapp.net", "b@s.whatsapp.net"}},
		},
	}}
	assert.Equal(t, []string{"a@s.whatsapp.net", "b@s.whatsapp.net"}, mentionedIDs(raw))
}

func uint64Ptr(n uint64) *uint64 { return &n }
func boolPtr(b bool) *bool       { return &b }
