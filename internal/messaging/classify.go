package messaging

import (
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types/events"

	"whatsapp-api/internal/models"
)

// classify applies the fixed type-mapping table of spec §4.5 and extracts
// body/media/caption for the canonical record.
func classify(raw *events.Message) (msgType models.MessageType, body, mediaMime *string, mediaSize *int64, caption *string) {
	m := raw.Message
	if m == nil {
		return models.MessageTypeText, nil, nil, nil, nil
	}

	switch {
	case m.GetConversation() != "":
		text := m.GetConversation()
		return models.MessageTypeText, &text, nil, nil, nil

	case m.GetExtendedTextMessage() != nil:
		text := m.GetExtendedTextMessage().GetText()
		return models.MessageTypeText, &text, nil, nil, nil

	case m.GetImageMessage() != nil:
		img := m.GetImageMessage()
		return models.MessageTypeImage, nil, strPtr(img.GetMimetype()), int64Ptr(int64(img.GetFileLength())), strPtrIfSet(img.GetCaption())

	case m.GetVideoMessage() != nil:
		v := m.GetVideoMessage()
		return models.MessageTypeVideo, nil, strPtr(v.GetMimetype()), int64Ptr(int64(v.GetFileLength())), strPtrIfSet(v.GetCaption())

	case m.GetAudioMessage() != nil:
		a := m.GetAudioMessage()
		t := models.MessageTypeAudio
		return t, nil, strPtr(a.GetMimetype()), int64Ptr(int64(a.GetFileLength())), nil

	case m.GetDocumentMessage() != nil:
		d := m.GetDocumentMessage()
		return models.MessageTypeDocument, nil, strPtr(d.GetMimetype()), int64Ptr(int64(d.GetFileLength())), strPtrIfSet(d.GetCaption())

	case m.GetStickerMessage() != nil:
		s := m.GetStickerMessage()
		return models.MessageTypeSticker, nil, strPtr(s.GetMimetype()), int64Ptr(int64(s.GetFileLength())), nil

	case m.GetLocationMessage() != nil:
		return models.MessageTypeLocation, nil, nil, nil, nil

	case m.GetContactMessage() != nil, m.GetContactsArrayMessage() != nil:
		return models.MessageTypeContact, nil, nil, nil, nil

	case m.GetPollCreationMessage() != nil:
		return models.MessageTypePoll, nil, nil, nil, nil

	case m.GetReactionMessage() != nil:
		emoji := m.GetReactionMessage().GetText()
		return models.MessageTypeReaction, &emoji, nil, nil, nil

	default:
		return models.MessageTypeText, nil, nil, nil, nil
	}
}

// extractedContextInfo finds the ContextInfo of whichever sub-message
// carries a quoted stanza, matching spec §4.5's `hasQuotedMsg` check.
func extractedContextInfo(raw *events.Message) *waE2E.ContextInfo {
	m := raw.Message
	if m == nil {
		return nil
	}
	switch {
	case m.GetExtendedTextMessage() != nil:
		return m.GetExtendedTextMessage().GetContextInfo()
	case m.GetImageMessage() != nil:
		return m.GetImageMessage().GetContextInfo()
	case m.GetVideoMessage() != nil:
		return m.GetVideoMessage().GetContextInfo()
	case m.GetDocumentMessage() != nil:
		return m.GetDocumentMessage().GetContextInfo()
	}
	return nil
}

func isForwarded(raw *events.Message) bool {
	ctx := extractedContextInfo(raw)
	return ctx != nil && ctx.GetIsForwarded()
}

func mentionedIDs(raw *events.Message) []string {
	ctx := extractedContextInfo(raw)
	if ctx == nil {
		return nil
	}
	return ctx.GetMentionedJID()
}

func strPtr(s string) *string { return &s }

func strPtrIfSet(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func int64Ptr(n int64) *int64 { return &n }
