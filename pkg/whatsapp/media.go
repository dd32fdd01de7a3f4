package whatsapp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sunshineplan/imgconv"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/proto"

	"github.com/gdbrns/go-whatsapp-command-bot/internal/session"
)

const maxImageBytes = 16 << 20

var ErrImageTooLarge = errors.New("image exceeds maximum size")

// quoteContext builds the reply context pointing at the quoted inbound message.
func quoteContext(quoted *session.InboundMessage) *waE2E.ContextInfo {
	if quoted == nil {
		return nil
	}
	ctxInfo := &waE2E.ContextInfo{
		StanzaID:      proto.String(string(quoted.Key.ID)),
		QuotedMessage: quoted.Message,
	}
	if !quoted.Key.Sender.IsEmpty() {
		ctxInfo.Participant = proto.String(quoted.Key.Sender.ToNonAD().String())
	}
	return ctxInfo
}

func buildTextMessage(text string, quoted *session.InboundMessage) *waE2E.Message {
	if quoted == nil {
		return &waE2E.Message{Conversation: proto.String(text)}
	}
	return &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text:        proto.String(text),
			ContextInfo: quoteContext(quoted),
		},
	}
}

func (c *Client) buildImageMessage(ctx context.Context, content session.Content, quoted *session.InboundMessage) (*waE2E.Message, error) {
	imageBytes, mimeType, err := fetchImage(ctx, c.httpClient, content.ImageURL)
	if err != nil {
		return nil, err
	}

	uploaded, err := c.wa.Upload(ctx, imageBytes, whatsmeow.MediaImage)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	msg := &waE2E.ImageMessage{
		URL:           proto.String(uploaded.URL),
		DirectPath:    proto.String(uploaded.DirectPath),
		Mimetype:      proto.String(mimeType),
		Caption:       proto.String(content.Caption),
		MediaKey:      uploaded.MediaKey,
		FileEncSHA256: uploaded.FileEncSHA256,
		FileSHA256:    uploaded.FileSHA256,
		FileLength:    proto.Uint64(uploaded.FileLength),
		ContextInfo:   quoteContext(quoted),
	}
	if thumb, err := imageThumbnail(imageBytes); err == nil {
		msg.JPEGThumbnail = thumb
	} else {
		c.log.WithError(err).Debug("Skipping image thumbnail")
	}

	return &waE2E.Message{ImageMessage: msg}, nil
}

func fetchImage(ctx context.Context, httpClient *http.Client, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build image request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("fetch image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, "", ErrImageTooLarge
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("fetch image: unexpected content type %q", mimeType)
	}
	return data, mimeType, nil
}

func imageThumbnail(imageBytes []byte) ([]byte, error) {
	decoded, err := imgconv.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail source: %w", err)
	}
	thumb := new(bytes.Buffer)
	err = imgconv.Write(thumb,
		imgconv.Resize(decoded, &imgconv.ResizeOption{Width: 72}),
		&imgconv.FormatOption{Format: imgconv.JPEG})
	if err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return thumb.Bytes(), nil
}
