package lark

import (
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/application/port"
)

const (
	receiveIDTypeOpenID = "open_id"
	msgTypeText         = "text"
)

// messageCreator is the part of the Lark IM API the notifier calls
type messageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// Notifier sends plain-text IM messages to users by open id
type Notifier struct {
	messages messageCreator
	logger   *zap.Logger
}

// NewNotifier creates a notifier on top of a Lark SDK client
func NewNotifier(client *lark.Client, logger *zap.Logger) *Notifier {
	return &Notifier{
		messages: client.Im.Message,
		logger:   logger,
	}
}

// SendText delivers text to the user identified by openID
func (n *Notifier) SendText(ctx context.Context, openID string, text string) error {
	body, err := textMessageBody(openID, text)
	if err != nil {
		return err
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDTypeOpenID).
		Body(body).
		Build()

	resp, err := n.messages.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send message",
			zap.String("receive_id", openID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		n.logger.Error("API returned failure",
			zap.String("receive_id", openID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	n.logger.Info("Message sent successfully",
		zap.String("message_id", messageID),
		zap.String("receive_id", openID))
	return nil
}

// textMessageBody builds the IM v1 body of a plain-text message
func textMessageBody(openID string, text string) (*larkim.CreateMessageReqBody, error) {
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return larkim.NewCreateMessageReqBodyBuilder().
		ReceiveId(openID).
		MsgType(msgTypeText).
		Content(string(content)).
		Build(), nil
}

var _ port.Notifier = (*Notifier)(nil)
