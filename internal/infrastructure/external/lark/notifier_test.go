package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMessages struct {
	lastReq *larkim.CreateMessageReq
	resp    *larkim.CreateMessageResp
	err     error
}

func (f *fakeMessages) Create(_ context.Context, req *larkim.CreateMessageReq, _ ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error) {
	f.lastReq = req
	return f.resp, f.err
}

func okResponse() *larkim.CreateMessageResp {
	id := "om_123"
	return &larkim.CreateMessageResp{
		CodeError: larkcore.CodeError{Code: 0},
		Data:      &larkim.CreateMessageRespData{MessageId: &id},
	}
}

func TestNotifier_SendText(t *testing.T) {
	fake := &fakeMessages{resp: okResponse()}
	n := &Notifier{messages: fake, logger: zap.NewNop()}

	err := n.SendText(context.Background(), "ou_emp1", "Your claim \"Taxi\" was approved")
	require.NoError(t, err)

	require.NotNil(t, fake.lastReq)
}

func TestTextMessageBody(t *testing.T) {
	body, err := textMessageBody("ou_emp1", "Your claim \"Taxi\" was approved")
	require.NoError(t, err)

	require.NotNil(t, body.ReceiveId)
	assert.Equal(t, "ou_emp1", *body.ReceiveId)
	require.NotNil(t, body.MsgType)
	assert.Equal(t, "text", *body.MsgType)

	require.NotNil(t, body.Content)
	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(*body.Content), &content))
	assert.Equal(t, "Your claim \"Taxi\" was approved", content["text"])
}

func TestNotifier_SendTextFailures(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeMessages
	}{
		{name: "transport error", fake: &fakeMessages{err: errors.New("connection reset")}},
		{name: "api error", fake: &fakeMessages{resp: &larkim.CreateMessageResp{
			CodeError: larkcore.CodeError{Code: 230002, Msg: "bot not in chat"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Notifier{messages: tt.fake, logger: zap.NewNop()}
			assert.Error(t, n.SendText(context.Background(), "ou_emp1", "hello"))
		})
	}
}

func TestNotifier_MissingMessageID(t *testing.T) {
	fake := &fakeMessages{resp: &larkim.CreateMessageResp{}}
	n := &Notifier{messages: fake, logger: zap.NewNop()}
	assert.NoError(t, n.SendText(context.Background(), "ou_emp1", "hello"))
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, NewLogNotifier(zap.NewNop()).SendText(context.Background(), "ou_x", "hi"))
}

func TestConfig_Enabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{AppID: "cli_x"}.Enabled())
	assert.True(t, Config{AppID: "cli_x", AppSecret: "s"}.Enabled())
}
