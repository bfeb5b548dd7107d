package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
)

const defaultRequestTimeout = 10 * time.Second

// InlineButton is one actionable control rendered under a message.
type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// InlineKeyboard is rows of buttons attached to an outbound message.
type InlineKeyboard struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

// Client talks to the chat bot HTTP API. It covers the three calls the
// bridge needs: sending a message with an inline keyboard, stripping the
// keyboard off a sent message, and acknowledging a callback.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a bot API client. baseURL is the API root without the
// token segment.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("bot api base url required")
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("bot token required")
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// ValidateChannelID parses a raw channel id. Channel ids are bare integers;
// negative values address group channels.
func ValidateChannelID(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "channel id required")
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("channel id %q is not numeric", raw))
	}
	if id == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "channel id cannot be zero")
	}
	return id, nil
}

// SentMessage identifies a delivered message so its keyboard can be edited
// later.
type SentMessage struct {
	MessageID int64 `json:"message_id"`
}

type sendMessageRequest struct {
	ChatID      int64           `json:"chat_id"`
	Text        string          `json:"text"`
	ParseMode   string          `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboard `json:"reply_markup,omitempty"`
}

// SendMessage delivers text (and an optional keyboard) to the channel.
func (c *Client) SendMessage(ctx context.Context, channelID int64, text string, keyboard *InlineKeyboard) (*SentMessage, error) {
	var result SentMessage
	err := c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:      channelID,
		Text:        text,
		ReplyMarkup: keyboard,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type editReplyMarkupRequest struct {
	ChatID      int64           `json:"chat_id"`
	MessageID   int64           `json:"message_id"`
	ReplyMarkup *InlineKeyboard `json:"reply_markup,omitempty"`
}

// RemoveKeyboard strips the inline keyboard off a previously sent message.
func (c *Client) RemoveKeyboard(ctx context.Context, channelID, messageID int64) error {
	return c.call(ctx, "editMessageReplyMarkup", editReplyMarkupRequest{
		ChatID:    channelID,
		MessageID: messageID,
	}, nil)
}

type answerCallbackRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
}

// AnswerCallback acknowledges a callback so the channel UI stops showing a
// pending control.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if strings.TrimSpace(callbackID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "callback id required")
	}
	return c.call(ctx, "answerCallbackQuery", answerCallbackRequest{
		CallbackQueryID: callbackID,
		Text:            text,
	}, nil)
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

func (c *Client) call(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode bot request")
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build bot request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return pkgerrors.Wrap(pkgerrors.CodeChannelTimeout, err, "bot api timed out")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bot api unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read bot response")
	}

	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode bot response")
	}
	if !decoded.OK {
		return mapAPIError(resp.StatusCode, decoded.Description)
	}
	if out != nil && len(decoded.Result) > 0 {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode bot result")
		}
	}
	return nil
}

// mapAPIError translates bot API rejections into channel error codes so the
// caller can pick the right remediation.
func mapAPIError(status int, description string) error {
	desc := strings.ToLower(description)
	switch {
	case status == http.StatusUnauthorized:
		return pkgerrors.New(pkgerrors.CodeChannelAuth, "bot credential rejected")
	case status == http.StatusForbidden || strings.Contains(desc, "blocked"):
		return pkgerrors.New(pkgerrors.CodeChannelBlocked, "recipient blocked the bot")
	case strings.Contains(desc, "chat not found"):
		return pkgerrors.New(pkgerrors.CodeChannelNotFound, "channel not initialized by recipient")
	case status == http.StatusTooManyRequests:
		return pkgerrors.New(pkgerrors.CodeChannelTimeout, "bot api rate limited")
	default:
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("bot api error %d: %s", status, description))
	}
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
