package webhooks

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/orderdeskhq/orderdesk-backend/api/responses"
	"github.com/orderdeskhq/orderdesk-backend/internal/bridge"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
)

const botSecretHeader = "X-Bot-Api-Secret-Token"

type CallbackService interface {
	Handle(ctx context.Context, input bridge.CallbackInput) error
}

type Guard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type botUpdate struct {
	UpdateID      int64 `json:"update_id"`
	CallbackQuery *struct {
		ID      string `json:"id"`
		Data    string `json:"data"`
		Message *struct {
			MessageID int64 `json:"message_id"`
			Chat      struct {
				ID int64 `json:"id"`
			} `json:"chat"`
		} `json:"message"`
	} `json:"callback_query"`
}

// BotWebhook receives chat platform updates. Only callback queries carry
// work; every other update kind is acknowledged and dropped.
func BotWebhook(svc CallbackService, secret string, guard Guard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "callback service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		if !validSecret(r.Header.Get(botSecretHeader), secret) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook secret"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		var update botUpdate
		if err := json.Unmarshal(payload, &update); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode update"))
			return
		}

		if update.CallbackQuery == nil || update.CallbackQuery.Message == nil {
			responses.WriteSuccess(w, nil)
			return
		}

		updateKey := strconv.FormatInt(update.UpdateID, 10)
		alreadyProcessed, err := guard.CheckAndMark(ctx, updateKey)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, nil)
			return
		}

		input := bridge.CallbackInput{
			CallbackID: strings.TrimSpace(update.CallbackQuery.ID),
			Data:       update.CallbackQuery.Data,
			ChannelID:  update.CallbackQuery.Message.Chat.ID,
			MessageID:  update.CallbackQuery.Message.MessageID,
		}

		if err := svc.Handle(ctx, input); err != nil {
			_ = guard.Delete(ctx, updateKey)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("bot update %s processed", updateKey))
		}
		responses.WriteSuccess(w, nil)
	}
}

func validSecret(header, secret string) bool {
	if secret == "" || header == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(secret)) == 1
}
