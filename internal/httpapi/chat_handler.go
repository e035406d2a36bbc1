package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"aicore/internal/dispatcher"
	"aicore/internal/middleware"
	"aicore/internal/models"
	"aicore/internal/providers"
	"aicore/internal/utils"
)

// ChatRequest is the body of POST /v1/chat
type ChatRequest struct {
	Message       string              `json:"message"`
	History       []providers.Message `json:"history,omitempty"`
	Module        string              `json:"module,omitempty"`
	OperationType string              `json:"operation_type,omitempty"`
	MaxTokens     *int                `json:"max_tokens,omitempty"`
	Temperature   *float64            `json:"temperature,omitempty"`
	ProviderType  models.ProviderType `json:"provider_type,omitempty"`
	UserID        *int64              `json:"user_id,omitempty"`
}

// displayCostPlaces is the precision of cost_display in chat responses
const displayCostPlaces = 6

// ChatResponse is the body of a successful POST /v1/chat
type ChatResponse struct {
	*dispatcher.Result
	CostDisplay decimal.Decimal `json:"cost_display"`
}

func (req *ChatRequest) validate() error {
	if strings.TrimSpace(req.Message) == "" {
		return errors.New("message is required")
	}
	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		return errors.New("max_tokens must be positive")
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		return errors.New("temperature must be between 0 and 2")
	}
	if req.ProviderType != "" && !req.ProviderType.IsValid() {
		return errors.New("unknown provider_type")
	}
	for _, m := range req.History {
		if m.Role == "" || m.Content == "" {
			return errors.New("history entries need role and content")
		}
	}
	return nil
}

func (d *Dependencies) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := utils.DecodeJSONBody(r, &req); err != nil {
		utils.RespondWithErrorCode(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.validate(); err != nil {
		utils.RespondWithErrorCode(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	opts := dispatcher.Options{
		ModuleName:    req.Module,
		OperationType: req.OperationType,
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		ProviderType:  req.ProviderType,
		UserID:        req.UserID,
		IPAddress:     r.RemoteAddr,
		UserAgent:     r.UserAgent(),
	}
	if claims, ok := middleware.GetClaims(r.Context()); ok {
		opts.CompanyID = claims.CompanyID
		if opts.ModuleName == "" {
			opts.ModuleName = claims.Subject
		}
	}

	result, err := d.Chat.Chat(r.Context(), req.Message, req.History, opts)
	if err != nil {
		d.respondChatError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, ChatResponse{
		Result:      result,
		CostDisplay: models.RoundCost(result.Cost, displayCostPlaces),
	})
}

// respondChatError maps dispatcher failures onto HTTP statuses
func (d *Dependencies) respondChatError(w http.ResponseWriter, err error) {
	var upstream *dispatcher.UpstreamError
	switch {
	case errors.Is(err, dispatcher.ErrAIDisabled):
		utils.RespondWithErrorCode(w, http.StatusServiceUnavailable, "ai_disabled", err.Error())
	case errors.Is(err, dispatcher.ErrNoAvailableModel):
		utils.RespondWithErrorCode(w, http.StatusServiceUnavailable, "no_available_model", err.Error())
	case errors.As(err, &upstream):
		status := http.StatusBadGateway
		switch upstream.Kind {
		case providers.KindRateLimited:
			status = http.StatusTooManyRequests
		case providers.KindTimeout:
			status = http.StatusGatewayTimeout
		}
		utils.RespondWithErrorCode(w, status, string(upstream.Kind), upstream.Error())
	default:
		d.Logger.Error("Chat request failed", "error", err.Error())
		utils.RespondWithErrorCode(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
