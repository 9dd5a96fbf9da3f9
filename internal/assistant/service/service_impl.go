package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/locafrota/fleetsla/internal/assistant/domain"
	"github.com/locafrota/fleetsla/internal/config"
	"github.com/locafrota/fleetsla/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// Ten messages a minute per user, with a small opening burst.
	chatRate  = 10.0 / 60.0
	chatBurst = 5

	// Completions are slow compared to the rest of the API.
	requestTimeout = 60 * time.Second

	// Older turns beyond this are dropped before the call.
	historyLimit = 20
)

const systemPrompt = `Você é o assistente virtual da LocaFrota, especializado em manutenção de frota e cálculo de SLA.

Regras de negócio:
- Dias úteis contam segunda a sexta, excluindo feriados informados, do dia de entrada ao dia de saída, inclusive.
- Prazos de SLA em dias úteis: preventiva 2, corretiva 3, preventiva + corretiva 5, motor 15.
- Cada dia útil excedente gera desconto de 1/30 da mensalidade do veículo.
- O valor final é a mensalidade menos o desconto, mais o custo das peças.

Responda em português do Brasil, de forma curta e objetiva. Quando a pergunta não for sobre manutenção de frota, SLA ou uso do sistema, oriente o usuário a procurar o administrador.`

type chatCompletionRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
}

type chatCompletion struct {
	Model   string `json:"model"`
	Choices []struct {
		Message domain.Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Cfg     config.Config
	Limiter ratelimit.Limiter
}

type service struct {
	log     *zap.Logger
	cfg     config.AssistantConfig
	client  *resty.Client
	limiter ratelimit.Limiter
}

func New(p Params) domain.Service {
	s := &service{
		log:     p.Log.Named("assistant.service"),
		cfg:     p.Cfg.Assistant,
		limiter: p.Limiter,
	}
	if s.cfg.Enabled() {
		s.client = resty.New().
			SetBaseURL(s.cfg.BaseURL).
			SetAuthToken(s.cfg.APIKey).
			SetTimeout(requestTimeout)
	} else {
		p.Log.Warn("assistant disabled, no api key configured")
	}
	return s
}

func (s *service) Enabled() bool {
	return s.client != nil
}

func (s *service) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatReply, error) {
	if !s.Enabled() {
		return nil, domain.ErrDisabled
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" || req.UserID == 0 {
		return nil, domain.ErrMissingFields
	}
	for _, turn := range req.History {
		if !domain.ValidHistoryRole(turn.Role) {
			return nil, domain.ErrInvalidRole
		}
	}

	if err := s.throttle(ctx, req.UserID.String()); err != nil {
		return nil, err
	}

	history := req.History
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	messages := make([]domain.Message, 0, len(history)+2)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: prompt})

	var completion chatCompletion
	var upstreamErr apiError
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(chatCompletionRequest{
			Model:       s.cfg.Model,
			Messages:    messages,
			Temperature: 0.2,
		}).
		SetResult(&completion).
		SetError(&upstreamErr).
		Post("/chat/completions")
	if err != nil {
		s.log.Error("chat completion call failed", zap.Error(err))
		return nil, domain.ErrUpstream
	}
	if resp.IsError() {
		s.log.Error("chat completion rejected",
			zap.Int("status", resp.StatusCode()),
			zap.String("type", upstreamErr.Error.Type),
			zap.String("message", upstreamErr.Error.Message),
		)
		return nil, domain.ErrUpstream
	}

	if len(completion.Choices) == 0 {
		s.log.Error("chat completion returned no choices")
		return nil, domain.ErrUpstream
	}
	reply := strings.TrimSpace(completion.Choices[0].Message.Content)
	if reply == "" {
		s.log.Error("chat completion returned an empty message")
		return nil, domain.ErrUpstream
	}

	s.log.Info("chat completion",
		zap.String("user_id", req.UserID.String()),
		zap.Int("turns", len(messages)),
		zap.Int("total_tokens", completion.Usage.TotalTokens),
	)

	return &domain.ChatReply{
		Reply: reply,
		Model: completion.Model,
	}, nil
}

// throttle enforces the per-user message budget. Limiter backend errors
// degrade to allowing the call.
func (s *service) throttle(ctx context.Context, userID string) error {
	res, err := s.limiter.Allow(ctx, "fleetsla:assistant:"+userID, chatRate, chatBurst)
	if err != nil {
		s.log.Warn("rate limiter unavailable", zap.Error(err))
		return nil
	}
	if !res.Allowed {
		return &domain.RateLimitedError{RetryAfter: res.RetryAfter}
	}
	return nil
}
