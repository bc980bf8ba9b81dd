package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang-analyst-gateway/internal/gateway/config"
	"golang-analyst-gateway/internal/gateway/dto"
	"golang-analyst-gateway/pkg/logger"
	"golang-analyst-gateway/pkg/telegram"
	"golang-analyst-gateway/pkg/utils"
)

// ChatGateway is the single entry point for conversational traffic. Every
// message passes the same boundary checks in a fixed order before it can
// reach the model: session block, rate limit, input validation.
type ChatGateway interface {
	ProcessMessage(ctx context.Context, req *dto.ChatRequest) *dto.ChatResponse
	ClearSession(sessionID string) bool
	SessionInfo(sessionID string) *dto.SessionInfoResponse
	SweepExpiredSessions() int
}

type chatGateway struct {
	cfg          *config.Config
	sessions     *SessionStore
	rateLimiter  *RateLimiter
	validator    InputValidator
	orchestrator *ConversationOrchestrator
	notifier     telegram.Notifier
	log          *logger.Logger
}

func NewChatGateway(
	cfg *config.Config,
	sessions *SessionStore,
	rateLimiter *RateLimiter,
	validator InputValidator,
	orchestrator *ConversationOrchestrator,
	notifier telegram.Notifier,
	log *logger.Logger,
) ChatGateway {
	return &chatGateway{
		cfg:          cfg,
		sessions:     sessions,
		rateLimiter:  rateLimiter,
		validator:    validator,
		orchestrator: orchestrator,
		notifier:     notifier,
		log:          log,
	}
}

// ProcessMessage never returns an error; every failure mode maps to a
// user-presentable response with a machine-readable error code.
func (g *chatGateway) ProcessMessage(ctx context.Context, req *dto.ChatRequest) *dto.ChatResponse {
	started := time.Now()
	session := g.sessions.GetOrCreate(req.SessionID)

	if session.IsBlocked(time.Now()) {
		remaining := time.Until(session.BlockedUntil)
		minutes := int(math.Ceil(remaining.Minutes()))
		g.log.Warn("Blocked session rejected",
			logger.StringField("session_id", session.SessionID),
			logger.IntField("remaining_minutes", minutes))
		return &dto.ChatResponse{
			Content:   fmt.Sprintf("세션이 일시적으로 차단되었습니다. %d분 후에 다시 시도해주세요.", minutes),
			ErrorCode: dto.ErrCodeSessionBlocked,
		}
	}

	allowed, remaining := g.rateLimiter.Allow(session.SessionID)
	if !allowed {
		g.log.Warn("Rate limit exceeded", logger.StringField("session_id", session.SessionID))
		return &dto.ChatResponse{
			Content:   "요청이 너무 많습니다. 잠시 후 다시 시도해주세요.",
			ErrorCode: dto.ErrCodeRateLimited,
		}
	}

	verdict := g.validator.Validate(req.Message)
	if !verdict.IsValid {
		return g.handleRejectedInput(session.SessionID, verdict)
	}

	resp, err := g.orchestrator.Process(ctx, session.SessionID, verdict.SanitizedInput, req)
	if err != nil {
		g.log.Error("Conversation turn failed",
			logger.StringField("session_id", session.SessionID),
			logger.ErrorField(err))
		return &dto.ChatResponse{
			Content:   "요청을 처리하는 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요.",
			ErrorCode: dto.ErrCodeProcessingError,
		}
	}

	if resp.Metadata == nil {
		resp.Metadata = map[string]interface{}{}
	}
	resp.Metadata["session_id"] = session.SessionID
	resp.Metadata["rate_limit_remaining"] = remaining
	resp.Metadata["elapsed_ms"] = time.Since(started).Milliseconds()
	return resp
}

// handleRejectedInput records a warning against the session and escalates
// to a temporary block when the warning budget is exhausted.
func (g *chatGateway) handleRejectedInput(sessionID string, verdict ValidationResult) *dto.ChatResponse {
	warnings, blocked := g.sessions.RecordWarning(sessionID, g.cfg.Gateway.MaxWarnings, g.cfg.Gateway.BlockDuration)

	g.log.Warn("Input rejected",
		logger.StringField("session_id", sessionID),
		logger.StringField("threat_level", verdict.ThreatLevel.String()),
		logger.IntField("warnings", warnings))

	if blocked {
		blockedUntil := time.Now().Add(g.cfg.Gateway.BlockDuration)
		go g.sendSecurityAlert(sessionID, warnings, blockedUntil)
		minutes := int(g.cfg.Gateway.BlockDuration.Minutes())
		return &dto.ChatResponse{
			Content:   fmt.Sprintf("보안 정책 위반이 반복되어 세션이 %d분간 차단되었습니다.", minutes),
			ErrorCode: dto.ErrCodeSessionBlockedSecurity,
		}
	}

	return &dto.ChatResponse{
		Content:   verdict.Message,
		ErrorCode: dto.ErrCodeInputRejected,
	}
}

func (g *chatGateway) sendSecurityAlert(sessionID string, warnings int, blockedUntil time.Time) {
	msg := telegram.FormatSecurityAlertMessage(utils.TimeNowKST(), sessionID, warnings, blockedUntil)
	if err := g.notifier.SendMessage(msg); err != nil {
		g.log.Error("Failed to send security alert", logger.ErrorField(err))
	}
}

func (g *chatGateway) ClearSession(sessionID string) bool {
	return g.sessions.Clear(sessionID)
}

func (g *chatGateway) SessionInfo(sessionID string) *dto.SessionInfoResponse {
	return g.sessions.Info(sessionID)
}

func (g *chatGateway) SweepExpiredSessions() int {
	return g.sessions.SweepExpired()
}
