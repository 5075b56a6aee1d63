package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"support-bridge-backend/internal/database"
	internaljwt "support-bridge-backend/internal/jwt"
	"support-bridge-backend/internal/model"
)

const defaultAIAgentName = "Asistente"

// defaultSystemPrompt seeds the first AI agent so a fresh deployment can
// answer customers before anyone edits the prompt.
const defaultSystemPrompt = `Eres un asistente de atención al cliente por WhatsApp.
Responde en español, de forma breve y amable.
Si no puedes resolver la consulta, indica al cliente que puedes transferirlo con un asesor.`

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeConflict     ErrorCode = "conflict"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

type CreateHumanParams struct {
	Name     string
	Email    string
	Password string
	Role     string
	Branches []string
}

type UpdateHumanParams struct {
	Name     *string
	Role     *string
	Branches *[]string
	Active   *bool
}

type LoginResult struct {
	Agent  model.AgentItem
	Tokens internaljwt.TokenResponse
}

var createTokenWithRefresh = internaljwt.CreateTokenWithRefresh

func SetTokenIssuer(issuer func(internaljwt.User, internaljwt.Role, int64) (internaljwt.TokenResponse, error)) {
	if issuer == nil {
		createTokenWithRefresh = internaljwt.CreateTokenWithRefresh
		return
	}
	createTokenWithRefresh = issuer
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func New(db *database.Database) *Service {
	return NewWithRepository(NewDynamoRepository(db), time.Now)
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo: repo,
		now:  now,
	}
}

func (s *Service) CreateHuman(ctx context.Context, params CreateHumanParams) (model.AgentItem, error) {
	name := strings.TrimSpace(params.Name)
	email := normalizeEmail(params.Email)
	password := strings.TrimSpace(params.Password)

	if name == "" || email == "" || password == "" {
		return model.AgentItem{}, newError(ErrorCodeValidation, "missing required fields", nil)
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return model.AgentItem{}, newError(ErrorCodeConflict, "agent email already registered", nil)
	} else if !errors.Is(err, ErrNotFound) {
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to check agent email", err)
	}

	hash, err := internaljwt.HashPassword(password)
	if err != nil {
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to hash password", err)
	}

	role := params.Role
	if role == "" {
		role = "agent"
	}

	now := s.now().UTC().Format(time.RFC3339)
	agent := model.AgentItem{
		AgentID:      uuid.NewString(),
		Kind:         model.AgentKindHuman,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Branches:     params.Branches,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, agent); err != nil {
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to create agent", err)
	}
	return agent, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, newError(ErrorCodeValidation, "missing credentials", nil)
	}

	agent, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", err)
		}
		return LoginResult{}, newError(ErrorCodeInternal, "failed to load agent", err)
	}

	if agent.Kind != model.AgentKindHuman || !agent.Active {
		return LoginResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", nil)
	}
	if !internaljwt.ValidatePassword(agent.PasswordHash, password) {
		return LoginResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", nil)
	}

	tokens, err := createTokenWithRefresh(internaljwt.User{
		Id:    agent.AgentID,
		Email: agent.Email,
	}, internaljwt.RoleAgent, 0)
	if err != nil {
		return LoginResult{}, newError(ErrorCodeInternal, "failed to issue tokens", err)
	}

	return LoginResult{
		Agent:  agent,
		Tokens: tokens,
	}, nil
}

func (s *Service) Get(ctx context.Context, agentID string) (model.AgentItem, error) {
	if agentID == "" {
		return model.AgentItem{}, newError(ErrorCodeValidation, "missing agent id", nil)
	}
	agent, err := s.repo.Get(ctx, agentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.AgentItem{}, newError(ErrorCodeNotFound, "agent not found", err)
		}
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to load agent", err)
	}
	return agent, nil
}

func (s *Service) List(ctx context.Context, kind model.AgentKind) ([]model.AgentItem, error) {
	agents, err := s.repo.List(ctx, kind)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list agents", err)
	}
	return agents, nil
}

func (s *Service) UpdateHuman(ctx context.Context, agentID string, params UpdateHumanParams) (model.AgentItem, error) {
	agent, err := s.Get(ctx, agentID)
	if err != nil {
		return model.AgentItem{}, err
	}
	if agent.Kind != model.AgentKindHuman {
		return model.AgentItem{}, newError(ErrorCodeValidation, "agent is not a human agent", nil)
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return model.AgentItem{}, newError(ErrorCodeValidation, "missing agent name", nil)
		}
		agent.Name = name
	}
	if params.Role != nil {
		agent.Role = *params.Role
	}
	if params.Branches != nil {
		agent.Branches = *params.Branches
	}
	if params.Active != nil {
		agent.Active = *params.Active
	}
	agent.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	if err := s.repo.Update(ctx, agent); err != nil {
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to update agent", err)
	}
	return agent, nil
}

func (s *Service) CreateAI(ctx context.Context, name, systemPrompt string) (model.AgentItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.AgentItem{}, newError(ErrorCodeValidation, "missing agent name", nil)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return model.AgentItem{}, newError(ErrorCodeValidation, "missing system prompt", nil)
	}

	now := s.now().UTC().Format(time.RFC3339)
	agent := model.AgentItem{
		AgentID:      uuid.NewString(),
		Kind:         model.AgentKindAI,
		Name:         name,
		SystemPrompt: systemPrompt,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, agent); err != nil {
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to create agent", err)
	}
	return agent, nil
}

func (s *Service) UpdatePrompt(ctx context.Context, agentID, systemPrompt string) (model.AgentItem, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return model.AgentItem{}, newError(ErrorCodeValidation, "missing system prompt", nil)
	}

	agent, err := s.Get(ctx, agentID)
	if err != nil {
		return model.AgentItem{}, err
	}
	if agent.Kind != model.AgentKindAI {
		return model.AgentItem{}, newError(ErrorCodeValidation, "agent is not an ai agent", nil)
	}

	agent.SystemPrompt = systemPrompt
	agent.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	if err := s.repo.Update(ctx, agent); err != nil {
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to update agent", err)
	}
	return agent, nil
}

func (s *Service) SetActive(ctx context.Context, agentID string, active bool) (model.AgentItem, error) {
	agent, err := s.Get(ctx, agentID)
	if err != nil {
		return model.AgentItem{}, err
	}

	agent.Active = active
	agent.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	if err := s.repo.Update(ctx, agent); err != nil {
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to update agent", err)
	}
	return agent, nil
}

// ActiveAIAgent returns any active AI agent; the webhook pipeline calls this
// when no agent is pinned to the conversation. The prompt is read fresh each
// time so edits apply to the next message.
func (s *Service) ActiveAIAgent(ctx context.Context) (model.AgentItem, error) {
	agents, err := s.repo.List(ctx, model.AgentKindAI)
	if err != nil {
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to list ai agents", err)
	}

	for _, agent := range agents {
		if agent.Active {
			return agent, nil
		}
	}
	return model.AgentItem{}, newError(ErrorCodeNotFound, "no active ai agent", nil)
}

// EnsureDefaultAIAgent creates the seed AI agent on first boot. Safe to call
// on every startup.
func (s *Service) EnsureDefaultAIAgent(ctx context.Context) (model.AgentItem, error) {
	agents, err := s.repo.List(ctx, model.AgentKindAI)
	if err != nil {
		return model.AgentItem{}, newError(ErrorCodeInternal, "failed to list ai agents", err)
	}
	if len(agents) > 0 {
		return agents[0], nil
	}
	return s.CreateAI(ctx, defaultAIAgentName, defaultSystemPrompt)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
