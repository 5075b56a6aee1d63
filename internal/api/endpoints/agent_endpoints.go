package endpoints

import (
	"support-bridge-backend/internal/api"
	"support-bridge-backend/internal/dto"
	internaljwt "support-bridge-backend/internal/jwt"
	"support-bridge-backend/internal/model"
	agentservice "support-bridge-backend/internal/service/agent"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type AgentEndpoints interface {
	Login(http.ResponseWriter, *http.Request) error
	Refresh(http.ResponseWriter, *http.Request) error
	Me(http.ResponseWriter, *http.Request) error
	Agents(http.ResponseWriter, *http.Request) error
	AgentResource(http.ResponseWriter, *http.Request) error
}

type AgentPaths struct {
	AgentsPath  string
	AgentPrefix string
}

type agentEndpoints struct {
	service *agentservice.Service
	paths   AgentPaths
}

func NewAgentEndpoints(service *agentservice.Service, prefix string) AgentEndpoints {
	base := strings.TrimRight(prefix, "/")
	return &agentEndpoints{
		service: service,
		paths: AgentPaths{
			AgentsPath:  base + "/agents",
			AgentPrefix: base + "/agents/",
		},
	}
}

func (h *agentEndpoints) Login(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleLogin,
	})
}

func (h *agentEndpoints) Refresh(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleRefresh,
	})
}

func (h *agentEndpoints) Me(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleMe,
	})
}

func (h *agentEndpoints) Agents(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleListAgents,
		http.MethodPost: h.handleCreateAgent,
	})
}

// AgentResource dispatches /agents/{id} and its subresources. The reserved id
// "ai" addresses the assistant profile.
func (h *agentEndpoints) AgentResource(w http.ResponseWriter, r *http.Request) error {
	parts, err := h.resourceParts(r.URL.Path)
	if err != nil {
		return err
	}

	if len(parts) == 1 {
		if parts[0] == "ai" {
			return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
				http.MethodGet:  h.handleGetAIAgent,
				http.MethodPost: h.handleCreateAIAgent,
			})
		}
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet:   h.handleGetAgent,
			http.MethodPatch: h.handleUpdateAgent,
		})
	}

	switch parts[1] {
	case "prompt":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPut: h.handleUpdatePrompt,
		})
	default:
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Not found",
			ErrorLog:   fmt.Errorf("unknown agent action: %s", parts[1]),
		}
	}
}

func (h *agentEndpoints) handleLogin(w http.ResponseWriter, r *http.Request) error {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode login request: %w", err),
		}
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return h.serviceError(err)
	}

	return api.WriteJSON(w, http.StatusOK, dto.LoginResponse{
		Token:        result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		Agent:        toAgentDTO(result.Agent),
	})
}

func (h *agentEndpoints) handleRefresh(w http.ResponseWriter, r *http.Request) error {
	var req dto.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode refresh request: %w", err),
		}
	}

	token, err := internaljwt.RefreshToken(req.RefreshToken, internaljwt.RoleAgent)
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Invalid refresh token",
			ErrorLog:   fmt.Errorf("refresh token: %w", err),
		}
	}

	return api.WriteJSON(w, http.StatusOK, dto.RefreshResponse{Token: token})
}

func (h *agentEndpoints) handleMe(w http.ResponseWriter, r *http.Request) error {
	token := ExtractTokenFromHeaders(r)
	if token == "" {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("missing authorization header"),
		}
	}

	claims, err := internaljwt.ParseToken(token, internaljwt.RoleAgent)
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("parse token: %w", err),
		}
	}

	agentID, _ := claims["id"].(string)
	agent, err := h.service.Get(r.Context(), agentID)
	if err != nil {
		return h.serviceError(err)
	}

	return api.WriteJSON(w, http.StatusOK, toAgentDTO(agent))
}

func (h *agentEndpoints) handleListAgents(w http.ResponseWriter, r *http.Request) error {
	kind := model.AgentKind(strings.TrimSpace(r.URL.Query().Get("kind")))

	agents, err := h.service.List(r.Context(), kind)
	if err != nil {
		return h.serviceError(err)
	}

	resp := dto.ListAgentsResponse{Agents: make([]dto.AgentDTO, len(agents))}
	for i, agent := range agents {
		resp.Agents[i] = toAgentDTO(agent)
	}

	return api.WriteJSON(w, http.StatusOK, resp)
}

func (h *agentEndpoints) handleCreateAgent(w http.ResponseWriter, r *http.Request) error {
	var req dto.CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode create agent request: %w", err),
		}
	}

	agent, err := h.service.CreateHuman(r.Context(), agentservice.CreateHumanParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Branches: req.Branches,
	})
	if err != nil {
		return h.serviceError(err)
	}

	return api.WriteJSON(w, http.StatusCreated, toAgentDTO(agent))
}

func (h *agentEndpoints) handleGetAgent(w http.ResponseWriter, r *http.Request) error {
	agentID, err := h.agentID(r.URL.Path)
	if err != nil {
		return err
	}

	agent, err := h.service.Get(r.Context(), agentID)
	if err != nil {
		return h.serviceError(err)
	}

	return api.WriteJSON(w, http.StatusOK, toAgentDTO(agent))
}

func (h *agentEndpoints) handleUpdateAgent(w http.ResponseWriter, r *http.Request) error {
	agentID, err := h.agentID(r.URL.Path)
	if err != nil {
		return err
	}

	var req dto.UpdateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode update agent request: %w", err),
		}
	}

	if req.Active != nil && req.Name == nil && req.Role == nil && req.Branches == nil {
		agent, err := h.service.SetActive(r.Context(), agentID, *req.Active)
		if err != nil {
			return h.serviceError(err)
		}
		return api.WriteJSON(w, http.StatusOK, toAgentDTO(agent))
	}

	agent, err := h.service.UpdateHuman(r.Context(), agentID, agentservice.UpdateHumanParams{
		Name:     req.Name,
		Role:     req.Role,
		Branches: req.Branches,
		Active:   req.Active,
	})
	if err != nil {
		return h.serviceError(err)
	}

	return api.WriteJSON(w, http.StatusOK, toAgentDTO(agent))
}

func (h *agentEndpoints) handleGetAIAgent(w http.ResponseWriter, r *http.Request) error {
	agent, err := h.service.ActiveAIAgent(r.Context())
	if err != nil {
		return h.serviceError(err)
	}

	return api.WriteJSON(w, http.StatusOK, toAgentDTO(agent))
}

func (h *agentEndpoints) handleCreateAIAgent(w http.ResponseWriter, r *http.Request) error {
	var req dto.CreateAIAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode create ai agent request: %w", err),
		}
	}

	agent, err := h.service.CreateAI(r.Context(), req.Name, req.SystemPrompt)
	if err != nil {
		return h.serviceError(err)
	}

	return api.WriteJSON(w, http.StatusCreated, toAgentDTO(agent))
}

func (h *agentEndpoints) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) error {
	agentID, err := h.agentID(r.URL.Path)
	if err != nil {
		return err
	}

	var req dto.UpdatePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode prompt request: %w", err),
		}
	}

	agent, err := h.service.UpdatePrompt(r.Context(), agentID, req.SystemPrompt)
	if err != nil {
		return h.serviceError(err)
	}

	return api.WriteJSON(w, http.StatusOK, toAgentDTO(agent))
}

func (h *agentEndpoints) agentID(path string) (string, error) {
	parts, err := h.resourceParts(path)
	if err != nil {
		return "", err
	}
	return parts[0], nil
}

func (h *agentEndpoints) resourceParts(path string) ([]string, error) {
	prefix := h.paths.AgentPrefix
	if prefix == "" {
		return nil, &HTTPError{StatusCode: http.StatusNotFound, Message: "Agent not found", ErrorLog: fmt.Errorf("agent route not configured")}
	}
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		return nil, &HTTPError{StatusCode: http.StatusNotFound, Message: "Agent not found", ErrorLog: fmt.Errorf("agent path mismatch: %s", path)}
	}
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return nil, &HTTPError{StatusCode: http.StatusNotFound, Message: "Agent not found", ErrorLog: fmt.Errorf("agent id missing: %s", path)}
	}
	return parts, nil
}

func (h *agentEndpoints) serviceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*agentservice.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("agent service: %w", err),
		}
	}

	var logErr error
	if svcErr.Err != nil {
		logErr = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		logErr = svcErr
	}

	switch svcErr.Code {
	case agentservice.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: logErr}
	case agentservice.ErrorCodeUnauthorized:
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: svcErr.Message, ErrorLog: logErr}
	case agentservice.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: logErr}
	case agentservice.ErrorCodeConflict:
		return &HTTPError{StatusCode: http.StatusConflict, Message: svcErr.Message, ErrorLog: logErr}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: logErr}
	}
}

func toAgentDTO(item model.AgentItem) dto.AgentDTO {
	return dto.AgentDTO{
		AgentID:      item.AgentID,
		Kind:         string(item.Kind),
		Name:         item.Name,
		Email:        item.Email,
		Role:         item.Role,
		Branches:     item.Branches,
		SystemPrompt: item.SystemPrompt,
		Active:       item.Active,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}
