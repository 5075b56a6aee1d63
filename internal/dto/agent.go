package dto

type AgentDTO struct {
	AgentID      string   `json:"agentId"`
	Kind         string   `json:"kind"`
	Name         string   `json:"name"`
	Email        string   `json:"email,omitempty"`
	Role         string   `json:"role,omitempty"`
	Branches     []string `json:"branches,omitempty"`
	SystemPrompt string   `json:"systemPrompt,omitempty"`
	Active       bool     `json:"active"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	Agent        AgentDTO `json:"agent"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	Token string `json:"token"`
}

type CreateAgentRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Role     string   `json:"role,omitempty"`
	Branches []string `json:"branches,omitempty"`
}

type UpdateAgentRequest struct {
	Name     *string   `json:"name,omitempty"`
	Role     *string   `json:"role,omitempty"`
	Branches *[]string `json:"branches,omitempty"`
	Active   *bool     `json:"active,omitempty"`
}

type CreateAIAgentRequest struct {
	Name         string `json:"name"`
	SystemPrompt string `json:"systemPrompt"`
}

type UpdatePromptRequest struct {
	SystemPrompt string `json:"systemPrompt"`
}

type ListAgentsResponse struct {
	Agents []AgentDTO `json:"agents"`
}
