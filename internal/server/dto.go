package server

type RuleRequest struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	WindowMs int64  `json:"windowMs"`
	Limit    int64  `json:"limit"`
}

type RuleResponse struct {
	Key      string `json:"key"`
	Method   string `json:"method"`
	Path     string `json:"path"`
	WindowMs int64  `json:"windowMs"`
	Limit    int64  `json:"limit"`
}

type RulesResponse struct {
	Rules   []RuleResponse `json:"rules"`
	Version string         `json:"version,omitempty"`
}

type PeekResponse struct {
	Rule      RuleResponse `json:"rule"`
	Count     int64        `json:"count"`
	Remaining int64        `json:"remaining"`
	ResetInMs int64        `json:"resetInMs"`
}

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
