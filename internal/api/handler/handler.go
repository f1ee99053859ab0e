package handler

import "pairlab/backend/internal/chathub"

// Handler holds the services behind the HTTP API.
type Handler struct {
	Matcher   *chathub.MatcherService
	Lifecycle *chathub.LifecycleService
	Query     *chathub.QueryService
	Hub       *chathub.ManagerService
	JWTSecret []byte
}

func NewHandler(matcher *chathub.MatcherService, lifecycle *chathub.LifecycleService, query *chathub.QueryService, hub *chathub.ManagerService, jwtSecret string) *Handler {
	return &Handler{
		Matcher:   matcher,
		Lifecycle: lifecycle,
		Query:     query,
		Hub:       hub,
		JWTSecret: []byte(jwtSecret),
	}
}
