package handlers

// AppHandlers groups every HTTP handler for route registration.
type AppHandlers struct {
	Auth *AuthHandler
	User *UserHandler
	Chat *ChatHandler
	Poll *PollHandler
	WS   *WSHandler
}
