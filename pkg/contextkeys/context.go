package contextkeys

// Custom key type to avoid context collisions.
type contextKey string

// UserIDContextKey holds the authenticated user's id in a request context.
const UserIDContextKey = contextKey("user_id")
