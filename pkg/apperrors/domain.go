package apperrors

import (
	"net/http"
)

// Factories for wrapping repository errors.

// ErrNotFound converts a repository miss (gorm.ErrRecordNotFound and friends)
// into a 404 AppError.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// --- Auth ---

var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"auth",
	"Email already in use",
	http.StatusConflict,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrUserNotFound = New(
	CodeNotFound,
	"user",
	"User not found",
	http.StatusNotFound,
)

// --- Chat ---

var ErrChatNotFound = New(
	CodeNotFound,
	"chat",
	"Chat not found",
	http.StatusNotFound,
)

var ErrNotParticipant = New(
	CodeNotFound,
	"chat",
	"User is not a participant of this chat",
	http.StatusNotFound,
)

var ErrNotGroupChat = New(
	CodeNotFound,
	"chat",
	"Chat is not a group",
	http.StatusNotFound,
)

var ErrMessageNotFound = New(
	CodeNotFound,
	"chat",
	"Message not found",
	http.StatusNotFound,
)

// Admins may only be removed by themselves.
var ErrCannotRemoveAdmin = New(
	CodeForbidden,
	"chat",
	"Cannot remove another admin",
	http.StatusForbidden,
)

// Defense-in-depth: unreachable while ErrCannotRemoveAdmin holds.
var ErrCannotRemoveLastAdmin = New(
	CodeForbidden,
	"chat",
	"Cannot remove the last admin",
	http.StatusForbidden,
)

var ErrAdminRequired = New(
	CodeForbidden,
	"chat",
	"Only group admins may perform this action",
	http.StatusForbidden,
)

var ErrMemberAddRestricted = New(
	CodeForbidden,
	"chat",
	"Only admins can add members to this group",
	http.StatusForbidden,
)

var ErrChatEditRestricted = New(
	CodeForbidden,
	"chat",
	"Only admins can change this group's info",
	http.StatusForbidden,
)

var ErrSendRestricted = New(
	CodeForbidden,
	"chat",
	"Only admins can send messages in this group",
	http.StatusForbidden,
)

var ErrCannotDeleteMessage = New(
	CodeForbidden,
	"chat",
	"You do not have permission to delete this message",
	http.StatusForbidden,
)

var ErrSoleAdminDemotion = New(
	CodeConflict,
	"chat",
	"Cannot demote the only admin of the group",
	http.StatusConflict,
)

// --- Polls ---

var ErrPollNotFound = New(
	CodeNotFound,
	"poll",
	"Poll not found",
	http.StatusNotFound,
)

var ErrPollOptionNotFound = New(
	CodeNotFound,
	"poll",
	"Poll option does not belong to this poll",
	http.StatusNotFound,
)

var ErrPollNeedsOptions = New(
	CodeValidationFailed,
	"poll",
	"A poll requires at least two options",
	http.StatusBadRequest,
)
