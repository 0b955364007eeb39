package service

import (
	"pollhub/internal/models"
	"pollhub/internal/repository"
)

var (
	// ErrInvalidCredentials is returned when the username/password pair does not match.
	ErrInvalidCredentials = models.NewUnauthorizedError("invalid username or password")
	// ErrNoSelection is returned when a vote names no choice of the question.
	ErrNoSelection = models.NewValidationError("no choice selected")
	// ErrAlreadyVoted is returned when the voter is already in the question's voter set.
	ErrAlreadyVoted = repository.ErrAlreadyVoted
	// ErrChoiceNotFound is returned when the choice belongs to another question.
	ErrChoiceNotFound = repository.ErrChoiceNotFound
)
