// Package apperrors holds the sentinel errors shared across packages.
package apperrors

import "errors"

var (
	ErrKnowledgebaseNotFound = errors.New("knowledgebase not found")
	ErrUnknownProvider       = errors.New("unknown completion provider")
	ErrUnknownDialect        = errors.New("unknown datasource dialect")
	ErrQuestionEmpty         = errors.New("question is empty")
)
