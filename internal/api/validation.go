package api

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	symptomMinLen = 3
	symptomMaxLen = 500
	contextMinLen = 10
	contextMaxLen = 2000
)

var (
	javascriptScheme = regexp.MustCompile(`(?i)javascript:`)
	inlineHandler    = regexp.MustCompile(`(?i)on\w+=`)
)

// sanitize removes angle brackets, javascript: schemes and inline event
// handler attributes, then trims.
func sanitize(s string) string {
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	s = javascriptScheme.ReplaceAllString(s, "")
	s = inlineHandler.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

type validationError struct {
	code string
	msg  string
}

func (e *validationError) Error() string { return e.msg }

func validateSymptom(s string) *validationError {
	n := utf8.RuneCountInString(s)
	switch {
	case n == 0:
		return &validationError{CodeEmptyInput, "Symptom cannot be empty"}
	case n < symptomMinLen:
		return &validationError{CodeInputTooShort, fmt.Sprintf("Symptom must be at least %d characters", symptomMinLen)}
	case n > symptomMaxLen:
		return &validationError{CodeInputTooLong, fmt.Sprintf("Symptom must not exceed %d characters", symptomMaxLen)}
	}
	return nil
}

func validateContext(s string) *validationError {
	n := utf8.RuneCountInString(s)
	switch {
	case n < contextMinLen:
		return &validationError{CodeContextTooShort, "Context is too short. Please provide more details"}
	case n > contextMaxLen:
		return &validationError{CodeContextTooLong, "Context is too long. Please be more concise"}
	}
	return nil
}
