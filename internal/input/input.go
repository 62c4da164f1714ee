// Package input validates caller-supplied values before they reach the
// engine. Every failure is a BadInput error.
package input

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	apperr "goal-planner/internal/errors"
)

const (
	MaxTitleLength = 200
	MinMinutes     = 5
	MaxMinutes     = 480
)

// ID normalizes s as a UUID.
func ID(resource, s string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", apperr.BadInput(resource, s, apperr.New("id must be a UUID"))
	}
	return id.String(), nil
}

// IDs applies ID to each element.
func IDs(resource string, values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		id, err := ID(resource, v)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// Title trims s and checks it is 1 to MaxTitleLength characters.
func Title(resource, s string) (string, error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n == 0 || n > MaxTitleLength {
		return "", apperr.BadInput(resource, s, fmt.Errorf("title must be 1-%d characters", MaxTitleLength))
	}
	return s, nil
}

// Minutes checks an estimate lies within MinMinutes and MaxMinutes.
func Minutes(resource string, m int) error {
	if m < MinMinutes || m > MaxMinutes {
		return apperr.BadInput(resource, fmt.Sprint(m), fmt.Errorf("minutes must be %d-%d", MinMinutes, MaxMinutes))
	}
	return nil
}

// Date checks s is a YYYY-MM-DD calendar date.
func Date(s string) (string, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return "", apperr.BadInput("date", s, apperr.New("date must be YYYY-MM-DD"))
	}
	return s, nil
}

// Clock checks s is an HH:MM time of day.
func Clock(s string) (string, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse("15:04", s); err != nil {
		return "", apperr.BadInput("time", s, apperr.New("time must be HH:MM"))
	}
	return s, nil
}
