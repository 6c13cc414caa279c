package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback data identifiers used on inline buttons. These are the wire
// values; handlers never match on them directly, they go through ParseAction.
const (
	ActionDataDeepenNo        = "deepen_no"
	ActionDataMainMenu        = "main_menu"
	ActionDataNextSimilar     = "next_action_similar"
	ActionDataResolutionRetry = "resolution_retry"
	ActionDataResolutionSolve = "resolution_solve"

	actionPrefixTopic      = "topic_"
	actionPrefixDifficulty = "diff_"
)

// Action is a decoded button press. The raw prefix-encoded callback data is
// translated into one of these variants at the transport boundary so the
// state machine never pattern-matches on strings.
type Action interface {
	action()
}

// SelectTopic chooses the exercise topic.
type SelectTopic struct {
	Topic string
}

// SelectDifficulty chooses the exercise difficulty level (1-5).
type SelectDifficulty struct {
	Level int
}

// DeepenNo declines a follow-up on the last answered doubt.
type DeepenNo struct{}

// MainMenu returns to the main menu.
type MainMenu struct{}

// NextSimilar requests another exercise with the same topic and difficulty.
type NextSimilar struct{}

// ResolutionRetry asks for a new attempt at the current exercise.
type ResolutionRetry struct{}

// ResolutionSolve reveals the stored solution.
type ResolutionSolve struct{}

func (SelectTopic) action()      {}
func (SelectDifficulty) action() {}
func (DeepenNo) action()         {}
func (MainMenu) action()         {}
func (NextSimilar) action()      {}
func (ResolutionRetry) action()  {}
func (ResolutionSolve) action()  {}

// ParseAction decodes raw callback data into a typed Action.
func ParseAction(data string) (Action, error) {
	switch {
	case strings.HasPrefix(data, actionPrefixTopic):
		topic := strings.TrimPrefix(data, actionPrefixTopic)
		if topic == "" {
			return nil, fmt.Errorf("empty topic in callback data %q", data)
		}
		return SelectTopic{Topic: topic}, nil
	case strings.HasPrefix(data, actionPrefixDifficulty):
		raw := strings.TrimPrefix(data, actionPrefixDifficulty)
		level, err := strconv.Atoi(raw)
		if err != nil || level < 1 || level > 5 {
			return nil, fmt.Errorf("invalid difficulty in callback data %q", data)
		}
		return SelectDifficulty{Level: level}, nil
	}

	switch data {
	case ActionDataDeepenNo:
		return DeepenNo{}, nil
	case ActionDataMainMenu:
		return MainMenu{}, nil
	case ActionDataNextSimilar:
		return NextSimilar{}, nil
	case ActionDataResolutionRetry:
		return ResolutionRetry{}, nil
	case ActionDataResolutionSolve:
		return ResolutionSolve{}, nil
	}
	return nil, fmt.Errorf("unknown callback data %q", data)
}

// TopicActionData encodes a topic selection button payload.
func TopicActionData(topic string) string {
	return actionPrefixTopic + topic
}

// DifficultyActionData encodes a difficulty selection button payload.
func DifficultyActionData(level int) string {
	return actionPrefixDifficulty + strconv.Itoa(level)
}
