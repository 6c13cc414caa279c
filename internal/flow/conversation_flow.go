// Package flow implements the conversation state machine that routes
// commands, free text and button presses to the tutoring handlers.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/calcmentor/CalcMentor/internal/exercise"
	"github.com/calcmentor/CalcMentor/internal/genai"
	"github.com/calcmentor/CalcMentor/internal/messaging"
	"github.com/calcmentor/CalcMentor/internal/models"
	"github.com/calcmentor/CalcMentor/internal/store"
)

// DefaultAITimeout bounds each AI call so a slow provider fails the single
// event instead of hanging the user's handler forever.
const DefaultAITimeout = 60 * time.Second

// ConversationFlow drives one user event through load state, transition,
// side effects and a single save at the end.
type ConversationFlow struct {
	store     store.Store
	provider  genai.Provider
	exercises *exercise.Service
	msg       messaging.Service
	aiTimeout time.Duration
}

// Option configures a ConversationFlow.
type Option func(*ConversationFlow)

// WithAITimeout overrides the per-call AI deadline. Non-positive values
// keep the default.
func WithAITimeout(d time.Duration) Option {
	return func(f *ConversationFlow) {
		if d > 0 {
			f.aiTimeout = d
		}
	}
}

// NewConversationFlow creates the state machine over the given store,
// provider and messaging service.
func NewConversationFlow(st store.Store, provider genai.Provider, msg messaging.Service, opts ...Option) *ConversationFlow {
	f := &ConversationFlow{
		store:     st,
		provider:  provider,
		exercises: exercise.NewService(provider),
		msg:       msg,
		aiTimeout: DefaultAITimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// HandleEvent processes one inbound event for one user. State is loaded
// once, the transition runs, and the updated record is saved once at the
// end; handlers that leave state untouched skip the save.
func (f *ConversationFlow) HandleEvent(ctx context.Context, event models.Event) error {
	userID := event.From

	state, err := f.store.GetConversationState(userID)
	if err != nil {
		return fmt.Errorf("failed to load conversation state: %w", err)
	}
	if state == nil {
		fresh := models.NewConversationState(userID)
		state = &fresh
	}

	var changed bool
	switch event.Kind {
	case models.EventKindCommand:
		changed, err = f.handleCommand(ctx, state, event.Command)
	case models.EventKindText:
		changed, err = f.handleText(ctx, state, event.Body)
	case models.EventKindButton:
		changed, err = f.handleButton(ctx, state, event.ActionData)
	default:
		slog.Debug("ConversationFlow ignoring event kind", "kind", event.Kind, "user", userID)
		return nil
	}
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	state.UpdatedAt = time.Now()
	if err := f.store.SaveConversationState(*state); err != nil {
		return fmt.Errorf("failed to save conversation state: %w", err)
	}
	return nil
}

// handleCommand dispatches slash commands. Unknown commands are ignored.
func (f *ConversationFlow) handleCommand(ctx context.Context, state *models.ConversationState, command string) (bool, error) {
	slog.Debug("ConversationFlow handling command", "command", command, "user", state.UserID, "mode", state.Mode)

	switch command {
	case "start":
		*state = models.NewConversationState(state.UserID)
		return true, f.msg.SendMessage(ctx, state.UserID, msgWelcome)

	case "asesoria":
		state.Mode = models.ModeAwaitingDoubt
		return true, f.msg.SendMessage(ctx, state.UserID, msgAskDoubt)

	case "ejemplo":
		state.Mode = models.ModeAwaitingExampleTopic
		return true, f.msg.SendMessage(ctx, state.UserID, msgAskExampleTopic)

	case "prueba":
		state.Mode = models.ModeAwaitingExerciseTopic
		buttons := make([]models.Button, 0, len(exerciseTopics))
		for _, topic := range exerciseTopics {
			buttons = append(buttons, models.Button{Label: topic, Data: models.TopicActionData(topic)})
		}
		return true, f.msg.SendMessageWithButtons(ctx, state.UserID, msgChooseTopic, buttons)

	case "dudas":
		state.Mode = models.ModeAwaitingNotebookQuestion
		return true, f.msg.SendMessage(ctx, state.UserID, msgAskNotebook)

	case "encuesta":
		if err := f.msg.SendMessage(ctx, state.UserID, msgSurvey); err != nil {
			return false, err
		}
		f.recordInteraction(models.InteractionSurveyLink, state.UserID, map[string]string{"link": surveyLink})
		return false, nil

	default:
		slog.Debug("ConversationFlow ignoring unknown command", "command", command, "user", state.UserID)
		return false, nil
	}
}

// handleText dispatches free text according to the current mode. Modes
// that don't accept free text ignore it without touching state or the AI.
func (f *ConversationFlow) handleText(ctx context.Context, state *models.ConversationState, text string) (bool, error) {
	slog.Debug("ConversationFlow handling text", "user", state.UserID, "mode", state.Mode, "text_length", len(text))

	switch state.Mode {
	case models.ModeAwaitingNotebookQuestion:
		return f.answerNotebookQuestion(ctx, state, text)
	case models.ModeAwaitingDoubt:
		return f.answerDoubt(ctx, state, text)
	case models.ModeAwaitingDeepenTopic:
		return f.answerDeepen(ctx, state, text)
	case models.ModeAwaitingExampleTopic:
		return f.answerExample(ctx, state, text)
	case models.ModeAwaitingExerciseAnswer:
		return f.verifyAnswer(ctx, state, text)
	default:
		slog.Debug("ConversationFlow ignoring free text in mode", "user", state.UserID, "mode", state.Mode)
		return false, nil
	}
}

func (f *ConversationFlow) answerNotebookQuestion(ctx context.Context, state *models.ConversationState, question string) (bool, error) {
	answer, ok, err := f.generateText(ctx, state.UserID, notebookPrompt(question))
	if !ok {
		return false, err
	}
	if err := messaging.SendLong(ctx, f.msg, state.UserID, answer); err != nil {
		return false, err
	}
	f.recordInteraction(models.InteractionNotebookQuestion, state.UserID, map[string]string{
		"pregunta":  question,
		"respuesta": answer,
	})
	// Mode stays put so follow-up questions keep working.
	return false, f.msg.SendMessageWithButtons(ctx, state.UserID, msgNotebookMore, mainMenuButtons())
}

func (f *ConversationFlow) answerDoubt(ctx context.Context, state *models.ConversationState, text string) (bool, error) {
	doubt, level, depth, ok := parseDoubt(text)
	if !ok {
		return false, f.msg.SendMessage(ctx, state.UserID, msgDoubtFormat)
	}

	answer, ok, err := f.generateText(ctx, state.UserID, doubtPrompt(doubt, depth))
	if !ok {
		return false, err
	}
	if err := messaging.SendLong(ctx, f.msg, state.UserID, answer); err != nil {
		return false, err
	}
	f.recordInteraction(models.InteractionDoubt, state.UserID, map[string]string{
		"query":      doubt,
		"difficulty": level,
		"response":   answer,
	})

	state.Mode = models.ModeAwaitingDeepenTopic
	state.LastTopic = doubt
	return true, f.msg.SendMessageWithButtons(ctx, state.UserID, msgDeepenMore, deepenButtons())
}

func (f *ConversationFlow) answerDeepen(ctx context.Context, state *models.ConversationState, text string) (bool, error) {
	topicContext := state.LastTopic
	if topicContext == "" {
		topicContext = "Cálculo Diferencial"
	}

	answer, ok, err := f.generateText(ctx, state.UserID, deepenPrompt(text, topicContext))
	if !ok {
		return false, err
	}
	if err := messaging.SendLong(ctx, f.msg, state.UserID, answer); err != nil {
		return false, err
	}
	f.recordInteraction(models.InteractionDeepen, state.UserID, map[string]string{
		"original": state.LastTopic,
		"deepen":   text,
		"response": answer,
	})
	// Mode stays in deepen so the user can keep drilling down.
	return false, f.msg.SendMessageWithButtons(ctx, state.UserID, msgDeepenMore, deepenButtons())
}

func (f *ConversationFlow) answerExample(ctx context.Context, state *models.ConversationState, topic string) (bool, error) {
	answer, ok, err := f.generateText(ctx, state.UserID, examplePrompt(topic))
	if !ok {
		return false, err
	}
	if err := messaging.SendLong(ctx, f.msg, state.UserID, answer); err != nil {
		return false, err
	}
	f.recordInteraction(models.InteractionExample, state.UserID, map[string]string{
		"topic":    topic,
		"response": answer,
	})

	state.Mode = models.ModeIdle
	return true, f.msg.SendMessageWithButtons(ctx, state.UserID, msgExampleDone, mainMenuButtons())
}

func (f *ConversationFlow) verifyAnswer(ctx context.Context, state *models.ConversationState, answer string) (bool, error) {
	if state.CurrentExercise == nil {
		slog.Warn("ConversationFlow answer mode without exercise, resetting", "user", state.UserID)
		state.Mode = models.ModeIdle
		return true, nil
	}

	_ = f.msg.SendTyping(ctx, state.UserID)
	aiCtx, cancel := context.WithTimeout(ctx, f.aiTimeout)
	defer cancel()

	v, err := f.exercises.Verify(aiCtx, state.CurrentExercise, answer)
	if err != nil {
		slog.Error("ConversationFlow answer verification failed", "user", state.UserID, "error", err)
		return false, f.msg.SendMessage(ctx, state.UserID, genai.UserSafeMessage(err))
	}
	if err := messaging.SendLong(ctx, f.msg, state.UserID, v.Feedback); err != nil {
		return false, err
	}

	ex := state.CurrentExercise
	f.recordInteraction(models.InteractionVerification, state.UserID, map[string]string{
		"topic":        ex.Topic,
		"difficulty":   strconv.Itoa(ex.Difficulty),
		"problem":      ex.Problem,
		"solution":     ex.Solution,
		"user_answer":  answer,
		"verification": v.Feedback,
	})

	if v.Correct {
		state.Mode = models.ModeAwaitingNextAction
		buttons := []models.Button{
			{Label: btnSimilarExercise, Data: models.ActionDataNextSimilar},
			{Label: btnBackToMainMenu, Data: models.ActionDataMainMenu},
		}
		return true, f.msg.SendMessageWithButtons(ctx, state.UserID, msgNextAction, buttons)
	}

	state.Mode = models.ModeAwaitingExerciseResolution
	buttons := []models.Button{
		{Label: btnRetry, Data: models.ActionDataResolutionRetry},
		{Label: btnShowSolution, Data: models.ActionDataResolutionSolve},
	}
	return true, f.msg.SendMessageWithButtons(ctx, state.UserID, msgResolution, buttons)
}

// handleButton decodes the action identifier and applies it. Malformed
// identifiers are logged and ignored.
func (f *ConversationFlow) handleButton(ctx context.Context, state *models.ConversationState, data string) (bool, error) {
	action, err := models.ParseAction(data)
	if err != nil {
		slog.Warn("ConversationFlow ignoring malformed action", "user", state.UserID, "data", data, "error", err)
		return false, nil
	}
	slog.Debug("ConversationFlow handling action", "user", state.UserID, "mode", state.Mode, "action", fmt.Sprintf("%T", action))

	switch a := action.(type) {
	case models.SelectTopic:
		state.Mode = models.ModeAwaitingExerciseDifficulty
		state.CurrentExercise = &models.Exercise{Topic: a.Topic}
		buttons := make([]models.Button, 0, 5)
		for i := 1; i <= 5; i++ {
			buttons = append(buttons, models.Button{Label: strconv.Itoa(i), Data: models.DifficultyActionData(i)})
		}
		return true, f.msg.SendMessageWithButtons(ctx, state.UserID, msgChooseDifficulty(a.Topic), buttons)

	case models.SelectDifficulty:
		if state.CurrentExercise == nil {
			slog.Warn("ConversationFlow difficulty selected without topic", "user", state.UserID)
			return false, nil
		}
		state.CurrentExercise.Difficulty = a.Level
		if err := f.msg.SendMessage(ctx, state.UserID, msgGenerating(state.CurrentExercise.Topic, a.Level)); err != nil {
			return false, err
		}
		return f.generateExercise(ctx, state)

	case models.DeepenNo, models.MainMenu:
		state.Mode = models.ModeIdle
		state.LastTopic = ""
		return true, f.msg.SendMessage(ctx, state.UserID, msgBackToMenu)

	case models.NextSimilar:
		if state.CurrentExercise == nil {
			slog.Warn("ConversationFlow similar exercise requested without exercise", "user", state.UserID)
			return false, nil
		}
		if err := f.msg.SendMessage(ctx, state.UserID, msgGeneratingNext); err != nil {
			return false, err
		}
		return f.generateExercise(ctx, state)

	case models.ResolutionRetry:
		state.Mode = models.ModeAwaitingExerciseAnswer
		return true, f.msg.SendMessage(ctx, state.UserID, msgRetryAnswer)

	case models.ResolutionSolve:
		state.Mode = models.ModeIdle
		solution := msgSolutionMissing
		if state.CurrentExercise != nil && state.CurrentExercise.Solution != "" {
			solution = state.CurrentExercise.Solution
		}
		return true, messaging.SendLongWithButtons(ctx, f.msg, state.UserID, msgSolution(solution), mainMenuButtons())

	default:
		return false, nil
	}
}

// generateExercise runs the structured generation for the topic and
// difficulty already staged in state. On failure the user is told to retry
// and mode is committed back to idle so the conversation never sticks in
// the answer state without a problem.
func (f *ConversationFlow) generateExercise(ctx context.Context, state *models.ConversationState) (bool, error) {
	_ = f.msg.SendTyping(ctx, state.UserID)
	aiCtx, cancel := context.WithTimeout(ctx, f.aiTimeout)
	defer cancel()

	ex, err := f.exercises.Generate(aiCtx, state.CurrentExercise.Topic, state.CurrentExercise.Difficulty)
	if err != nil {
		slog.Error("ConversationFlow exercise generation failed", "user", state.UserID, "topic", state.CurrentExercise.Topic, "error", err)
		state.Mode = models.ModeIdle
		return true, f.msg.SendMessage(ctx, state.UserID, msgGenerateFailed)
	}

	state.CurrentExercise = ex
	state.Mode = models.ModeAwaitingExerciseAnswer
	return true, messaging.SendLong(ctx, f.msg, state.UserID, msgExerciseReady(ex.Problem))
}

// generateText runs a plain prompt through the provider with the typing
// indicator and timeout applied. ok is false when generation failed; in
// that case the user already got the apology and err carries only
// delivery failures.
func (f *ConversationFlow) generateText(ctx context.Context, userID, prompt string) (string, bool, error) {
	_ = f.msg.SendTyping(ctx, userID)
	aiCtx, cancel := context.WithTimeout(ctx, f.aiTimeout)
	defer cancel()

	resp, err := f.provider.Generate(aiCtx, genai.Request{Prompt: prompt})
	if err != nil {
		slog.Error("ConversationFlow generation failed", "user", userID, "error", err)
		return "", false, f.msg.SendMessage(ctx, userID, genai.UserSafeMessage(err))
	}
	return resp.Text, true, nil
}

// recordInteraction appends a telemetry record. Telemetry failures never
// fail the user's event.
func (f *ConversationFlow) recordInteraction(kind string, userID string, data map[string]string) {
	interaction := models.NewInteraction(kind, userID, data)
	if err := f.store.AddInteraction(interaction); err != nil {
		slog.Warn("ConversationFlow failed to record interaction", "type", kind, "user", userID, "error", err)
	}
}

func mainMenuButtons() []models.Button {
	return []models.Button{{Label: btnMainMenu, Data: models.ActionDataMainMenu}}
}

func deepenButtons() []models.Button {
	return []models.Button{{Label: btnNoThanks, Data: models.ActionDataDeepenNo}}
}
