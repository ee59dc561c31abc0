package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"receptionist/internal/observability/metrics"
	"receptionist/pkg/logging"
)

const (
	// DefaultMaxAttempts bounds retries of a single model turn.
	DefaultMaxAttempts = 3
	// DefaultMaxCycles caps model-turn/tool-execution rounds per message.
	// The model normally ends the turn on its own; the cap is a safety net
	// against tool-call loops.
	DefaultMaxCycles = 8
)

// Orchestrator drives the conversation loop: model turn, tool execution,
// observation feedback, repeat until the model replies without tool calls.
type Orchestrator struct {
	model       ModelClient
	tools       *Registry
	history     HistoryStore
	maxAttempts int
	maxCycles   int
	callTimeout time.Duration
	metrics     *metrics.ReceptionMetrics
	logger      *logging.Logger
	sleep       func(time.Duration)
	now         func() time.Time
}

// NewOrchestrator wires the loop. maxAttempts and maxCycles fall back to the
// package defaults when non-positive; callTimeout zero means no per-call
// deadline beyond the request context.
func NewOrchestrator(model ModelClient, tools *Registry, history HistoryStore,
	maxAttempts, maxCycles int, callTimeout time.Duration, logger *logging.Logger) *Orchestrator {
	if model == nil {
		panic("agent: model client cannot be nil")
	}
	if tools == nil {
		panic("agent: tool registry cannot be nil")
	}
	if history == nil {
		panic("agent: history store cannot be nil")
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if maxCycles <= 0 {
		maxCycles = DefaultMaxCycles
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		model:       model,
		tools:       tools,
		history:     history,
		maxAttempts: maxAttempts,
		maxCycles:   maxCycles,
		callTimeout: callTimeout,
		logger:      logger,
		sleep:       time.Sleep,
		now:         time.Now,
	}
}

// WithMetrics attaches prometheus instrumentation.
func (o *Orchestrator) WithMetrics(m *metrics.ReceptionMetrics) *Orchestrator {
	o.metrics = m
	return o
}

// WithSleep overrides the backoff sleep for tests.
func (o *Orchestrator) WithSleep(sleep func(time.Duration)) *Orchestrator {
	o.sleep = sleep
	return o
}

// WithClock overrides the clock for tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// StartConversation allocates a conversation ID with an empty transcript.
func (o *Orchestrator) StartConversation(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := o.history.Save(ctx, id, []Message{}); err != nil {
		return "", err
	}
	o.logger.Info("conversation started", "conversation_id", id)
	return id, nil
}

// HandleMessage appends the user message to the transcript and runs the loop
// until the model answers in plain text. The transcript is persisted on every
// exit path so a failed turn can be retried by resending the message.
func (o *Orchestrator) HandleMessage(ctx context.Context, sess Session, text string) (string, error) {
	history, err := o.history.Load(ctx, sess.ConversationID)
	if err != nil {
		return "", err
	}
	history = append(history, Message{Role: RoleUser, Text: text})

	system := systemPrompt(o.now())
	for cycle := 0; cycle < o.maxCycles; cycle++ {
		turn, err := o.callModel(ctx, system, history)
		if err != nil {
			if saveErr := o.history.Save(ctx, sess.ConversationID, history); saveErr != nil {
				o.logger.Error("transcript save failed after model failure", "error", saveErr, "conversation_id", sess.ConversationID)
			}
			return "", err
		}
		history = append(history, turn)

		if len(turn.ToolCalls) == 0 {
			if err := o.history.Save(ctx, sess.ConversationID, history); err != nil {
				o.logger.Error("transcript save failed", "error", err, "conversation_id", sess.ConversationID)
			}
			return turn.Text, nil
		}

		observations := Message{Role: RoleTool}
		for _, call := range turn.ToolCalls {
			o.logger.Info("executing tool", "tool", call.Name, "conversation_id", sess.ConversationID)
			o.metrics.ObserveTool(call.Name)
			observations.ToolResults = append(observations.ToolResults, o.tools.Execute(ctx, sess, call))
		}
		history = append(history, observations)
	}

	o.logger.Warn("orchestration cycle cap reached", "conversation_id", sess.ConversationID, "cycles", o.maxCycles)
	if err := o.history.Save(ctx, sess.ConversationID, history); err != nil {
		o.logger.Error("transcript save failed", "error", err, "conversation_id", sess.ConversationID)
	}
	return "", fmt.Errorf("agent: conversation exceeded %d orchestration cycles", o.maxCycles)
}

// callModel runs one model turn under the bounded retry. Backoff doubles per
// attempt (1s, 2s) and only the model call is retried; tool executions are
// never replayed.
func (o *Orchestrator) callModel(ctx context.Context, system string, history []Message) (Message, error) {
	var lastErr error
	for attempt := 0; attempt < o.maxAttempts; attempt++ {
		if attempt > 0 {
			o.sleep(time.Duration(1<<(attempt-1)) * time.Second)
		}

		callCtx := ctx
		cancel := func() {}
		if o.callTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, o.callTimeout)
		}
		started := time.Now()
		turn, err := o.model.Converse(callCtx, system, history)
		cancel()

		if err == nil {
			o.metrics.ObserveModelCall("success", time.Since(started).Seconds())
			return turn, nil
		}
		lastErr = err
		o.metrics.ObserveModelCall("error", time.Since(started).Seconds())
		o.logger.Warn("model call failed", "error", err, "attempt", attempt+1, "max_attempts", o.maxAttempts)
	}
	return Message{}, fmt.Errorf("%w after %d attempts: %v", ErrModelCallFailed, o.maxAttempts, lastErr)
}
