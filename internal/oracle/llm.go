package oracle

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/thinkwright/agent-trajectory/internal/loader"
	"github.com/thinkwright/agent-trajectory/internal/provider"
)

const tracerName = "github.com/thinkwright/agent-trajectory/internal/oracle"

const defaultTemperature = 0.1

const singleSystemPrompt = `You are a strict evaluator of conversational AI agents. You respond with a single JSON object and nothing else.`

const progressionSystemPrompt = `You are a strict longitudinal evaluator of one conversational AI agent. You respond with a single JSON object and nothing else.`

// LLMOracle asks a language model to judge conversations.
type LLMOracle struct {
	client      provider.LLMClient
	model       string
	temperature float64
	maxTokens   int
	tracer      trace.Tracer
	logger      *zap.Logger
}

// Option configures an LLMOracle.
type Option func(*LLMOracle)

// WithModel records the model name on spans and logs.
func WithModel(model string) Option {
	return func(o *LLMOracle) { o.model = model }
}

// WithTemperature overrides the sampling temperature (default 0.1).
func WithTemperature(t float64) Option {
	return func(o *LLMOracle) { o.temperature = t }
}

// WithMaxTokens caps the reply length. Zero leaves the client default.
func WithMaxTokens(n int) Option {
	return func(o *LLMOracle) { o.maxTokens = n }
}

// WithTracerProvider sets where oracle spans go. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *LLMOracle) { o.tracer = tp.Tracer(tracerName) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *LLMOracle) { o.logger = l }
}

// NewLLMOracle wraps client as an Oracle.
func NewLLMOracle(client provider.LLMClient, opts ...Option) *LLMOracle {
	o := &LLMOracle{
		client:      client,
		temperature: defaultTemperature,
		tracer:      otel.Tracer(tracerName),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// EvaluateSingle scores one conversation.
func (o *LLMOracle) EvaluateSingle(ctx context.Context, conversation loader.Conversation) (Evaluation, error) {
	ctx, span := o.tracer.Start(ctx, "oracle.evaluate_single", trace.WithAttributes(
		attribute.String("conversation.id", conversation.ConversationID),
		attribute.Int("conversation.turns", len(conversation.Turns)),
		attribute.String("oracle.model", o.model),
	))
	defer span.End()

	fail := func(err error) (Evaluation, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Evaluation{}, &FailureError{Op: OpEvaluateSingle, ConversationID: conversation.ConversationID, Err: err}
	}

	resp, err := o.complete(ctx, singleSystemPrompt, buildSinglePrompt(conversation))
	if err != nil {
		return fail(err)
	}
	span.SetAttributes(attribute.Int64("oracle.latency_ms", resp.LatencyMs))

	eval, err := DecodeEvaluation(resp.Text)
	if err != nil {
		return fail(err)
	}
	o.logger.Debug("single-shot evaluation",
		zap.String("conversation_id", conversation.ConversationID),
		zap.Int64("latency_ms", resp.LatencyMs))
	return eval, nil
}

// EvaluateProgression judges the whole sequence in one request.
func (o *LLMOracle) EvaluateProgression(ctx context.Context, conversations []loader.Conversation) (ProgressionEvaluation, error) {
	ctx, span := o.tracer.Start(ctx, "oracle.evaluate_progression", trace.WithAttributes(
		attribute.Int("conversation.count", len(conversations)),
		attribute.String("oracle.model", o.model),
	))
	defer span.End()

	fail := func(err error) (ProgressionEvaluation, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ProgressionEvaluation{}, &FailureError{Op: OpEvaluateProgression, Err: err}
	}

	resp, err := o.complete(ctx, progressionSystemPrompt, buildProgressionPrompt(conversations))
	if err != nil {
		return fail(err)
	}
	span.SetAttributes(attribute.Int64("oracle.latency_ms", resp.LatencyMs))

	prog, err := DecodeProgression(resp.Text)
	if err != nil {
		return fail(err)
	}
	span.SetAttributes(
		attribute.String("trajectory.label", string(prog.TrajectoryLabel)),
		attribute.Int("progression.entries", len(prog.PerConversation)),
	)
	o.logger.Debug("progression evaluation",
		zap.Int("count", len(conversations)),
		zap.String("label", string(prog.TrajectoryLabel)),
		zap.Int64("latency_ms", resp.LatencyMs))
	return prog, nil
}

func (o *LLMOracle) complete(ctx context.Context, system, user string) (provider.CompletionResponse, error) {
	resp, err := o.client.Complete(ctx, provider.CompletionRequest{
		SystemPrompt: system,
		UserPrompt:   user,
		Temperature:  o.temperature,
		MaxTokens:    o.maxTokens,
		JSONResponse: true,
	})
	if err != nil {
		return provider.CompletionResponse{}, err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return provider.CompletionResponse{}, fmt.Errorf("empty reply from model")
	}
	return resp, nil
}

func buildSinglePrompt(c loader.Conversation) string {
	var b strings.Builder
	b.WriteString("Score this single conversation.\n")
	b.WriteString("Return STRICT JSON with keys:\n")
	b.WriteString("helpfulness, correctness, proactivity, user_satisfaction, confidence, notes.\n")
	b.WriteString("Scores are 0-10 floats.\n\n")
	b.WriteString("Conversation transcript:\n")
	b.WriteString(c.Transcript())
	return b.String()
}

const progressionInstructions = `You are evaluating the SELF-IMPROVING NATURE of one agent across a sequence of conversations.
Important: this is a longitudinal ranking task.
Given ordered conversations from earliest to latest, decide whether the agent improves over time.

Return STRICT JSON with keys:
- overall_summary: string
- trajectory_label: one of ["improving", "flat", "declining", "mixed"]
- trajectory_confidence: float from 0 to 10
- per_conversation: array of objects with keys:
  - conversation_id: string
  - rank: integer (1 = weakest overall agent quality in the sequence, N = strongest)
  - overall_agent_quality: float 0-10
  - improvement_vs_previous: float in [-5, 5] (0 for the first conversation)
  - notes: short string explaining why this item is stronger/weaker
  - turn_dimension_scores: array with one item per turn in the same order as the transcript
    each turn item must contain:
      - turn_index: integer
      - role: string
      - content: string
      - helpfulness: {score, justification, error_flag?}
      - factual_accuracy: {score, justification, error_flag?}
      - instruction_following: {score, justification, error_flag?}
      - coherence: {score, justification, error_flag?}
      - depth_of_reasoning: {score, justification, error_flag?}
      - safety_awareness: {score, justification, error_flag?}
      - hallucination_likelihood: {score, justification, error_flag?} (0=low risk, 10=high risk)
      - specificity: {score, justification, error_flag?}`

// buildProgressionPrompt expects conversations already in timestamp order.
func buildProgressionPrompt(conversations []loader.Conversation) string {
	var b strings.Builder
	b.WriteString(progressionInstructions)
	b.WriteString("\n\nConversations (ordered by time):\n")
	for i, c := range conversations {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Conversation #%d | id=%s | timestamp=%s\n", i+1, c.ConversationID, loader.FormatTimestamp(c.Timestamp))
		b.WriteString(c.Transcript())
	}
	return b.String()
}
