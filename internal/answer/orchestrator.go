// Package answer sequences the question pipeline: detect jurisdictions,
// retrieve balanced evidence, draft an answer, then grade and refine it
// against the retrieved context.
package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/stardustx8/legalchat/internal/model"
	"github.com/stardustx8/legalchat/internal/resilience"
	"github.com/stardustx8/legalchat/pkg/llm"
)

// Refine parse policies. Failing is the default: serving an unverified legal
// answer is worse than a visible error the client can retry.
const (
	ParsePolicyFail     = "fail"
	ParsePolicyFallback = "fallback_to_draft"
)

const clarificationMessage = "Could not determine a country from your query. Please be more specific."

// Extractor turns free-form text into jurisdiction references.
type Extractor interface {
	Detect(ctx context.Context, text string) ([]model.JurisdictionRef, error)
}

// Retriever performs balanced retrieval and owns the dynamic k policy.
type Retriever interface {
	KFor(n int) int
	Retrieve(ctx context.Context, query string, codes []string, k int) ([]model.ScoredChunk, error)
}

// Options configures an Orchestrator. Zero values select the defaults.
type Options struct {
	DraftPrompt        string
	RefinePrompt       string
	MaxContextChars    int
	OnRefineParseError string
	Debug              bool
}

// Orchestrator drives one question through the full pipeline.
type Orchestrator struct {
	extractor Extractor
	retriever Retriever
	llm       llm.Client
	retry     resilience.Policy
	opts      Options
	log       *zap.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(extractor Extractor, retriever Retriever, client llm.Client, rp resilience.Policy, opts Options, log *zap.Logger) *Orchestrator {
	if opts.DraftPrompt == "" {
		opts.DraftPrompt = DefaultDraftPrompt
	}
	if opts.RefinePrompt == "" {
		opts.RefinePrompt = DefaultRefinePrompt
	}
	if opts.MaxContextChars == 0 {
		opts.MaxContextChars = 12000
	}
	if opts.OnRefineParseError == "" {
		opts.OnRefineParseError = ParsePolicyFail
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		extractor: extractor,
		retriever: retriever,
		llm:       client,
		retry:     rp,
		opts:      opts,
		log:       log,
	}
}

type draftEnvelope struct {
	Answer string `json:"answer"`
}

type refineEnvelope struct {
	Evaluation    json.RawMessage `json:"evaluation"`
	RefinedAnswer string          `json:"refined_answer"`
}

// Ask answers one question. Terminal short-circuits (no jurisdiction
// detected, no documents found) return a well-formed Answer, not an error;
// errors mean a pipeline stage genuinely failed.
func (o *Orchestrator) Ask(ctx context.Context, question string) (*model.Answer, error) {
	stageStart := time.Now()
	refs, err := o.extractor.Detect(ctx, question)
	if err != nil {
		return nil, eris.Wrap(err, "answer: country detection failed")
	}
	o.log.Info("stage complete",
		zap.String("stage", "detect"),
		zap.Duration("took", time.Since(stageStart)),
		zap.Strings("codes", model.Codes(refs)),
	)

	if len(refs) == 0 {
		return &model.Answer{RefinedAnswer: clarificationMessage}, nil
	}

	codes := model.Codes(refs)
	k := o.retriever.KFor(len(codes))

	stageStart = time.Now()
	chunks, err := o.retriever.Retrieve(ctx, question, codes, k)
	if err != nil {
		return nil, eris.Wrap(err, "answer: retrieval failed")
	}
	o.log.Info("stage complete",
		zap.String("stage", "retrieve"),
		zap.Duration("took", time.Since(stageStart)),
		zap.Int("k", k),
		zap.Int("chunks", len(chunks)),
	)

	found := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		found[c.ISOCode] = true
	}
	header := BuildHeader(codes, found)

	if len(chunks) == 0 {
		return &model.Answer{
			CountryHeader: header,
			RefinedAnswer: fmt.Sprintf(
				"No documents found for the specified countries: %s. Please try another query or check if the relevant legislation is available.",
				strings.Join(codes, ", ")),
		}, nil
	}

	contextText, truncated := buildContext(chunks, o.opts.MaxContextChars)
	if truncated {
		o.log.Warn("context truncated",
			zap.Int("max_chars", o.opts.MaxContextChars),
			zap.Int("chunks", len(chunks)),
		)
	}

	stageStart = time.Now()
	draft, err := o.draft(ctx, question, contextText)
	if err != nil {
		return nil, eris.Wrap(err, "answer: draft failed")
	}
	o.log.Info("stage complete",
		zap.String("stage", "draft"),
		zap.Duration("took", time.Since(stageStart)),
	)

	stageStart = time.Now()
	refined, evaluation, err := o.refine(ctx, question, contextText, header+draft, draft)
	if err != nil {
		return nil, eris.Wrap(err, "answer: refine failed")
	}
	o.log.Info("stage complete",
		zap.String("stage", "refine"),
		zap.Duration("took", time.Since(stageStart)),
	)

	out := &model.Answer{CountryHeader: header, RefinedAnswer: refined}
	if o.opts.Debug {
		out.Evaluation = evaluation
	}
	return out, nil
}

func (o *Orchestrator) draft(ctx context.Context, question, contextText string) (string, error) {
	policy := o.retry
	if policy.OnRetry == nil {
		policy.OnRetry = resilience.Logged(o.log, "llm", "draft_answer")
	}
	raw, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (string, error) {
		return o.llm.Complete(ctx, llm.CompleteRequest{
			System:   o.opts.DraftPrompt,
			User:     fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, question),
			JSONMode: true,
		})
	})
	if err != nil {
		return "", err
	}

	// The drafter is asked for {"answer": ...} but its output is graded
	// anyway, so a malformed envelope degrades to the raw text.
	var env draftEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.Answer == "" {
		o.log.Warn("draft envelope not parseable, using raw text")
		return strings.TrimSpace(raw), nil
	}
	return env.Answer, nil
}

// refine grades draftWithHeader against the context and returns the refined
// text. A response violating the JSON contract is handled per the configured
// parse policy.
func (o *Orchestrator) refine(ctx context.Context, question, contextText, draftWithHeader, draft string) (string, json.RawMessage, error) {
	policy := o.retry
	if policy.OnRetry == nil {
		policy.OnRetry = resilience.Logged(o.log, "llm", "refine_answer")
	}
	raw, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (string, error) {
		return o.llm.Complete(ctx, llm.CompleteRequest{
			System:   o.opts.RefinePrompt,
			User:     fmt.Sprintf("CONTEXT:\n%s\n\nQUESTION: %s\n\nDRAFT_ANSWER:\n%s", contextText, question, draftWithHeader),
			JSONMode: true,
		})
	})
	if err != nil {
		return "", nil, err
	}

	var env refineEnvelope
	parseErr := json.Unmarshal([]byte(raw), &env)
	if parseErr == nil && env.RefinedAnswer != "" {
		return env.RefinedAnswer, env.Evaluation, nil
	}

	if o.opts.OnRefineParseError == ParsePolicyFallback {
		o.log.Warn("refine output violated the JSON contract, falling back to draft",
			zap.Error(parseErr))
		evaluation, _ := json.Marshal(map[string]string{
			"error":      "refiner output was not valid JSON",
			"raw_output": raw,
		})
		return draft, evaluation, nil
	}

	if parseErr != nil {
		return "", nil, eris.Wrap(parseErr, "answer: refine output was not valid JSON")
	}
	return "", nil, eris.New("answer: refine output missing refined_answer")
}
