// Package pipeline orchestrates a question through the semantic cache,
// model selection, generation, validation, the exact-match cache, and
// execution, with a single bounded recovery attempt on execution
// failure.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sqlsage/sqlsage/internal/cache"
	"github.com/sqlsage/sqlsage/internal/classify"
	"github.com/sqlsage/sqlsage/internal/errors"
	"github.com/sqlsage/sqlsage/internal/exec"
	"github.com/sqlsage/sqlsage/internal/history"
	"github.com/sqlsage/sqlsage/internal/llm"
	"github.com/sqlsage/sqlsage/internal/logging"
	"github.com/sqlsage/sqlsage/internal/observability"
	"github.com/sqlsage/sqlsage/internal/schema"
	"github.com/sqlsage/sqlsage/internal/validate"
)

// Cache hit classifications reported in results
const (
	CacheHitNone     = "none"
	CacheHitSQL      = "sql"
	CacheHitSemantic = "semantic"
)

const maxCandidateTables = 8

// QueryError describes why a run failed
type QueryError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the outcome of one pipeline run
type Result struct {
	ID           string        `json:"id"`
	Question     string        `json:"question"`
	Success      bool          `json:"success"`
	SQL          string        `json:"sql,omitempty"`
	Columns      []string      `json:"columns,omitempty"`
	Rows         [][]any       `json:"rows,omitempty"`
	Model        string        `json:"model,omitempty"`
	CacheHitType string        `json:"cache_hit_type"`
	Recovered    bool          `json:"recovered,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
	Error        *QueryError   `json:"error,omitempty"`
}

// RowCount returns the number of result rows
func (r *Result) RowCount() int {
	return len(r.Rows)
}

// resultPayload is the cached representation of a successful run
type resultPayload struct {
	SQL     string   `json:"sql"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Model   string   `json:"model"`
}

// Pipeline wires the stages together. All collaborators are injected
type Pipeline struct {
	generator llm.Service
	validator *validate.Validator
	executor  exec.Executor
	registry  *schema.Registry
	sqlCache  *cache.SQLCache
	semantic  *cache.SemanticCache
	selector  *classify.Selector
	history   history.Sink
	logger    *logging.Logger

	recoveryEnabled bool
}

// Options configures a pipeline. Generator, Executor, Registry and
// Selector are required; caches and history may be nil to disable them
type Options struct {
	Generator       llm.Service
	Executor        exec.Executor
	Registry        *schema.Registry
	Selector        *classify.Selector
	SQLCache        *cache.SQLCache
	Semantic        *cache.SemanticCache
	History         history.Sink
	RecoveryEnabled bool
}

// New creates a pipeline
func New(opts Options) *Pipeline {
	sink := opts.History
	if sink == nil {
		sink = history.NoopSink{}
	}

	return &Pipeline{
		generator:       opts.Generator,
		validator:       validate.New(),
		executor:        opts.Executor,
		registry:        opts.Registry,
		sqlCache:        opts.SQLCache,
		semantic:        opts.Semantic,
		selector:        opts.Selector,
		history:         sink,
		logger:          logging.GetLogger().WithField("component", "pipeline"),
		recoveryEnabled: opts.RecoveryEnabled,
	}
}

// Run answers one question end to end
func (p *Pipeline) Run(ctx context.Context, question string) (*Result, error) {
	return p.run(ctx, question, func(Event) {})
}

func (p *Pipeline) run(ctx context.Context, question string, emit func(Event)) (*Result, error) {
	start := time.Now()
	id := uuid.New().String()

	emit(Event{Stage: StageStart, Message: "Starting"})

	// Semantic lookup first: a close-enough past question skips
	// generation and execution entirely
	emit(Event{Stage: StageSemanticLookup, Message: "Checking semantic cache"})

	if p.semantic != nil {
		if entry, similarity, ok := p.semantic.Lookup(ctx, question); ok {
			p.logger.Infof("Semantic cache hit (similarity %.3f)", similarity)

			result := p.resultFromPayload(id, question, entry.Payload, CacheHitSemantic, start)
			p.finish(ctx, result, emit)

			return result, nil
		}
	}

	snap, err := p.registry.Snapshot(ctx)
	if err != nil {
		result := p.failure(id, question, start, string(errors.GetType(err)), "schema unavailable: "+err.Error())
		p.finish(ctx, result, emit)

		return result, nil
	}

	model, tier := p.selector.ModelFor(question)
	schemaPrompt := schema.CompactPromptFor(snap, schema.CandidateTables(snap, question, maxCandidateTables))

	emit(Event{Stage: StageGenerate, Message: "Generating SQL", Detail: model})
	p.logger.Debugf("Classified question as %s, using model %s", tier, model)

	observability.IncrementLLMCall(p.generator.Name(), model)

	resp, err := p.generator.Generate(ctx, llm.Request{
		Question: question,
		Schema:   schemaPrompt,
		Model:    model,
	})
	if err != nil {
		result := p.failure(id, question, start, string(errors.GetType(err)), "generation failed: "+err.Error())
		p.finish(ctx, result, emit)

		return result, nil
	}

	emit(Event{Stage: StageValidate, Message: "Validating SQL", Detail: resp.SQL})

	// Policy rejections are terminal: a statement the validator refuses
	// is never sent back for repair
	if verdict := p.validator.Validate(resp.SQL, snap); !verdict.Valid {
		observability.IncrementValidationRejection(string(verdict.Reason))

		result := p.failure(id, question, start, string(verdict.Reason), verdict.Message)
		result.SQL = resp.SQL
		result.Model = resp.Model
		p.finish(ctx, result, emit)

		return result, nil
	}

	// Exact-match lookup on the normalized statement
	emit(Event{Stage: StageCacheLookup, Message: "Checking result cache"})

	if p.sqlCache != nil {
		if payload, err := p.sqlCache.Get(ctx, resp.SQL); err == nil {
			p.logger.Infof("Result cache hit for generated statement")

			result := p.resultFromPayload(id, question, payload, CacheHitSQL, start)

			// The question that led here is new even though the statement
			// is not; store it so similar phrasings hit earlier next time
			if result.Success && p.semantic != nil {
				p.semantic.Store(ctx, question, result.SQL, payload)
				observability.SetCacheEntries("semantic", p.semantic.Len())
			}

			p.finish(ctx, result, emit)

			return result, nil
		}
	}

	emit(Event{Stage: StageExecute, Message: "Executing"})

	execResult, execErr := p.executor.Execute(ctx, resp.SQL)
	sqlText := resp.SQL
	recovered := false

	if execErr != nil {
		repaired, repairedSQL, repairErr := p.tryRecover(ctx, question, schemaPrompt, model, snap, resp.SQL, execErr, emit)
		if repairErr != nil {
			result := p.failure(id, question, start, classifyExecutionError(execErr), execErr.Error())
			result.SQL = sqlText
			result.Model = resp.Model
			p.finish(ctx, result, emit)

			return result, nil
		}

		execResult = repaired
		sqlText = repairedSQL
		recovered = true
	}

	result := &Result{
		ID:           id,
		Question:     question,
		Success:      true,
		SQL:          sqlText,
		Columns:      execResult.Columns,
		Rows:         execResult.Rows,
		Model:        resp.Model,
		CacheHitType: CacheHitNone,
		Recovered:    recovered,
		Elapsed:      time.Since(start),
	}

	p.populateCaches(ctx, question, result)
	p.finish(ctx, result, emit)

	return result, nil
}

// tryRecover makes at most one repair attempt. Policy rejections,
// timeouts and infrastructure failures are never repaired
func (p *Pipeline) tryRecover(
	ctx context.Context,
	question, schemaPrompt, model string,
	snap *schema.Snapshot,
	failingSQL string,
	execErr error,
	emit func(Event),
) (*exec.Result, string, error) {
	if !p.recoveryEnabled || !isRecoverable(execErr) {
		return nil, "", execErr
	}

	emit(Event{Stage: StageRecover, Message: "Attempting recovery", Detail: execErr.Error()})
	p.logger.Warnf("Execution failed, attempting recovery: %v", execErr)

	observability.IncrementLLMCall(p.generator.Name(), model)

	resp, err := p.generator.Generate(ctx, llm.Request{
		Question: question,
		Schema:   schemaPrompt,
		Model:    model,
		Repair: &llm.RepairContext{
			FailingSQL:   failingSQL,
			ErrorMessage: execErr.Error(),
		},
	})
	if err != nil {
		observability.IncrementRecoveryAttempt("generation_failed")
		return nil, "", execErr
	}

	if verdict := p.validator.Validate(resp.SQL, snap); !verdict.Valid {
		observability.IncrementValidationRejection(string(verdict.Reason))
		observability.IncrementRecoveryAttempt("rejected")

		return nil, "", execErr
	}

	result, err := p.executor.Execute(ctx, resp.SQL)
	if err != nil {
		observability.IncrementRecoveryAttempt("failed")
		return nil, "", execErr
	}

	observability.IncrementRecoveryAttempt("success")

	return result, resp.SQL, nil
}

func (p *Pipeline) populateCaches(ctx context.Context, question string, result *Result) {
	payload, err := json.Marshal(resultPayload{
		SQL:     result.SQL,
		Columns: result.Columns,
		Rows:    result.Rows,
		Model:   result.Model,
	})
	if err != nil {
		p.logger.Warnf("Failed to encode cache payload: %v", err)
		return
	}

	if p.sqlCache != nil {
		if err := p.sqlCache.Set(ctx, result.SQL, payload); err != nil {
			p.logger.Warnf("Failed to populate result cache: %v", err)
		}
	}

	if p.semantic != nil {
		p.semantic.Store(ctx, question, result.SQL, payload)
		observability.SetCacheEntries("semantic", p.semantic.Len())
	}
}

func (p *Pipeline) resultFromPayload(id, question string, payload []byte, hitType string, start time.Time) *Result {
	var stored resultPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		p.logger.Warnf("Discarding undecodable cache payload: %v", err)

		return p.failure(id, question, start, string(errors.ErrTypeInternal), "cached result could not be decoded")
	}

	return &Result{
		ID:           id,
		Question:     question,
		Success:      true,
		SQL:          stored.SQL,
		Columns:      stored.Columns,
		Rows:         stored.Rows,
		Model:        stored.Model,
		CacheHitType: hitType,
		Elapsed:      time.Since(start),
	}
}

func (p *Pipeline) failure(id, question string, start time.Time, code, message string) *Result {
	return &Result{
		ID:           id,
		Question:     question,
		Success:      false,
		CacheHitType: CacheHitNone,
		Elapsed:      time.Since(start),
		Error:        &QueryError{Code: code, Message: message},
	}
}

// finish records metrics and history and emits the terminal event
func (p *Pipeline) finish(ctx context.Context, result *Result, emit func(Event)) {
	outcome := "success"
	errorCode := ""

	if !result.Success {
		outcome = "failure"
		errorCode = result.Error.Code
	}

	observability.ObserveQuery(outcome, result.CacheHitType, result.Elapsed)

	entry := history.Entry{
		ID:           result.ID,
		Question:     result.Question,
		SQL:          result.SQL,
		Success:      result.Success,
		ErrorCode:    errorCode,
		CacheHitType: result.CacheHitType,
		Model:        result.Model,
		RowCount:     result.RowCount(),
		ElapsedMS:    result.Elapsed.Milliseconds(),
	}

	if err := p.history.Record(ctx, entry); err != nil {
		p.logger.Warnf("Failed to record history: %v", err)
	}

	emit(Event{Stage: StageDone, Message: "Done", Result: result})
}
