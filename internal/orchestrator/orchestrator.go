// Package orchestrator drives a question through the pipeline stages and
// records progress on the session. Stages run synchronously in order; a
// failure stops the run, marks the session failed with the failing stage and
// reason, and keeps every result produced so far.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/talk2data/talk2data/internal/model"
	"github.com/talk2data/talk2data/internal/session"
	"github.com/talk2data/talk2data/internal/sqlgen"
	"github.com/talk2data/talk2data/internal/warehouse"
)

// Retriever resolves a question to a metadata bundle.
type Retriever interface {
	Retrieve(ctx context.Context, question string) (*model.Bundle, error)
}

// Generator produces a grounded SQL statement.
type Generator interface {
	Generate(ctx context.Context, question string, bundle *model.Bundle) (*model.Statement, error)
}

// Summarizer narrates a result set.
type Summarizer interface {
	Summarize(ctx context.Context, question string, rs *model.RowSet) string
}

// Recommender picks a visualization for a result set.
type Recommender interface {
	Recommend(ctx context.Context, question string, rs *model.RowSet) *model.Visualization
}

// Orchestrator owns the end-to-end pipeline for one deployment.
type Orchestrator struct {
	retriever   Retriever
	generator   Generator
	executor    warehouse.Executor
	summarizer  Summarizer
	recommender Recommender
	sessions    *session.Store
	logger      *slog.Logger
}

// New wires an Orchestrator.
func New(r Retriever, g Generator, e warehouse.Executor, s Summarizer, v Recommender, store *session.Store, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		retriever:   r,
		generator:   g,
		executor:    e,
		summarizer:  s,
		recommender: v,
		sessions:    store,
		logger:      logger,
	}
}

// Sessions exposes the session store for the read-side API.
func (o *Orchestrator) Sessions() *session.Store { return o.sessions }

// Ask runs the pipeline for a question and returns the finished session.
// The returned session is always terminal: completed, or failed with the
// stage and reason recorded. Errors never escape; they are session data.
func (o *Orchestrator) Ask(ctx context.Context, question string, flags model.Flags) *model.Session {
	sess := o.sessions.Create(question, flags)
	log := o.logger.With("session_id", sess.ID)
	log.Info("session started", "question", question,
		"execute", flags.Execute, "summary", flags.IncludeSummary, "viz", flags.IncludeVisualization)

	bundle, err := o.retriever.Retrieve(ctx, question)
	if err != nil {
		return o.fail(sess, model.StageMetadataRetrieved, err, log)
	}
	sess.Bundle = bundle
	o.advance(sess, model.StageMetadataRetrieved)
	log.Debug("metadata retrieved", "tables", len(bundle.Tables), "joins", len(bundle.Joins))

	stmt, err := o.generator.Generate(ctx, question, bundle)
	if err != nil {
		return o.fail(sess, model.StageSQLGenerated, err, log)
	}
	sess.Statement = stmt
	o.advance(sess, model.StageSQLGenerated)

	if !flags.Execute {
		// Dry run: the generated SQL is the deliverable.
		o.advance(sess, model.StageCompleted)
		log.Info("session completed", "dry_run", true)
		return sess
	}

	rs, err := o.executor.Query(ctx, stmt.SQL)
	if err != nil {
		return o.fail(sess, model.StageExecuted, err, log)
	}
	sess.RowSet = rs
	o.advance(sess, model.StageExecuted)
	log.Debug("query executed", "rows", rs.RowCount(), "truncated", rs.Truncated)

	// Summarize and visualize share the stored row set; neither re-executes
	// and neither can fail the session.
	if flags.IncludeSummary {
		sess.Summary = o.summarizer.Summarize(ctx, question, rs)
		o.advance(sess, model.StageSummarized)
	}
	if flags.IncludeVisualization {
		sess.Visualization = o.recommender.Recommend(ctx, question, rs)
		o.advance(sess, model.StageVisualized)
	}

	o.advance(sess, model.StageCompleted)
	log.Info("session completed", "rows", rs.RowCount())
	return sess
}

func (o *Orchestrator) advance(sess *model.Session, stage model.Stage) {
	sess.Stage = stage
	o.sessions.Put(sess)
}

func (o *Orchestrator) fail(sess *model.Session, stage model.Stage, err error, log *slog.Logger) *model.Session {
	sess.Stage = model.StageFailed
	sess.Err = &model.StageError{Stage: stage, Reason: reasonFor(err)}
	var ge *sqlgen.GenerationError
	if errors.As(err, &ge) {
		// Keep the rejected SQL so the caller can see what was wrong with it.
		sess.Err.Statement = ge.Statement
	}
	o.sessions.Put(sess)
	log.Warn("session failed", "stage", string(stage), "reason", sess.Err.Reason)
	return sess
}

// reasonFor maps pipeline errors to caller-facing reasons. Engine and model
// messages are preserved; internal wrapping is not.
func reasonFor(err error) string {
	var ee *warehouse.ExecutionError
	if errors.As(err, &ee) {
		return ee.Msg
	}
	var ge *sqlgen.GenerationError
	if errors.As(err, &ge) {
		return ge.Reason
	}
	return err.Error()
}
