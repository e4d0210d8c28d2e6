package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/talk2data/talk2data/internal/metadata"
	"github.com/talk2data/talk2data/internal/model"
	"github.com/talk2data/talk2data/internal/session"
	"github.com/talk2data/talk2data/internal/sqlgen"
	"github.com/talk2data/talk2data/internal/warehouse"
)

type fakeRetriever struct {
	bundle *model.Bundle
	err    error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, q string) (*model.Bundle, error) {
	return f.bundle, f.err
}

type fakeGenerator struct {
	stmt *model.Statement
	err  error
}

func (f *fakeGenerator) Generate(ctx context.Context, q string, b *model.Bundle) (*model.Statement, error) {
	return f.stmt, f.err
}

type fakeExecutor struct {
	rs     *model.RowSet
	err    error
	gotSQL string
}

func (f *fakeExecutor) Query(ctx context.Context, sql string) (*model.RowSet, error) {
	f.gotSQL = sql
	return f.rs, f.err
}
func (f *fakeExecutor) Ping(ctx context.Context) error { return nil }
func (f *fakeExecutor) Close() error                   { return nil }

type fakeSummarizer struct{ out string }

func (f *fakeSummarizer) Summarize(ctx context.Context, q string, rs *model.RowSet) string {
	return f.out
}

type fakeRecommender struct{ v *model.Visualization }

func (f *fakeRecommender) Recommend(ctx context.Context, q string, rs *model.RowSet) *model.Visualization {
	return f.v
}

func testBundle() *model.Bundle {
	return &model.Bundle{Tables: []model.Table{{Name: "call_facts"}}}
}

func testRowSet() *model.RowSet {
	return model.BuildRowSet([]string{"calls"}, []model.Row{{"calls": int64(3)}}, 0)
}

func newOrchestrator(r Retriever, g Generator, e warehouse.Executor) *Orchestrator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(r, g, e,
		&fakeSummarizer{out: "three calls"},
		&fakeRecommender{v: &model.Visualization{Chart: model.ChartBar}},
		session.NewStore(), logger)
}

func TestAskFullPipeline(t *testing.T) {
	const sql = "SELECT COUNT(*) FROM data-proj.telephony.call_facts"
	exec := &fakeExecutor{rs: testRowSet()}
	o := newOrchestrator(
		&fakeRetriever{bundle: testBundle()},
		&fakeGenerator{stmt: &model.Statement{SQL: sql}},
		exec,
	)

	sess := o.Ask(context.Background(), "how many calls", model.DefaultFlags())
	if !sess.Succeeded() {
		t.Fatalf("session = %+v", sess)
	}
	if sess.Summary != "three calls" {
		t.Errorf("summary = %q", sess.Summary)
	}
	if sess.Visualization == nil || sess.Visualization.Chart != model.ChartBar {
		t.Errorf("viz = %+v", sess.Visualization)
	}
	// The warehouse runs exactly what the session stores: no rewriting
	// between the sql slot and execution.
	if exec.gotSQL != sql {
		t.Errorf("executed sql = %q, want %q", exec.gotSQL, sql)
	}

	stored, err := o.Sessions().Get(sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Stage != model.StageCompleted {
		t.Errorf("stored stage = %s", stored.Stage)
	}
	if stored.Statement == nil || stored.Statement.SQL != exec.gotSQL {
		t.Errorf("stored sql = %+v, want the executed statement", stored.Statement)
	}
}

func TestAskDryRun(t *testing.T) {
	exec := &fakeExecutor{rs: testRowSet()}
	o := newOrchestrator(
		&fakeRetriever{bundle: testBundle()},
		&fakeGenerator{stmt: &model.Statement{SQL: "SELECT 1 FROM call_facts"}},
		exec,
	)

	flags := model.Flags{Execute: false}
	sess := o.Ask(context.Background(), "q", flags)
	if !sess.Succeeded() {
		t.Fatalf("session = %+v", sess)
	}
	if sess.RowSet != nil {
		t.Error("dry run must not execute")
	}
	if exec.gotSQL != "" {
		t.Error("executor was called")
	}
	if sess.Statement == nil || sess.Statement.SQL == "" {
		t.Error("statement missing")
	}
}

func TestAskNoMetadata(t *testing.T) {
	o := newOrchestrator(
		&fakeRetriever{err: metadata.ErrNoMetadataFound},
		&fakeGenerator{},
		&fakeExecutor{},
	)

	sess := o.Ask(context.Background(), "weather tomorrow", model.DefaultFlags())
	if sess.Stage != model.StageFailed {
		t.Fatalf("stage = %s", sess.Stage)
	}
	if sess.Err == nil || sess.Err.Stage != model.StageMetadataRetrieved {
		t.Errorf("err = %+v", sess.Err)
	}
}

func TestAskGenerationFailureKeepsMetadata(t *testing.T) {
	exec := &fakeExecutor{}
	o := newOrchestrator(
		&fakeRetriever{bundle: testBundle()},
		&fakeGenerator{err: &sqlgen.GenerationError{Reason: "model returned no sql"}},
		exec,
	)

	sess := o.Ask(context.Background(), "q", model.DefaultFlags())
	if sess.Stage != model.StageFailed {
		t.Fatalf("stage = %s", sess.Stage)
	}
	if sess.Err.Stage != model.StageSQLGenerated {
		t.Errorf("failed stage = %s", sess.Err.Stage)
	}
	if sess.Err.Reason != "model returned no sql" {
		t.Errorf("reason = %q", sess.Err.Reason)
	}
	if sess.Bundle == nil {
		t.Error("partial metadata result dropped")
	}
	if exec.gotSQL != "" {
		t.Error("executor was called after a generation failure")
	}
}

func TestAskExecutionFailurePreservesEngineMessage(t *testing.T) {
	o := newOrchestrator(
		&fakeRetriever{bundle: testBundle()},
		&fakeGenerator{stmt: &model.Statement{SQL: "SELECT x FROM call_facts"}},
		&fakeExecutor{err: &warehouse.ExecutionError{Engine: "postgres", Msg: `column "x" does not exist`}},
	)

	sess := o.Ask(context.Background(), "q", model.DefaultFlags())
	if sess.Err == nil || sess.Err.Stage != model.StageExecuted {
		t.Fatalf("err = %+v", sess.Err)
	}
	if sess.Err.Reason != `column "x" does not exist` {
		t.Errorf("reason = %q", sess.Err.Reason)
	}
	if sess.Statement == nil {
		t.Error("partial sql result dropped")
	}
}

func TestAskZeroRowsSucceeds(t *testing.T) {
	empty := model.BuildRowSet([]string{"calls"}, nil, 0)
	o := newOrchestrator(
		&fakeRetriever{bundle: testBundle()},
		&fakeGenerator{stmt: &model.Statement{SQL: "SELECT 1 FROM call_facts"}},
		&fakeExecutor{rs: empty},
	)

	sess := o.Ask(context.Background(), "q", model.DefaultFlags())
	if !sess.Succeeded() {
		t.Fatalf("session = %+v", sess)
	}
	if sess.RowSet == nil || !sess.RowSet.Empty() {
		t.Errorf("row set = %+v", sess.RowSet)
	}
}

func TestAskSkipsOptionalStages(t *testing.T) {
	o := newOrchestrator(
		&fakeRetriever{bundle: testBundle()},
		&fakeGenerator{stmt: &model.Statement{SQL: "SELECT 1 FROM call_facts"}},
		&fakeExecutor{rs: testRowSet()},
	)

	flags := model.Flags{Execute: true}
	sess := o.Ask(context.Background(), "q", flags)
	if !sess.Succeeded() {
		t.Fatalf("session = %+v", sess)
	}
	if sess.Summary != "" || sess.Visualization != nil {
		t.Errorf("optional stages ran: %+v", sess)
	}
}
