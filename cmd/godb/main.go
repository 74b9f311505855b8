// Command godb is a minimal demonstration entrypoint wiring the catalog,
// buffer pool, and executor together, plus a background maintenance
// scheduler that periodically flushes the buffer pool. It is not a SQL
// REPL or CLI front-end (spec.md §1 keeps that external); it hand-builds a
// small AST program to exercise the storage/execution core end to end.
//
// Grounded on the teacher's cmd/server/main.go wiring style and
// internal/storage/scheduler.go's robfig/cron/v3 usage, generalized from
// per-job SQL text to a single periodic BufferPool.FlushAll checkpoint.
package main

import (
	"flag"
	"log"

	"github.com/robfig/cron/v3"

	"relcore/internal/ast"
	"relcore/internal/catalog"
	"relcore/internal/config"
	"relcore/internal/engine"
	"relcore/internal/storage/bufferpool"
	"relcore/internal/storage/record"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML DBConfig file (optional)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("godb: %v", err)
		}
		cfg = loaded
	}

	bp := bufferpool.New(cfg.BufferPoolCapacity)
	cat := catalog.New(cfg.DataDir, bp)

	sched := newCheckpointScheduler(bp, cfg.CheckpointInterval)
	sched.Start()
	defer sched.Stop()

	ex := engine.New(cat)
	if err := runDemo(ex); err != nil {
		log.Fatalf("godb: %v", err)
	}

	if err := cat.WriteBack(); err != nil {
		log.Fatalf("godb: write-back failed: %v", err)
	}
}

// checkpointScheduler periodically flushes the buffer pool outside of any
// single statement's execution path (spec.md §5: durability is not
// guaranteed at statement boundaries; this is a convenience, not a WAL).
type checkpointScheduler struct {
	bp   *bufferpool.BufferPool
	cron *cron.Cron
}

func newCheckpointScheduler(bp *bufferpool.BufferPool, spec string) *checkpointScheduler {
	c := cron.New(cron.WithSeconds())
	s := &checkpointScheduler{bp: bp, cron: c}
	if _, err := c.AddFunc(spec, s.checkpoint); err != nil {
		log.Printf("godb: invalid checkpoint schedule %q: %v", spec, err)
	}
	return s
}

func (s *checkpointScheduler) Start() { s.cron.Start() }
func (s *checkpointScheduler) Stop()  { <-s.cron.Stop().Done() }

func (s *checkpointScheduler) checkpoint() {
	if err := s.bp.FlushAll(); err != nil {
		log.Printf("godb: checkpoint flush failed: %v", err)
	} else {
		log.Printf("godb: checkpoint flush complete")
	}
}

// runDemo exercises CREATE DATABASE/TABLE, INSERT, and a filtered SELECT —
// the shape of scenario S1 in spec.md §8 — using hand-built AST nodes in
// place of a parser.
func runDemo(ex *engine.Executor) error {
	program := []interface{}{
		ast.CreateDB{Name: "demo"},
		ast.UseDB{Name: "demo"},
		ast.CreateTB{Name: "t", Fields: []ast.ColumnDef{
			{Name: "a", Type: record.TypeInt},
			{Name: "b", Type: record.TypeVarchar, Len: 8},
		}},
		ast.Insert{Table: "t", Values: [][]ast.Expr{
			{ast.Lit{Value: record.IntValue(1)}, ast.Lit{Value: record.StringValue("hi")}},
			{ast.Lit{Value: record.IntValue(2)}, ast.Lit{Value: record.StringValue("hello")}},
		}},
	}
	for _, raw := range program {
		st, ok := raw.(ast.Statement)
		if !ok {
			continue
		}
		if _, err := ex.Exec(st); err != nil {
			return err
		}
	}

	sel := ast.Select{
		Selectors: []ast.Selector{ast.SelectAll{}},
		From:      []ast.TableRef{{Name: "t"}},
		Where: ast.Term{Expr: ast.Compare{
			LHS: ast.ColRef{Column: "a"},
			Op:  ast.OpGE,
			RHS: ast.Lit{Value: record.IntValue(2)},
		}},
	}
	res, err := ex.Exec(sel)
	if err != nil {
		return err
	}
	for _, row := range res.Rows {
		log.Printf("row: %v", row)
	}
	return nil
}
