// Package pipeline wires the importer and the rule engine together: one bank
// export in, normalized transactions and diagnostics out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/bankcsv/internal/importer"
	"github.com/cleared-dev/bankcsv/internal/logging"
	"github.com/cleared-dev/bankcsv/internal/model"
	"github.com/cleared-dev/bankcsv/internal/rules"
	"github.com/cleared-dev/bankcsv/internal/schema"
)

// ErrNoSchema means no registered schema claims a file.
var ErrNoSchema = errors.New("no schema matches file")

// ctxCheckRows is how often a running file checks for cancellation.
const ctxCheckRows = 1024

// Result is the outcome of converting one file.
type Result struct {
	File         string
	Schema       string
	Transactions []model.Transaction
	Lines        []int                // source line of each transaction
	Outcomes     []rules.MatchOutcome // rule outcome of each transaction
	Diagnostics  []model.Diagnostic
}

// Dropped returns the number of rows removed by drop rules.
func (r *Result) Dropped() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Kind == model.DiagDropped {
			n++
		}
	}
	return n
}

// Options configures a Converter.
type Options struct {
	Registry *importer.Registry
	Schema   *schema.BankSchema // used for every file when set
	Rules    rules.RuleSet      // appended after each schema's own rules
	Workers  int
	Logger   *logrus.Logger
	OnResult func(*Result) // called once per finished file, from any goroutine
}

// Converter converts bank exports. Schemas and rule engines are loaded once
// and shared read-only by all files.
type Converter struct {
	opts Options
	log  *logrus.Entry

	mu      sync.Mutex
	engines map[*schema.BankSchema]*rules.Engine
}

// New returns a Converter. Either a registry or a forced schema is required.
func New(opts Options) (*Converter, error) {
	if opts.Registry == nil && opts.Schema == nil {
		return nil, errors.New("converter needs a schema registry or a schema")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Converter{
		opts:    opts,
		log:     logging.Component(opts.Logger, "pipeline"),
		engines: make(map[*schema.BankSchema]*rules.Engine),
	}, nil
}

// SchemaFor returns the schema that will be used for the named file.
func (c *Converter) SchemaFor(name string) (*schema.BankSchema, error) {
	if c.opts.Schema != nil {
		return c.opts.Schema, nil
	}
	if s := c.opts.Registry.Match(name); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%s: %w", filepath.Base(name), ErrNoSchema)
}

// Engine returns the rule engine for s, loading its rule files on first use.
func (c *Converter) Engine(s *schema.BankSchema) (*rules.Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.engines[s]; ok {
		return e, nil
	}
	rs, err := rules.LoadFiles(s.Rules...)
	if err != nil {
		return nil, fmt.Errorf("loading rules for schema %s: %w", s.Name, err)
	}
	e, err := rules.NewEngine(rules.Concat(rs, c.opts.Rules))
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", s.Name, err)
	}
	c.engines[s] = e
	return e, nil
}

// ConvertFile converts one export read from r. name selects the schema and
// labels diagnostics. Row-level problems become diagnostics; the returned
// error is reserved for configuration and I/O failures.
func (c *Converter) ConvertFile(ctx context.Context, name string, r io.Reader) (*Result, error) {
	s, err := c.SchemaFor(name)
	if err != nil {
		return nil, err
	}
	engine, err := c.Engine(s)
	if err != nil {
		return nil, err
	}
	return c.convert(ctx, name, r, s, engine)
}

func (c *Converter) convert(ctx context.Context, name string, r io.Reader, s *schema.BankSchema, engine *rules.Engine) (*Result, error) {
	log := c.log.WithFields(logrus.Fields{"file": name, "schema": s.Name})
	res := &Result{File: name, Schema: s.Name}

	rd, err := importer.NewReader(r, s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	for n := 0; ; n++ {
		if n%ctxCheckRows == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		draft, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			re, ok := importer.AsRowError(err)
			if !ok {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			res.addDiagnostic(log, model.Diagnostic{File: name, Line: re.SourceLine(), Kind: re.Kind(), Rule: -1, Message: err.Error()})
			continue
		}

		txn, out, err := engine.Apply(draft.Txn)
		if err != nil {
			rule := -1
			var rf *rules.RuleFailedError
			if errors.As(err, &rf) {
				rule = rf.Rule
			}
			res.addDiagnostic(log, model.Diagnostic{File: name, Line: draft.Line, Kind: model.DiagRuleFailed, Rule: rule, Message: err.Error()})
			continue
		}
		if aliases := engine.MatchedAliases(out); len(aliases) > 1 {
			log.WithFields(logrus.Fields{"line": draft.Line, "payee": draft.Txn.Payee}).
				Warnf("multiple payee aliases match: %s", strings.Join(aliases, ", "))
		}
		if out.Dropped {
			res.addDiagnostic(log, model.Diagnostic{
				File:    name,
				Line:    draft.Line,
				Kind:    model.DiagDropped,
				Rule:    out.DropRule,
				Message: dropMessage(engine.Rule(out.DropRule)),
			})
			continue
		}

		res.Transactions = append(res.Transactions, txn)
		res.Lines = append(res.Lines, draft.Line)
		res.Outcomes = append(res.Outcomes, out)
	}

	log.WithFields(logrus.Fields{
		"transactions": len(res.Transactions),
		"diagnostics":  len(res.Diagnostics),
		"dropped":      res.Dropped(),
	}).Info("converted file")
	return res, nil
}

func (res *Result) addDiagnostic(log *logrus.Entry, d model.Diagnostic) {
	log.WithFields(logrus.Fields{"line": d.Line, "kind": d.Kind}).Debug(d.Message)
	res.Diagnostics = append(res.Diagnostics, d)
}

func dropMessage(r rules.Rule) string {
	if r.Label != "" {
		return fmt.Sprintf("dropped by rule %q", r.Label)
	}
	return "dropped by rule"
}

// ConvertFiles converts the files at paths concurrently, bounded by the
// configured worker count, and returns their results in input order. Every
// file's schema and rule set is resolved before any file is read, so a
// configuration error fails the run without partial output.
func (c *Converter) ConvertFiles(ctx context.Context, paths []string) ([]*Result, error) {
	type job struct {
		schema *schema.BankSchema
		engine *rules.Engine
	}
	jobs := make([]job, len(paths))
	for i, p := range paths {
		s, err := c.SchemaFor(p)
		if err != nil {
			return nil, err
		}
		e, err := c.Engine(s)
		if err != nil {
			return nil, err
		}
		jobs[i] = job{schema: s, engine: e}
	}

	results := make([]*Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			f, err := os.Open(p)
			if err != nil {
				return fmt.Errorf("opening %s: %w", p, err)
			}
			defer f.Close()

			res, err := c.convert(ctx, p, f, jobs[i].schema, jobs[i].engine)
			if err != nil {
				return err
			}
			results[i] = res
			if c.opts.OnResult != nil {
				c.opts.OnResult(res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
