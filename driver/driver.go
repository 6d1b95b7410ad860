// Package driver iterates the field tracker and the escape analyzer over
// every program method until a whole pass produces no new fact.
package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/optfacts/classfile"
	"github.com/chazu/optfacts/classify"
	"github.com/chazu/optfacts/escape"
	"github.com/chazu/optfacts/facts"
	"github.com/chazu/optfacts/fieldaccess"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"
)

var log = commonlog.GetLogger("optfacts.driver")

// ErrNoFixedPoint is returned when MaxPasses passes all reported changes.
var ErrNoFixedPoint = errors.New("driver: no fixed point")

// Options configures a Driver. The zero value runs sequentially with
// DefaultMaxPasses and tracks nothing about fields.
type Options struct {
	MaxPasses   int
	Parallelism int
	TrackReads  bool
	TrackWrites bool

	// Imports are fact exports applied once before the first pass.
	Imports [][]byte
	// Seeds are applied after Imports, so they hold for imported methods.
	Seeds classify.Seeds
}

// DefaultMaxPasses bounds the iteration when Options.MaxPasses is unset.
const DefaultMaxPasses = 64

// Result describes a finished run.
type Result struct {
	RunID     uuid.UUID
	Passes    int
	Converged bool
	// Change sums the changes of every pass.
	Change facts.Change
}

// Driver runs the analysis over one pool into one table.
type Driver struct {
	pool     *classfile.Pool
	table    *facts.Table
	opts     Options
	analyzer *escape.Analyzer
	tracker  *fieldaccess.Tracker
}

// New creates a driver. It panics on a nil pool or table.
func New(pool *classfile.Pool, table *facts.Table, opts Options) *Driver {
	if pool == nil || table == nil {
		panic("driver: nil pool or table")
	}
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = DefaultMaxPasses
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	return &Driver{
		pool:     pool,
		table:    table,
		opts:     opts,
		analyzer: escape.NewAnalyzer(pool, table),
		tracker:  fieldaccess.NewTracker(pool, table.Fields(), opts.TrackReads, opts.TrackWrites),
	}
}

// Run prepares the table and iterates passes until one makes no change.
// Cancelling ctx stops the run between methods.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.New()}
	methods := d.pool.ProgramMethods()
	for _, m := range methods {
		d.table.RegisterProgramMethod(m.ID)
	}
	log.Infof("run %s: %d program methods, %d classes", res.RunID, len(methods), d.pool.NumClasses())

	for i, data := range d.opts.Imports {
		if _, err := facts.Import(d.pool, d.table, data); err != nil {
			return res, fmt.Errorf("import %d: %w", i, err)
		}
	}
	classify.ApplySeeds(d.pool, d.table, d.opts.Seeds)
	classify.Classes(d.pool, d.table)

	for res.Passes < d.opts.MaxPasses {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Passes++
		change, err := d.pass(ctx, methods, d.table.Snapshot())
		if err != nil {
			return res, fmt.Errorf("pass %d: %w", res.Passes, err)
		}
		res.Change.Add(change)
		log.Infof("run %s: pass %d: %d method facts, %d field facts", res.RunID, res.Passes, change.Methods, change.Fields)
		if !change.Any() {
			res.Converged = true
			return res, nil
		}
	}
	log.Warningf("run %s: still changing after %d passes", res.RunID, res.Passes)
	return res, ErrNoFixedPoint
}

// pass analyses every method against snap. Each method writes only its own
// record, so methods can be analysed concurrently.
func (d *Driver) pass(ctx context.Context, methods []*classfile.Method, snap *facts.Snapshot) (facts.Change, error) {
	changes := make([]facts.Change, len(methods))

	if d.opts.Parallelism == 1 {
		for i, m := range methods {
			if err := ctx.Err(); err != nil {
				return facts.Change{}, err
			}
			c, err := d.method(m, snap)
			if err != nil {
				return facts.Change{}, err
			}
			changes[i] = c
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(d.opts.Parallelism)
		for i, m := range methods {
			i, m := i, m
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				c, err := d.method(m, snap)
				changes[i] = c
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return facts.Change{}, err
		}
	}

	var total facts.Change
	for _, c := range changes {
		total.Add(c)
	}
	return total, nil
}

func (d *Driver) method(m *classfile.Method, snap *facts.Snapshot) (facts.Change, error) {
	change, err := d.tracker.VisitMethod(m)
	if err != nil {
		return change, err
	}
	c, err := d.analyzer.AnalyzeMethod(m, snap)
	change.Add(c)
	return change, err
}
