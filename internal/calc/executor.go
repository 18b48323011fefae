// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package calc

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/f-block/archon/internal/assemble"
	"github.com/f-block/archon/internal/geometry"
	"github.com/f-block/archon/internal/toolchain"
	"github.com/f-block/archon/pkg/types"
)

const (
	maxAttempts = 3
	// etempStep is added to the electronic temperature on each retry to
	// push difficult SCF cases toward convergence.
	etempStep = 300.0
)

// Executor evaluates one conformer end to end: initial sanity checks,
// method and relax resolution, calculation with retries, final sanity
// checks. It mutates the conformer in place with the outcome.
type Executor struct {
	Params   types.Parameters
	Tool     toolchain.Tool
	Logger   *zap.Logger
	Assembly bool

	// Obabel, when non-nil, handles force-field pre-optimization through
	// the openbabel converter instead of the internal force field.
	Obabel toolchain.Tool

	// OxState is the metal center's formal oxidation state, used for the
	// xtb charge bookkeeping.
	OxState int

	// newCalculator is swappable for tests.
	newCalculator func(method string, p types.Parameters, tool toolchain.Tool) (Calculator, error)
	// backoff is the base retry delay, swappable for tests.
	backoff time.Duration
}

// NewExecutor builds an Executor for one pipeline stage. A nil logger is
// replaced by a no-op one.
func NewExecutor(params types.Parameters, tool toolchain.Tool, assembly bool, oxState int, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		Params:        params.Normalized(),
		Tool:          tool,
		Logger:        logger,
		Assembly:      assembly,
		OxState:       oxState,
		newCalculator: New,
		backoff:       100 * time.Millisecond,
	}
}

// Evaluate runs the full evaluation on conf. The returned error covers
// context cancellation only; calculation failures land in conf.Errors
// with the sentinel energy.
func (e *Executor) Evaluate(ctx context.Context, conf *types.Conformer) error {
	start := time.Now()
	defer func() { conf.WallTime = time.Since(start) }()

	p := e.Params
	checks := e.checkSet()

	if reasons := checks.Check(conf.Atoms, conf.Bonds); len(reasons) > 0 {
		conf.Sane = false
		conf.SanityFailures = reasons
		conf.Energy = types.FailedEnergy
		conf.InitEnergy = types.FailedEnergy
		conf.Errors = append(conf.Errors, "distance checks failed, not evaluated")
		e.Logger.Debug("skipping evaluation",
			zap.String("conformer", conf.ID),
			zap.Strings("reasons", reasons))
		return nil
	}

	method, relax := e.resolve(conf)
	conf.Method = method
	input := clone(conf.Atoms)

	if !e.Assembly && p.FFPreopt {
		if err := e.preoptimize(ctx, conf); err != nil {
			return err
		}
	}

	sys := System{Atoms: conf.Atoms, Bonds: conf.Bonds, Charge: conf.Charge, Spin: conf.Spin}
	if IsGFN(method) {
		// xtb sees the representable charge, not the formal one; the
		// force-field variant takes no charge or spin at all.
		if method == types.MethodGFNFF {
			sys.Charge, sys.Spin = 0, 0
		} else {
			sys.Charge = XTBCharge(conf.Atoms, conf.Charge, e.OxState)
		}
	}
	res, initEnergy, err := e.calculate(ctx, method, sys, relax)
	switch {
	case err != nil && errors.Is(err, context.Canceled),
		err != nil && errors.Is(err, context.DeadlineExceeded):
		return err
	case err != nil:
		conf.Errors = append(conf.Errors, err.Error())
		conf.Energy = types.FailedEnergy
		conf.InitEnergy = types.FailedEnergy
		conf.Converged = false
		e.Logger.Warn("evaluation failed",
			zap.String("conformer", conf.ID),
			zap.String("method", method),
			zap.Error(err))
	default:
		conf.Atoms = res.Atoms
		conf.Energy = res.Energy
		conf.InitEnergy = initEnergy
		conf.Converged = res.Converged
		conf.Relaxed = relax
		if relax {
			if rmsd, err := alignedRMSD(conf.Atoms, input); err == nil {
				conf.RMSD = rmsd
			}
		}
		if !res.Converged && !p.ForceGeneration {
			conf.Errors = append(conf.Errors, "relaxation did not converge")
			conf.Energy = types.FailedEnergy
		}
	}

	conf.SanityFailures = checks.Check(conf.Atoms, conf.Bonds)
	conf.Sane = len(conf.SanityFailures) == 0
	return nil
}

// resolve picks the level of theory and effective relax flag for this
// stage, including the trivalent-charge bookkeeping for f-elements.
func (e *Executor) resolve(conf *types.Conformer) (string, bool) {
	p := e.Params
	method := p.FullMethod
	relax := p.ShouldRelax()
	if e.Assembly {
		method = p.AssembleMethod
		relax = false
	}

	if IsGFN(method) {
		mismatch := XTBCharge(conf.Atoms, conf.Charge, e.OxState) - conf.Charge
		if mismatch < 0 {
			mismatch = -mismatch
		}
		if mismatch > 1 {
			if (!p.OverrideOxoOpt || e.Assembly) && !p.ForceOxoRelax {
				relax = false
			} else if e.Assembly {
				// The tight-binding charge model cannot hold this state;
				// the force field variant still can.
				method = types.MethodGFNFF
			}
		}
	}
	return method, relax
}

// preoptimize runs a force-field relaxation before the full method,
// through openbabel when available and the internal force field
// otherwise.
func (e *Executor) preoptimize(ctx context.Context, conf *types.Conformer) error {
	if e.Obabel != nil {
		atoms, err := obabelPreopt(ctx, e.Obabel, e.Params, conf.Atoms)
		switch {
		case err == nil:
			conf.Atoms = atoms
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		default:
			e.Logger.Warn("obabel pre-optimization failed, using internal force field",
				zap.String("conformer", conf.ID),
				zap.Error(err))
		}
	}

	ff := newForceField(types.MethodUFF, e.Params)
	sys := System{Atoms: conf.Atoms, Bonds: conf.Bonds, Charge: conf.Charge, Spin: conf.Spin}
	res, err := ff.Optimize(ctx, sys)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		conf.Errors = append(conf.Errors, "pre-optimization: "+err.Error())
		return nil
	}
	conf.Atoms = res.Atoms
	return nil
}

// calculate runs the method with retries, escalating the electronic
// temperature on each attempt. It returns the final result and the
// pre-relaxation energy.
func (e *Executor) calculate(ctx context.Context, method string, sys System, relax bool) (Result, float64, error) {
	p := e.Params
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			p.XTBElectronicTemperature += etempStep
			select {
			case <-ctx.Done():
				return Result{}, 0, ctx.Err()
			case <-time.After(e.backoff << (attempt - 1)):
			}
			e.Logger.Debug("retrying calculation",
				zap.String("method", method),
				zap.Int("attempt", attempt+1),
				zap.Float64("etemp", p.XTBElectronicTemperature))
		}

		c, err := e.newCalculator(method, p, e.Tool)
		if err != nil {
			return Result{}, 0, err
		}

		init, err := c.SinglePoint(ctx, sys)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return Result{}, 0, err
			}
			lastErr = err
			continue
		}
		if !relax {
			return init, init.Energy, nil
		}

		res, err := c.Optimize(ctx, sys)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return Result{}, 0, err
			}
			lastErr = err
			continue
		}
		return res, init.Energy, nil
	}
	return Result{}, 0, lastErr
}

func alignedRMSD(a, b []types.Atom) (float64, error) {
	pa := make([]r3.Vec, len(a))
	pb := make([]r3.Vec, len(b))
	for i := range a {
		pa[i] = a[i].Position()
	}
	for i := range b {
		pb[i] = b[i].Position()
	}
	_, rmsd, err := geometry.Superpose(pa, pb)
	return rmsd, err
}

func (e *Executor) checkSet() assemble.CheckSet {
	if e.Assembly {
		return assemble.AssemblyChecks(e.Params)
	}
	return assemble.FullChecks(e.Params)
}
