package multigrid

import (
	"gonum.org/v1/gonum/floats"
)

// workspace holds the scratch vectors of one solve. Entry k of each slice belongs to level k.
type workspace struct {
	rhs, x   [][]float64 // coarse problems, filled by the level above
	res, cor [][]float64
	smooth   [][]float64 // smoother scratch, nil on level 0
}

func (h *Hierarchy) newWorkspace() *workspace {
	var (
		L  = h.NumLevels()
		ws = &workspace{
			rhs:    make([][]float64, L),
			x:      make([][]float64, L),
			res:    make([][]float64, L),
			cor:    make([][]float64, L),
			smooth: make([][]float64, L),
		}
	)
	for k, lvl := range h.levels {
		n := lvl.Size()
		ws.rhs[k], ws.x[k] = make([]float64, n), make([]float64, n)
		ws.res[k], ws.cor[k] = make([]float64, n), make([]float64, n)
		if lvl.smoother != nil {
			ws.smooth[k] = make([]float64, lvl.smoother.WorkLen())
		}
	}
	return ws
}

// cycle improves x towards the solution of A_k x = rhs with one multigrid cycle. The shape
// follows from the cycle multiplicity of each transition on the way down.
func (h *Hierarchy) cycle(k int, rhs, x []float64, ws *workspace) error {
	if k == 0 {
		return h.coarse.solve(x, rhs)
	}
	var (
		cfg = h.cfg
		lvl = h.levels[k]
		res = ws.res[k]
		sw  = ws.smooth[k]
		cr  = ws.rhs[k-1]
		cx  = ws.x[k-1]
	)
	for s := 0; s < cfg.PreSmooth; s++ {
		lvl.smoother.Apply(lvl.A, rhs, x, false, sw)
	}
	lvl.A.MulVec(res, x)
	if cfg.Correction == SubtractCorrection {
		floats.Sub(res, rhs)
	} else {
		floats.SubTo(res, rhs, res)
	}
	if err := lvl.Transfer.Restrict(cr, res); err != nil {
		return err
	}
	for i := range cx {
		cx[i] = 0
	}
	for m := 0; m < cfg.multiplicity(lvl.Tag); m++ {
		if err := h.cycle(k-1, cr, cx, ws); err != nil {
			return err
		}
	}
	cor := ws.cor[k]
	if err := lvl.Transfer.Prolongate(cor, cx); err != nil {
		return err
	}
	if cfg.Correction == SubtractCorrection {
		floats.Sub(x, cor)
	} else {
		floats.Add(x, cor)
	}
	for s := 0; s < cfg.PostSmooth; s++ {
		lvl.smoother.Apply(lvl.A, rhs, x, cfg.ReversePostSweep, sw)
	}
	return nil
}
