package bayesian

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// maxPooled caps the number of idle matrices kept by a MatrixPool.
const maxPooled = 8

// MatrixPool keeps idle prediction buffers so repeated single-point
// predictions during acquisition optimization do not allocate. It is safe for
// concurrent use.
type MatrixPool struct {
	mu    sync.Mutex
	dense []*mat.Dense
}

// NewMatrixPool creates a new MatrixPool
func NewMatrixPool() *MatrixPool {
	return &MatrixPool{dense: make([]*mat.Dense, 0, maxPooled)}
}

// GetDense returns an r x c matrix, reusing an idle one of the same shape.
// The contents are unspecified.
func (p *MatrixPool) GetDense(r, c int) *mat.Dense {
	p.mu.Lock()
	for i := len(p.dense) - 1; i >= 0; i-- {
		m := p.dense[i]
		if mr, mc := m.Dims(); mr == r && mc == c {
			p.dense = append(p.dense[:i], p.dense[i+1:]...)
			p.mu.Unlock()
			return m
		}
	}
	p.mu.Unlock()
	return mat.NewDense(r, c, nil)
}

// PutDense returns a matrix to the pool. Matrices beyond the cap are dropped.
func (p *MatrixPool) PutDense(m *mat.Dense) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.dense) >= maxPooled {
		p.dense = p.dense[1:]
	}
	p.dense = append(p.dense, m)
}

// Len returns the number of idle matrices.
func (p *MatrixPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.dense)
}
