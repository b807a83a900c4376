package kernels

import (
	"fmt"
	"math"
	"strings"
)

// Kernel names accepted by New.
const (
	RBF      = "rbf"
	Matern52 = "matern52"
)

// Kernel represents a stationary covariance function for Gaussian Processes
type Kernel interface {
	// Eval computes the kernel value between two points x1 and x2
	Eval(x1, x2 []float64) float64

	// Gradient writes d k(x1, x2) / d x1 into dst.
	Gradient(dst, x1, x2 []float64)

	// Hyperparameters returns the current hyperparameters
	Hyperparameters() []float64

	// SetHyperparameters sets the kernel's hyperparameters
	SetHyperparameters(params []float64) error
}

// New builds a kernel by name. Unlike the NewXKernel constructors it reports
// bad hyperparameters as an error.
func New(name string, lengthScale, signalVar float64) (Kernel, error) {
	if err := checkParams(lengthScale, signalVar); err != nil {
		return nil, err
	}
	switch strings.ToLower(name) {
	case RBF, "":
		return NewRBFKernel(lengthScale, signalVar), nil
	case Matern52, "matern":
		return NewMatern52Kernel(lengthScale, signalVar), nil
	default:
		return nil, fmt.Errorf("unknown kernel %q", name)
	}
}

func checkParams(lengthScale, signalVar float64) error {
	if !(lengthScale > 0) || math.IsInf(lengthScale, 0) {
		return fmt.Errorf("lengthScale must be positive, got %v", lengthScale)
	}
	if !(signalVar > 0) || math.IsInf(signalVar, 0) {
		return fmt.Errorf("signalVar must be positive, got %v", signalVar)
	}
	return nil
}

func sqDist(x1, x2 []float64) float64 {
	var s float64
	for i := range x1 {
		d := x1[i] - x2[i]
		s += d * d
	}
	return s
}

// params holds the two hyperparameters shared by both kernels.
type params struct {
	// Length scale parameter (larger = smoother function)
	lengthScale float64
	// Signal variance (controls the amplitude of the function)
	signalVar float64
}

// Hyperparameters returns [lengthScale, signalVar].
func (p *params) Hyperparameters() []float64 {
	return []float64{p.lengthScale, p.signalVar}
}

// SetHyperparameters sets [lengthScale, signalVar].
func (p *params) SetHyperparameters(v []float64) error {
	if len(v) != 2 {
		return fmt.Errorf("expected 2 hyperparameters, got %d", len(v))
	}
	if err := checkParams(v[0], v[1]); err != nil {
		return err
	}
	p.lengthScale = v[0]
	p.signalVar = v[1]
	return nil
}

// RBFKernel implements the Radial Basis Function (squared exponential) kernel
type RBFKernel struct {
	params
}

// NewRBFKernel creates a new RBF kernel. It panics on non-positive parameters.
func NewRBFKernel(lengthScale, signalVar float64) *RBFKernel {
	if err := checkParams(lengthScale, signalVar); err != nil {
		panic(err.Error())
	}
	return &RBFKernel{params{lengthScale: lengthScale, signalVar: signalVar}}
}

// Eval computes s * exp(-|x1-x2|^2 / 2l^2).
func (k *RBFKernel) Eval(x1, x2 []float64) float64 {
	r2 := sqDist(x1, x2) / (2.0 * k.lengthScale * k.lengthScale)
	return k.signalVar * math.Exp(-r2)
}

// Gradient writes -k(x1,x2) * (x1-x2) / l^2 into dst.
func (k *RBFKernel) Gradient(dst, x1, x2 []float64) {
	l2 := k.lengthScale * k.lengthScale
	kv := k.Eval(x1, x2)
	for i := range x1 {
		dst[i] = -kv * (x1[i] - x2[i]) / l2
	}
}

// Matern52Kernel implements the Matérn 5/2 kernel
type Matern52Kernel struct {
	params
}

// NewMatern52Kernel creates a new Matérn 5/2 kernel. It panics on
// non-positive parameters.
func NewMatern52Kernel(lengthScale, signalVar float64) *Matern52Kernel {
	if err := checkParams(lengthScale, signalVar); err != nil {
		panic(err.Error())
	}
	return &Matern52Kernel{params{lengthScale: lengthScale, signalVar: signalVar}}
}

// Eval computes s * (1 + √5r + 5r²/3) * exp(-√5r) with r = |x1-x2|/l.
func (k *Matern52Kernel) Eval(x1, x2 []float64) float64 {
	r := math.Sqrt(sqDist(x1, x2)) / k.lengthScale
	polyTerm := 1.0 + math.Sqrt(5)*r + (5.0/3.0)*r*r
	return k.signalVar * polyTerm * math.Exp(-math.Sqrt(5)*r)
}

// Gradient writes -(5/3) s (1 + √5r) exp(-√5r) (x1-x2) / l^2 into dst.
// The expression is finite at r = 0, where the gradient vanishes.
func (k *Matern52Kernel) Gradient(dst, x1, x2 []float64) {
	l2 := k.lengthScale * k.lengthScale
	r := math.Sqrt(sqDist(x1, x2)) / k.lengthScale
	c := -(5.0 / 3.0) * k.signalVar * (1 + math.Sqrt(5)*r) * math.Exp(-math.Sqrt(5)*r) / l2
	for i := range x1 {
		dst[i] = c * (x1[i] - x2[i])
	}
}
