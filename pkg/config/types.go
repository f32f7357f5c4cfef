package config

// Config represents a full solver run configuration
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Group     GroupConfig     `yaml:"group"`
	Solver    SolverConfig    `yaml:"solver"`
	Objective ObjectiveConfig `yaml:"objective"`
}

// GroupConfig describes the fixed worker group.
// Coordinator and Listen are only used by the distributed transport;
// an in-process run ignores them.
type GroupConfig struct {
	Workers     int    `yaml:"workers"`
	Coordinator string `yaml:"coordinator,omitempty"`
	Listen      string `yaml:"listen,omitempty"`
}

// SolverConfig holds the simplex and termination parameters
type SolverConfig struct {
	Dimension    int              `yaml:"dimension"`
	Step         float64          `yaml:"step"`
	Guess        []float64        `yaml:"guess,omitempty"`
	Coefficients *Coefficients    `yaml:"coefficients,omitempty"`
	Tolerance    *ToleranceConfig `yaml:"tolerance,omitempty"`
	MaxRounds    int              `yaml:"max_rounds"`
}

// Coefficients are the four Nelder-Mead transformation scalars.
// When omitted the standard values (1, 2, 0.5, 0.5) apply.
type Coefficients struct {
	Rho   float64 `yaml:"rho"`
	Xi    float64 `yaml:"xi"`
	Gamma float64 `yaml:"gamma"`
	Sigma float64 `yaml:"sigma"`
}

// ToleranceConfig selects the termination policy.
// Policy is one of "absolute", "relative", or "diameter".
type ToleranceConfig struct {
	Policy string  `yaml:"policy"`
	Value  float64 `yaml:"value"`
}

// ObjectiveConfig names the objective function to minimize
type ObjectiveConfig struct {
	Name   string    `yaml:"name"`
	Target []float64 `yaml:"target,omitempty"`
}
