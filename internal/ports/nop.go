package ports

// Nop returns an Observability that discards everything. Used as the default
// when no backend is wired, and by tests that only care about behavior.
func Nop() Observability { return nopObs{} }

type nopObs struct{}

func (nopObs) LogInfo(string, ...Field)             {}
func (nopObs) LogError(string, error, ...Field)     {}
func (nopObs) LogCritical(string, error, ...Field)  {}
func (nopObs) IncCounter(string, float64)           {}
func (nopObs) SetGauge(string, float64)             {}
func (nopObs) ObserveLatency(string, float64)       {}
