package arima

import "fmt"

// Family is the name the ARIMA searcher registers under.
const Family = "arima"

// Order is an ARIMA(p,d,q)(P,D,0)[m] specification. Seasonal terms are
// used only when M >= 2.
type Order struct {
	P, D, Q int
	// SP is the seasonal autoregressive order, SD the seasonal
	// differencing order, and M the seasonal period.
	SP, SD, M int
}

// Name implements model.Candidate.
func (o Order) Name() string {
	if o.M < 2 || (o.SP == 0 && o.SD == 0) {
		return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
	}
	return fmt.Sprintf("ARIMA(%d,%d,%d)(%d,%d,0)[%d]", o.P, o.D, o.Q, o.SP, o.SD, o.M)
}

// Family implements model.Candidate.
func (o Order) Family() string { return Family }

// String returns the order's name.
func (o Order) String() string { return o.Name() }

// seasonal reports whether the order carries any seasonal term.
func (o Order) seasonal() bool { return o.M >= 2 && (o.SP > 0 || o.SD > 0) }

// Grid returns the candidate orders searched for a series of length n:
// p <= 3, d <= 1, q <= 2, and when period >= 2 leaves room for three
// seasonal cycles, the seasonal AR and differencing variants as well.
func Grid(period, n int) []Order {
	seasonal := period >= 2 && n >= 3*period+period/2
	var grid []Order
	for d := 0; d <= 1; d++ {
		for p := 0; p <= 3; p++ {
			for q := 0; q <= 2; q++ {
				grid = append(grid, Order{P: p, D: d, Q: q})
				if !seasonal {
					continue
				}
				for sd := 0; sd <= 1; sd++ {
					for sp := 0; sp <= 1; sp++ {
						if sp == 0 && sd == 0 {
							continue
						}
						grid = append(grid, Order{P: p, D: d, Q: q, SP: sp, SD: sd, M: period})
					}
				}
			}
		}
	}
	return grid
}
