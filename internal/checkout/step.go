package checkout

import "strconv"

type Step int

const (
	StepShipping Step = iota + 1
	StepPayment
	StepReview
)

var stepNames = map[Step]string{
	StepShipping: "shipping",
	StepPayment:  "payment",
	StepReview:   "review",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return "step(" + strconv.Itoa(int(s)) + ")"
}

func (s Step) Valid() bool {
	_, ok := stepNames[s]
	return ok
}

// ParseStep accepts a step number or name.
func ParseStep(v string) (Step, bool) {
	if n, err := strconv.Atoi(v); err == nil {
		s := Step(n)
		return s, s.Valid()
	}
	for s, name := range stepNames {
		if name == v {
			return s, true
		}
	}
	return 0, false
}

// Forward moves happen only through the submit operations; any earlier step
// can be reopened for editing.
var transitions = map[Step][]Step{
	StepShipping: {StepPayment},
	StepPayment:  {StepShipping, StepReview},
	StepReview:   {StepShipping, StepPayment},
}

func CanTransitionTo(from, to Step) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
