package tuner

import (
	"encoding/json"
	"math"
)

type stepJSON struct {
	Phase   Phase    `json:"phase"`
	HP      int      `json:"hp"`
	Trials  int      `json:"trials"`
	Median  *float64 `json:"median"`
	TPKProb float64  `json:"tpk_prob"`
}

// MarshalJSON writes an infinite median as null.
func (s Step) MarshalJSON() ([]byte, error) {
	out := stepJSON{Phase: s.Phase, HP: s.HP, Trials: s.Trials, TPKProb: s.TPKProb}
	if !math.IsInf(s.Median, 0) && !math.IsNaN(s.Median) {
		m := s.Median
		out.Median = &m
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a null median back as +Inf.
func (s *Step) UnmarshalJSON(data []byte) error {
	var in stepJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = Step{Phase: in.Phase, HP: in.HP, Trials: in.Trials, Median: math.Inf(1), TPKProb: in.TPKProb}
	if in.Median != nil {
		s.Median = *in.Median
	}
	return nil
}
