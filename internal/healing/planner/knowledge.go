package planner

import (
	"sync"
	"time"
)

// defaultMTTR is assumed for successful incidents recorded without a repair time.
const defaultMTTR = 10 * time.Second

// Incident is one handled issue.
type Incident struct {
	Issue     string        `json:"issue"`
	Action    string        `json:"action"`
	Success   bool          `json:"success"`
	MTTR      time.Duration `json:"mttr"`
	Timestamp time.Time     `json:"timestamp"`
}

// Knowledge remembers how past issues were resolved.
type Knowledge struct {
	mu         sync.RWMutex
	incidents  []Incident
	successful map[string][]Incident
	maxSize    int
}

// NewKnowledge creates a store keeping at most maxSize incidents per list.
func NewKnowledge(maxSize int) *Knowledge {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Knowledge{
		successful: make(map[string][]Incident),
		maxSize:    maxSize,
	}
}

// Record stores the outcome of handling issue with action.
func (k *Knowledge) Record(issue, action string, success bool, mttr time.Duration) {
	k.mu.Lock()
	defer k.mu.Unlock()

	inc := Incident{
		Issue:     issue,
		Action:    action,
		Success:   success,
		MTTR:      mttr,
		Timestamp: time.Now(),
	}
	k.incidents = appendBounded(k.incidents, inc, k.maxSize)
	if success {
		k.successful[issue] = appendBounded(k.successful[issue], inc, k.maxSize)
	}
}

func appendBounded(list []Incident, inc Incident, limit int) []Incident {
	list = append(list, inc)
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list
}

// RecommendedAction returns the successful action for issue with the lowest mean MTTR.
func (k *Knowledge) RecommendedAction(issue string) (string, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	type score struct {
		count int
		total time.Duration
	}
	scores := make(map[string]*score)
	var order []string
	for _, inc := range k.successful[issue] {
		mttr := inc.MTTR
		if mttr <= 0 {
			mttr = defaultMTTR
		}
		s, ok := scores[inc.Action]
		if !ok {
			s = &score{}
			scores[inc.Action] = s
			order = append(order, inc.Action)
		}
		s.count++
		s.total += mttr
	}

	best, bestAvg := "", time.Duration(0)
	for _, action := range order {
		s := scores[action]
		avg := s.total / time.Duration(s.count)
		if best == "" || avg < bestAvg {
			best, bestAvg = action, avg
		}
	}
	return best, best != ""
}

// AverageMTTR returns the mean repair time of successful incidents for issue.
// Incidents without a repair time are ignored.
func (k *Knowledge) AverageMTTR(issue string) (time.Duration, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	var total time.Duration
	n := 0
	for _, inc := range k.successful[issue] {
		if inc.MTTR > 0 {
			total += inc.MTTR
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / time.Duration(n), true
}

// History returns a copy of all recorded incidents, oldest first.
func (k *Knowledge) History() []Incident {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return append([]Incident(nil), k.incidents...)
}
