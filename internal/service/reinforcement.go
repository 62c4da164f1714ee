package service

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
)

type ReinforcementType string

const (
	ReinforceCompletion ReinforcementType = "completion"
	ReinforceMilestone  ReinforcementType = "milestone"
	ReinforceStreak     ReinforcementType = "streak"
)

// Reinforcement is the feedback line shown after a completion.
type Reinforcement struct {
	Message string
	Type    ReinforcementType
}

var reinforcementMessages = map[ReinforcementType][]string{
	ReinforceCompletion: {
		"Crushed it! One step closer to your goal.",
		"Done and done! Momentum is building.",
		"That's the way! Keep this energy going.",
		"Another one in the books.",
		"Task complete. What's next?",
		"Small wins compound into big results.",
		"Action beats perfection. Well done!",
	},
	ReinforceMilestone: {
		"Milestone! You've hit {progress}% on your goal!",
		"Look at that: {progress}% complete.",
		"{progress}% done! The finish line is getting closer.",
		"Major milestone: {progress}%! Your consistency is paying off.",
	},
	ReinforceStreak: {
		"New streak record! {streak} days of consistent action!",
		"{streak} days in a row! You're building a habit.",
		"Streak record broken: {streak} days!",
	},
}

// Reinforcer picks messages without repeating one until most of its pool
// has been used.
type Reinforcer struct {
	mu     sync.Mutex
	rng    *rand.Rand
	recent map[ReinforcementType]map[int]bool
}

func NewReinforcer(seed uint64) *Reinforcer {
	return &Reinforcer{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		recent: make(map[ReinforcementType]map[int]bool),
	}
}

// ForCompletion chooses the message type for a completion outcome:
// milestone beats a new streak record, which beats plain completion.
func (r *Reinforcer) ForCompletion(progress int, milestone Milestone, streak StreakUpdate) Reinforcement {
	switch {
	case milestone != NoMilestone:
		return r.Pick(ReinforceMilestone, progress, streak.Current)
	case streak.IsNewRecord:
		return r.Pick(ReinforceStreak, progress, streak.Current)
	default:
		return r.Pick(ReinforceCompletion, progress, streak.Current)
	}
}

// Pick returns a message of type t with placeholders filled in.
func (r *Reinforcer) Pick(t ReinforcementType, progress, streak int) Reinforcement {
	pool := reinforcementMessages[t]
	if len(pool) == 0 {
		return Reinforcement{Message: "Great job!", Type: t}
	}

	r.mu.Lock()
	used, ok := r.recent[t]
	if !ok {
		used = make(map[int]bool)
		r.recent[t] = used
	}
	if len(used) >= len(pool)-1 {
		clear(used)
	}
	idx := r.rng.IntN(len(pool))
	for used[idx] {
		idx = r.rng.IntN(len(pool))
	}
	used[idx] = true
	r.mu.Unlock()

	msg := strings.NewReplacer(
		"{progress}", strconv.Itoa(progress),
		"{streak}", strconv.Itoa(streak),
	).Replace(pool[idx])
	return Reinforcement{Message: msg, Type: t}
}
