package service

import (
	"sync"

	"goal-planner/internal/model"
)

// Milestone is a progress threshold; NoMilestone means nothing was crossed.
type Milestone int

const NoMilestone Milestone = 0

var milestoneThresholds = []Milestone{25, 50, 75, 100}

// MilestoneStore remembers the last observed progress per goal.
type MilestoneStore interface {
	Get(goalID string) (progress int, ok bool)
	Set(goalID string, progress int)
	Delete(goalID string)
}

// MemoryMilestoneStore is a MilestoneStore backed by a map.
type MemoryMilestoneStore struct {
	mu       sync.Mutex
	progress map[string]int
}

func NewMemoryMilestoneStore() *MemoryMilestoneStore {
	return &MemoryMilestoneStore{progress: make(map[string]int)}
}

func (s *MemoryMilestoneStore) Get(goalID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[goalID]
	return p, ok
}

func (s *MemoryMilestoneStore) Set(goalID string, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[goalID] = progress
}

func (s *MemoryMilestoneStore) Delete(goalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.progress, goalID)
}

// Len reports how many goals are remembered.
func (s *MemoryMilestoneStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.progress)
}

// MilestoneTracker detects threshold crossings between successive progress
// observations of a goal. When one step crosses several thresholds the
// lowest is reported.
type MilestoneTracker struct {
	mu    sync.Mutex
	store MilestoneStore
}

func NewMilestoneTracker(store MilestoneStore) *MilestoneTracker {
	if store == nil {
		store = NewMemoryMilestoneStore()
	}
	return &MilestoneTracker{store: store}
}

// Check returns the lowest threshold t with previous < t <= current and
// raises goalID's baseline to current. The baseline never moves down, so a
// threshold is reported once until the goal is forgotten or reseeded. An
// unseen goal starts at 0.
func (m *MilestoneTracker) Check(goalID string, current int) Milestone {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous, _ := m.store.Get(goalID)
	if current <= previous {
		return NoMilestone
	}
	m.store.Set(goalID, current)

	for _, t := range milestoneThresholds {
		if previous < int(t) && current >= int(t) {
			return t
		}
	}
	return NoMilestone
}

// Seed sets goalID's baseline without reporting a crossing.
func (m *MilestoneTracker) Seed(goalID string, progress int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.Set(goalID, progress)
}

// Observe checks goal's freshly recomputed progress. Archived goals are
// not tracked: they report nothing and leave no memory behind.
func (m *MilestoneTracker) Observe(goal *model.Goal) Milestone {
	if goal == nil || goal.Status == model.GoalArchived {
		return NoMilestone
	}
	return m.Check(goal.ID, goal.Progress)
}

// SeedGoal seeds goal's current progress unless it is archived.
func (m *MilestoneTracker) SeedGoal(goal *model.Goal) {
	if goal == nil || goal.Status == model.GoalArchived {
		return
	}
	m.Seed(goal.ID, goal.Progress)
}

// Remembers reports whether goalID has a baseline.
func (m *MilestoneTracker) Remembers(goalID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.store.Get(goalID)
	return ok
}

// Forget drops goalID's memory. Called when a goal is archived, deleted or purged.
func (m *MilestoneTracker) Forget(goalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.Delete(goalID)
}
