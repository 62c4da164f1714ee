package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "goal-planner/internal/errors"
	"goal-planner/internal/model"
)

func graphTask(id string, order int, status model.TaskStatus, deps ...string) model.Task {
	return model.Task{ID: id, SortOrder: order, Status: status, DependsOn: deps}
}

func TestSelectNext(t *testing.T) {
	tests := []struct {
		name        string
		tasks       []model.Task
		wantID      string
		wantPos     int
		wantTotal   int
		wantBlocked int
	}{
		{
			name:  "empty goal",
			tasks: nil, wantPos: 1,
		},
		{
			name: "smallest sort order wins",
			tasks: []model.Task{
				graphTask("b", 2, model.TaskPending),
				graphTask("a", 1, model.TaskPending),
			},
			wantID: "a", wantPos: 1, wantTotal: 2,
		},
		{
			name: "skips task with pending dependency",
			tasks: []model.Task{
				graphTask("a", 1, model.TaskInProgress),
				graphTask("b", 2, model.TaskPending, "a"),
				graphTask("c", 3, model.TaskPending),
			},
			wantID: "c", wantPos: 1, wantTotal: 3, wantBlocked: 1,
		},
		{
			name: "completed dependency unblocks",
			tasks: []model.Task{
				graphTask("a", 1, model.TaskCompleted),
				graphTask("b", 2, model.TaskPending, "a"),
			},
			wantID: "b", wantPos: 2, wantTotal: 2,
		},
		{
			name: "missing dependency counts as satisfied",
			tasks: []model.Task{
				graphTask("b", 2, model.TaskPending, "deleted"),
			},
			wantID: "b", wantPos: 1, wantTotal: 1,
		},
		{
			name: "starved goal",
			tasks: []model.Task{
				graphTask("a", 1, model.TaskSkipped),
				graphTask("b", 2, model.TaskPending, "a"),
			},
			wantPos: 1, wantTotal: 2, wantBlocked: 1,
		},
		{
			name: "all done",
			tasks: []model.Task{
				graphTask("a", 1, model.TaskCompleted),
			},
			wantPos: 2, wantTotal: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := SelectNext(tt.tasks)
			if tt.wantID == "" {
				assert.Nil(t, next.Task)
			} else {
				require.NotNil(t, next.Task)
				assert.Equal(t, tt.wantID, next.Task.ID)
			}
			assert.Equal(t, tt.wantPos, next.Position)
			assert.Equal(t, tt.wantTotal, next.TotalTasks)
			assert.Equal(t, tt.wantBlocked, next.Blocked)
			assert.Equal(t, tt.wantID == "" && tt.wantBlocked > 0, next.Starved())
		})
	}
}

func TestSelectNext_NeverReturnsTaskWithOpenDependency(t *testing.T) {
	tasks := []model.Task{
		graphTask("a", 5, model.TaskPending),
		graphTask("b", 1, model.TaskPending, "a"),
		graphTask("c", 2, model.TaskPending, "b"),
	}
	next := SelectNext(tasks)
	require.NotNil(t, next.Task)
	assert.Equal(t, "a", next.Task.ID)
	assert.Equal(t, 2, next.Blocked)
}

func TestValidateDependencies(t *testing.T) {
	siblings := []model.Task{
		graphTask("a", 1, model.TaskPending),
		graphTask("b", 2, model.TaskPending, "a"),
		graphTask("c", 3, model.TaskPending, "b"),
	}

	deps, err := ValidateDependencies(siblings, "new", []string{"a", "b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, deps)

	_, err = ValidateDependencies(siblings, "b", []string{"b"})
	assert.ErrorIs(t, err, apperr.ErrInvalidDependency)

	_, err = ValidateDependencies(siblings, "b", []string{"elsewhere"})
	assert.ErrorIs(t, err, apperr.ErrInvalidDependency)
	assert.Equal(t, apperr.KindBadInput, apperr.KindOf(err))

	_, err = ValidateDependencies(siblings, "a", []string{"c"})
	assert.ErrorIs(t, err, apperr.ErrDependencyCycle)
	assert.Equal(t, apperr.KindBadInput, apperr.KindOf(err))

	deps, err = ValidateDependencies(siblings, "a", nil)
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestHasCycle(t *testing.T) {
	assert.False(t, hasCycle(map[string][]string{"a": nil, "b": {"a"}, "c": {"a", "b"}}))
	assert.True(t, hasCycle(map[string][]string{"a": {"b"}, "b": {"a"}}))
	assert.True(t, hasCycle(map[string][]string{"a": {"a"}}))
	assert.False(t, hasCycle(map[string][]string{"a": {"ghost"}}))
}
