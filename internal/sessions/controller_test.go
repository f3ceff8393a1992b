package sessions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/treppan-learn/backend/internal/catalog"
	"github.com/treppan-learn/backend/internal/models"
	"github.com/treppan-learn/backend/internal/playback"
)

func testProvider() *catalog.FixtureProvider {
	return catalog.NewFixtureProvider([]catalog.Course{
		{
			Summary: models.CourseSummary{ID: "intro", Title: "Intro", Level: models.LevelBeginner},
			Lessons: []models.Lesson{
				{ID: "L1", Title: "One", DurationLabel: "10:00"},
				{ID: "L2", Title: "Two", DurationLabel: "05:30"},
				{ID: "L3", Title: "Three", DurationLabel: "07:45"},
			},
			Content: models.CourseContent{Overview: "Start here."},
		},
	})
}

type recorder struct {
	mu     sync.Mutex
	states []Snapshot
	events []models.LessonEvent
}

func (r *recorder) onState(s Snapshot) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) onLessonEvent(ev models.LessonEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, string(ev.Type)+":"+ev.LessonID)
	}
	return out
}

func (r *recorder) stateVersions() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, s.Version)
	}
	return out
}

func newTestRegistry(t *testing.T, opts Options) (*Registry, *recorder) {
	t.Helper()
	if opts.DefaultCourseID == "" {
		opts.DefaultCourseID = "intro"
	}
	reg := NewRegistry(testProvider(), opts, zap.NewNop())
	rec := &recorder{}
	reg.SetStateHandler(rec.onState)
	reg.SetLessonEventHandler(rec.onLessonEvent)
	t.Cleanup(func() { reg.CloseAll(context.Background()) })
	return reg, rec
}

func TestOpenReturnsInitialSnapshot(t *testing.T) {
	reg, rec := newTestRegistry(t, Options{})

	ctrl, snap, err := reg.Open(context.Background(), OpenRequest{CourseID: "intro"})
	require.NoError(t, err)

	assert.Equal(t, ctrl.ID(), snap.SessionID)
	assert.Equal(t, playback.State{CourseID: "intro", ActiveLessonID: "L1"}, snap.State)
	assert.Equal(t, "Intro", snap.View.CourseTitle)
	assert.Equal(t, uint64(1), snap.Version)
	assert.Equal(t, 1, reg.Len())
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"lesson_started:L1"}, rec.eventTypes())
	}, time.Second, 5*time.Millisecond)
}

func TestOpenUnknownCourseFallsBack(t *testing.T) {
	reg, _ := newTestRegistry(t, Options{})

	_, snap, err := reg.Open(context.Background(), OpenRequest{CourseID: "missing"})
	require.NoError(t, err)
	assert.Equal(t, "intro", snap.State.CourseID)
}

func TestOpenRestoresProgress(t *testing.T) {
	reg, _ := newTestRegistry(t, Options{SeedProgress: 23})

	_, seeded, err := reg.Open(context.Background(), OpenRequest{})
	require.NoError(t, err)
	assert.Equal(t, 23, seeded.State.ProgressPercent)

	restored := 140
	_, snap, err := reg.Open(context.Background(), OpenRequest{Progress: &restored})
	require.NoError(t, err)
	assert.Equal(t, 100, snap.State.ProgressPercent)
}

func TestApplySequence(t *testing.T) {
	reg, rec := newTestRegistry(t, Options{})
	ctx := context.Background()
	ctrl, _, err := reg.Open(ctx, OpenRequest{CourseID: "intro"})
	require.NoError(t, err)

	_, err = ctrl.Apply(ctx, Command{Action: ActionTogglePlay})
	require.NoError(t, err)
	snap, err := ctrl.Apply(ctx, Command{Action: ActionAdvanceProgress, Value: 40})
	require.NoError(t, err)
	assert.Equal(t, playback.State{CourseID: "intro", ActiveLessonID: "L1", IsPlaying: true, ProgressPercent: 40}, snap.State)

	snap, err = ctrl.Apply(ctx, Command{Action: ActionNextLesson})
	require.NoError(t, err)
	assert.True(t, snap.Applied)
	assert.Equal(t, playback.State{CourseID: "intro", ActiveLessonID: "L2"}, snap.State)

	snap, err = ctrl.Apply(ctx, Command{Action: ActionCompleteLesson})
	require.NoError(t, err)
	assert.True(t, snap.View.Lessons[1].Completed)

	want := []string{"lesson_started:L1", "lesson_started:L2", "lesson_completed:L2"}
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(want, rec.eventTypes()) && len(rec.stateVersions()) == 5
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, rec.stateVersions())
}

func TestApplyNoopIsNotBroadcast(t *testing.T) {
	reg, rec := newTestRegistry(t, Options{})
	ctx := context.Background()
	ctrl, _, err := reg.Open(ctx, OpenRequest{CourseID: "intro"})
	require.NoError(t, err)

	snap, err := ctrl.Apply(ctx, Command{Action: ActionSelectLesson, LessonID: "nope"})
	require.NoError(t, err)
	assert.False(t, snap.Applied)
	assert.Equal(t, uint64(1), snap.Version)

	snap, err = ctrl.Apply(ctx, Command{Action: ActionTogglePanel})
	require.NoError(t, err)
	assert.False(t, snap.Applied)

	_, err = ctrl.Apply(ctx, Command{Action: ActionTogglePlay})
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return len(rec.stateVersions()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []uint64{1, 2}, rec.stateVersions())
}

func TestSlowHooksDoNotDelayApply(t *testing.T) {
	reg := NewRegistry(testProvider(), Options{DefaultCourseID: "intro"}, zap.NewNop())
	t.Cleanup(func() { reg.CloseAll(context.Background()) })
	rec := &recorder{}
	reg.SetLessonEventHandler(func(ev models.LessonEvent) {
		time.Sleep(300 * time.Millisecond)
		rec.onLessonEvent(ev)
	})
	ctrl, _, err := reg.Open(context.Background(), OpenRequest{CourseID: "intro"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	snap, err := ctrl.Apply(ctx, Command{Action: ActionSelectLesson, LessonID: "L3"})
	require.NoError(t, err)
	assert.Equal(t, "L3", snap.State.ActiveLessonID)

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"lesson_started:L1", "lesson_started:L3"}, rec.eventTypes())
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseTwiceDeliversQueuedOutput(t *testing.T) {
	reg, rec := newTestRegistry(t, Options{})
	ctx := context.Background()
	ctrl, _, err := reg.Open(ctx, OpenRequest{CourseID: "intro"})
	require.NoError(t, err)

	require.NoError(t, reg.Close(ctx, ctrl.ID()))
	ctrl.Close()

	assert.Eventually(t, func() bool { return len(rec.eventTypes()) == 1 }, time.Second, 5*time.Millisecond)
	_, err = ctrl.Apply(ctx, Command{Action: ActionNextLesson})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestApplySetViewportEnablesPanel(t *testing.T) {
	reg, _ := newTestRegistry(t, Options{})
	ctx := context.Background()
	ctrl, _, err := reg.Open(ctx, OpenRequest{CourseID: "intro"})
	require.NoError(t, err)

	snap, err := ctrl.Apply(ctx, Command{Action: ActionSetViewport, Viewport: "narrow"})
	require.NoError(t, err)
	assert.Equal(t, playback.ViewportNarrow, snap.View.Viewport)

	snap, err = ctrl.Apply(ctx, Command{Action: ActionTogglePanel})
	require.NoError(t, err)
	assert.True(t, snap.State.PanelVisible)
	assert.True(t, snap.View.Panel.Open)
}

func TestApplyUnknownAction(t *testing.T) {
	reg, _ := newTestRegistry(t, Options{})
	ctrl, _, err := reg.Open(context.Background(), OpenRequest{})
	require.NoError(t, err)

	_, err = ctrl.Apply(context.Background(), Command{Action: "rewind"})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestConcurrentActionsNeverSplitLessonChange(t *testing.T) {
	reg, _ := newTestRegistry(t, Options{})
	ctx := context.Background()
	ctrl, _, err := reg.Open(ctx, OpenRequest{CourseID: "intro"})
	require.NoError(t, err)

	lessons := []string{"L1", "L2", "L3"}
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _ = ctrl.Apply(ctx, Command{Action: ActionSelectLesson, LessonID: lessons[i%3]})
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _ = ctrl.Apply(ctx, Command{Action: ActionAdvanceProgress, Value: i})
		}(i)
	}
	wg.Wait()

	snap, err := ctrl.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, snap.State.IsPlaying)
	assert.GreaterOrEqual(t, snap.State.ProgressPercent, 0)
	assert.LessOrEqual(t, snap.State.ProgressPercent, 100)
	assert.Contains(t, lessons, snap.State.ActiveLessonID)
}

func TestClosedSessionRejectsCommands(t *testing.T) {
	reg, _ := newTestRegistry(t, Options{})
	ctx := context.Background()
	ctrl, _, err := reg.Open(ctx, OpenRequest{})
	require.NoError(t, err)

	require.NoError(t, reg.Close(ctx, ctrl.ID()))

	_, err = ctrl.Apply(ctx, Command{Action: ActionTogglePlay})
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = reg.Apply(ctx, ctrl.ID(), Command{Action: ActionTogglePlay})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, reg.Close(ctx, ctrl.ID()), ErrSessionNotFound)
}

type lifecycleRecorder struct {
	mu     sync.Mutex
	opened int
	closed int
}

func (l *lifecycleRecorder) SessionOpened(context.Context, *Controller) {
	l.mu.Lock()
	l.opened++
	l.mu.Unlock()
}

func (l *lifecycleRecorder) SessionClosed(context.Context, *Controller, time.Time) {
	l.mu.Lock()
	l.closed++
	l.mu.Unlock()
}

func TestSweepClosesIdleSessions(t *testing.T) {
	reg, _ := newTestRegistry(t, Options{IdleTTL: time.Minute})
	lc := &lifecycleRecorder{}
	reg.SetLifecycle(lc)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }
	ctx := context.Background()

	idle, _, err := reg.Open(ctx, OpenRequest{})
	require.NoError(t, err)
	now = now.Add(50 * time.Second)
	active, _, err := reg.Open(ctx, OpenRequest{})
	require.NoError(t, err)

	now = now.Add(20 * time.Second)
	assert.Equal(t, 1, reg.Sweep(ctx))

	_, err = reg.Get(idle.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = reg.Get(active.ID())
	assert.NoError(t, err)
	assert.Equal(t, 2, lc.opened)
	assert.Equal(t, 1, lc.closed)
}
