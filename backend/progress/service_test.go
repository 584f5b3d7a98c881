package progress

import (
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	percent   map[sessionKey]int
	completed map[sessionKey]bool
	recalcs   int
	saveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		percent:   make(map[sessionKey]int),
		completed: make(map[sessionKey]bool),
	}
}

func (f *fakeStore) Load(userID, courseID, lessonID uint) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := sessionKey{userID: userID, lessonID: lessonID}
	return f.percent[k], f.completed[k], nil
}

func (f *fakeStore) Save(userID, courseID, lessonID uint, percent int, completed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	k := sessionKey{userID: userID, lessonID: lessonID}
	if percent > f.percent[k] {
		f.percent[k] = percent
	}
	if completed {
		f.completed[k] = true
	}
	return nil
}

func (f *fakeStore) RecalcCourse(userID, courseID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recalcs++
	return nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestServicePersistsOnCompletion(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testLogger())

	id, _, err := svc.Start(1, 2, 3, 100)
	require.NoError(t, err)

	pos := 0.0
	for i := 0; i <= 70; i++ {
		_, err := svc.Sample(id, pos)
		require.NoError(t, err)
		pos++
	}
	svc.Wait()

	k := sessionKey{userID: 1, lessonID: 3}
	assert.Equal(t, 70, store.percent[k])
	assert.True(t, store.completed[k])
	assert.Equal(t, 1, store.recalcs, "aggregate recomputed once, on the completion flip")
}

func TestServiceResumesFromStore(t *testing.T) {
	store := newFakeStore()
	store.percent[sessionKey{userID: 1, lessonID: 3}] = 40

	svc := NewService(store, testLogger())
	_, sess, err := svc.Start(1, 2, 3, 100)
	require.NoError(t, err)

	assert.Equal(t, 40, sess.Percent())
}

func TestServiceReusesSessionPerUserLesson(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testLogger())

	id1, _, err := svc.Start(1, 2, 3, 100)
	require.NoError(t, err)
	id2, _, err := svc.Start(1, 2, 3, 100)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	id3, _, err := svc.Start(7, 2, 3, 100)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestServiceSampleUnknownSession(t *testing.T) {
	svc := NewService(newFakeStore(), testLogger())

	_, err := svc.Sample("nope", 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestServiceSwallowsPersistFailures(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("db unreachable")
	svc := NewService(store, testLogger())

	id, _, err := svc.Start(1, 2, 3, 100)
	require.NoError(t, err)

	// The viewer keeps getting optimistic state even though every write
	// fails.
	pos := 0.0
	for i := 0; i <= 10; i++ {
		res, err := svc.Sample(id, pos)
		require.NoError(t, err)
		assert.Equal(t, int(pos), res.Percent)
		pos++
	}
	svc.Wait()
}

func TestServiceStopFlushesFinalState(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testLogger())

	id, _, err := svc.Start(1, 2, 3, 100)
	require.NoError(t, err)

	// 3 credited seconds: below the 5-point persist step, so nothing is
	// written until the session closes.
	for _, p := range []float64{0, 1, 2, 3} {
		_, err := svc.Sample(id, p)
		require.NoError(t, err)
	}
	svc.Stop(id)
	svc.Wait()

	assert.Equal(t, 3, store.percent[sessionKey{userID: 1, lessonID: 3}])

	// The session is gone afterwards
	_, err = svc.Sample(id, 4)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
