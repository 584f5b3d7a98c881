package progress

import (
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("playback session not found")

// Service owns the active playback sessions. One session per
// (user, lesson); two tabs on the same lesson share it, last write wins on
// the persisted row.
type Service struct {
	store  Store
	logger *log.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	byLesson map[sessionKey]string

	// wg tracks in-flight background writes so tests and shutdown can
	// drain them.
	wg sync.WaitGroup
}

type sessionKey struct {
	userID   uint
	lessonID uint
}

func NewService(store Store, logger *log.Logger) *Service {
	return &Service{
		store:    store,
		logger:   logger,
		sessions: make(map[string]*Session),
		byLesson: make(map[sessionKey]string),
	}
}

// Start opens (or resumes) a playback session and returns its id plus the
// percentage the viewer already earned.
func (s *Service) Start(userID, courseID, lessonID uint, durationSeconds int) (string, *Session, error) {
	lastPercent, completed, err := s.store.Load(userID, courseID, lessonID)
	if err != nil {
		return "", nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey{userID: userID, lessonID: lessonID}
	if id, ok := s.byLesson[key]; ok {
		return id, s.sessions[id], nil
	}

	id := uuid.NewString()
	sess := NewSession(userID, courseID, lessonID, durationSeconds, lastPercent, completed)
	s.sessions[id] = sess
	s.byLesson[key] = id
	return id, sess, nil
}

// Sample applies one playback-position reading and, when the tracker says
// so, persists in the background. Persistence failures are logged and never
// reach the viewer; the in-memory state has already moved on.
func (s *Service) Sample(sessionID string, position float64) (SampleResult, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return SampleResult{}, ErrSessionNotFound
	}
	res := sess.Sample(position)
	s.mu.Unlock()

	if res.Persist {
		s.persistAsync(sess, res)
	}

	return res, nil
}

// Stop closes the session. The final state is flushed if anything advanced
// since the last persisted write.
func (s *Service) Stop(sessionID string) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	var final SampleResult
	if ok {
		delete(s.sessions, sessionID)
		delete(s.byLesson, sessionKey{userID: sess.UserID, lessonID: sess.LessonID})
		final = SampleResult{Percent: sess.Percent(), Completed: sess.Completed()}
	}
	s.mu.Unlock()

	if ok {
		s.persistAsync(sess, final)
	}
}

// Wait blocks until all background writes have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) persistAsync(sess *Session, res SampleResult) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if err := s.store.Save(sess.UserID, sess.CourseID, sess.LessonID, res.Percent, res.Completed); err != nil {
			s.logger.Printf("progress: save user=%d lesson=%d percent=%d: %v",
				sess.UserID, sess.LessonID, res.Percent, err)
			return
		}

		if res.CompletedNow {
			if err := s.store.RecalcCourse(sess.UserID, sess.CourseID); err != nil {
				s.logger.Printf("progress: recalc course user=%d course=%d: %v",
					sess.UserID, sess.CourseID, err)
			}
		}
	}()
}
