package progress

import "math"

const (
	// MaxCreditedDelta bounds how many seconds a single position jump can
	// credit. Anything at or above it is a seek, not playback.
	MaxCreditedDelta = 5.0

	// CompletionPercent is the watched-percentage at which a lesson counts
	// as finished.
	CompletionPercent = 70

	// PersistStep is the minimum percentage advance between persisted
	// writes, keeping write volume to about 20 per lesson view.
	PersistStep = 5
)

// Session accumulates real watch time for one lesson playback. Samples
// carry the current playback position; only forward movement smaller than
// MaxCreditedDelta seconds is credited, so scrubbing cannot inflate the
// percentage.
type Session struct {
	UserID   uint
	CourseID uint
	LessonID uint

	duration    float64 // total media length in seconds, 0 = unknown
	prevPos     float64
	hasPrev     bool
	accumulated float64 // credited watch seconds
	persisted   int     // percent at the last persist decision
	completed   bool
}

// SampleResult tells the caller what the sample did.
type SampleResult struct {
	Percent      int
	Completed    bool // current completion state
	CompletedNow bool // this sample crossed the threshold
	Persist      bool // this sample should be written out
}

// NewSession starts a playback session, seeding the accumulated watch time
// from the last persisted percentage so resumed viewers keep their credit.
func NewSession(userID, courseID, lessonID uint, durationSeconds int, lastPercent int, completed bool) *Session {
	s := &Session{
		UserID:    userID,
		CourseID:  courseID,
		LessonID:  lessonID,
		duration:  float64(durationSeconds),
		persisted: lastPercent,
		completed: completed,
	}
	if s.duration > 0 {
		s.accumulated = float64(lastPercent) / 100 * s.duration
	}
	return s
}

// Sample feeds one playback-position reading. With an unknown duration no
// percentage can be computed and the sample is ignored.
func (s *Session) Sample(position float64) SampleResult {
	if s.duration <= 0 {
		return SampleResult{Percent: s.persisted, Completed: s.completed}
	}

	if s.hasPrev {
		dt := position - s.prevPos
		if dt > 0 && dt < MaxCreditedDelta {
			s.accumulated += dt
		}
	}
	s.prevPos = position
	s.hasPrev = true

	percent := s.Percent()

	res := SampleResult{Percent: percent, Completed: s.completed}
	if !s.completed && percent >= CompletionPercent {
		s.completed = true
		res.Completed = true
		res.CompletedNow = true
	}

	if res.CompletedNow || percent-s.persisted >= PersistStep {
		res.Persist = true
		// Advance optimistically; a failed write is retried by the next
		// qualifying sample, not by this one.
		s.persisted = percent
	}

	return res
}

// Percent is floor(min(100, accumulated/duration*100)).
func (s *Session) Percent() int {
	if s.duration <= 0 {
		return s.persisted
	}
	return int(math.Floor(math.Min(100, s.accumulated/s.duration*100)))
}

// Completed reports whether the completion threshold has been crossed,
// either in this session or in a persisted earlier one.
func (s *Session) Completed() bool {
	return s.completed
}
