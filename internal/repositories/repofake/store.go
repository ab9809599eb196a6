// Package repofake provides in-memory repositories with the same
// conditional-write semantics as the gorm implementations.
package repofake

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/burnoutcheck/backend/internal/models"
	"github.com/burnoutcheck/backend/internal/repositories"
	"github.com/google/uuid"
)

var (
	_ repositories.SessionRepository    = (*sessionRepo)(nil)
	_ repositories.CodeRepository       = (*codeRepo)(nil)
	_ repositories.AssessmentRepository = (*assessmentRepo)(nil)
	_ repositories.ReportRepository     = (*reportRepo)(nil)
)

// Store holds every table behind one lock so cascading deletes stay atomic.
type Store struct {
	lock sync.RWMutex

	sessions    map[string]models.Session
	codes       map[string]models.OneTimeCode
	assessments map[string]models.Assessment
	reports     map[string]models.Report

	// Now is the clock used for created_at and expiry checks.
	Now           func() time.Time
	SessionExpiry time.Duration
}

func NewStore(sessionExpiry time.Duration) *Store {
	return &Store{
		sessions:      make(map[string]models.Session),
		codes:         make(map[string]models.OneTimeCode),
		assessments:   make(map[string]models.Assessment),
		reports:       make(map[string]models.Report),
		Now:           func() time.Time { return time.Now().UTC() },
		SessionExpiry: sessionExpiry,
	}
}

// Repositories returns the store as a repository bundle.
func (s *Store) Repositories() *repositories.Repositories {
	return &repositories.Repositories{
		Sessions:    &sessionRepo{s},
		Codes:       &codeRepo{s},
		Assessments: &assessmentRepo{s},
		Reports:     &reportRepo{s},
	}
}

// CodeCount returns the number of stored codes for a lineage.
func (s *Store) CodeCount(token string, ch models.Channel) int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	n := 0
	for _, c := range s.codes {
		if c.SessionToken == token && c.Channel == ch {
			n++
		}
	}
	return n
}

// SetCode overwrites a stored code, for tests that need to age or tamper
// with a record.
func (s *Store) SetCode(c models.OneTimeCode) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.codes[c.ID] = c
}

// SetSessionCreatedAt backdates a session.
func (s *Store) SetSessionCreatedAt(token string, at time.Time) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if sess, ok := s.sessions[token]; ok {
		sess.CreatedAt = at
		s.sessions[token] = sess
	}
}

// RawSession returns the stored session ignoring expiry.
func (s *Store) RawSession(token string) (models.Session, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	sess, ok := s.sessions[token]
	return copySession(sess), ok
}

func copyLabels(in models.AnswerLabels) models.AnswerLabels {
	if in == nil {
		return nil
	}
	out := make(models.AnswerLabels, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copySession(s models.Session) models.Session {
	s.Answers = copyLabels(s.Answers)
	if s.Score != nil {
		v := *s.Score
		s.Score = &v
	}
	return s
}

type sessionRepo struct{ s *Store }

func (r *sessionRepo) Create(_ context.Context, sess *models.Session) error {
	r.s.lock.Lock()
	defer r.s.lock.Unlock()

	if _, ok := r.s.sessions[sess.Token]; ok {
		return repositories.ErrSessionExists
	}
	now := r.s.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now
	sess.Step = sess.CurrentStage()
	r.s.sessions[sess.Token] = copySession(*sess)
	return nil
}

func (r *sessionRepo) Get(_ context.Context, token string) (*models.Session, error) {
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()

	sess, ok := r.s.sessions[token]
	if !ok || !sess.CreatedAt.After(r.s.Now().Add(-r.s.SessionExpiry)) {
		return nil, repositories.ErrSessionNotFound
	}
	out := copySession(sess)
	out.Step = out.CurrentStage()
	return &out, nil
}

func (r *sessionRepo) Update(_ context.Context, sess *models.Session) error {
	r.s.lock.Lock()
	defer r.s.lock.Unlock()

	cur, ok := r.s.sessions[sess.Token]
	if !ok {
		return nil
	}
	cur.FullName = sess.FullName
	cur.Email = sess.Email
	cur.Mobile = sess.Mobile
	cur.PaymentReference = sess.PaymentReference
	cur.EmailVerified = cur.EmailVerified || sess.EmailVerified
	cur.MobileVerified = cur.MobileVerified || sess.MobileVerified
	cur.AssessmentCompleted = cur.AssessmentCompleted || sess.AssessmentCompleted
	cur.PaymentCompleted = cur.PaymentCompleted || sess.PaymentCompleted
	cur.ReportGenerated = cur.ReportGenerated || sess.ReportGenerated
	cur.ReportDelivered = cur.ReportDelivered || sess.ReportDelivered
	if sess.Score != nil {
		v := *sess.Score
		cur.Score = &v
		cur.Level = sess.Level
		cur.Answers = copyLabels(sess.Answers)
	}
	cur.UpdatedAt = r.s.Now()
	cur.Step = cur.CurrentStage()
	r.s.sessions[sess.Token] = cur

	sess.UpdatedAt = cur.UpdatedAt
	sess.Step = sess.CurrentStage()
	return nil
}

func (r *sessionRepo) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.lock.Lock()
	defer r.s.lock.Unlock()

	var n int64
	for token, sess := range r.s.sessions {
		if !sess.CreatedAt.Before(cutoff) {
			continue
		}
		for id, c := range r.s.codes {
			if c.SessionToken == token {
				delete(r.s.codes, id)
			}
		}
		delete(r.s.assessments, token)
		delete(r.s.reports, token)
		delete(r.s.sessions, token)
		n++
	}
	return n, nil
}

type codeRepo struct{ s *Store }

func (r *codeRepo) Latest(_ context.Context, token string, ch models.Channel) (*models.OneTimeCode, error) {
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()

	var lineage []models.OneTimeCode
	for _, c := range r.s.codes {
		if c.SessionToken == token && c.Channel == ch {
			lineage = append(lineage, c)
		}
	}
	if len(lineage) == 0 {
		return nil, nil
	}
	sort.Slice(lineage, func(i, j int) bool { return lineage[i].ResendCount > lineage[j].ResendCount })
	latest := lineage[0]
	return &latest, nil
}

func (r *codeRepo) Get(_ context.Context, id string) (*models.OneTimeCode, error) {
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()

	c, ok := r.s.codes[id]
	if !ok {
		return nil, repositories.ErrCodeNotFound
	}
	return &c, nil
}

func (r *codeRepo) Create(_ context.Context, c *models.OneTimeCode) (bool, error) {
	r.s.lock.Lock()
	defer r.s.lock.Unlock()

	for _, existing := range r.s.codes {
		if existing.SessionToken == c.SessionToken && existing.Channel == c.Channel && existing.ResendCount == c.ResendCount {
			return false, nil
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.s.Now()
	}
	r.s.codes[c.ID] = *c
	return true, nil
}

func (r *codeRepo) IncrementAttempts(_ context.Context, id string, maxAttempts int) (bool, error) {
	r.s.lock.Lock()
	defer r.s.lock.Unlock()

	c, ok := r.s.codes[id]
	if !ok || c.Verified || c.Attempts >= maxAttempts {
		return false, nil
	}
	c.Attempts++
	r.s.codes[id] = c
	return true, nil
}

func (r *codeRepo) MarkVerified(_ context.Context, id string, maxAttempts int) (bool, error) {
	r.s.lock.Lock()
	defer r.s.lock.Unlock()

	c, ok := r.s.codes[id]
	if !ok || c.Verified || c.Attempts >= maxAttempts {
		return false, nil
	}
	c.Verified = true
	r.s.codes[id] = c
	return true, nil
}

func (r *codeRepo) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.lock.Lock()
	defer r.s.lock.Unlock()

	var n int64
	for id, c := range r.s.codes {
		if c.CreatedAt.Before(cutoff) {
			delete(r.s.codes, id)
			n++
		}
	}
	return n, nil
}

type assessmentRepo struct{ s *Store }

func (r *assessmentRepo) Create(_ context.Context, a *models.Assessment) (bool, error) {
	r.s.lock.Lock()
	defer r.s.lock.Unlock()

	if _, ok := r.s.assessments[a.SessionToken]; ok {
		return false, nil
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = r.s.Now()
	stored := *a
	stored.Answers = copyLabels(a.Answers)
	r.s.assessments[a.SessionToken] = stored
	return true, nil
}

func (r *assessmentRepo) Get(_ context.Context, token string) (*models.Assessment, error) {
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()

	a, ok := r.s.assessments[token]
	if !ok {
		return nil, repositories.ErrAssessmentNotFound
	}
	a.Answers = copyLabels(a.Answers)
	return &a, nil
}

type reportRepo struct{ s *Store }

func (r *reportRepo) Create(_ context.Context, rep *models.Report) (bool, error) {
	r.s.lock.Lock()
	defer r.s.lock.Unlock()

	if _, ok := r.s.reports[rep.SessionToken]; ok {
		return false, nil
	}
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	rep.CreatedAt = r.s.Now()
	r.s.reports[rep.SessionToken] = *rep
	return true, nil
}

func (r *reportRepo) Get(_ context.Context, token string) (*models.Report, error) {
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()

	rep, ok := r.s.reports[token]
	if !ok {
		return nil, repositories.ErrReportNotFound
	}
	return &rep, nil
}

func (r *reportRepo) MarkEmailSent(_ context.Context, token string, at time.Time) (bool, error) {
	r.s.lock.Lock()
	defer r.s.lock.Unlock()

	rep, ok := r.s.reports[token]
	if !ok || rep.EmailSent {
		return false, nil
	}
	rep.EmailSent = true
	rep.EmailSentAt = &at
	r.s.reports[token] = rep
	return true, nil
}
