package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/dmitrijs2005/uptcauth/internal/common"
	"github.com/dmitrijs2005/uptcauth/internal/dbx"
	"github.com/dmitrijs2005/uptcauth/internal/notify"
	"github.com/dmitrijs2005/uptcauth/internal/server/models"
	"github.com/dmitrijs2005/uptcauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/uptcauth/internal/server/repositories/verifications"
)

type fakeUsersRepo struct {
	mu      sync.Mutex
	byEmail map[string]models.User

	createErr error
	getErr    error
	existsErr error
	saveErr   error

	saved  []models.User
	locked []string
}

func newFakeUsers(us ...models.User) *fakeUsersRepo {
	r := &fakeUsersRepo{byEmail: map[string]models.User{}}
	for _, u := range us {
		r.byEmail[u.Email] = u
	}
	return r
}

func (r *fakeUsersRepo) Create(_ context.Context, u models.User) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return models.User{}, r.createErr
	}
	u.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.byEmail[u.Email] = u
	return u, nil
}

func (r *fakeUsersRepo) GetByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return models.User{}, r.getErr
	}
	u, ok := r.byEmail[email]
	if !ok {
		return models.User{}, common.ErrorNotFound
	}
	return u, nil
}

func (r *fakeUsersRepo) GetByEmailForUpdate(ctx context.Context, email string) (models.User, error) {
	r.mu.Lock()
	r.locked = append(r.locked, email)
	r.mu.Unlock()
	return r.GetByEmail(ctx, email)
}

func (r *fakeUsersRepo) Exists(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.existsErr != nil {
		return false, r.existsErr
	}
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *fakeUsersRepo) Save(_ context.Context, u models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if _, ok := r.byEmail[u.Email]; !ok {
		return common.ErrorNotFound
	}
	r.byEmail[u.Email] = u
	r.saved = append(r.saved, u)
	return nil
}

type ledgerEntry struct {
	code string
	exp  time.Time
}

type fakeLedger struct {
	mu      sync.Mutex
	entries map[string]ledgerEntry
	now     func() time.Time

	upsertErr  error
	consumeErr error
	swept      int64
}

func newFakeLedger(now func() time.Time) *fakeLedger {
	return &fakeLedger{entries: map[string]ledgerEntry{}, now: now}
}

func (l *fakeLedger) Upsert(_ context.Context, email, code string, exp time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.upsertErr != nil {
		return l.upsertErr
	}
	l.entries[email] = ledgerEntry{code: code, exp: exp}
	return nil
}

func (l *fakeLedger) Consume(_ context.Context, email, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.consumeErr != nil {
		return l.consumeErr
	}
	e, ok := l.entries[email]
	if !ok || e.code != code || l.now().After(e.exp) {
		return common.ErrCodeInvalidOrExpired
	}
	delete(l.entries, email)
	return nil
}

func (l *fakeLedger) DeleteExpired(context.Context) (int64, error) {
	return l.swept, nil
}

type fakeRepoManager struct {
	users  *fakeUsersRepo
	ledger *fakeLedger
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return m.users }
func (m *fakeRepoManager) Verifications(dbx.DBTX) verifications.Ledger { return m.ledger }

type recordingMailer struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recordingMailer) Dispatch(_ context.Context, m notify.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	return true
}

func (r *recordingMailer) last() (notify.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return notify.Message{}, false
	}
	return r.msgs[len(r.msgs)-1], true
}

// fixedCodes hands out codes in order and repeats the last one.
type fixedCodes struct {
	codes []string
	err   error
	n     int
}

func (f *fixedCodes) Generate(int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	c := f.codes[min(f.n, len(f.codes)-1)]
	f.n++
	return c, nil
}

// countingHasher records which digests Verify was asked about.
type countingHasher struct {
	PasswordHasher
	mu       sync.Mutex
	verified []string
}

func (c *countingHasher) Verify(password, digest string) (bool, error) {
	c.mu.Lock()
	c.verified = append(c.verified, digest)
	c.mu.Unlock()
	return c.PasswordHasher.Verify(password, digest)
}
