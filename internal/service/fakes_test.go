package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cleft-care-backend/internal/model"
	"github.com/iliyamo/cleft-care-backend/internal/notify"
	"github.com/iliyamo/cleft-care-backend/internal/oauth"
	"github.com/iliyamo/cleft-care-backend/internal/repository"
	"github.com/iliyamo/cleft-care-backend/internal/utils"
)

const otpTTL = 5 * time.Minute

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu        sync.Mutex
	nextID    uint64
	byID      map[uint64]model.User
	createErr error
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]model.User{}} }

func (m *memUsers) Create(_ context.Context, u model.User) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return 0, m.createErr
	}
	u.Email = repository.NormalizeEmail(u.Email)
	for _, x := range m.byID {
		if x.Email == u.Email {
			return 0, repository.ErrEmailExists
		}
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	if u.Status == "" {
		u.Status = model.StatusActive
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	m.byID[u.ID] = u
	return u.ID, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = repository.NormalizeEmail(email)
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByGoogleIDOrEmail(ctx context.Context, googleID, email string) (model.User, error) {
	m.mu.Lock()
	for _, u := range m.byID {
		if u.GoogleID != "" && u.GoogleID == googleID {
			m.mu.Unlock()
			return u, nil
		}
	}
	m.mu.Unlock()
	return m.GetByEmail(ctx, email)
}

func (m *memUsers) List(context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) update(id uint64, fn func(*model.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	m.byID[id] = u
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	return m.update(id, func(u *model.User) { u.PasswordHash = hash })
}

func (m *memUsers) UpdateContact(_ context.Context, id uint64, address, phone string) error {
	return m.update(id, func(u *model.User) { u.Address, u.PhoneNumber = address, phone })
}

func (m *memUsers) CompleteProfile(_ context.Context, id uint64, p model.ProfileCompletion) error {
	m.mu.Lock()
	u, ok := m.byID[id]
	m.mu.Unlock()
	if !ok || !u.NeedsProfileCompletion {
		return repository.ErrConflict
	}
	return m.update(id, func(u *model.User) {
		u.PhoneNumber, u.Address, u.City, u.State, u.ZipCode = p.PhoneNumber, p.Address, p.City, p.State, p.ZipCode
		u.NeedsProfileCompletion = false
	})
}

func (m *memUsers) LinkGoogle(_ context.Context, id uint64, googleID, avatar string) error {
	return m.update(id, func(u *model.User) {
		if u.GoogleID == "" {
			u.GoogleID = googleID
		}
		if u.AvatarURL == "" {
			u.AvatarURL = avatar
		}
		u.IsVerified = true
	})
}

func (m *memUsers) UpdateRole(_ context.Context, id uint64, role string) error {
	return m.update(id, func(u *model.User) { u.Role = role })
}

func (m *memUsers) UpdateStatus(_ context.Context, id uint64, status string) error {
	return m.update(id, func(u *model.User) { u.Status = status })
}

func (m *memUsers) UpdateDonationStats(_ context.Context, id uint64, s model.DonationSummary) error {
	return m.update(id, func(u *model.User) {
		u.TotalDonated, u.DonationCount, u.LastDonationAt = s.TotalDonated, s.DonationCount, s.LastDonationDate
	})
}

func (m *memUsers) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

// memDonations is an in-memory DonationStore.
type memDonations struct {
	mu   sync.Mutex
	rows []model.Donation
}

func (m *memDonations) AssignAnonymous(_ context.Context, email string, userID uint64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.rows {
		if m.rows[i].Email == email && m.rows[i].UserID == nil {
			id := userID
			m.rows[i].UserID = &id
			n++
		}
	}
	return n, nil
}

func (m *memDonations) filter(keep func(model.Donation) bool) []model.Donation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Donation{}
	for _, d := range m.rows {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func summarize(ds []model.Donation) model.DonationSummary {
	var s model.DonationSummary
	for _, d := range ds {
		if d.Status != model.DonationSuccessful {
			continue
		}
		s.TotalDonated += d.Amount
		s.DonationCount++
		if s.LastDonationDate == nil || d.CreatedAt.After(*s.LastDonationDate) {
			t := d.CreatedAt
			s.LastDonationDate = &t
		}
	}
	return s
}

func ownedBy(userID uint64) func(model.Donation) bool {
	return func(d model.Donation) bool { return d.UserID != nil && *d.UserID == userID }
}

func (m *memDonations) SummaryByUser(_ context.Context, userID uint64) (model.DonationSummary, error) {
	return summarize(m.filter(ownedBy(userID))), nil
}

func (m *memDonations) SummaryByEmail(_ context.Context, email string) (model.DonationSummary, error) {
	return summarize(m.filter(func(d model.Donation) bool { return d.Email == email })), nil
}

func (m *memDonations) SuccessfulByUser(_ context.Context, userID uint64) ([]model.Donation, error) {
	own := ownedBy(userID)
	return m.filter(func(d model.Donation) bool { return own(d) && d.Status == model.DonationSuccessful }), nil
}

func (m *memDonations) ByEmail(_ context.Context, email string) ([]model.Donation, error) {
	return m.filter(func(d model.Donation) bool { return d.Email == email }), nil
}

// outbox records sent codes and can be told to fail.
type outbox struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func (o *outbox) SendOTP(_ context.Context, email, code string, _ notify.Purpose) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	if o.sent == nil {
		o.sent = map[string]string{}
	}
	o.sent[email] = code
	return nil
}

func (o *outbox) last(email string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent[email]
}

type stubVerifier struct {
	ident oauth.Identity
	err   error
}

func (v stubVerifier) Verify(context.Context, string) (oauth.Identity, error) { return v.ident, v.err }

type harness struct {
	svc       *AuthService
	mr        *miniredis.Miniredis
	users     *memUsers
	donations *memDonations
	mail      *outbox
	issuer    *utils.TokenIssuer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := &harness{
		mr:        mr,
		users:     newMemUsers(),
		donations: &memDonations{},
		mail:      &outbox{},
		issuer:    utils.NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour),
	}
	h.svc = NewAuthService(slog.New(slog.NewTextHandler(io.Discard, nil)), Deps{
		Users:      h.users,
		Donations:  h.donations,
		Signups:    repository.NewSignupStore(rdb, otpTTL),
		Resets:     repository.NewResetStore(rdb, otpTTL),
		Refresh:    repository.NewTokenRepo(rdb, 7*24*time.Hour),
		Notifier:   h.mail,
		Google:     stubVerifier{},
		Issuer:     h.issuer,
		BcryptCost: 4,
	})
	return h
}

// seedUser creates an active user with a password.
func (h *harness) seedUser(t *testing.T, email, password string) model.User {
	t.Helper()
	hash, err := utils.HashPassword(password, 4)
	if err != nil {
		t.Fatal(err)
	}
	id, err := h.users.Create(context.Background(), model.User{Email: email, PasswordHash: hash, IsVerified: true})
	if err != nil {
		t.Fatal(err)
	}
	u, _ := h.users.GetByID(context.Background(), id)
	return u
}
