package router

import (
	"context"
	"errors"
	"sync"

	"github.com/iliyamo/cleft-care-backend/internal/model"
	"github.com/iliyamo/cleft-care-backend/internal/notify"
	"github.com/iliyamo/cleft-care-backend/internal/oauth"
	"github.com/iliyamo/cleft-care-backend/internal/repository"
)

// memUsers is an in-memory service.UserStore.
type memUsers struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]model.User{}} }

func (m *memUsers) Create(_ context.Context, u model.User) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	m.byID[u.ID] = u
	return u.ID, nil
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return model.User{}, repository.ErrNotFound
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
	for id := uint64(1); id <= m.nextID; id++ {
		if u, ok := m.byID[id]; ok {
			out = append(out, u)
		}
	}
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

// donations holds anonymous successful payments keyed by email; they are
// claimed on signup.
type donations struct {
	mu    sync.Mutex
	rows  []model.Donation
	owned map[uint64][]model.Donation
}

func (d *donations) AssignAnonymous(_ context.Context, email string, userID uint64) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	keep := d.rows[:0]
	for _, r := range d.rows {
		if r.Email == email && r.UserID == nil {
			uid := userID
			r.UserID = &uid
			if d.owned == nil {
				d.owned = map[uint64][]model.Donation{}
			}
			d.owned[userID] = append(d.owned[userID], r)
			n++
			continue
		}
		keep = append(keep, r)
	}
	d.rows = keep
	return n, nil
}

func (d *donations) SummaryByUser(_ context.Context, userID uint64) (model.DonationSummary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var s model.DonationSummary
	for _, r := range d.owned[userID] {
		s.TotalDonated += r.Amount
		s.DonationCount++
	}
	return s, nil
}

func (d *donations) SummaryByEmail(context.Context, string) (model.DonationSummary, error) {
	return model.DonationSummary{}, nil
}

func (d *donations) SuccessfulByUser(_ context.Context, userID uint64) ([]model.Donation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Donation{}, d.owned[userID]...), nil
}

func (d *donations) ByEmail(context.Context, string) ([]model.Donation, error) {
	return []model.Donation{}, nil
}

// mailbox keeps the last code sent to each address.
type mailbox struct {
	mu   sync.Mutex
	last map[string]string
}

func (m *mailbox) SendOTP(_ context.Context, email, code string, _ notify.Purpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		m.last = map[string]string{}
	}
	m.last[email] = code
	return nil
}

func (m *mailbox) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last[email]
}

// googleTokens maps raw ID tokens to the identities they carry.
type googleTokens map[string]oauth.Identity

func (g googleTokens) Verify(_ context.Context, raw string) (oauth.Identity, error) {
	if raw == googleOutageToken {
		return oauth.Identity{}, errors.Join(oauth.ErrProviderUnavailable, errors.New("dial tcp: i/o timeout"))
	}
	if id, ok := g[raw]; ok {
		return id, nil
	}
	return oauth.Identity{}, oauth.ErrInvalidToken
}
