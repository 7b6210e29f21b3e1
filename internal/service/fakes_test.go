package service

import (
	"context"
	"encoding/base64"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/model-gateway/internal/domain"
	"github.com/spec-kit/model-gateway/internal/repository"
)

func basicHeader(email, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(email+":"+password))
}

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.users[user.Email] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

type fakeModelRepo struct {
	mu     sync.Mutex
	nextID int64
	models map[int64]domain.Model
	clock  time.Time
}

func newFakeModelRepo() *fakeModelRepo {
	return &fakeModelRepo{
		models: make(map[int64]domain.Model),
		clock:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (r *fakeModelRepo) Create(_ context.Context, model *domain.Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.clock = r.clock.Add(time.Second)
	model.ID = r.nextID
	model.CreatedAt = r.clock
	model.UpdatedAt = r.clock
	r.models[model.ID] = *model
	return nil
}

func (r *fakeModelRepo) GetForOwner(_ context.Context, id, ownerID int64) (*domain.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[id]
	if !ok || m.UserID != ownerID {
		return nil, pgx.ErrNoRows
	}
	return &m, nil
}

func (r *fakeModelRepo) ListByOwner(_ context.Context, ownerID int64, limit, offset int) ([]domain.Model, error) {
	var owned []domain.Model
	for _, m := range r.sorted() {
		if m.UserID == ownerID {
			owned = append(owned, m)
		}
	}
	if offset >= len(owned) {
		return nil, nil
	}
	owned = owned[offset:]
	if len(owned) > limit {
		owned = owned[:limit]
	}
	return owned, nil
}

func (r *fakeModelRepo) ListRecent(_ context.Context, limit int) ([]domain.Model, error) {
	all := r.sorted()
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeModelRepo) UpdateForOwner(_ context.Context, model *domain.Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[model.ID]
	if !ok || m.UserID != model.UserID {
		return pgx.ErrNoRows
	}
	r.clock = r.clock.Add(time.Second)
	m.Detail = model.Detail
	m.UpdatedAt = r.clock
	r.models[m.ID] = m
	model.CreatedAt = m.CreatedAt
	model.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *fakeModelRepo) DeleteForOwner(_ context.Context, id, ownerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[id]
	if !ok || m.UserID != ownerID {
		return pgx.ErrNoRows
	}
	delete(r.models, id)
	return nil
}

func (r *fakeModelRepo) sorted() []domain.Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]domain.Model, 0, len(r.models))
	for _, m := range r.models {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all
}
