package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"pos-billing/internal/domain"
	"pos-billing/internal/repository"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	byMail map[string]domain.User
	seq    int
	err    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byMail: make(map[string]domain.User)}
}

func (r *fakeUserRepo) Init(context.Context) error { return nil }

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	if _, ok := r.byMail[user.Mail]; ok {
		return "", repository.ErrDuplicate
	}
	r.seq++
	user.ID = fmt.Sprintf("u%d", r.seq)
	r.byMail[user.Mail] = *user
	return user.ID, nil
}

func (r *fakeUserRepo) GetByMail(_ context.Context, mail string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byMail[mail]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byMail)
}

type fakeImages struct {
	saved   map[string]string
	deleted []string
	seq     int
	delErr  error
}

func newFakeImages() *fakeImages {
	return &fakeImages{saved: make(map[string]string)}
}

func (f *fakeImages) Save(_ context.Context, name string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.seq++
	ref := fmt.Sprintf("uploads/%d-%s", f.seq, name)
	f.saved[ref] = string(data)
	return ref, nil
}

func (f *fakeImages) Delete(_ context.Context, ref string) error {
	f.deleted = append(f.deleted, ref)
	return f.delErr
}

// failingProductRepo wraps a repository and fails decrements for chosen ids.
type failingProductRepo struct {
	repository.ProductRepository
	failFor map[string]error
}

func (r *failingProductRepo) DecrementQuantity(ctx context.Context, id string, amount int, guard bool) error {
	if err, ok := r.failFor[id]; ok {
		return err
	}
	return r.ProductRepository.DecrementQuantity(ctx, id, amount, guard)
}

var errStoreDown = errors.New("store down")
