package service

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/fanvault/fanvault/internal/model"
	"github.com/fanvault/fanvault/internal/repository"
	"github.com/fanvault/fanvault/internal/storage"
	"github.com/fanvault/fanvault/internal/upload"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) ByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) ByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile

	// beforeAvatarSwap and afterAvatarSwap run once, outside the lock, around
	// the next UpdateAvatar to interleave another request.
	beforeAvatarSwap func()
	afterAvatarSwap  func()
}

func newFakeProfileRepo(profiles ...*model.Profile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: make(map[string]*model.Profile)}
	for _, p := range profiles {
		r.profiles[p.UserID] = p
	}
	return r
}

func (r *fakeProfileRepo) ByUserID(_ context.Context, userID string) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repository.ErrProfileNotFound
}

func (r *fakeProfileRepo) Create(_ context.Context, profile *model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.UserID] = profile
	return nil
}

func (r *fakeProfileRepo) with(userID string, fn func(*model.Profile)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return repository.ErrProfileNotFound
	}
	fn(p)
	return nil
}

func (r *fakeProfileRepo) UpdateName(_ context.Context, userID, name string) error {
	return r.with(userID, func(p *model.Profile) { p.Name = name })
}

func (r *fakeProfileRepo) UpdateAvatar(_ context.Context, userID string, expected, url, path *string) error {
	r.mu.Lock()
	before := r.beforeAvatarSwap
	r.beforeAvatarSwap = nil
	r.mu.Unlock()
	if before != nil {
		before()
	}

	r.mu.Lock()
	p, ok := r.profiles[userID]
	if !ok {
		r.mu.Unlock()
		return repository.ErrProfileNotFound
	}
	if !samePath(p.AvatarPath, expected) {
		r.mu.Unlock()
		return repository.ErrAvatarChanged
	}
	p.AvatarURL = url
	p.AvatarPath = path
	after := r.afterAvatarSwap
	r.afterAvatarSwap = nil
	r.mu.Unlock()

	if after != nil {
		after()
	}
	return nil
}

func samePath(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *fakeProfileRepo) UpdateKYCStatus(_ context.Context, userID string, status model.KYCStatus) error {
	return r.with(userID, func(p *model.Profile) { p.KYCStatus = status })
}

type fakeMediaRepo struct {
	mu        sync.Mutex
	media     map[string]*model.Media
	createErr error
}

func newFakeMediaRepo() *fakeMediaRepo {
	return &fakeMediaRepo{media: make(map[string]*model.Media)}
}

func (r *fakeMediaRepo) Create(_ context.Context, media *model.Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.media[media.ID] = media
	return nil
}

func (r *fakeMediaRepo) ByID(_ context.Context, id string) (*model.Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.media[id]; ok {
		return m, nil
	}
	return nil, repository.ErrMediaNotFound
}

func (r *fakeMediaRepo) ByUserID(_ context.Context, userID string) ([]*model.Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Media
	for _, m := range r.media {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMediaRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.media, id)
	return nil
}

type fakeKYCRepo struct {
	mu        sync.Mutex
	docs      []*model.KYCDocument
	profiles  *fakeProfileRepo
	createErr error
	// beforeCreate runs at the start of CreateSubmission.
	beforeCreate func()
}

func (r *fakeKYCRepo) CreateSubmission(_ context.Context, userID string, docs []*model.KYCDocument) error {
	if r.beforeCreate != nil {
		r.beforeCreate()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}

	open := false
	err := r.profiles.with(userID, func(p *model.Profile) {
		if p.KYCStatus != model.KYCStatusNotSubmitted && p.KYCStatus != model.KYCStatusRejected {
			open = true
			return
		}
		p.KYCStatus = model.KYCStatusPending
	})
	if err != nil {
		return err
	}
	if open {
		return repository.ErrKYCSubmissionOpen
	}

	r.docs = append(r.docs, docs...)
	return nil
}

func (r *fakeKYCRepo) ByID(_ context.Context, id string) (*model.KYCDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrKYCDocumentNotFound
}

func (r *fakeKYCRepo) ByUserID(_ context.Context, userID string) ([]*model.KYCDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.KYCDocument
	for _, d := range r.docs {
		if d.UserID == userID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeKYCRepo) UpdateStatus(_ context.Context, id string, status model.KYCStatus, note *string, reviewedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.ID == id {
			d.Status = status
			d.ReviewNote = note
			d.ReviewedAt = &reviewedAt
			return nil
		}
	}
	return repository.ErrKYCDocumentNotFound
}

// newLocalGateway writes through a real LocalBackend rooted in a temp dir.
func newLocalGateway(t *testing.T) (*upload.Gateway, string) {
	t.Helper()
	dir := t.TempDir()
	backend := storage.NewLocalBackend(dir, "http://localhost:8090/files")
	return upload.NewGateway(backend, nil), dir
}

func objectExists(t *testing.T, root, bucket, key string) bool {
	t.Helper()
	_, err := os.Stat(filepath.Join(root, bucket, filepath.FromSlash(key)))
	return err == nil
}

func devEmail() *EmailService {
	return NewEmailService("", "noreply@example.com", "http://localhost:8090", "Fanvault", true)
}

func newCreator(userID string) *model.Profile {
	return &model.Profile{
		ID:        "p-" + userID,
		UserID:    userID,
		Name:      "Ana",
		Role:      model.RoleCreator,
		KYCStatus: model.KYCStatusNotSubmitted,
	}
}

// storedFiles lists the object keys under a bucket of a LocalBackend root.
func storedFiles(t *testing.T, root, bucket string) []string {
	t.Helper()
	base := filepath.Join(root, bucket)
	var keys []string
	_ = filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err == nil {
			keys = append(keys, filepath.ToSlash(rel))
		}
		return nil
	})
	return keys
}
