package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fanvault/fanvault/internal/model"
	"github.com/fanvault/fanvault/internal/storage"
	"github.com/fanvault/fanvault/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryBackend is an in-memory storage.Backend. Keys containing any of
// failOn are rejected with errBackend.
type memoryBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []storage.PutObject
	failOn  []string
}

var errBackend = errors.New("quota exceeded")

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{objects: make(map[string][]byte)}
}

func (m *memoryBackend) Put(_ context.Context, obj *storage.PutObject) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.puts = append(m.puts, *obj)
	for _, s := range m.failOn {
		if strings.Contains(obj.Key, s) {
			return errBackend
		}
	}

	id := obj.Bucket + "/" + obj.Key
	if _, exists := m.objects[id]; exists && !obj.Upsert {
		return storage.ErrObjectExists
	}

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return err
	}
	m.objects[id] = data
	return nil
}

func (m *memoryBackend) Delete(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+key)
	return nil
}

func (m *memoryBackend) PublicURL(bucket, key string) string {
	return "https://cdn.test/" + bucket + "/" + key
}

func (m *memoryBackend) get(url string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[strings.TrimPrefix(url, "https://cdn.test/")]
	return data, ok
}

func (m *memoryBackend) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.puts)
}

func newFile(name, contentType, content string) File {
	return File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(content)),
		Body:        strings.NewReader(content),
	}
}

func newTestGateway(backend *memoryBackend) *Gateway {
	g := NewGateway(backend, nil)
	g.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return g
}

func TestGateway_UploadContent(t *testing.T) {
	backend := newMemoryBackend()
	g := newTestGateway(backend)
	g.suffix = func() string { return "abc123" }

	res, err := g.Upload(context.Background(), newFile("Photo.JPG", "image/jpeg", "jpeg-bytes"), "user-1", validation.MediaImage)
	require.NoError(t, err)

	assert.Equal(t, "user-1/images/1700000000123-abc123.jpg", res.Path)
	assert.Equal(t, "https://cdn.test/content-images/user-1/images/1700000000123-abc123.jpg", res.URL)

	require.Len(t, backend.puts, 1)
	assert.False(t, backend.puts[0].Upsert)
	assert.Equal(t, "image/jpeg", backend.puts[0].ContentType)

	data, ok := backend.get(res.URL)
	require.True(t, ok)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestGateway_ContentKeysAreUnique(t *testing.T) {
	backend := newMemoryBackend()
	g := newTestGateway(backend) // same millisecond for both calls

	first, err := g.Upload(context.Background(), newFile("a.png", "image/png", "one"), "user-1", validation.MediaImage)
	require.NoError(t, err)
	second, err := g.Upload(context.Background(), newFile("a.png", "image/png", "two"), "user-1", validation.MediaImage)
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)

	data, ok := backend.get(first.URL)
	require.True(t, ok)
	assert.Equal(t, "one", string(data))
}

func TestGateway_Subfolders(t *testing.T) {
	backend := newMemoryBackend()
	g := newTestGateway(backend)
	g.suffix = func() string { return "s" }

	tests := []struct {
		name     string
		file     File
		class    validation.MediaClass
		opts     []Option
		expected string
		bucket   string
	}{
		{
			name:     "video default folder",
			file:     newFile("clip.mov", "video/quicktime", "v"),
			class:    validation.MediaVideo,
			expected: "u/videos/1700000000123-s.mov",
			bucket:   "content-videos",
		},
		{
			name:     "document custom folder",
			file:     newFile("notes.pdf", "application/pdf", "d"),
			class:    validation.MediaDocument,
			opts:     []Option{WithSubfolder("course-1")},
			expected: "u/course-1/1700000000123-s.pdf",
			bucket:   "content-documents",
		},
		{
			name:     "kyc routed by document type",
			file:     newFile("", "application/pdf", "k"),
			class:    validation.MediaKYCDocument,
			opts:     []Option{WithDocumentType(model.KYCProofOfAddress), WithSubfolder("ignored")},
			expected: "u/proof_of_address/1700000000123-s.pdf",
			bucket:   "kyc-documents",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := g.Upload(context.Background(), tt.file, "u", tt.class, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, res.Path)
			assert.Equal(t, "https://cdn.test/"+tt.bucket+"/"+tt.expected, res.URL)
		})
	}
}

func TestGateway_AvatarOverwrites(t *testing.T) {
	backend := newMemoryBackend()
	g := newTestGateway(backend)

	first, err := g.UploadAvatar(context.Background(), newFile("me.png", "image/png", "old"), "user-1")
	require.NoError(t, err)
	second, err := g.Upload(context.Background(), newFile("me2.png", "image/png", "new"), "user-1", validation.MediaAvatar)
	require.NoError(t, err)

	assert.Equal(t, "user-1/avatar.png", first.Path)
	assert.Equal(t, first.Path, second.Path)
	assert.Equal(t, "https://cdn.test/avatars/user-1/avatar.png", second.URL)

	for _, put := range backend.puts {
		assert.True(t, put.Upsert)
	}

	data, ok := backend.get(second.URL)
	require.True(t, ok)
	assert.Equal(t, "new", string(data))
}

func TestGateway_ValidationSkipsStorage(t *testing.T) {
	tests := []struct {
		name    string
		file    File
		class   validation.MediaClass
		opts    []Option
		message string
	}{
		{
			name:    "wrong type",
			file:    newFile("a.gif", "image/gif", "g"),
			class:   validation.MediaImage,
			message: "Tipo de arquivo não permitido",
		},
		{
			name:    "too large",
			file:    File{Name: "a.png", ContentType: "image/png", Size: 3 << 20, Body: strings.NewReader("")},
			class:   validation.MediaImage,
			message: "Máximo 2.00 MB",
		},
		{
			name:    "avatar too large",
			file:    File{Name: "a.png", ContentType: "image/png", Size: 3 << 20, Body: strings.NewReader("")},
			class:   validation.MediaAvatar,
			message: "Máximo 2.00 MB",
		},
		{
			name:    "kyc without document type",
			file:    newFile("id.pdf", "application/pdf", "p"),
			class:   validation.MediaKYCDocument,
			message: "Tipo de documento inválido",
		},
		{
			name:    "bad subfolder",
			file:    newFile("a.png", "image/png", "p"),
			class:   validation.MediaImage,
			opts:    []Option{WithSubfolder("../other")},
			message: "Pasta de destino inválida",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newMemoryBackend()
			g := newTestGateway(backend)

			res, err := g.Upload(context.Background(), tt.file, "user-1", tt.class, tt.opts...)
			assert.Nil(t, res)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Message, tt.message)
			assert.Equal(t, 0, backend.putCount())
		})
	}
}

func TestGateway_InvalidOwner(t *testing.T) {
	g := newTestGateway(newMemoryBackend())

	for _, owner := range []string{"", "a/b", ".."} {
		_, err := g.Upload(context.Background(), newFile("a.png", "image/png", "p"), owner, validation.MediaImage)
		assert.ErrorIs(t, err, ErrInvalidOwner, owner)
	}
}

func TestGateway_TransportError(t *testing.T) {
	backend := newMemoryBackend()
	backend.failOn = []string{"user-1/"}
	g := newTestGateway(backend)

	res, err := g.Upload(context.Background(), newFile("a.png", "image/png", "p"), "user-1", validation.MediaImage)
	assert.Nil(t, res)

	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "content-images", tErr.Bucket)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, 1, backend.putCount(), "no retry")
}

func TestGateway_BucketOverride(t *testing.T) {
	backend := newMemoryBackend()
	g := NewGateway(backend, Buckets{validation.MediaKYCDocument: "private-kyc"})

	assert.Equal(t, "private-kyc", g.Bucket(validation.MediaKYCDocument))
	assert.Equal(t, "avatars", g.Bucket(validation.MediaAvatar))
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name string
		file File
		want string
	}{
		{name: "sniffed jpeg", file: File{Name: "x.JPEG", ContentType: "image/jpeg"}, want: ".jpg"},
		{name: "sniffed type beats name", file: File{Name: "x.exe", ContentType: "image/jpeg"}, want: ".jpg"},
		{name: "pdf named as html", file: File{Name: "bill.html", ContentType: "application/pdf"}, want: ".pdf"},
		{name: "no name extension", file: File{Name: "noext", ContentType: "image/webp"}, want: ".webp"},
		{name: "video keeps name", file: File{Name: "clip.MKV", ContentType: "video/mp4"}, want: ".mkv"},
		{name: "parameters ignored", file: File{Name: "", ContentType: "text/plain; charset=utf-8"}, want: ".txt"},
		{name: "unknown", file: File{Name: "weird.<>", ContentType: "application/x-unknown"}, want: ".bin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extension(tt.file))
		})
	}
}

func TestGateway_AvatarKeyFollowsContentType(t *testing.T) {
	backend := newMemoryBackend()
	g := newTestGateway(backend)

	res, err := g.UploadAvatar(context.Background(), newFile("x.exe", "image/jpeg", "jpeg-bytes"), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1/avatar.jpg", res.Path)
}

func kycFiles() map[model.KYCDocumentType]File {
	return map[model.KYCDocumentType]File{
		model.KYCDocumentFront:  newFile("front.jpg", "image/jpeg", "front"),
		model.KYCDocumentBack:   newFile("back.jpg", "image/jpeg", "back"),
		model.KYCProofOfAddress: newFile("bill.pdf", "application/pdf", "bill"),
		model.KYCSelfie:         newFile("selfie.png", "image/png", "selfie"),
	}
}

func TestGateway_UploadKYCBatch(t *testing.T) {
	backend := newMemoryBackend()
	g := newTestGateway(backend)

	results, err := g.UploadKYCBatch(context.Background(), "user-1", kycFiles())
	require.NoError(t, err)
	require.Len(t, results, 4)

	for docType, res := range results {
		assert.True(t, strings.HasPrefix(res.Path, "user-1/"+string(docType)+"/"), res.Path)
		_, ok := backend.get(res.URL)
		assert.True(t, ok)
	}
}

func TestGateway_UploadKYCBatch_PartialFailure(t *testing.T) {
	backend := newMemoryBackend()
	backend.failOn = []string{"/selfie/"}
	g := newTestGateway(backend)

	results, err := g.UploadKYCBatch(context.Background(), "user-1", kycFiles())
	assert.Nil(t, results)

	var bErr *BatchError
	require.ErrorAs(t, err, &bErr)
	assert.Len(t, bErr.Failed, 1)
	assert.Contains(t, bErr.Failed, model.KYCSelfie)
	assert.Len(t, bErr.Succeeded, 3)
	assert.ErrorIs(t, err, errBackend)
	assert.Contains(t, err.Error(), "1 of 4 uploads failed")
	assert.Equal(t, "Falha no envio do arquivo", bErr.Messages()[model.KYCSelfie])

	// No rollback: the successful siblings stay retrievable.
	for _, res := range bErr.Succeeded {
		_, ok := backend.get(res.URL)
		assert.True(t, ok, res.URL)
	}
	assert.Len(t, strings.Split(bErr.SucceededPaths(), ","), 3)
}

func TestBatchError_UnknownType(t *testing.T) {
	err := newBatchError(map[model.KYCDocumentType]*Result{}, map[model.KYCDocumentType]error{
		"passport":       errBackend,
		model.KYCSelfie:  errBackend,
		"driver_license": errBackend,
	})

	assert.Equal(t, "3 of 3 uploads failed: selfie: quota exceeded; driver_license: quota exceeded; passport: quota exceeded", err.Error())
	assert.Len(t, err.Unwrap(), 3)
	assert.ErrorIs(t, err, errBackend)
}

func TestGateway_UploadKYCBatch_UnknownType(t *testing.T) {
	backend := newMemoryBackend()
	g := newTestGateway(backend)

	_, err := g.UploadKYCBatch(context.Background(), "user-1", map[model.KYCDocumentType]File{
		"passport": newFile("p.pdf", "application/pdf", "p"),
	})

	var bErr *BatchError
	require.ErrorAs(t, err, &bErr)
	assert.Contains(t, err.Error(), "passport: Tipo de documento inválido")
	assert.NotContains(t, err.Error(), "<nil>")
	assert.Len(t, bErr.Unwrap(), 1)
	assert.Equal(t, 0, backend.putCount())
}

func TestGateway_UploadKYCBatch_ValidationBeforeIO(t *testing.T) {
	backend := newMemoryBackend()
	g := newTestGateway(backend)

	files := kycFiles()
	files[model.KYCDocumentBack] = newFile("back.gif", "image/gif", "gif")

	_, err := g.UploadKYCBatch(context.Background(), "user-1", files)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 0, backend.putCount())

	var bErr *BatchError
	require.ErrorAs(t, err, &bErr)
	assert.Contains(t, bErr.Messages()[model.KYCDocumentBack], "Tipo de arquivo não permitido")
}

func TestGateway_Delete(t *testing.T) {
	backend := newMemoryBackend()
	g := newTestGateway(backend)

	res, err := g.UploadAvatar(context.Background(), newFile("me.png", "image/png", "x"), "user-1")
	require.NoError(t, err)

	require.NoError(t, g.Delete(context.Background(), validation.MediaAvatar, res.Path))
	_, ok := backend.get(res.URL)
	assert.False(t, ok)
}
