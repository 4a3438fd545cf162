package service

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/whistle-api/internal/models"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
	"github.com/noah-isme/whistle-api/pkg/jobs"
	"github.com/noah-isme/whistle-api/pkg/storage"
)

func newAttachmentFixture(t *testing.T, cfg AttachmentConfig) (*AttachmentService, *fakeReportRepo, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newFakeReportRepo()
	svc := NewAttachmentService(store, repo, storage.NewSignedURLSigner("secret", time.Minute), AccessPolicy{StrictOwnership: true}, nil, cfg, nil)
	return svc, repo, store
}

func TestAttachmentStoreDetectsTypeAndSize(t *testing.T) {
	svc, _, store := newAttachmentFixture(t, AttachmentConfig{})

	pdf := "%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n"
	files, err := svc.Store(context.Background(), []Upload{textUpload("../../evil/report.PDF", pdf)})
	require.NoError(t, err)
	require.Len(t, files, 1)

	f := files[0]
	assert.Equal(t, "application/pdf", f.MimeType)
	assert.Equal(t, int64(len(pdf)), f.SizeBytes)
	assert.Equal(t, "report.PDF", f.OriginalName)
	assert.True(t, strings.HasPrefix(f.File, "report_files/"))
	assert.True(t, strings.HasSuffix(f.File, ".pdf"))

	obj, err := store.Get(context.Background(), f.File)
	require.NoError(t, err)
	obj.Body.Close()
}

func TestAttachmentStoreRejectsOversizedAndDisallowed(t *testing.T) {
	svc, _, _ := newAttachmentFixture(t, AttachmentConfig{MaxFileSize: 4, AllowedMIMEs: []string{"text/plain"}})

	_, err := svc.Store(context.Background(), []Upload{textUpload("big.txt", "too large")})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Fields, "file")

	// declared size lies; the stream is still capped
	lying := textUpload("big.txt", "too large")
	lying.Size = 1
	_, err = svc.Store(context.Background(), []Upload{lying})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Fields, "file")

	typed, _, _ := newAttachmentFixture(t, AttachmentConfig{MaxFileSize: 1 << 20, AllowedMIMEs: []string{"text/plain"}})
	_, err = typed.Store(context.Background(), []Upload{textUpload("a.png", "\x89PNG\r\n\x1a\n")})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Fields["file"], "disallowed")

	files, err := typed.Store(context.Background(), []Upload{textUpload("notes.txt", "plain words")})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasPrefix(files[0].MimeType, "text/plain"))
}

func TestSanitizeFilename(t *testing.T) {
	long := sanitizeFilename(strings.Repeat("é", 200) + ".pdf")
	assert.True(t, utf8.ValidString(long))
	assert.LessOrEqual(t, len(long), 255)
	assert.True(t, strings.HasSuffix(long, ".pdf"))
	assert.True(t, strings.HasPrefix(long, "éé"))

	assert.Equal(t, "ab.txt", sanitizeFilename("a\xffb.txt"))
	assert.Equal(t, "report.pdf", sanitizeFilename(`C:\Users\me\report.pdf`))
	assert.Equal(t, "attachment", sanitizeFilename(""))
	assert.Equal(t, strings.Repeat("x", 255), sanitizeFilename(strings.Repeat("x", 300)))
}

type recordingStore struct {
	storage.BlobStore
	puts    []string
	deletes []string
}

func (r *recordingStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	r.puts = append(r.puts, key)
	return r.BlobStore.Put(ctx, key, body, size, contentType)
}

func (r *recordingStore) Delete(ctx context.Context, key string) error {
	r.deletes = append(r.deletes, key)
	return r.BlobStore.Delete(ctx, key)
}

func TestAttachmentStoreCleansUpOnPartialFailure(t *testing.T) {
	svc, _, local := newAttachmentFixture(t, AttachmentConfig{})
	rec := &recordingStore{BlobStore: local}
	svc.store = rec

	broken := Upload{Filename: "b.txt", Open: func() (io.ReadCloser, error) { return nil, errors.New("boom") }}
	files, err := svc.Store(context.Background(), []Upload{textUpload("a.txt", "ok"), broken})
	require.Error(t, err)
	assert.Nil(t, files)

	require.Len(t, rec.puts, 1)
	assert.Equal(t, rec.puts, rec.deletes)
	_, err = local.Get(context.Background(), rec.puts[0])
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestAttachmentLinkAndOpen(t *testing.T) {
	svc, repo, _ := newAttachmentFixture(t, AttachmentConfig{DownloadPath: "/attachments/download"})
	ctx := context.Background()

	files, err := svc.Store(ctx, []Upload{textUpload("note.txt", "hello")})
	require.NoError(t, err)
	report := repo.seed(models.Report{ReporterID: strPtr(regular.UserID)}, files...)
	stored, _ := repo.ListFiles(ctx, report.ID)

	_, err = svc.Link(ctx, other, report.ID, stored[0].ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.Link(ctx, regular, report.ID, 999)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	link, err := svc.Link(ctx, regular, report.ID, stored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "note.txt", link.OriginalName)

	u, err := url.Parse(link.URL)
	require.NoError(t, err)
	assert.Equal(t, "/attachments/download", u.Path)

	file, obj, err := svc.Open(ctx, u.Query().Get("token"))
	require.NoError(t, err)
	defer obj.Body.Close()
	body, _ := io.ReadAll(obj.Body)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, stored[0].ID, file.ID)

	_, _, err = svc.Open(ctx, "bogus")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

type stubQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *stubQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func TestSchedulePurgeUsesQueueAndHandlerDeletes(t *testing.T) {
	svc, _, store := newAttachmentFixture(t, AttachmentConfig{})
	ctx := context.Background()
	files, err := svc.Store(ctx, []Upload{textUpload("a.txt", "a"), textUpload("b.txt", "b")})
	require.NoError(t, err)

	q := &stubQueue{}
	svc.UseQueue(q)
	svc.SchedulePurge(ctx, 7, files)
	require.Len(t, q.jobs, 1)
	assert.Equal(t, JobKindPurgeAttachments, q.jobs[0].Kind)

	// still present until the worker runs
	obj, err := store.Get(ctx, files[0].File)
	require.NoError(t, err)
	obj.Body.Close()

	require.NoError(t, svc.HandlePurge(ctx, q.jobs[0]))
	for _, f := range files {
		_, err := store.Get(ctx, f.File)
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	}
}

func TestSchedulePurgeFallsBackInline(t *testing.T) {
	svc, _, store := newAttachmentFixture(t, AttachmentConfig{})
	ctx := context.Background()
	files, err := svc.Store(ctx, []Upload{textUpload("a.txt", "a")})
	require.NoError(t, err)

	svc.UseQueue(&stubQueue{err: jobs.ErrQueueFull})
	svc.SchedulePurge(ctx, 1, files)

	_, err = store.Get(ctx, files[0].File)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}
