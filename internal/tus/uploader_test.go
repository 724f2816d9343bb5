package tus

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/switchtube/internal/domain"
	"github.com/mmcdole/switchtube/internal/log"
)

type headerAuth struct{ token string }

func (a headerAuth) Authorize(req *http.Request) bool {
	req.Header.Set("Authorization", "Token "+a.token)
	return true
}

type recorder struct {
	updates []domain.TransferProgress
}

func (r *recorder) OnProgress(p domain.TransferProgress) {
	r.updates = append(r.updates, p)
}

// patchHook may rewrite how the fake server handles one PATCH. It returns the
// number of bytes to keep from body and the status and offset to answer with;
// a negative offset answers with the stored offset.
type patchHook func(offset int64, body []byte) (keep int, status int, answer int64)

type fakeUpload struct {
	length   int64
	data     []byte
	metadata string
}

type fakeTus struct {
	t *testing.T

	mu       sync.Mutex
	uploads  map[string]*fakeUpload
	patches  []int64
	heads    int
	nextID   int
	hook     patchHook
	headHook func(u *fakeUpload) int64
}

func newFakeTus(t *testing.T) (*fakeTus, *httptest.Server) {
	f := &fakeTus{t: t, uploads: make(map[string]*fakeUpload)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeTus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	assert.Equal(f.t, ProtocolVersion, r.Header.Get("Tus-Resumable"))
	if r.Header.Get("Authorization") != "Token secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/files" {
		length, err := strconv.ParseInt(r.Header.Get("Upload-Length"), 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.nextID++
		id := fmt.Sprintf("upload%d", f.nextID)
		f.uploads[id] = &fakeUpload{length: length, metadata: r.Header.Get("Upload-Metadata")}
		w.Header().Set("Location", "/files/"+id)
		w.WriteHeader(http.StatusCreated)
		return
	}

	up, ok := f.uploads[strings.TrimPrefix(r.URL.Path, "/files/")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodHead:
		f.heads++
		offset := int64(len(up.data))
		if f.headHook != nil {
			offset = f.headHook(up)
		}
		w.Header().Set("Upload-Offset", strconv.FormatInt(offset, 10))
		w.Header().Set("Upload-Length", strconv.FormatInt(up.length, 10))
		w.WriteHeader(http.StatusOK)

	case http.MethodPatch:
		assert.Equal(f.t, "application/offset+octet-stream", r.Header.Get("Content-Type"))
		offset, _ := strconv.ParseInt(r.Header.Get("Upload-Offset"), 10, 64)
		body, err := io.ReadAll(r.Body)
		require.NoError(f.t, err)
		f.patches = append(f.patches, offset)

		if offset != int64(len(up.data)) {
			w.WriteHeader(http.StatusConflict)
			return
		}

		keep, status, answer := len(body), http.StatusNoContent, int64(-1)
		if f.hook != nil {
			keep, status, answer = f.hook(offset, body)
		}
		up.data = append(up.data, body[:keep]...)
		if answer < 0 {
			answer = int64(len(up.data))
		}
		w.Header().Set("Upload-Offset", strconv.FormatInt(answer, 10))
		w.WriteHeader(status)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeTus) upload(id string) *fakeUpload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads[id]
}

func (f *fakeTus) stored(id string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.uploads[id].data...)
}

func (f *fakeTus) setHook(h patchHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hook = h
}

func (f *fakeTus) seed(id string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[id].data = append([]byte(nil), data...)
}

func (f *fakeTus) headCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heads
}

func (f *fakeTus) patchOffsets() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.patches...)
}

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 253)
	}
	return b
}

func newTestUploader(srv *httptest.Server, opts ...Option) *Uploader {
	return NewUploader(srv.URL+"/files", headerAuth{"secret"}, log.NullLogger(), opts...)
}

func TestCreateSession(t *testing.T) {
	fake, srv := newFakeTus(t)
	u := newTestUploader(srv)

	session, err := u.Create(context.Background(), "lecture.mp4", 1234)
	require.NoError(t, err)

	assert.Equal(t, domain.UploadCreated, u.State())
	assert.Equal(t, srv.URL+"/files/upload1", session.URL)
	assert.Equal(t, "upload1", session.ID)
	assert.Equal(t, int64(0), session.Offset)
	assert.Equal(t, int64(1234), session.Length)

	up := fake.upload("upload1")
	require.NotNil(t, up)
	assert.Equal(t, int64(1234), up.length)
	assert.Equal(t, "filename "+base64.StdEncoding.EncodeToString([]byte("lecture.mp4")), up.metadata)
}

func TestCreateWithoutLocationIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	u := newTestUploader(srv)
	_, err := u.Create(context.Background(), "a.mp4", 10)
	require.Error(t, err)
	assert.Equal(t, domain.KindProtocol, domain.KindOf(err))
	assert.Equal(t, domain.UploadFailed, u.State())
}

func TestUploadWholeFile(t *testing.T) {
	fake, srv := newFakeTus(t)
	data := payload(10000)
	u := newTestUploader(srv, WithChunkSize(3000))

	session, err := u.Create(context.Background(), "clip.mp4", int64(len(data)))
	require.NoError(t, err)

	rec := &recorder{}
	require.NoError(t, u.Upload(context.Background(), bytes.NewReader(data), &session, rec))

	assert.Equal(t, domain.UploadCompleted, u.State())
	assert.True(t, session.Complete())
	assert.Equal(t, data, fake.stored("upload1"))
	assert.Equal(t, []int64{0, 3000, 6000, 9000}, fake.patchOffsets())

	var seen []int64
	for _, p := range rec.updates {
		seen = append(seen, p.Transferred)
		assert.Equal(t, int64(10000), p.Total)
	}
	assert.Equal(t, []int64{0, 3000, 6000, 9000, 10000}, seen)
}

func TestUploadEmptyFile(t *testing.T) {
	fake, srv := newFakeTus(t)
	u := newTestUploader(srv)

	session, err := u.Create(context.Background(), "empty.mp4", 0)
	require.NoError(t, err)
	require.NoError(t, u.Upload(context.Background(), bytes.NewReader(nil), &session, nil))

	assert.Equal(t, domain.UploadCompleted, u.State())
	assert.Empty(t, fake.patchOffsets())
}

func TestUploadResumesFromServerOffset(t *testing.T) {
	fake, srv := newFakeTus(t)
	data := payload(10000)
	u := newTestUploader(srv, WithChunkSize(1000))

	session, err := u.Create(context.Background(), "resume.mp4", int64(len(data)))
	require.NoError(t, err)

	// The server keeps half of the chunk at 4000, then fails the request.
	fake.setHook(func(offset int64, body []byte) (int, int, int64) {
		if offset == 4000 {
			return 500, http.StatusInternalServerError, -1
		}
		return len(body), http.StatusNoContent, -1
	})

	err = u.Upload(context.Background(), bytes.NewReader(data), &session, nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindServerError, domain.KindOf(err))
	assert.Equal(t, domain.UploadFailed, u.State())
	assert.Equal(t, int64(4000), session.Offset)

	fake.setHook(nil)
	before := len(fake.patchOffsets())

	rec := &recorder{}
	require.NoError(t, u.Upload(context.Background(), bytes.NewReader(data), &session, rec))
	assert.Equal(t, domain.UploadCompleted, u.State())
	assert.Equal(t, int64(10000), session.Offset)

	resumed := fake.patchOffsets()[before:]
	require.NotEmpty(t, resumed)
	assert.Equal(t, int64(4500), resumed[0])
	for _, off := range resumed {
		assert.GreaterOrEqual(t, off, int64(4500))
	}
	assert.Equal(t, int64(4500), rec.updates[0].Transferred)
	assert.Equal(t, data, fake.stored("upload1"))
}

func TestUploadResyncsOnUnexpectedOffset(t *testing.T) {
	fake, srv := newFakeTus(t)
	data := payload(6000)
	u := newTestUploader(srv, WithChunkSize(2000))

	session, err := u.Create(context.Background(), "short.mp4", int64(len(data)))
	require.NoError(t, err)

	// The chunk at 2000 is only partly stored but acknowledged with what was kept.
	fake.setHook(func(offset int64, body []byte) (int, int, int64) {
		if offset == 2000 {
			return 700, http.StatusNoContent, -1
		}
		return len(body), http.StatusNoContent, -1
	})

	require.NoError(t, u.Upload(context.Background(), bytes.NewReader(data), &session, nil))
	assert.Equal(t, domain.UploadCompleted, u.State())
	assert.Equal(t, []int64{0, 2000, 2700, 4700}, fake.patchOffsets())
	assert.Equal(t, 2, fake.headCount())
	assert.Equal(t, data, fake.stored("upload1"))
}

func TestUploadResyncsOnConflict(t *testing.T) {
	fake, srv := newFakeTus(t)
	data := payload(3000)
	u := newTestUploader(srv, WithChunkSize(1000))

	session, err := u.Create(context.Background(), "conflict.mp4", int64(len(data)))
	require.NoError(t, err)

	// Another client already stored the first 1500 bytes.
	fake.seed("upload1", data[:1500])
	fake.mu.Lock()
	fake.headHook = func(up *fakeUpload) int64 {
		fake.headHook = nil
		return 0
	}
	fake.mu.Unlock()

	require.NoError(t, u.Upload(context.Background(), bytes.NewReader(data), &session, nil))
	assert.Equal(t, []int64{0, 1500, 2500}, fake.patchOffsets())
	assert.Equal(t, data, fake.stored("upload1"))
}

func TestUploadGivesUpAfterRepeatedMismatches(t *testing.T) {
	fake, srv := newFakeTus(t)
	data := payload(4000)
	u := newTestUploader(srv, WithChunkSize(1000), WithMaxResyncs(2))

	session, err := u.Create(context.Background(), "stuck.mp4", int64(len(data)))
	require.NoError(t, err)

	fake.setHook(func(offset int64, body []byte) (int, int, int64) {
		return 0, http.StatusNoContent, -1
	})

	err = u.Upload(context.Background(), bytes.NewReader(data), &session, nil)
	require.Error(t, err)

	var mismatch *domain.OffsetMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int64(1000), mismatch.Expected)
	assert.Equal(t, int64(0), mismatch.Actual)
	assert.Equal(t, domain.KindPolicyMismatch, domain.KindOf(err))
	assert.Equal(t, domain.UploadFailed, u.State())
	assert.Len(t, fake.patchOffsets(), 3)
}

func TestUploadRejectsOffsetMovingBackwards(t *testing.T) {
	fake, srv := newFakeTus(t)
	data := payload(4000)
	u := newTestUploader(srv, WithChunkSize(1000))

	session, err := u.Create(context.Background(), "back.mp4", int64(len(data)))
	require.NoError(t, err)

	fake.seed("upload1", data[:1000])
	session.Offset = 3000

	err = u.Upload(context.Background(), bytes.NewReader(data), &session, nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindProtocol, domain.KindOf(err))
	assert.Equal(t, domain.UploadFailed, u.State())
	assert.Equal(t, int64(3000), session.Offset)
	assert.Empty(t, fake.patchOffsets())
}

func TestUploadRejectsLengthMismatch(t *testing.T) {
	_, srv := newFakeTus(t)
	u := newTestUploader(srv)

	session, err := u.Create(context.Background(), "len.mp4", 100)
	require.NoError(t, err)
	session.Length = 200

	err = u.Upload(context.Background(), bytes.NewReader(payload(200)), &session, nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindProtocol, domain.KindOf(err))
}

func TestUploadAuthFailure(t *testing.T) {
	_, srv := newFakeTus(t)
	good := newTestUploader(srv)
	session, err := good.Create(context.Background(), "auth.mp4", 100)
	require.NoError(t, err)

	u := NewUploader(srv.URL+"/files", headerAuth{"wrong"}, log.NullLogger())
	err = u.Upload(context.Background(), bytes.NewReader(payload(100)), &session, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.Equal(t, domain.KindAuth, domain.KindOf(err))
	assert.Equal(t, domain.UploadFailed, u.State())
}

func TestUploadUnknownSession(t *testing.T) {
	_, srv := newFakeTus(t)
	u := newTestUploader(srv)

	session := domain.UploadSession{URL: srv.URL + "/files/nope", Length: 10}
	err := u.Upload(context.Background(), bytes.NewReader(payload(10)), &session, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSessionGone)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestUploadShortSource(t *testing.T) {
	_, srv := newFakeTus(t)
	u := newTestUploader(srv)

	session, err := u.Create(context.Background(), "short.mp4", 100)
	require.NoError(t, err)

	err = u.Upload(context.Background(), bytes.NewReader(payload(60)), &session, nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
}

func TestOffset(t *testing.T) {
	fake, srv := newFakeTus(t)
	u := newTestUploader(srv)

	session, err := u.Create(context.Background(), "o.mp4", 100)
	require.NoError(t, err)
	fake.seed("upload1", payload(42))

	offset, err := u.Offset(context.Background(), session.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(42), offset)
}

func TestEncodeMetadata(t *testing.T) {
	got := EncodeMetadata(map[string]string{"filename": "a b.mp4", "filetype": "video/mp4"})
	assert.Equal(t, "filename YSBiLm1wNA==,filetype dmlkZW8vbXA0", got)
	assert.Empty(t, EncodeMetadata(nil))
}
