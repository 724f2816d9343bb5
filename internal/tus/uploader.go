package tus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/switchtube/internal/domain"
)

const (
	DefaultChunkSize  = 5 * 1024 * 1024
	DefaultMaxResyncs = 3
)

// Authorizer attaches credentials to outgoing requests.
type Authorizer interface {
	Authorize(req *http.Request) bool
}

// Uploader drives one resumable upload at a time through
// created -> uploading -> completed, or failed.
// An Uploader is not safe for concurrent use.
type Uploader struct {
	httpClient *http.Client
	auth       Authorizer
	endpoint   string
	chunkSize  int
	maxResyncs int
	logger     *slog.Logger

	state domain.UploadState
}

// Option customizes an Uploader.
type Option func(*Uploader)

// WithChunkSize sets the PATCH body size; non-positive values keep the default.
func WithChunkSize(n int) Option {
	return func(u *Uploader) {
		if n > 0 {
			u.chunkSize = n
		}
	}
}

// WithMaxResyncs bounds consecutive offset resyncs before the upload fails.
func WithMaxResyncs(n int) Option {
	return func(u *Uploader) {
		if n >= 0 {
			u.maxResyncs = n
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(u *Uploader) { u.httpClient = hc }
}

// NewUploader creates an Uploader creating sessions at endpoint.
func NewUploader(endpoint string, auth Authorizer, logger *slog.Logger, opts ...Option) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	u := &Uploader{
		httpClient: &http.Client{},
		auth:       auth,
		endpoint:   endpoint,
		chunkSize:  DefaultChunkSize,
		maxResyncs: DefaultMaxResyncs,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// State returns where the last upload driven by u stands.
func (u *Uploader) State() domain.UploadState {
	return u.state
}

// Create opens a new upload session for length bytes.
func (u *Uploader) Create(ctx context.Context, filename string, length int64) (domain.UploadSession, error) {
	if length < 0 {
		return domain.UploadSession{}, fmt.Errorf("invalid upload length %d", length)
	}
	session, err := u.create(ctx, filename, length)
	if err != nil {
		u.state = domain.UploadFailed
		return domain.UploadSession{}, err
	}
	u.state = domain.UploadCreated
	u.logger.Info("upload session created", "url", session.URL, "id", session.ID, "length", length)
	return session, nil
}

// Offset returns the number of bytes the server holds for sessionURL.
func (u *Uploader) Offset(ctx context.Context, sessionURL string) (int64, error) {
	offset, _, err := u.head(ctx, sessionURL)
	return offset, err
}

// Upload sends src to the session, starting from the offset the server
// reports rather than the one recorded in session. session.Offset is only
// ever set from server responses and never moves backwards.
//
// A chunk acknowledged with an unexpected offset, or rejected with 409,
// triggers a resync from the server before continuing. Any other error
// fails the upload; the session stays on the server and can be resumed.
func (u *Uploader) Upload(ctx context.Context, src io.ReadSeeker, session *domain.UploadSession, obs domain.ProgressObserver) error {
	if obs == nil {
		obs = domain.NoOpObserver{}
	}
	u.state = domain.UploadUploading

	if err := u.run(ctx, src, session, obs); err != nil {
		u.state = domain.UploadFailed
		u.logger.Error("upload failed", "url", session.URL, "offset", session.Offset, "length", session.Length, "error", err)
		return err
	}

	u.state = domain.UploadCompleted
	u.logger.Info("upload completed", "url", session.URL, "bytes", session.Length)
	return nil
}

func (u *Uploader) run(ctx context.Context, src io.ReadSeeker, session *domain.UploadSession, obs domain.ProgressObserver) error {
	offset, length, err := u.head(ctx, session.URL)
	if err != nil {
		return fmt.Errorf("failed to query upload offset: %w", err)
	}
	if length >= 0 && length != session.Length {
		return &domain.ProtocolError{Reason: fmt.Sprintf("server expects %d bytes, source has %d", length, session.Length)}
	}
	if err := u.advance(session, offset); err != nil {
		return err
	}
	if offset > 0 {
		u.logger.Info("resuming upload", "url", session.URL, "offset", offset, "length", session.Length)
	}
	obs.OnProgress(u.progress(session))

	buf := make([]byte, u.chunkSize)
	resyncs := 0

	for !session.Complete() {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := int(min(int64(u.chunkSize), session.Length-session.Offset))
		chunk := buf[:n]

		if _, err := src.Seek(session.Offset, io.SeekStart); err != nil {
			return &domain.TransportError{Op: "seek", Err: err}
		}
		if _, err := io.ReadFull(src, chunk); err != nil {
			return &domain.TransportError{Op: "read", Err: fmt.Errorf("source shorter than %d bytes: %w", session.Length, err)}
		}

		expected := session.Offset + int64(n)
		newOffset, err := u.patch(ctx, session.URL, session.Offset, chunk)

		var rerr *domain.RemoteError
		switch {
		case errors.As(err, &rerr) && rerr.Status == http.StatusConflict:
			u.logger.Warn("server rejected chunk offset", "url", session.URL, "offset", session.Offset)
		case err != nil:
			return err
		case newOffset == expected:
			if err := u.advance(session, newOffset); err != nil {
				return err
			}
			resyncs = 0
			obs.OnProgress(u.progress(session))
			continue
		case newOffset < session.Offset:
			return &domain.ProtocolError{Reason: fmt.Sprintf("server offset moved backwards from %d to %d", session.Offset, newOffset)}
		default:
			u.logger.Warn("server acknowledged unexpected offset", "url", session.URL, "expected", expected, "actual", newOffset)
		}

		resyncs++
		if resyncs > u.maxResyncs {
			return &domain.OffsetMismatchError{Expected: expected, Actual: newOffset}
		}
		if err := u.resync(ctx, session); err != nil {
			return err
		}
		obs.OnProgress(u.progress(session))
	}
	return nil
}

// resync replaces the local offset with the server's authoritative one.
func (u *Uploader) resync(ctx context.Context, session *domain.UploadSession) error {
	offset, _, err := u.head(ctx, session.URL)
	if err != nil {
		return fmt.Errorf("failed to resync upload offset: %w", err)
	}
	u.logger.Info("resynced upload offset", "url", session.URL, "local", session.Offset, "server", offset)
	return u.advance(session, offset)
}

// advance moves session.Offset forward to a server-reported value.
func (u *Uploader) advance(session *domain.UploadSession, offset int64) error {
	if offset < session.Offset {
		return &domain.ProtocolError{Reason: fmt.Sprintf("server offset moved backwards from %d to %d", session.Offset, offset)}
	}
	if offset > session.Length {
		return &domain.ProtocolError{Reason: fmt.Sprintf("server offset %d exceeds upload length %d", offset, session.Length)}
	}
	session.Offset = offset
	session.UpdatedAt = time.Now()
	return nil
}

func (u *Uploader) progress(session *domain.UploadSession) domain.TransferProgress {
	return domain.TransferProgress{
		Name:        session.Filename,
		Transferred: session.Offset,
		Total:       session.Length,
	}
}
