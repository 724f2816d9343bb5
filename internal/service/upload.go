package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/c2fo/vfs/v7"

	"github.com/mmcdole/switchtube/internal/domain"
	"github.com/mmcdole/switchtube/internal/store"
)

// sessionUploader abstracts the resumable upload transport (consumer-defined interface)
type sessionUploader interface {
	Create(ctx context.Context, filename string, length int64) (domain.UploadSession, error)
	Upload(ctx context.Context, src io.ReadSeeker, session *domain.UploadSession, obs domain.ProgressObserver) error
}

// UploadRequest describes one file to publish into a channel
type UploadRequest struct {
	ChannelID string
	Title     string
	Published bool
	Source    vfs.File
}

// UploadService pushes local files through the resumable transport and
// finalizes them into videos. Sessions are persisted so a later run against
// the same file continues where the server stopped.
type UploadService struct {
	uploader  sessionUploader
	publisher domain.Publisher
	sessions  domain.SessionStore
	serverURL string
	logger    *slog.Logger
}

// NewUploadService creates a new upload service
func NewUploadService(
	uploader sessionUploader,
	publisher domain.Publisher,
	sessions domain.SessionStore,
	serverURL string,
	logger *slog.Logger,
) *UploadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadService{
		uploader:  uploader,
		publisher: publisher,
		sessions:  sessions,
		serverURL: serverURL,
		logger:    logger,
	}
}

// Upload transfers req.Source and creates the video record.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest, obs domain.ProgressObserver) (*domain.CreatedVideo, error) {
	src := req.Source
	defer src.Close()

	key, length, err := s.SourceKey(src)
	if err != nil {
		return nil, err
	}

	session, resumed, err := s.openSession(ctx, key, src.Name(), length)
	if err != nil {
		return nil, err
	}

	err = s.uploader.Upload(ctx, src, &session, obs)
	if err != nil && resumed && errors.Is(err, domain.ErrSessionGone) {
		// the server expired the stored session
		s.logger.Warn("stored upload session is gone, starting over", "url", session.URL)
		s.forget(key)
		session, err = s.createSession(ctx, key, src.Name(), length)
		if err != nil {
			return nil, err
		}
		err = s.uploader.Upload(ctx, src, &session, obs)
	}
	if err != nil {
		s.remember(key, session)
		return nil, fmt.Errorf("uploading %s: %w", src.Name(), err)
	}
	s.remember(key, session)

	video, err := s.publisher.CreateVideo(ctx, domain.CreateVideoRequest{
		ChannelID: req.ChannelID,
		UploadID:  session.ID,
		Title:     req.Title,
		Published: req.Published,
	})
	if err != nil {
		return nil, fmt.Errorf("creating video from upload %s: %w", session.ID, err)
	}

	s.forget(key)
	return video, nil
}

// SourceKey returns the session store key and size of a local source.
func (s *UploadService) SourceKey(src vfs.File) (string, int64, error) {
	exists, err := src.Exists()
	if err != nil {
		return "", 0, fmt.Errorf("checking %s: %w", src.URI(), err)
	}
	if !exists {
		return "", 0, fmt.Errorf("%s: %w", src.URI(), domain.ErrNotFound)
	}

	size, err := src.Size()
	if err != nil {
		return "", 0, fmt.Errorf("reading size of %s: %w", src.URI(), err)
	}
	var modTime time.Time
	if mt, err := src.LastModified(); err == nil && mt != nil {
		modTime = *mt
	}

	return store.Fingerprint(s.serverURL, src.URI(), int64(size), modTime), int64(size), nil
}

// Sessions lists the upload sessions kept for resume.
func (s *UploadService) Sessions() (map[string]domain.UploadSession, error) {
	return s.sessions.ListSessions()
}

// Forget drops the stored session of src; it reports whether one existed.
func (s *UploadService) Forget(src vfs.File) (bool, error) {
	key, _, err := s.SourceKey(src)
	if err != nil {
		return false, err
	}
	if _, ok := s.sessions.GetSession(key); !ok {
		return false, nil
	}
	return true, s.sessions.DeleteSession(key)
}

func (s *UploadService) openSession(ctx context.Context, key, filename string, length int64) (domain.UploadSession, bool, error) {
	if session, ok := s.sessions.GetSession(key); ok {
		if session.Length == length && session.URL != "" {
			s.logger.Info("resuming stored upload session", "url", session.URL, "offset", session.Offset, "length", length)
			return session, true, nil
		}
		s.forget(key)
	}
	session, err := s.createSession(ctx, key, filename, length)
	return session, false, err
}

func (s *UploadService) createSession(ctx context.Context, key, filename string, length int64) (domain.UploadSession, error) {
	session, err := s.uploader.Create(ctx, filename, length)
	if err != nil {
		return domain.UploadSession{}, fmt.Errorf("creating upload session for %s: %w", filename, err)
	}
	s.remember(key, session)
	return session, nil
}

func (s *UploadService) remember(key string, session domain.UploadSession) {
	if err := s.sessions.SaveSession(key, session); err != nil {
		s.logger.Error("failed to save upload session", "url", session.URL, "error", err)
	}
}

func (s *UploadService) forget(key string) {
	if err := s.sessions.DeleteSession(key); err != nil {
		s.logger.Error("failed to delete upload session", "key", key, "error", err)
	}
}
