package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/c2fo/vfs/v7"
	"github.com/google/uuid"

	"github.com/mmcdole/switchtube/internal/domain"
)

const (
	DefaultChunkSize = 16384
	PartSuffix       = ".part" // name suffix of in-progress atomic downloads
)

// Authorizer attaches credentials to outgoing requests.
type Authorizer interface {
	Authorize(req *http.Request) bool
}

// Downloader streams remote media into vfs files chunk by chunk.
type Downloader struct {
	httpClient *http.Client
	auth       Authorizer
	chunkSize  int
	atomic     bool
	logger     *slog.Logger
}

// DownloaderOption customizes a Downloader.
type DownloaderOption func(*Downloader)

// WithChunkSize sets the read size; non-positive values keep the default.
func WithChunkSize(n int) DownloaderOption {
	return func(d *Downloader) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// WithAtomicWrites makes the downloader write to "<name>.part" and move it
// over the destination only once every byte arrived. On failure the part
// file is removed and the destination is left untouched.
func WithAtomicWrites(atomic bool) DownloaderOption {
	return func(d *Downloader) { d.atomic = atomic }
}

// WithDownloadHTTPClient replaces the HTTP client. It should not carry a
// whole-request timeout since bodies can take long to stream.
func WithDownloadHTTPClient(hc *http.Client) DownloaderOption {
	return func(d *Downloader) { d.httpClient = hc }
}

// NewDownloader creates a Downloader; auth may be nil for anonymous downloads.
func NewDownloader(auth Authorizer, logger *slog.Logger, opts ...DownloaderOption) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Downloader{
		httpClient: &http.Client{},
		auth:       auth,
		chunkSize:  DefaultChunkSize,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download streams sourceURL into dst and returns the final progress.
//
// A non-success status fails before dst is touched. Without atomic writes a
// failure mid-stream leaves the bytes received so far in dst.
func (d *Downloader) Download(ctx context.Context, sourceURL string, dst vfs.File, obs domain.ProgressObserver) (domain.TransferProgress, error) {
	if obs == nil {
		obs = domain.NoOpObserver{}
	}
	transferID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return domain.TransferProgress{}, fmt.Errorf("failed to create request: %w", err)
	}
	if d.auth != nil {
		d.auth.Authorize(req)
	}

	d.logger.Debug("download request", "url", sourceURL, "transfer_id", transferID)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return domain.TransferProgress{}, &domain.TransportError{Op: "request", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rerr := domain.RemoteErrorFromResponse(resp)
		d.logger.Error("download rejected", "url", sourceURL, "status", rerr.Status, "transfer_id", transferID)
		return domain.TransferProgress{}, rerr
	}
	defer resp.Body.Close()

	progress := domain.TransferProgress{
		Name:  dst.Name(),
		Total: resp.ContentLength, // -1 when unknown
	}

	target := dst
	if d.atomic {
		target, err = dst.Location().NewFile(dst.Name() + PartSuffix)
		if err != nil {
			return progress, fmt.Errorf("failed to create part file: %w", err)
		}
	}

	d.logger.Info("download started", "url", sourceURL, "dest", dst.URI(), "size", progress.Total, "transfer_id", transferID)

	progress, copyErr := d.copyChunks(resp.Body, target, progress, obs)
	if copyErr == nil && progress.Transferred == 0 {
		// nothing was written, so the backend has not created the file yet
		if err := target.Touch(); err != nil {
			copyErr = &domain.TransportError{Op: "write", Err: err}
		}
	}

	if closeErr := target.Close(); closeErr != nil && copyErr == nil {
		copyErr = &domain.TransportError{Op: "write", Err: closeErr}
	}

	if copyErr != nil {
		if d.atomic {
			if err := target.Delete(); err != nil {
				d.logger.Warn("failed to remove part file", "file", target.URI(), "error", err)
			}
		}
		d.logger.Error("download failed", "url", sourceURL, "dest", dst.URI(), "transferred", progress.Transferred, "error", copyErr, "transfer_id", transferID)
		return progress, copyErr
	}

	if d.atomic {
		if err := target.MoveToFile(dst); err != nil {
			return progress, &domain.TransportError{Op: "write", Err: fmt.Errorf("failed to move part file into place: %w", err)}
		}
	}

	d.logger.Info("download finished", "dest", dst.URI(), "bytes", progress.Transferred, "transfer_id", transferID)
	return progress, nil
}

// copyChunks moves body into w in chunkSize pieces, reporting after every chunk.
func (d *Downloader) copyChunks(body io.Reader, w io.Writer, progress domain.TransferProgress, obs domain.ProgressObserver) (domain.TransferProgress, error) {
	buf := make([]byte, d.chunkSize)
	for {
		n, rerr := readChunk(body, buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return progress, &domain.TransportError{Op: "write", Err: err}
			}
			progress.Transferred += int64(n)
			obs.OnProgress(progress)
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return progress, &domain.TransportError{Op: "read", Err: rerr}
		}
	}

	if progress.Transferred == 0 {
		obs.OnProgress(progress)
	}
	if progress.Total >= 0 && progress.Transferred != progress.Total {
		return progress, &domain.TransportError{
			Op:  "read",
			Err: fmt.Errorf("body ended after %d of %d bytes", progress.Transferred, progress.Total),
		}
	}
	return progress, nil
}

// readChunk fills buf unless the reader ends first. Unlike io.ReadFull it
// passes io.EOF through untouched so a short final chunk and a truncated
// stream stay distinguishable.
func readChunk(r io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
