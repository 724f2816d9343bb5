// Package tus implements the client side of the tus 1.0 resumable upload
// protocol as used by the SWITCHtube upload endpoint.
package tus

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/mmcdole/switchtube/internal/domain"
)

const (
	ProtocolVersion    = "1.0.0"
	offsetContentType  = "application/offset+octet-stream"
	headerResumable    = "Tus-Resumable"
	headerUploadLength = "Upload-Length"
	headerUploadOffset = "Upload-Offset"
	headerUploadMeta   = "Upload-Metadata"
)

// create asks the server for a new upload session.
func (u *Uploader) create(ctx context.Context, filename string, length int64) (domain.UploadSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, http.NoBody)
	if err != nil {
		return domain.UploadSession{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerResumable, ProtocolVersion)
	req.Header.Set(headerUploadLength, strconv.FormatInt(length, 10))
	req.Header.Set(headerUploadMeta, EncodeMetadata(map[string]string{"filename": filename}))

	resp, err := u.do(req)
	if err != nil {
		return domain.UploadSession{}, err
	}
	resp.Body.Close()

	location := resp.Header.Get("Location")
	if location == "" {
		return domain.UploadSession{}, &domain.ProtocolError{Reason: "upload creation response has no Location"}
	}
	ref, err := url.Parse(location)
	if err != nil {
		return domain.UploadSession{}, &domain.ProtocolError{Reason: fmt.Sprintf("malformed upload Location %q", location)}
	}
	sessionURL := req.URL.ResolveReference(ref).String()

	now := time.Now()
	return domain.UploadSession{
		ID:        domain.SessionIDFromURL(sessionURL),
		URL:       sessionURL,
		Offset:    0,
		Length:    length,
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// head returns the offset the server has durably stored and the declared length
// (-1 when the server omits it).
func (u *Uploader) head(ctx context.Context, sessionURL string) (offset, length int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, sessionURL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerResumable, ProtocolVersion)

	resp, err := u.do(req)
	if err != nil {
		return 0, 0, sessionGone(err)
	}
	resp.Body.Close()

	offset, err = parseOffset(resp.Header)
	if err != nil {
		return 0, 0, err
	}

	length = -1
	if v := resp.Header.Get(headerUploadLength); v != "" {
		length, err = strconv.ParseInt(v, 10, 64)
		if err != nil || length < 0 {
			return 0, 0, &domain.ProtocolError{Reason: fmt.Sprintf("invalid Upload-Length %q", v)}
		}
	}
	return offset, length, nil
}

// patch sends one chunk at offset and returns the server's new offset.
func (u *Uploader) patch(ctx context.Context, sessionURL string, offset int64, chunk []byte) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, sessionURL, bytes.NewReader(chunk))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerResumable, ProtocolVersion)
	req.Header.Set(headerUploadOffset, strconv.FormatInt(offset, 10))
	req.Header.Set("Content-Type", offsetContentType)

	resp, err := u.do(req)
	if err != nil {
		return 0, sessionGone(err)
	}
	resp.Body.Close()

	return parseOffset(resp.Header)
}

// do sends req with credentials and turns non-2xx responses into RemoteErrors.
func (u *Uploader) do(req *http.Request) (*http.Response, error) {
	if u.auth != nil {
		u.auth.Authorize(req)
	}

	u.logger.Debug("tus request", "method", req.Method, "url", req.URL.String())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: "request", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.RemoteErrorFromResponse(resp)
	}
	return resp, nil
}

// sessionGone marks 404 and 410 answers on a session URL as ErrSessionGone.
func sessionGone(err error) error {
	var rerr *domain.RemoteError
	if errors.As(err, &rerr) && rerr.Kind() == domain.KindNotFound {
		return fmt.Errorf("%w: %w", domain.ErrSessionGone, err)
	}
	return err
}

func parseOffset(h http.Header) (int64, error) {
	v := h.Get(headerUploadOffset)
	if v == "" {
		return 0, &domain.ProtocolError{Reason: "response has no Upload-Offset"}
	}
	offset, err := strconv.ParseInt(v, 10, 64)
	if err != nil || offset < 0 {
		return 0, &domain.ProtocolError{Reason: fmt.Sprintf("invalid Upload-Offset %q", v)}
	}
	return offset, nil
}

// EncodeMetadata renders the Upload-Metadata header: comma separated
// "key base64(value)" pairs.
func EncodeMetadata(meta map[string]string) string {
	var buf bytes.Buffer
	for _, k := range slices.Sorted(maps.Keys(meta)) {
		if buf.Len() > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(k)
		buf.WriteByte(' ')
		buf.WriteString(base64.StdEncoding.EncodeToString([]byte(meta[k])))
	}
	return buf.String()
}
