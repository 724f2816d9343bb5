package switchtube

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"

	"github.com/tomnomnom/linkheader"

	"github.com/mmcdole/switchtube/internal/domain"
)

// FetchPage performs one listing request and returns its raw items together
// with the continuation URL from the Link header ("" on the last page).
func (c *Client) FetchPage(ctx context.Context, pageURL string) (domain.Page[json.RawMessage], error) {
	var items []json.RawMessage
	header, err := c.getJSON(ctx, pageURL, &items)
	if err != nil {
		return domain.Page[json.RawMessage]{}, err
	}

	next, err := nextLink(pageURL, header)
	if err != nil {
		return domain.Page[json.RawMessage]{}, err
	}

	c.logger.Debug("fetched page", "url", pageURL, "items", len(items), "next", next)
	return domain.Page[json.RawMessage]{Items: items, Next: next}, nil
}

// nextLink extracts rel="next" from the Link header and resolves it against
// the page URL. Conflicting, unparsable or self-referencing links are rejected.
func nextLink(pageURL string, header http.Header) (string, error) {
	raw := header.Values("Link")
	if len(raw) == 0 {
		return "", nil
	}

	links := linkheader.ParseMultiple(raw).FilterByRel("next")
	if len(links) == 0 {
		return "", nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	var next string
	for _, l := range links {
		ref, err := url.Parse(l.URL)
		if err != nil || l.URL == "" {
			return "", &domain.ProtocolError{Reason: fmt.Sprintf("malformed next link %q", l.URL)}
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return "", &domain.ProtocolError{Reason: fmt.Sprintf("next link %q has unsupported scheme", l.URL)}
		}
		if next != "" && next != resolved.String() {
			return "", &domain.ProtocolError{Reason: "conflicting next links"}
		}
		next = resolved.String()
	}

	if next == base.String() {
		return "", &domain.ProtocolError{Reason: fmt.Sprintf("next link points back to %s", pageURL)}
	}
	return next, nil
}

// Lister flattens a paginated endpoint into one lazy sequence.
// At most one page is held in memory; the sequence restarts only by calling All again.
type Lister[T any] struct {
	client *Client
	decode func(json.RawMessage) (T, error)
}

// NewLister creates a Lister decoding each raw item with decode.
func NewLister[T any](client *Client, decode func(json.RawMessage) (T, error)) *Lister[T] {
	return &Lister[T]{client: client, decode: decode}
}

// NewResourceLister creates a Lister yielding items as opaque resources.
func NewResourceLister(client *Client) *Lister[domain.Resource] {
	return NewLister(client, decodeResource)
}

// All yields every item reachable from startURL in page order.
// The first error is yielded once and ends the sequence; items already
// yielded remain valid.
func (l *Lister[T]) All(ctx context.Context, startURL string) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		pageURL := startURL
		pages := 0

		for pageURL != "" {
			page, err := l.client.FetchPage(ctx, pageURL)
			if err != nil {
				yield(zero, err)
				return
			}
			pages++

			for _, raw := range page.Items {
				item, err := l.decode(raw)
				if err != nil {
					yield(zero, &domain.ProtocolError{Reason: fmt.Sprintf("failed to decode item on %s: %v", pageURL, err)})
					return
				}
				if !yield(item, nil) {
					return
				}
			}
			pageURL = page.Next
		}

		l.client.logger.Debug("listing drained", "url", startURL, "pages", pages)
	}
}

// List yields every resource reachable from startURL.
func (c *Client) List(ctx context.Context, startURL string) iter.Seq2[domain.Resource, error] {
	return NewResourceLister(c).All(ctx, startURL)
}

func decodeResource(raw json.RawMessage) (domain.Resource, error) {
	var r domain.Resource
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return r, nil
}
