package transport

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/TheMichaelB/nextsync/internal/config"
	"github.com/TheMichaelB/nextsync/internal/events"
	"github.com/TheMichaelB/nextsync/internal/models"
)

const propfindBody = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:">
  <d:prop>
    <d:getlastmodified/>
    <d:getcontentlength/>
    <d:getetag/>
    <d:resourcetype/>
  </d:prop>
</d:propfind>`

// WebDAVClient implements Client against a WebDAV content store.
type WebDAVClient struct {
	client    *http.Client
	baseURL   *url.URL
	username  string
	password  string
	userAgent string
	logger    *events.Logger

	maxRetries int
	retryDelay time.Duration
}

// NewWebDAVClient creates a WebDAV client.
func NewWebDAVClient(cfg *config.RemoteConfig, logger *events.Logger) (*WebDAVClient, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		logger.WithError(err).Warn("Failed to configure HTTP/2")
	}

	return &WebDAVClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		baseURL:    base,
		username:   cfg.Username,
		password:   cfg.Password,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Second,
		logger:     logger.WithField("component", "webdav_client"),
	}, nil
}

// SetRetryDelay overrides the base backoff delay.
func (c *WebDAVClient) SetRetryDelay(d time.Duration) {
	c.retryDelay = d
}

// SetCredentials replaces the basic-auth credentials.
func (c *WebDAVClient) SetCredentials(username, password string) {
	c.username = username
	c.password = password
}

// urlFor builds the fully escaped URL for a store path.
func (c *WebDAVClient) urlFor(p string) string {
	u := *c.baseURL
	joined := path.Join(u.Path, "/", p)
	u.Path = joined
	return u.String()
}

// List enumerates all items below remotePath using Depth:1 PROPFIND walks.
func (c *WebDAVClient) List(ctx context.Context, remotePath string) ([]models.ItemState, error) {
	root := "/" + strings.Trim(remotePath, "/")

	var items []models.ItemState
	queue := []string{root}

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := c.propfind(ctx, dir)
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			name := relativePath(dir, entry.Path)
			if name == "" {
				continue // the queried collection itself
			}

			full := path.Join(dir, name)

			item := entry
			item.Path = models.NormalizePath(relativePath(root, full))
			items = append(items, item)

			if item.IsDir {
				queue = append(queue, full)
			}
		}
	}

	return items, nil
}

// propfind lists the immediate children of one collection.
func (c *WebDAVClient) propfind(ctx context.Context, dir string) ([]models.ItemState, error) {
	resp, err := c.do(ctx, "list", dir, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "PROPFIND", c.urlFor(dir), strings.NewReader(propfindBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Depth", "1")
		req.Header.Set("Content-Type", "application/xml")
		return req, nil
	}, func(status int) bool { return status == http.StatusMultiStatus || status == http.StatusOK })
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ms multistatus
	if err := xml.NewDecoder(resp.Body).Decode(&ms); err != nil {
		return nil, &models.TransportError{
			Kind: models.TransportServer,
			Op:   "list",
			Path: dir,
			Err:  fmt.Errorf("parse multistatus: %w", err),
		}
	}

	basePath := c.baseURL.Path

	var entries []models.ItemState
	for _, r := range ms.Responses {
		href, err := url.PathUnescape(r.Href)
		if err != nil {
			href = r.Href
		}
		href = strings.TrimPrefix(href, basePath)
		href = "/" + strings.Trim(href, "/")

		prop, ok := r.okProp()
		if !ok {
			continue
		}

		item := models.ItemState{
			Path:  href,
			ETag:  strings.Trim(prop.ETag, `"`),
			IsDir: prop.ResourceType.Collection != nil,
		}
		if prop.ContentLength != "" {
			item.Size, _ = strconv.ParseInt(prop.ContentLength, 10, 64)
		}
		if prop.LastModified != "" {
			if t, err := time.Parse(http.TimeFormat, prop.LastModified); err == nil {
				item.ModTime = t.UTC()
			}
		}

		entries = append(entries, item)
	}

	return entries, nil
}

// Download retrieves file content.
func (c *WebDAVClient) Download(ctx context.Context, p string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, "download", p, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.urlFor(p), nil)
	}, func(status int) bool { return status == http.StatusOK })
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Upload stores file content. Missing parent collections are created on a
// 409 and the upload retried once.
func (c *WebDAVClient) Upload(ctx context.Context, p string, data io.Reader) error {
	// PUT bodies must be replayable for retries.
	body, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("read upload body: %w", err)
	}

	put := func() (*http.Response, error) {
		return c.do(ctx, "upload", p, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.urlFor(p), bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			req.ContentLength = int64(len(body))
			return req, nil
		}, func(status int) bool {
			return status == http.StatusOK || status == http.StatusCreated || status == http.StatusNoContent
		})
	}

	resp, err := put()
	if err != nil {
		var terr *models.TransportError
		if errors.As(err, &terr) && terr.StatusCode == http.StatusConflict {
			if mkErr := c.ensureCollections(ctx, path.Dir(p)); mkErr != nil {
				return mkErr
			}
			resp, err = put()
		}
	}
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Delete removes a file or collection.
func (c *WebDAVClient) Delete(ctx context.Context, p string) error {
	resp, err := c.do(ctx, "delete", p, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodDelete, c.urlFor(p), nil)
	}, func(status int) bool { return status == http.StatusOK || status == http.StatusNoContent })
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Rename moves an item on the store, overwriting any existing destination.
func (c *WebDAVClient) Rename(ctx context.Context, p, newPath string) error {
	resp, err := c.do(ctx, "rename", p, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "MOVE", c.urlFor(p), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Destination", c.urlFor(newPath))
		req.Header.Set("Overwrite", "T")
		return req, nil
	}, func(status int) bool { return status == http.StatusCreated || status == http.StatusNoContent })
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Mkdir creates a collection and any missing parents.
func (c *WebDAVClient) Mkdir(ctx context.Context, p string) error {
	return c.ensureCollections(ctx, p)
}

// Close releases idle connections.
func (c *WebDAVClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// ensureCollections issues MKCOL for every missing segment of dir.
func (c *WebDAVClient) ensureCollections(ctx context.Context, dir string) error {
	dir = strings.Trim(dir, "/")
	if dir == "" || dir == "." {
		return nil
	}

	segments := strings.Split(dir, "/")
	current := ""
	for _, seg := range segments {
		current = current + "/" + seg
		resp, err := c.do(ctx, "mkcol", current, func() (*http.Request, error) {
			return http.NewRequestWithContext(ctx, "MKCOL", c.urlFor(current), nil)
		}, func(status int) bool {
			// 405 means the collection already exists.
			return status == http.StatusCreated || status == http.StatusMethodNotAllowed
		})
		if err != nil {
			return err
		}
		resp.Body.Close()
	}
	return nil
}

// do executes a request with retry on transient failures.
func (c *WebDAVClient) do(ctx context.Context, op, p string, newReq func() (*http.Request, error), okStatus func(int) bool) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(map[string]interface{}{
				"op":      op,
				"path":    p,
				"attempt": attempt,
			}).Debug("Retrying request")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		req, err := newReq()
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		if c.username != "" {
			req.SetBasicAuth(c.username, c.password)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = &models.TransportError{Kind: models.TransportNetwork, Op: op, Path: p, Err: err}
			continue
		}

		if okStatus(resp.StatusCode) {
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		lastErr = classifyStatus(op, p, resp.StatusCode, body)

		var terr *models.TransportError
		if errors.As(lastErr, &terr) && !terr.Retryable() {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

func classifyStatus(op, p string, status int, body []byte) *models.TransportError {
	kind := models.TransportServer
	if status == http.StatusNotFound {
		kind = models.TransportNotFound
	}
	return &models.TransportError{
		Kind:       kind,
		Op:         op,
		Path:       p,
		StatusCode: status,
		Err:        fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(body))),
	}
}

// relativePath returns the path of child below root, or "" when child is
// root itself or outside it.
func relativePath(root, child string) string {
	root = strings.Trim(root, "/")
	child = strings.Trim(child, "/")

	if child == root {
		return ""
	}
	if root == "" {
		return child
	}
	if !strings.HasPrefix(child, root+"/") {
		return ""
	}
	return strings.TrimPrefix(child, root+"/")
}

// WebDAV multistatus response types.

type multistatus struct {
	XMLName   xml.Name      `xml:"DAV: multistatus"`
	Responses []davResponse `xml:"response"`
}

type davResponse struct {
	Href     string     `xml:"href"`
	Propstat []propstat `xml:"propstat"`
}

type propstat struct {
	Status string  `xml:"status"`
	Prop   davProp `xml:"prop"`
}

type davProp struct {
	LastModified  string       `xml:"getlastmodified"`
	ContentLength string       `xml:"getcontentlength"`
	ETag          string       `xml:"getetag"`
	ResourceType  resourceType `xml:"resourcetype"`
}

type resourceType struct {
	Collection *struct{} `xml:"collection"`
}

// okProp returns the prop block whose status is 200.
func (r davResponse) okProp() (davProp, bool) {
	for _, ps := range r.Propstat {
		if strings.Contains(ps.Status, "200") {
			return ps.Prop, true
		}
	}
	return davProp{}, false
}
