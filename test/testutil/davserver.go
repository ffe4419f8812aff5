package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"
)

// DavServer is an in-memory WebDAV server for integration tests. It speaks
// just enough of the protocol for the engine: PROPFIND with Depth 1, GET,
// PUT, DELETE, MKCOL, and MOVE, with basic auth.
type DavServer struct {
	*httptest.Server

	Username string
	Password string

	mu      sync.RWMutex
	entries map[string]davEntry
	etagSeq int
}

type davEntry struct {
	data    []byte
	modTime time.Time
	isDir   bool
	etag    string
}

// NewDavServer creates and starts the server. The root collection exists.
func NewDavServer(username, password string) *DavServer {
	s := &DavServer{
		Username: username,
		Password: password,
		entries:  map[string]davEntry{"": {isDir: true}},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Seed stores a file, creating parent collections.
func (s *DavServer) Seed(p, content string, modTime time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := davKey(p)
	s.ensureParents(key)
	s.etagSeq++
	s.entries[key] = davEntry{
		data:    []byte(content),
		modTime: modTime,
		etag:    fmt.Sprintf("seed-%d", s.etagSeq),
	}
}

// SeedDir stores an empty collection.
func (s *DavServer) SeedDir(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := davKey(p)
	s.ensureParents(key)
	s.entries[key] = davEntry{isDir: true}
}

// Remove drops a path and any descendants.
func (s *DavServer) Remove(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := davKey(p)
	prefix := key + "/"
	for k := range s.entries {
		if k == key || strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
		}
	}
}

// Content returns the stored bytes for a path.
func (s *DavServer) Content(p string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[davKey(p)]
	if !ok || e.isDir {
		return nil, false
	}
	return e.data, true
}

// Exists reports whether a path is present.
func (s *DavServer) Exists(p string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[davKey(p)]
	return ok
}

func (s *DavServer) handle(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != s.Username || pass != s.Password {
		w.Header().Set("WWW-Authenticate", `Basic realm="dav"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	key := davKey(r.URL.Path)

	switch r.Method {
	case "PROPFIND":
		s.propfind(w, key)
	case http.MethodGet:
		s.get(w, key)
	case http.MethodPut:
		s.put(w, r, key)
	case http.MethodDelete:
		s.delete(w, key)
	case "MKCOL":
		s.mkcol(w, key)
	case "MOVE":
		s.move(w, r, key)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *DavServer) propfind(w http.ResponseWriter, key string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><d:multistatus xmlns:d="DAV:">`)
	writeResponse(&b, key, e)
	if e.isDir {
		for child, ce := range s.entries {
			if path.Dir(child) == keyAsDir(key) && child != key {
				writeResponse(&b, child, ce)
			}
		}
	}
	b.WriteString(`</d:multistatus>`)

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusMultiStatus)
	io.WriteString(w, b.String())
}

func writeResponse(b *strings.Builder, key string, e davEntry) {
	b.WriteString("<d:response><d:href>/")
	b.WriteString(key)
	b.WriteString("</d:href><d:propstat><d:status>HTTP/1.1 200 OK</d:status><d:prop>")
	if e.isDir {
		b.WriteString("<d:resourcetype><d:collection/></d:resourcetype>")
	} else {
		b.WriteString("<d:resourcetype/>")
		fmt.Fprintf(b, "<d:getcontentlength>%d</d:getcontentlength>", len(e.data))
		fmt.Fprintf(b, "<d:getetag>%q</d:getetag>", e.etag)
		fmt.Fprintf(b, "<d:getlastmodified>%s</d:getlastmodified>", e.modTime.UTC().Format(http.TimeFormat))
	}
	b.WriteString("</d:prop></d:propstat></d:response>")
}

func (s *DavServer) get(w http.ResponseWriter, key string) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || e.isDir {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Write(e.data)
}

func (s *DavServer) put(w http.ResponseWriter, r *http.Request, key string) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent := path.Dir(key)
	if parent == "." {
		parent = ""
	}
	if pe, ok := s.entries[parent]; !ok || !pe.isDir {
		http.Error(w, "parent collection missing", http.StatusConflict)
		return
	}

	s.etagSeq++
	s.entries[key] = davEntry{
		data:    data,
		modTime: time.Now().UTC(),
		etag:    fmt.Sprintf("put-%d", s.etagSeq),
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *DavServer) delete(w http.ResponseWriter, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	for existing := range s.entries {
		if existing == key || strings.HasPrefix(existing, key+"/") {
			delete(s.entries, existing)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *DavServer) mkcol(w http.ResponseWriter, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; ok {
		http.Error(w, "exists", http.StatusMethodNotAllowed)
		return
	}
	parent := path.Dir(key)
	if parent == "." {
		parent = ""
	}
	if pe, ok := s.entries[parent]; !ok || !pe.isDir {
		http.Error(w, "parent collection missing", http.StatusConflict)
		return
	}
	s.entries[key] = davEntry{isDir: true}
	w.WriteHeader(http.StatusCreated)
}

func (s *DavServer) move(w http.ResponseWriter, r *http.Request, key string) {
	dest := r.Header.Get("Destination")
	du, err := url.Parse(dest)
	if err != nil || dest == "" {
		http.Error(w, "bad destination", http.StatusBadRequest)
		return
	}
	destKey := davKey(du.Path)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	delete(s.entries, key)
	s.ensureParents(destKey)
	s.entries[destKey] = e
	w.WriteHeader(http.StatusCreated)
}

func (s *DavServer) ensureParents(key string) {
	dir := path.Dir(key)
	for dir != "." && dir != "" {
		if _, ok := s.entries[dir]; !ok {
			s.entries[dir] = davEntry{isDir: true}
		}
		dir = path.Dir(dir)
	}
}

func davKey(p string) string {
	unescaped, err := url.PathUnescape(p)
	if err == nil {
		p = unescaped
	}
	return strings.Trim(path.Clean("/"+p), "/")
}

func keyAsDir(key string) string {
	if key == "" {
		return "."
	}
	return key
}
