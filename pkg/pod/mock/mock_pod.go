package mock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/Ratio1/pod_sdk_go/internal/ldpapi"
	"github.com/Ratio1/pod_sdk_go/pkg/lines"
	"github.com/Ratio1/pod_sdk_go/pkg/pod"
)

const (
	tableContainers = "containers"
	tableResources  = "resources"
)

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableContainers: {
			Name: tableContainers,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Path"},
				},
				"parent": {
					Name:         "parent",
					AllowMissing: true,
					Indexer:      &memdb.StringFieldIndex{Field: "Parent"},
				},
			},
		},
		tableResources: {
			Name: tableResources,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Path"},
				},
				"container": {
					Name:    "container",
					Indexer: &memdb.StringFieldIndex{Field: "Container"},
				},
			},
		},
	},
}

type container struct {
	Path    string
	Parent  string
	Types   []string
	Created time.Time
}

type resource struct {
	Path        string
	Container   string
	Body        []byte
	ContentType string
	ETag        string
	Modified    time.Time
}

// Pod is an in-memory LDP pod. It implements pod.Transport directly and can
// be served over HTTP through Handler.
type Pod struct {
	db     *memdb.MemDB
	root    string
	strict  bool
	maxBody int64
	now     func() time.Time

	mu    sync.Mutex
	stats map[string]int
}

// Option configures the mock instance.
type Option func(*Pod)

// WithRoot mounts the pod under a path prefix such as "/alice/".
func WithRoot(root string) Option {
	return func(p *Pod) {
		root = "/" + strings.Trim(root, "/") + "/"
		if root == "//" {
			root = "/"
		}
		p.root = root
	}
}

// WithStrictContainers rejects resource writes into missing containers with
// 409 instead of creating the containers on the fly.
func WithStrictContainers() Option {
	return func(p *Pod) {
		p.strict = true
	}
}

// WithMaxBodyBytes caps request bodies accepted by Handler; larger bodies are
// answered with 413. Non-positive values keep the default of 8 MiB.
func WithMaxBodyBytes(n int64) Option {
	return func(p *Pod) {
		if n > 0 {
			p.maxBody = n
		}
	}
}

// WithClock overrides the clock used for timestamps (useful in tests).
func WithClock(fn func() time.Time) Option {
	return func(p *Pod) {
		if fn != nil {
			p.now = fn
		}
	}
}

// New creates an empty pod holding only its root container.
func New(opts ...Option) *Pod {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		panic(fmt.Sprintf("mock pod: invalid schema: %v", err))
	}
	p := &Pod{
		db:    db,
		root:    "/",
		maxBody: defaultMaxBodyBytes,
		now:     func() time.Time { return time.Now().UTC() },
		stats:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}

	txn := p.db.Txn(true)
	if err := txn.Insert(tableContainers, &container{Path: p.root, Created: p.now()}); err != nil {
		txn.Abort()
		panic(fmt.Sprintf("mock pod: insert root: %v", err))
	}
	txn.Commit()
	return p
}

// Root returns the path prefix the pod is mounted under.
func (p *Pod) Root() string {
	return p.root
}

// Requests returns how many requests with the given method were served.
func (p *Pod) Requests(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats[strings.ToUpper(method)]
}

// ContainerTypes returns the rel="type" links recorded when the container
// relative to the root was created.
func (p *Pod) ContainerTypes(name string) []string {
	txn := p.db.Txn(false)
	defer txn.Abort()
	obj, err := txn.First(tableContainers, "id", p.root+strings.Trim(name, "/")+"/")
	if err != nil || obj == nil {
		return nil
	}
	return append([]string(nil), obj.(*container).Types...)
}

// HasContainer reports whether the container path relative to the root exists.
func (p *Pod) HasContainer(name string) bool {
	txn := p.db.Txn(false)
	defer txn.Abort()
	return p.containerExists(txn, p.root+strings.Trim(name, "/")+"/")
}

// Items returns the decoded content of a resource relative to the root.
func (p *Pod) Items(containerName, name string) ([]string, bool) {
	txn := p.db.Txn(false)
	defer txn.Abort()
	res := p.lookupResource(txn, p.root+strings.Trim(containerName, "/")+"/"+name)
	if res == nil {
		return nil, false
	}
	return lines.Unmarshal(res.Body), true
}

// Probe implements pod.Transport.
func (p *Pod) Probe(ctx context.Context, rawURL string) bool {
	if ctx.Err() != nil {
		return false
	}
	path, err := urlPath(rawURL)
	if err != nil {
		return false
	}
	return p.exchange(http.MethodHead, path, nil, nil).status == http.StatusOK
}

// Put implements pod.Transport.
func (p *Pod) Put(ctx context.Context, rawURL string, body []byte, header http.Header) (*pod.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := urlPath(rawURL)
	if err != nil {
		return nil, err
	}
	res := p.exchange(http.MethodPut, path, header, body)
	if res.status >= 400 {
		return nil, &pod.StatusError{StatusCode: res.status, Body: res.body}
	}
	return &pod.Response{StatusCode: res.status, ETag: res.header.Get("ETag")}, nil
}

// Get implements pod.Transport.
func (p *Pod) Get(ctx context.Context, rawURL string, accept string) (*pod.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := urlPath(rawURL)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if accept != "" {
		header.Set("Accept", accept)
	}
	res := p.exchange(http.MethodGet, path, header, nil)
	if res.status >= 400 {
		return nil, &pod.StatusError{StatusCode: res.status, Body: res.body}
	}
	return &pod.Response{StatusCode: res.status, Body: res.body, ETag: res.header.Get("ETag")}, nil
}

type result struct {
	status int
	header http.Header
	body   []byte
}

func reply(status int, msg string) result {
	r := result{status: status, header: http.Header{}}
	if msg != "" {
		r.header.Set("Content-Type", "text/plain; charset=utf-8")
		r.body = []byte(msg + "\n")
	}
	return r
}

func (p *Pod) exchange(method, path string, header http.Header, body []byte) result {
	p.mu.Lock()
	p.stats[method]++
	p.mu.Unlock()

	if header == nil {
		header = http.Header{}
	}
	if !strings.HasPrefix(path, p.root) {
		return reply(http.StatusNotFound, "not found")
	}
	isContainer := strings.HasSuffix(path, "/")

	switch method {
	case http.MethodHead, http.MethodGet:
		if isContainer {
			return p.getContainer(path)
		}
		return p.getResource(path)
	case http.MethodPut:
		if !isContainer && ldpapi.IsContainerLink(header.Values("Link")) {
			path, isContainer = path+"/", true
		}
		if isContainer {
			if mt := ldpapi.MediaType(header.Get("Content-Type")); mt != "" && mt != ldpapi.ContentTypeTurtle {
				return reply(http.StatusUnsupportedMediaType, "containers accept text/turtle only")
			}
			return p.putContainer(path, ldpapi.ParseLinkTypes(header.Values("Link")))
		}
		return p.putResource(path, header, body)
	default:
		r := reply(http.StatusMethodNotAllowed, "method not allowed")
		r.header.Set("Allow", "GET, HEAD, PUT")
		return r
	}
}

func (p *Pod) getContainer(path string) result {
	txn := p.db.Txn(false)
	defer txn.Abort()
	obj, err := txn.First(tableContainers, "id", path)
	if err != nil || obj == nil {
		return reply(http.StatusNotFound, "not found")
	}
	self := obj.(*container)

	var members []string
	it, err := txn.Get(tableContainers, "parent", path)
	if err != nil {
		return reply(http.StatusInternalServerError, err.Error())
	}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		members = append(members, strings.TrimPrefix(obj.(*container).Path, path))
	}
	it, err = txn.Get(tableResources, "container", path)
	if err != nil {
		return reply(http.StatusInternalServerError, err.Error())
	}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		members = append(members, strings.TrimPrefix(obj.(*resource).Path, path))
	}
	sort.Strings(members)

	var b strings.Builder
	b.WriteString("@prefix ldp: <http://www.w3.org/ns/ldp#> .\n")
	b.WriteString("<> a ldp:Container, ldp:BasicContainer")
	for _, m := range members {
		fmt.Fprintf(&b, ";\n    ldp:contains <%s>", m)
	}
	b.WriteString(" .\n")

	r := result{status: http.StatusOK, header: http.Header{}, body: []byte(b.String())}
	r.header.Set("Content-Type", ldpapi.ContentTypeTurtle)
	r.header.Add("Link", ldpapi.TypeLink(ldpapi.BasicContainerType))
	for _, t := range self.Types {
		if t != ldpapi.BasicContainerType {
			r.header.Add("Link", ldpapi.TypeLink(t))
		}
	}
	return r
}

func (p *Pod) getResource(path string) result {
	txn := p.db.Txn(false)
	defer txn.Abort()
	res := p.lookupResource(txn, path)
	if res == nil {
		return reply(http.StatusNotFound, "not found")
	}
	r := result{status: http.StatusOK, header: http.Header{}, body: append([]byte(nil), res.Body...)}
	r.header.Set("Content-Type", res.ContentType)
	r.header.Set("ETag", res.ETag)
	return r
}

func (p *Pod) putContainer(path string, types []string) result {
	txn := p.db.Txn(true)
	defer txn.Abort()
	if p.containerExists(txn, path) {
		return reply(http.StatusOK, "")
	}
	if p.lookupResource(txn, strings.TrimSuffix(path, "/")) != nil {
		return reply(http.StatusConflict, "a resource already uses this name")
	}
	if err := p.createContainers(txn, parentOf(strings.TrimSuffix(path, "/"))); err != nil {
		return reply(http.StatusInternalServerError, err.Error())
	}
	rec := &container{Path: path, Parent: parentOf(strings.TrimSuffix(path, "/")), Types: types, Created: p.now()}
	if err := txn.Insert(tableContainers, rec); err != nil {
		return reply(http.StatusInternalServerError, err.Error())
	}
	txn.Commit()
	return reply(http.StatusCreated, "")
}

func (p *Pod) putResource(path string, header http.Header, body []byte) result {
	txn := p.db.Txn(true)
	defer txn.Abort()

	parent := parentOf(path)
	if !p.containerExists(txn, parent) {
		if p.strict {
			return reply(http.StatusConflict, "container does not exist")
		}
		if err := p.createContainers(txn, parent); err != nil {
			return reply(http.StatusInternalServerError, err.Error())
		}
	}

	existing := p.lookupResource(txn, path)
	if ifMatch := header.Get("If-Match"); ifMatch != "" {
		if existing == nil || !ldpapi.MatchETag(ifMatch, existing.ETag) {
			return reply(http.StatusPreconditionFailed, "precondition failed")
		}
	}
	if ifNoneMatch := header.Get("If-None-Match"); ifNoneMatch != "" && existing != nil {
		if ldpapi.MatchETag(ifNoneMatch, existing.ETag) {
			return reply(http.StatusPreconditionFailed, "precondition failed")
		}
	}

	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = ldpapi.ContentTypeText
	}
	rec := &resource{
		Path:        path,
		Container:   parent,
		Body:        append([]byte(nil), body...),
		ContentType: contentType,
		ETag:        newETag(),
		Modified:    p.now(),
	}
	if err := txn.Insert(tableResources, rec); err != nil {
		return reply(http.StatusInternalServerError, err.Error())
	}
	txn.Commit()

	status := http.StatusCreated
	if existing != nil {
		status = http.StatusOK
	}
	r := reply(status, "")
	r.header.Set("ETag", rec.ETag)
	return r
}

// createContainers inserts path and every missing ancestor below the root.
func (p *Pod) createContainers(txn *memdb.Txn, path string) error {
	if path == p.root || p.containerExists(txn, path) {
		return nil
	}
	parent := parentOf(strings.TrimSuffix(path, "/"))
	if err := p.createContainers(txn, parent); err != nil {
		return err
	}
	return txn.Insert(tableContainers, &container{Path: path, Parent: parent, Created: p.now()})
}

func (p *Pod) containerExists(txn *memdb.Txn, path string) bool {
	obj, err := txn.First(tableContainers, "id", path)
	return err == nil && obj != nil
}

func (p *Pod) lookupResource(txn *memdb.Txn, path string) *resource {
	obj, err := txn.First(tableResources, "id", path)
	if err != nil || obj == nil {
		return nil
	}
	return obj.(*resource)
}

// parentOf returns the container path holding path ("/a/b" -> "/a/").
func parentOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "/"
	}
	return path[:idx+1]
}

func urlPath(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("mock pod: invalid URL %q: %w", raw, err)
	}
	if u.Path == "" {
		return "/", nil
	}
	return u.Path, nil
}

func newETag() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf(`"%d"`, time.Now().UnixNano())
	}
	return `"` + hex.EncodeToString(buf) + `"`
}
