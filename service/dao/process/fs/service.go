package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/dao"
	"github.com/viant/procflux/service/dao/criteria"
)

const ext = ".json"

// Service mirrors process snapshots as one JSON document per process,
// <baseURL>/<id>.json, on any afs backend.
type Service struct {
	baseURL string
	fs      afs.Service
	logger  *slog.Logger
	mu      sync.RWMutex
}

var _ dao.Service[string, execution.Process] = (*Service)(nil)

// Save writes the snapshot, replacing a previous one.
func (s *Service) Save(ctx context.Context, process *execution.Process) error {
	if process == nil {
		return dao.ErrNilEntity
	}
	if process.ID == "" {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(process)
	if err != nil {
		return fmt.Errorf("process %v: encode: %w", process.ID, err)
	}
	URL := s.urlOf(process.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("process %v: upload %v: %w", process.ID, URL, err)
	}
	return nil
}

func (s *Service) Load(ctx context.Context, id string) (*execution.Process, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	URL := s.urlOf(id)
	if err := s.ensureExists(ctx, id, URL); err != nil {
		return nil, err
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("process %v: download: %w", id, err)
	}
	return decode(data)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.urlOf(id)
	if err := s.ensureExists(ctx, id, URL); err != nil {
		return err
	}
	if err := s.fs.Delete(ctx, URL); err != nil {
		return fmt.Errorf("process %v: delete: %w", id, err)
	}
	return nil
}

// List returns snapshots matching parameters, ordered by id. Unreadable
// documents are logged and skipped.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*execution.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("list %v: %w", s.baseURL, err)
	}
	var ret []*execution.Process
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ext) {
			continue
		}
		process, err := s.read(ctx, object)
		if err != nil {
			s.logger.Warn("skipping process snapshot", "url", object.URL(), "error", err)
			continue
		}
		if criteria.Match(process, parameters) {
			ret = append(ret, process)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret, nil
}

func (s *Service) read(ctx context.Context, object storage.Object) (*execution.Process, error) {
	data, err := s.fs.Download(ctx, object)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func (s *Service) ensureExists(ctx context.Context, id, URL string) error {
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("process %v: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("process %v: %w", id, dao.ErrNotFound)
	}
	return nil
}

func (s *Service) urlOf(id string) string {
	return url.Join(s.baseURL, id+ext)
}

func decode(data []byte) (*execution.Process, error) {
	ret := &execution.Process{}
	if err := json.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("decode process: %w", err)
	}
	return ret, nil
}

// Option customises the service.
type Option func(s *Service)

// WithLogger sets the logger used for skipped documents.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFS sets the storage service.
func WithFS(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// New creates a mirror rooted at baseURL: a local path, or a file://,
// mem:// or any other URL the afs service can handle.
func New(baseURL string, opts ...Option) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("store: base URL was empty")
	}
	ret := &Service{
		baseURL: url.Normalize(baseURL, file.Scheme),
		fs:      afs.New(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ctx := context.Background()
	if exists, _ := ret.fs.Exists(ctx, ret.baseURL); !exists {
		if err := ret.fs.Create(ctx, ret.baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("store: create %v: %w", ret.baseURL, err)
		}
	}
	return ret, nil
}
