package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"course-planner/internal/model"
	pkgerrors "course-planner/pkg/errors"
)

// ── 目录数据源 ──────────────────────────────────────────────
//
// 回答"给我学科 X 的原始记录"，支持本地目录与 HTTP 两种来源。
// 失败必须可区分：文件不存在（ErrCatalogNotFound）与格式错误（ErrCatalogMalformed）。
// ─────────────────────────────────────────────────────────────

const catalogMaxFileSize = 10 * 1024 * 1024 // 10MB

var (
	// ErrCatalogNotFound 学科目录文件不存在
	ErrCatalogNotFound = pkgerrors.ErrMissingCatalogFile
	// ErrCatalogMalformed 目录文件格式错误
	ErrCatalogMalformed = errors.New("目录文件格式错误")
)

// PayloadFetcher 按名称获取原始文件内容
type PayloadFetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// PayloadCache 原始文件内容缓存（Redis 实现见 pkg/redis）
type PayloadCache interface {
	GetPayload(ctx context.Context, name string) ([]byte, bool, error)
	SetPayload(ctx context.Context, name string, data []byte, ttl time.Duration) error
	InvalidatePayloads(ctx context.Context) error
}

// CatalogSource 目录数据源接口
type CatalogSource interface {
	// FetchSubject 返回某学科的原始课程记录
	FetchSubject(ctx context.Context, subject string) ([]model.RawCourse, error)
	// FetchTitles 返回课程名映射，键为规范化的 "学科+课号"
	FetchTitles(ctx context.Context) (map[string]string, error)
	// Invalidate 丢弃已缓存的原始文件，下次获取时强制回源
	Invalidate(ctx context.Context) error
}

type catalogSource struct {
	fetcher    PayloadFetcher
	cache      PayloadCache
	cacheTTL   time.Duration
	titlesFile string
	logger     *zap.Logger
}

// NewCatalogSource 创建目录数据源；cache 可为 nil
func NewCatalogSource(fetcher PayloadFetcher, cache PayloadCache, cacheTTL time.Duration, titlesFile string, logger *zap.Logger) CatalogSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &catalogSource{
		fetcher:    fetcher,
		cache:      cache,
		cacheTTL:   cacheTTL,
		titlesFile: titlesFile,
		logger:     logger,
	}
}

func (s *catalogSource) FetchSubject(ctx context.Context, subject string) ([]model.RawCourse, error) {
	name := SubjectFileName(subject)
	data, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}
	courses, err := model.DecodeRawCourses(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCatalogMalformed, name, err)
	}
	return courses, nil
}

func (s *catalogSource) FetchTitles(ctx context.Context) (map[string]string, error) {
	if s.titlesFile == "" {
		return map[string]string{}, nil
	}
	data, err := s.load(ctx, s.titlesFile)
	if err != nil {
		return nil, err
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCatalogMalformed, s.titlesFile, err)
	}
	titles := make(map[string]string, len(raw))
	for k, v := range raw {
		titles[TitleKey(k, "")] = v
	}
	return titles, nil
}

func (s *catalogSource) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidatePayloads(ctx)
}

// load 先查缓存，未命中再回源并写回缓存（缓存失败只记录日志）
func (s *catalogSource) load(ctx context.Context, name string) ([]byte, error) {
	if s.cache != nil {
		data, ok, err := s.cache.GetPayload(ctx, name)
		if err != nil {
			s.logger.Warn("读取目录缓存失败", zap.String("name", name), zap.Error(err))
		} else if ok {
			return data, nil
		}
	}

	data, err := s.fetcher.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetPayload(ctx, name, data, s.cacheTTL); err != nil {
			s.logger.Warn("写入目录缓存失败", zap.String("name", name), zap.Error(err))
		}
	}
	return data, nil
}

// SubjectFileName 学科对应的目录文件名
func SubjectFileName(subject string) string {
	return strings.ToUpper(strings.TrimSpace(subject)) + ".json"
}

// TitleKey 规范化课程名查询键："CSCI 3100" / "csci3100" → "CSCI3100"
func TitleKey(subject, code string) string {
	k := strings.ToUpper(subject + code)
	return strings.Join(strings.Fields(k), "")
}

// ── 本地目录 ──

// FileFetcher 从本地目录读取目录文件
type FileFetcher struct {
	Dir string
}

// NewFileFetcher 创建本地目录 Fetcher
func NewFileFetcher(dir string) *FileFetcher {
	return &FileFetcher{Dir: dir}
}

func (f *FileFetcher) Fetch(_ context.Context, name string) ([]byte, error) {
	// 防止路径穿越
	clean := filepath.Base(filepath.Clean(name))
	data, err := os.ReadFile(filepath.Join(f.Dir, clean))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, clean)
		}
		return nil, fmt.Errorf("读取目录文件失败: %w", err)
	}
	return data, nil
}

// ── HTTP ──

// HTTPFetcher 从 HTTP 服务获取目录文件（baseURL + "/" + name）
type HTTPFetcher struct {
	BaseURL string
	client  *http.Client
}

// NewHTTPFetcher 创建 HTTP Fetcher
func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	url := f.BaseURL + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("构建目录请求失败: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("获取目录失败: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, name)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("获取目录失败: HTTP %d", resp.StatusCode)
	}

	// 限制响应体大小，防止异常数据源返回超大内容
	data, err := io.ReadAll(io.LimitReader(resp.Body, catalogMaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("读取目录响应失败: %w", err)
	}
	return data, nil
}
