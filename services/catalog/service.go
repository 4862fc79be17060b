// Package catalog reads worker (service-provider) records from the
// remote marketplace backend. The backend owns the data; this client
// only looks records up, retries transient failures, and degrades to an
// embedded sample catalog so browsing keeps working offline.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/mozillazg/go-unidecode"

	"eventmart/config"
	"eventmart/internal/metrics"
	"eventmart/models"
	langutil "eventmart/utils/language"
)

//go:embed sample_workers.json
var sampleData []byte

// ErrWorkerNotFound signals a lookup for an id the catalog does not know.
var ErrWorkerNotFound = errors.New("worker not found")

const (
	fetchAttempts = 3
	fetchDelay    = 200 * time.Millisecond
)

// Service is the catalog client. An empty base URL serves the sample
// catalog directly, which keeps development setups self-contained.
type Service struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	languages  *langutil.Matcher
	samples    []models.Worker
}

// NewService builds a catalog client from settings.
func NewService(cfg config.CatalogSettings) (*Service, error) {
	var samples []models.Worker
	if err := json.Unmarshal(sampleData, &samples); err != nil {
		return nil, fmt.Errorf("parse sample catalog: %w", err)
	}

	return &Service{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		languages: langutil.NewMatcher(cfg.Languages),
		samples:   samples,
	}, nil
}

// Languages exposes the matcher so profile updates validate against the
// same supported set the catalog serves.
func (s *Service) Languages() *langutil.Matcher {
	return s.languages
}

// Worker fetches a single worker record by id.
func (s *Service) Worker(ctx context.Context, id string) (models.Worker, error) {
	if s.baseURL == "" {
		return s.sampleWorker(id)
	}

	var worker models.Worker
	err := s.getJSON(ctx, "/workers/"+url.PathEscape(id), nil, &worker)
	if err != nil {
		if errors.Is(err, ErrWorkerNotFound) {
			return models.Worker{}, ErrWorkerNotFound
		}
		log.Printf("[catalog] backend lookup failed id=%s, serving sample data: %v", id, err)
		metrics.CatalogFallbacks.Inc()
		return s.sampleWorker(id)
	}
	return worker, nil
}

// Search returns workers matching the query, category and language. The
// query match is accent-insensitive so "Jose" finds "José" regardless of
// the language the listing was written in.
func (s *Service) Search(ctx context.Context, query, category, lang string) ([]models.Worker, error) {
	if normalized, ok := s.languages.Normalize(lang); ok {
		lang = normalized
	} else {
		lang = ""
	}

	if s.baseURL == "" {
		return s.sampleSearch(query, category, lang), nil
	}

	params := url.Values{}
	if query != "" {
		params.Set("query", query)
	}
	if category != "" {
		params.Set("category", category)
	}
	if lang != "" {
		params.Set("lang", lang)
	}

	var workers []models.Worker
	if err := s.getJSON(ctx, "/workers", params, &workers); err != nil {
		log.Printf("[catalog] backend search failed, serving sample data: %v", err)
		metrics.CatalogFallbacks.Inc()
		return s.sampleSearch(query, category, lang), nil
	}
	return workers, nil
}

// Categories lists the service categories offered by the marketplace.
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	if s.baseURL == "" {
		return s.sampleCategories(), nil
	}

	var categories []models.Category
	if err := s.getJSON(ctx, "/categories", nil, &categories); err != nil {
		log.Printf("[catalog] backend categories failed, serving sample data: %v", err)
		metrics.CatalogFallbacks.Inc()
		return s.sampleCategories(), nil
	}
	return categories, nil
}

// getJSON fetches path from the backend with retries and decodes the
// response body into out. A 404 is unrecoverable and maps to
// ErrWorkerNotFound.
func (s *Service) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := s.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if s.apiKey != "" {
				req.Header.Set("X-Api-Key", s.apiKey)
			}

			resp, err := s.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("catalog request: %w", err)
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(ErrWorkerNotFound)
			case resp.StatusCode >= 400:
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
				return fmt.Errorf("catalog returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
			}

			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decode catalog response: %w", err)
			}
			return nil
		},
		retry.Attempts(fetchAttempts),
		retry.Delay(fetchDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}

func (s *Service) sampleWorker(id string) (models.Worker, error) {
	for _, worker := range s.samples {
		if worker.ID == id {
			return worker, nil
		}
	}
	return models.Worker{}, ErrWorkerNotFound
}

func (s *Service) sampleSearch(query, category, lang string) []models.Worker {
	needle := fold(query)
	results := []models.Worker{}
	for _, worker := range s.samples {
		if category != "" && !strings.EqualFold(worker.Category, category) {
			continue
		}
		if lang != "" && !speaks(worker, lang) {
			continue
		}
		if needle != "" &&
			!strings.Contains(fold(worker.Name), needle) &&
			!strings.Contains(fold(worker.Service), needle) {
			continue
		}
		results = append(results, worker)
	}
	return results
}

func (s *Service) sampleCategories() []models.Category {
	seen := map[string]bool{}
	categories := []models.Category{}
	for _, worker := range s.samples {
		if worker.Category == "" || seen[worker.Category] {
			continue
		}
		seen[worker.Category] = true
		categories = append(categories, models.Category{
			ID:   worker.Category,
			Name: titleCase(worker.Category),
		})
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	return categories
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func speaks(worker models.Worker, lang string) bool {
	for _, l := range worker.Languages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

// fold lowercases and transliterates to ASCII for accent-insensitive
// matching.
func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(unidecode.Unidecode(s)))
}
