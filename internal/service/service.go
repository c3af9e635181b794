// Package service implements the string analysis operations on top of the
// in-memory repository and the natural-language translator. It classifies
// failures with the sentinel errors of pkg/errors and leaves logging and
// response formatting to the HTTP layer.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/analyzer"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/filter"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/repository"
	apperrors "github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/tracing"
)

type Repository interface {
	Save(rec repository.Record) error
	FindByValue(value string) (repository.Record, bool)
	Exists(value string) bool
	Filter(f filter.Filter) []repository.Record
	DeleteByValue(value string) bool
	Count() int
}

// Translator turns a natural-language query into a filter set. An empty
// filter set means nothing in the query was recognized.
type Translator interface {
	Translate(ctx context.Context, query string) (filter.Filter, error)
}

type ListResult struct {
	Data           []repository.Record `json:"data"`
	Count          int                 `json:"count"`
	FiltersApplied filter.Filter       `json:"filters_applied"`
}

type InterpretedQuery struct {
	Original      string        `json:"original"`
	ParsedFilters filter.Filter `json:"parsed_filters"`
}

type NaturalLanguageResult struct {
	Data             []repository.Record `json:"data"`
	Count            int                 `json:"count"`
	InterpretedQuery InterpretedQuery    `json:"interpreted_query"`
}

type Stats struct {
	StoredStrings int `json:"stored_strings"`
}

type Option func(*Service)

// WithClock overrides the clock used to stamp created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

type Service struct {
	repo       Repository
	translator Translator
	now        func() time.Time
}

func New(repo Repository, translator Translator, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		translator: translator,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create analyzes value and stores it.
func (s *Service) Create(ctx context.Context, value string) (repository.Record, error) {
	if err := ctx.Err(); err != nil {
		return repository.Record{}, err
	}
	if s.repo.Exists(value) {
		return repository.Record{}, fmt.Errorf("creating string: %w", apperrors.ErrStringExists)
	}
	props := analyzer.Analyze(value)
	rec := repository.Record{
		ID:         props.SHA256Hash,
		Value:      value,
		Properties: props,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Save(rec); err != nil {
		return repository.Record{}, fmt.Errorf("creating string: %w", err)
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, value string) (repository.Record, error) {
	if err := ctx.Err(); err != nil {
		return repository.Record{}, err
	}
	rec, ok := s.repo.FindByValue(value)
	if !ok {
		return repository.Record{}, apperrors.ErrStringNotFound
	}
	return rec, nil
}

// List returns the records matching f. An empty filter lists everything.
func (s *Service) List(ctx context.Context, f filter.Filter) (ListResult, error) {
	if err := ctx.Err(); err != nil {
		return ListResult{}, err
	}
	if err := f.Validate(); err != nil {
		return ListResult{}, err
	}
	data := s.repo.Filter(f)
	return ListResult{
		Data:           data,
		Count:          len(data),
		FiltersApplied: f,
	}, nil
}

// FilterByNaturalLanguage translates raw into a filter set, validates it and
// applies it. A query in which nothing is recognized fails with
// ErrUninterpretableQuery rather than listing everything.
func (s *Service) FilterByNaturalLanguage(ctx context.Context, raw string) (NaturalLanguageResult, error) {
	translateCtx, span := tracing.StartChildSpan(ctx, "translate")
	f, err := s.translator.Translate(translateCtx, raw)
	span.End()
	if err != nil {
		return NaturalLanguageResult{}, fmt.Errorf("translating query: %w", err)
	}
	if f.IsEmpty() {
		return NaturalLanguageResult{}, fmt.Errorf("%w: %q", apperrors.ErrUninterpretableQuery, raw)
	}
	if err := f.Validate(); err != nil {
		return NaturalLanguageResult{}, err
	}

	_, span = tracing.StartChildSpan(ctx, "filter")
	data := s.repo.Filter(f)
	span.SetAttr("matched", len(data))
	span.End()

	return NaturalLanguageResult{
		Data:  data,
		Count: len(data),
		InterpretedQuery: InterpretedQuery{
			Original:      raw,
			ParsedFilters: f,
		},
	}, nil
}

func (s *Service) Delete(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.repo.DeleteByValue(value) {
		return apperrors.ErrStringNotFound
	}
	return nil
}

func (s *Service) Stats() Stats {
	return Stats{StoredStrings: s.repo.Count()}
}
