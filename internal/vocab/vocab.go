// Package vocab answers learner-facing word lookups and manual status
// changes.
package vocab

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/kahani/internal/apperr"
	"github.com/abhisek/kahani/internal/lexicon"
	"github.com/abhisek/kahani/internal/logger"
	"github.com/abhisek/kahani/internal/srs"
	"github.com/abhisek/kahani/internal/store"
	"github.com/abhisek/kahani/internal/wordcache"
)

// KnownFamiliarity is the familiarity recorded when a learner marks a word
// known by hand.
const KnownFamiliarity = 0.8

// Entry is a dictionary entry with the learner's record, if any.
type Entry struct {
	Word  store.Word
	State *store.LearnerWord
}

// Service looks words up through a read-through cache.
type Service struct {
	repos store.Repos
	cache wordcache.Cache
	log   *logger.Logger
}

// NewService creates a Service. A nil cache disables caching.
func NewService(repos store.Repos, cache wordcache.Cache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repos: repos, cache: cache, log: log}
}

// Lookup finds the dictionary entry for surface and the learner's record
// for it.
func (s *Service) Lookup(ctx context.Context, learnerID, surface string) (*Entry, error) {
	surface = strings.TrimSpace(surface)
	if surface == "" {
		return nil, apperr.Invalid("word is empty")
	}

	w, err := s.word(ctx, surface)
	if err != nil {
		return nil, err
	}
	lw, err := s.repos.LearnerWords().Get(ctx, learnerID, w.ID)
	if err != nil {
		return nil, err
	}
	return &Entry{Word: *w, State: lw}, nil
}

func (s *Service) word(ctx context.Context, surface string) (*store.Word, error) {
	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, surface)
		if err != nil {
			s.log.Warn("word cache unavailable", "error", err)
		}
		if ok {
			var w store.Word
			if err := json.Unmarshal(raw, &w); err == nil {
				return &w, nil
			}
			s.log.Warn("discarding corrupt word cache entry", "surface", surface)
		}
	}

	w, err := s.repos.Words().FindBySurface(ctx, surface)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, apperr.NotFound("word", surface)
	}

	if s.cache != nil {
		if raw, err := json.Marshal(w); err == nil {
			if err := s.cache.Set(ctx, surface, raw); err != nil {
				s.log.Warn("word cache write failed", "error", err)
			}
		}
	}
	return w, nil
}

// MarkKnown records that the learner already knows wordID.
func (s *Service) MarkKnown(ctx context.Context, learnerID, wordID string) (*store.LearnerWord, error) {
	if _, err := s.repos.Words().Get(ctx, wordID); err != nil {
		return nil, err
	}

	lw, err := s.repos.LearnerWords().Get(ctx, learnerID, wordID)
	if err != nil {
		return nil, err
	}
	if lw == nil {
		lw = &store.LearnerWord{
			LearnerID: learnerID,
			WordID:    wordID,
			Ease:      srs.DefaultEase,
			Source:    lexicon.SourceManual,
		}
	}
	lw.Status = lexicon.StatusKnown
	lw.Familiarity = KnownFamiliarity

	if err := s.repos.LearnerWords().Save(ctx, lw); err != nil {
		return nil, fmt.Errorf("mark known: %w", err)
	}
	s.log.Info("word marked known", "learner", learnerID, "word_id", wordID)
	return lw, nil
}
