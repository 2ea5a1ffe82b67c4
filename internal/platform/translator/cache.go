package translator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"hanru_board/internal/domain/model"
)

// Result is a translation plus whether it was served from cache.
type Result struct {
	TranslatedText string         `json:"translated_text"`
	SourceLang     model.Language `json:"source_lang"`
	TargetLang     model.Language `json:"target_lang"`
	Cached         bool           `json:"cached"`
}

// Cached memoizes another Translator in Redis. A nil client disables caching.
type Cached struct {
	next Translator
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCached(next Translator, rdb *redis.Client, ttl time.Duration) *Cached {
	return &Cached{next: next, rdb: rdb, ttl: ttl}
}

// CacheKey is translation:sha256("text:source:target").
func CacheKey(text string, source, target model.Language) string {
	src := string(source)
	if src == "" {
		src = "auto"
	}
	sum := sha256.Sum256([]byte(text + ":" + src + ":" + string(target)))
	return "translation:" + hex.EncodeToString(sum[:])
}

func (c *Cached) Translate(ctx context.Context, text string, source, target model.Language) (string, error) {
	res, err := c.TranslateText(ctx, text, source, target)
	if err != nil {
		return "", err
	}
	return res.TranslatedText, nil
}

// TranslateText is Translate with cache metadata. Cache errors never fail the call.
func (c *Cached) TranslateText(ctx context.Context, text string, source, target model.Language) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{SourceLang: source, TargetLang: target}, nil
	}

	key := CacheKey(text, source, target)
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var res Result
			if jerr := json.Unmarshal(raw, &res); jerr == nil {
				res.Cached = true
				return res, nil
			}
			log.Warn().Str("key", key).Msg("Discarding undecodable translation cache entry")
		case !errors.Is(err, redis.Nil):
			log.Warn().Err(err).Msg("Translation cache read failed")
		}
	}

	translated, err := c.next.Translate(ctx, text, source, target)
	if err != nil {
		return Result{}, err
	}
	res := Result{TranslatedText: translated, SourceLang: source, TargetLang: target}

	if c.rdb != nil {
		if raw, err := json.Marshal(res); err == nil {
			if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				log.Warn().Err(err).Msg("Translation cache write failed")
			}
		}
	}
	return res, nil
}
