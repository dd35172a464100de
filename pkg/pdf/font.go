package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/phpdave11/gofpdf"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	fontCacheKey = "font"
	maxFontBytes = 32 << 20
)

// ErrFontUnavailable is returned when the configured font cannot be loaded
var ErrFontUnavailable = errors.New("pdf: font unavailable")

// Font is a TrueType font embedded into generated documents
type Font struct {
	Family string
	Data   []byte
}

// FontConfig holds font source settings
type FontConfig struct {
	URL     string
	Path    string
	Family  string
	Timeout time.Duration
}

// FontLoader fetches the document font at most once per process. Concurrent
// first callers share one fetch. Failures are returned to every waiting caller
// and are not cached, so a later call fetches again.
type FontLoader struct {
	cfg    FontConfig
	client *http.Client
	cache  *gocache.Cache
	group  singleflight.Group
	logger zerolog.Logger
}

// NewFontLoader creates a font loader
func NewFontLoader(cfg FontConfig, logger zerolog.Logger) *FontLoader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Family == "" {
		cfg.Family = "Amiri"
	}
	return &FontLoader{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  gocache.New(gocache.NoExpiration, 0),
		logger: logger,
	}
}

// Configured reports whether a font source is set
func (l *FontLoader) Configured() bool {
	return l.cfg.URL != "" || l.cfg.Path != ""
}

// Load returns the font, or nil when no source is configured
func (l *FontLoader) Load(ctx context.Context) (*Font, error) {
	if !l.Configured() {
		return nil, nil
	}
	if cached, ok := l.cache.Get(fontCacheKey); ok {
		return cached.(*Font), nil
	}

	ch := l.group.DoChan(fontCacheKey, func() (interface{}, error) {
		// a caller giving up must not cancel the fetch for the others
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.Timeout)
		defer cancel()

		data, err := l.fetch(fetchCtx)
		if err != nil {
			l.logger.Error().Err(err).Str("url", l.cfg.URL).Str("path", l.cfg.Path).Msg("font load failed")
			return nil, err
		}
		font := &Font{Family: l.cfg.Family, Data: data}
		l.cache.Set(fontCacheKey, font, gocache.NoExpiration)
		l.logger.Info().Int("bytes", len(data)).Str("family", font.Family).Msg("font loaded")
		return font, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrFontUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFontUnavailable, res.Err)
		}
		return res.Val.(*Font), nil
	}
}

func (l *FontLoader) fetch(ctx context.Context) ([]byte, error) {
	var data []byte
	if l.cfg.Path != "" {
		b, err := os.ReadFile(l.cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("read font file: %w", err)
		}
		data = b
	} else {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("build font request: %w", err)
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch font: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch font: unexpected status %d", resp.StatusCode)
		}
		data, err = io.ReadAll(io.LimitReader(resp.Body, maxFontBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read font body: %w", err)
		}
		if len(data) > maxFontBytes {
			return nil, fmt.Errorf("font exceeds %d bytes", maxFontBytes)
		}
	}

	if !isTrueType(data) {
		return nil, errors.New("font is not a TrueType file")
	}
	if err := checkFont(l.cfg.Family, data); err != nil {
		return nil, err
	}
	return data, nil
}

// checkFont embeds data into a throwaway document, so a font gofpdf cannot
// parse or subset is rejected before it is cached
func checkFont(family string, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("font cannot be embedded: %v", r)
		}
	}()

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddUTF8FontFromBytes(family, "", data)
	doc.AddPage()
	doc.SetFont(family, "", 12)
	doc.CellFormat(0, 8, arabicText("فاتورة 123.45"), "", 1, "R", false, 0, "")
	if err := doc.Output(io.Discard); err != nil {
		return fmt.Errorf("font cannot be embedded: %w", err)
	}
	return nil
}

func isTrueType(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	magic := data[:4]
	return bytes.Equal(magic, []byte{0x00, 0x01, 0x00, 0x00}) || bytes.Equal(magic, []byte("true"))
}
