package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"recital/logger"
)

// ClientConfig holds the endpoints the client talks to
type ClientConfig struct {
	APIBase     string
	AudioBase   string
	Bitrate     int
	TimingBase  string
	TextEdition string
	Translation string
	Timeout     time.Duration
}

// TimingCatalog resolves a narrator to its identifier on the timing service.
type TimingCatalog interface {
	TimingID(narrator string) (int, bool)
}

// Client fetches chapters and verse timings over HTTP
type Client struct {
	config  ClientConfig
	http    *http.Client
	timings TimingCatalog
	logger  *slog.Logger
}

var _ Source = (*Client)(nil)

// NewClient creates a new Client
func NewClient(cfg ClientConfig, timings TimingCatalog) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Bitrate <= 0 {
		cfg.Bitrate = 128
	}
	if cfg.TextEdition == "" {
		cfg.TextEdition = "quran-uthmani"
	}
	return &Client{
		config:  cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		timings: timings,
		logger:  logger.WithComponent("content-client"),
	}
}

type apiEnvelope struct {
	Code   int             `json:"code"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type apiChapter struct {
	Number                 int    `json:"number"`
	Name                   string `json:"name"`
	EnglishName            string `json:"englishName"`
	EnglishNameTranslation string `json:"englishNameTranslation"`
	NumberOfAyahs          int    `json:"numberOfAyahs"`
}

type apiEdition struct {
	Number      int        `json:"number"`
	Name        string     `json:"name"`
	EnglishName string     `json:"englishName"`
	Ayahs       []apiVerse `json:"ayahs"`
}

type apiVerse struct {
	Number        int    `json:"number"`
	Text          string `json:"text"`
	NumberInSurah int    `json:"numberInSurah"`
	Page          int    `json:"page"`
}

type timingResponse struct {
	AudioFiles []struct {
		ChapterID    int    `json:"chapter_id"`
		AudioURL     string `json:"audio_url"`
		VerseTimings []struct {
			VerseKey      string `json:"verse_key"`
			TimestampFrom int    `json:"timestamp_from"`
			TimestampTo   int    `json:"timestamp_to"`
		} `json:"verse_timings"`
	} `json:"audio_files"`
}

// ChapterList fetches the table of contents
func (c *Client) ChapterList(ctx context.Context) ([]Chapter, error) {
	var raw []apiChapter
	if err := c.getAPI(ctx, c.config.APIBase+"/surah", &raw); err != nil {
		return nil, fmt.Errorf("fetch chapter list: %w", err)
	}

	chapters := make([]Chapter, 0, len(raw))
	for _, ch := range raw {
		chapters = append(chapters, Chapter{
			Number:      ch.Number,
			DisplayName: ch.EnglishName,
			ArabicName:  ch.Name,
			Meaning:     ch.EnglishNameTranslation,
			VerseCount:  ch.NumberOfAyahs,
		})
	}
	return chapters, nil
}

// ChapterDetails fetches the verses of one chapter. Chapter-level audio and
// verse timings are attached when the narrator publishes them; if that
// lookup fails the chapter falls back to per-verse audio.
func (c *Client) ChapterDetails(ctx context.Context, number int, narrator string) (*Details, error) {
	editions := c.config.TextEdition
	if c.config.Translation != "" {
		editions += "," + c.config.Translation
	}

	var raw []apiEdition
	url := fmt.Sprintf("%s/surah/%d/editions/%s", c.config.APIBase, number, editions)
	if err := c.getAPI(ctx, url, &raw); err != nil {
		return nil, fmt.Errorf("fetch chapter %d: %w", number, err)
	}
	if len(raw) == 0 || len(raw[0].Ayahs) == 0 {
		return nil, fmt.Errorf("fetch chapter %d: %w", number, ErrNotFound)
	}

	text := raw[0]
	details := &Details{
		Number:      text.Number,
		DisplayName: text.EnglishName,
		Verses:      make([]Verse, 0, len(text.Ayahs)),
	}
	for i, a := range text.Ayahs {
		v := Verse{
			GlobalID:       a.Number,
			IndexInChapter: a.NumberInSurah,
			ChapterNumber:  text.Number,
			PageNumber:     a.Page,
			AudioURL:       c.verseAudioURL(narrator, a.Number),
			Text:           a.Text,
		}
		if len(raw) > 1 && i < len(raw[1].Ayahs) {
			v.Translation = raw[1].Ayahs[i].Text
		}
		details.Verses = append(details.Verses, v)
	}

	if id, ok := c.timingID(narrator); ok {
		if err := c.attachTimings(ctx, details, id); err != nil {
			c.logger.Warn("Verse timings unavailable, using per-verse audio",
				slog.Int("chapter", number),
				slog.String("narrator", narrator),
				slog.Any("error", err))
		}
	}

	if err := details.Validate(); err != nil {
		return nil, err
	}
	return details, nil
}

func (c *Client) timingID(narrator string) (int, bool) {
	if c.timings == nil || c.config.TimingBase == "" {
		return 0, false
	}
	return c.timings.TimingID(narrator)
}

func (c *Client) verseAudioURL(narrator string, globalID int) string {
	return fmt.Sprintf("%s/%d/%s/%d.mp3", c.config.AudioBase, c.config.Bitrate, narrator, globalID)
}

// attachTimings sets the chapter resource and per-verse offsets. It leaves
// details untouched unless every verse received an offset.
func (c *Client) attachTimings(ctx context.Context, details *Details, timingID int) error {
	url := fmt.Sprintf("%s/audio/reciters/%d/audio_files?chapter=%d&segments=true",
		c.config.TimingBase, timingID, details.Number)

	var resp timingResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return err
	}
	if len(resp.AudioFiles) == 0 || resp.AudioFiles[0].AudioURL == "" {
		return fmt.Errorf("no chapter audio for chapter %d", details.Number)
	}

	file := resp.AudioFiles[0]
	type span struct{ from, to int }
	spans := make(map[int]span, len(file.VerseTimings))
	for _, t := range file.VerseTimings {
		_, verse, err := parseVerseKey(t.VerseKey)
		if err != nil {
			return err
		}
		spans[verse] = span{t.TimestampFrom, t.TimestampTo}
	}

	timed := make([]Verse, len(details.Verses))
	for i, v := range details.Verses {
		s, ok := spans[v.IndexInChapter]
		if !ok {
			return fmt.Errorf("no timing for verse %d:%d", details.Number, v.IndexInChapter)
		}
		v.StartMs, v.EndMs = s.from, s.to
		timed[i] = v
	}

	candidate := *details
	candidate.Verses = timed
	candidate.ChapterAudioURL = file.AudioURL
	if err := candidate.Validate(); err != nil {
		return err
	}
	*details = candidate
	return nil
}

// parseVerseKey splits a "chapter:verse" key.
func parseVerseKey(key string) (int, int, error) {
	ch, v, ok := strings.Cut(key, ":")
	if !ok {
		return 0, 0, fmt.Errorf("malformed verse key %q", key)
	}
	chapter, err := strconv.Atoi(ch)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed verse key %q: %w", key, err)
	}
	verse, err := strconv.Atoi(v)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed verse key %q: %w", key, err)
	}
	return chapter, verse, nil
}

// getAPI fetches an alquran.cloud style envelope and decodes its data field.
func (c *Client) getAPI(ctx context.Context, url string, v any) error {
	var env apiEnvelope
	if err := c.getJSON(ctx, url, &env); err != nil {
		return err
	}
	if env.Code == http.StatusNotFound {
		return ErrNotFound
	}
	if env.Code != http.StatusOK {
		return fmt.Errorf("api error %d: %s", env.Code, env.Status)
	}
	return json.Unmarshal(env.Data, v)
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("http error: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
