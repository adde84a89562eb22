package playback

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// memoryFile keeps a fetched resource seekable for the decoder
type memoryFile struct {
	*bytes.Reader
}

func (memoryFile) Close() error { return nil }

// fetch reads a resource fully into memory. Remote resources are
// downloaded; anything without an http(s) scheme is read from disk.
func fetch(ctx context.Context, client *http.Client, location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		p := location
		if err == nil && u.Scheme == "file" {
			p = u.Path
		}
		return os.ReadFile(p)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http error: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// decode picks the decoder from the resource extension; MP3 is the default.
func decode(location string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	rc := memoryFile{bytes.NewReader(data)}

	ext := path.Ext(location)
	if u, err := url.Parse(location); err == nil {
		ext = path.Ext(u.Path)
	}

	switch strings.ToLower(ext) {
	case ".wav":
		return wav.Decode(rc)
	default:
		return mp3.Decode(rc)
	}
}

// open fetches and decodes one resource
func open(ctx context.Context, client *http.Client, location string) (beep.StreamSeekCloser, beep.Format, error) {
	data, err := fetch(ctx, client, location)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to fetch audio: %w", err)
	}

	stream, format, err := decode(location, data)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to decode audio: %w", err)
	}
	return stream, format, nil
}
