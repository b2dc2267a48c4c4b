package emodul

import (
	"context"
	"fmt"
	"net/http"
)

// Translations is one language pack: vendor text ids to display strings.
type Translations struct {
	Language string
	data     map[string]string
}

// Text resolves a text id, falling back to a literal "txtId N" label the way
// the vendor apps do.
func (t *Translations) Text(txtID int) string {
	if t != nil && txtID != 0 {
		if label, ok := t.data[fmt.Sprintf("%d", txtID)]; ok {
			return label
		}
	}
	return fmt.Sprintf("txtId %d", txtID)
}

// TileLabel names a tile: its own text id when present, then the kind-level
// fallback id, then a generic type label.
func (t *Translations) TileLabel(tile Tile) string {
	if tile.TxtID != 0 {
		return t.Text(tile.TxtID)
	}
	if fallback := FallbackTxtID(tile.Type); fallback != 0 {
		return t.Text(fallback)
	}
	return FallbackLabel(tile.Type)
}

// Translations fetches the language pack for the given language code,
// silently substituting English for unsupported codes (the API rejects them
// with a 400 instead of falling back itself).
func (c *Client) Translations(ctx context.Context, language string) (*Translations, error) {
	if !supportedLanguages[language] {
		language = DefaultLanguage
	}

	var resp struct {
		Status string            `json:"status"`
		Data   map[string]string `json:"data"`
	}
	err := c.call(ctx, http.MethodGet, func(Session) string {
		return "i18n/" + language
	}, nil, &resp)
	if err != nil {
		return nil, err
	}

	return &Translations{Language: language, data: resp.Data}, nil
}
