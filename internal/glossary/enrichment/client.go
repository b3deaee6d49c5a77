package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"transmux/internal/glossary"
)

// Result represents a single metadata search match.
type Result struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Name          string  `json:"name"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"release_date"`
	Popularity    float64 `json:"popularity"`
	VoteCount     int64   `json:"vote_count"`
}

// Response models the paginated search response.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// Translation is one localized title entry.
type Translation struct {
	ISO639 string `json:"iso_639_1"`
	Data   struct {
		Title   string `json:"title"`
		Name    string `json:"name"`
		Tagline string `json:"tagline"`
	} `json:"data"`
}

// TranslationsResponse models the per-title translations payload.
type TranslationsResponse struct {
	ID           int64         `json:"id"`
	Translations []Translation `json:"translations"`
}

// CastMember is one credited character.
type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character"`
	Order     int    `json:"order"`
}

// CreditsResponse models the credits payload.
type CreditsResponse struct {
	ID   int64        `json:"id"`
	Cast []CastMember `json:"cast"`
}

// Fetcher defines the enrichment operations the glossary uses.
type Fetcher interface {
	FetchTerms(ctx context.Context, subject, targetLanguage string) ([]glossary.Term, error)
}

// Client queries the metadata enrichment service for title and character
// terminology.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
}

var _ Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates an enrichment client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("enrichment api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("enrichment base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search finds the best metadata match for the supplied title.
func (c *Client) Search(ctx context.Context, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	if c.language != "" {
		params.Set("language", c.language)
	}
	var payload Response
	if err := c.get(ctx, "/search/movie", params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Translations fetches the localized title variants for a match.
func (c *Client) Translations(ctx context.Context, id int64) (*TranslationsResponse, error) {
	var payload TranslationsResponse
	path := "/movie/" + strconv.FormatInt(id, 10) + "/translations"
	if err := c.get(ctx, path, url.Values{}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Credits fetches the character list for a match.
func (c *Client) Credits(ctx context.Context, id int64) (*CreditsResponse, error) {
	var payload CreditsResponse
	path := "/movie/" + strconv.FormatInt(id, 10) + "/credits"
	if err := c.get(ctx, path, url.Values{}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// creditsTermLimit caps how many cast entries contribute terms; deep cast
// lists add noise, not terminology.
const creditsTermLimit = 20

// FetchTerms derives glossary terms for one subject: the localized title in
// the target language plus the principal character names, which translation
// engines must carry through unchanged.
func (c *Client) FetchTerms(ctx context.Context, subject, targetLanguage string) ([]glossary.Term, error) {
	search, err := c.Search(ctx, subject)
	if err != nil {
		return nil, err
	}
	if len(search.Results) == 0 {
		return []glossary.Term{}, nil
	}
	match := search.Results[0]

	var terms []glossary.Term

	translations, err := c.Translations(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	sourceTitle := match.Title
	if sourceTitle == "" {
		sourceTitle = match.Name
	}
	for _, tr := range translations.Translations {
		if !strings.EqualFold(tr.ISO639, targetLanguage) {
			continue
		}
		localized := tr.Data.Title
		if localized == "" {
			localized = tr.Data.Name
		}
		if localized != "" && sourceTitle != "" && !strings.EqualFold(localized, sourceTitle) {
			terms = append(terms, glossary.Term{
				Source:      strings.ToLower(sourceTitle),
				Translation: localized,
				Tier:        glossary.TierEnrichment,
			})
		}
		break
	}

	credits, err := c.Credits(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	for i, member := range credits.Cast {
		if i >= creditsTermLimit {
			break
		}
		character := strings.TrimSpace(member.Character)
		if character == "" {
			continue
		}
		// Proper nouns map to themselves so substitution pins them verbatim.
		terms = append(terms, glossary.Term{
			Source:      strings.ToLower(character),
			Translation: character,
			Tier:        glossary.TierEnrichment,
		})
	}
	return terms, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse enrichment url: %w", err)
	}
	params.Set("api_key", c.apiKey)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("enrichment %s returned %d (latency=%v)", path, resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode enrichment response: %w", err)
	}
	return nil
}
