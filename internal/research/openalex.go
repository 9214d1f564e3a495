package research

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// OpenAlexClient queries api.openalex.org/works.
type OpenAlexClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewOpenAlexClient() *OpenAlexClient {
	return &OpenAlexClient{
		BaseURL: "https://api.openalex.org",
		HTTP:    &http.Client{Timeout: requestTimeout},
	}
}

func (c *OpenAlexClient) Name() string { return "openalex" }

type openAlexResp struct {
	Results []struct {
		Title           string `json:"title"`
		DOI             string `json:"doi"`
		ID              string `json:"id"`
		PublicationYear int    `json:"publication_year"`
		Authorships     []struct {
			Author struct {
				DisplayName string `json:"display_name"`
			} `json:"author"`
		} `json:"authorships"`
	} `json:"results"`
}

func (c *OpenAlexClient) Search(ctx context.Context, query string, rows int) ([]Paper, error) {
	if rows <= 0 {
		rows = defaultRows
	}
	u := fmt.Sprintf("%s/works?search=%s&per-page=%d",
		strings.TrimRight(c.BaseURL, "/"), url.QueryEscape(query), rows)

	var decoded openAlexResp
	if err := getJSON(ctx, c.HTTP, u, &decoded); err != nil {
		return nil, fmt.Errorf("openalex: %w", err)
	}

	out := make([]Paper, 0, len(decoded.Results))
	for _, it := range decoded.Results {
		if it.Title == "" {
			continue
		}
		p := Paper{
			Title:  it.Title,
			Year:   it.PublicationYear,
			Source: "openalex",
			// OpenAlex returns the DOI as a full resolver URL.
			DOI: strings.TrimPrefix(it.DOI, "https://doi.org/"),
			URL: it.ID,
		}
		if it.DOI != "" {
			p.URL = it.DOI
		}
		for _, a := range it.Authorships {
			if a.Author.DisplayName != "" {
				p.Authors = append(p.Authors, a.Author.DisplayName)
			}
		}
		out = append(out, p)
	}
	return out, nil
}
