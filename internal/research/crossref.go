package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	userAgent      = "Wurksy/1.0 (academic-integrity tutor)"
	requestTimeout = 10 * time.Second
	defaultRows    = 10
)

// Paper is one merged search result, whichever upstream produced it.
type Paper struct {
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Year    int      `json:"year,omitempty"`
	DOI     string   `json:"doi,omitempty"`
	URL     string   `json:"url,omitempty"`
	Source  string   `json:"source"`
}

// Searcher is one upstream paper index.
type Searcher interface {
	Search(ctx context.Context, query string, rows int) ([]Paper, error)
	Name() string
}

// CrossrefClient queries api.crossref.org/works.
type CrossrefClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewCrossrefClient() *CrossrefClient {
	return &CrossrefClient{
		BaseURL: "https://api.crossref.org",
		HTTP:    &http.Client{Timeout: requestTimeout},
	}
}

func (c *CrossrefClient) Name() string { return "crossref" }

type crossrefResp struct {
	Message struct {
		Items []struct {
			Title  []string `json:"title"`
			DOI    string   `json:"DOI"`
			URL    string   `json:"URL"`
			Author []struct {
				Given  string `json:"given"`
				Family string `json:"family"`
			} `json:"author"`
			Issued struct {
				DateParts [][]int `json:"date-parts"`
			} `json:"issued"`
		} `json:"items"`
	} `json:"message"`
}

func (c *CrossrefClient) Search(ctx context.Context, query string, rows int) ([]Paper, error) {
	if rows <= 0 {
		rows = defaultRows
	}
	u := fmt.Sprintf("%s/works?query=%s&rows=%d",
		strings.TrimRight(c.BaseURL, "/"), url.QueryEscape(query), rows)

	var decoded crossrefResp
	if err := getJSON(ctx, c.HTTP, u, &decoded); err != nil {
		return nil, fmt.Errorf("crossref: %w", err)
	}

	out := make([]Paper, 0, len(decoded.Message.Items))
	for _, it := range decoded.Message.Items {
		p := Paper{DOI: it.DOI, URL: it.URL, Source: "crossref"}
		if len(it.Title) > 0 {
			p.Title = it.Title[0]
		}
		for _, a := range it.Author {
			name := strings.TrimSpace(a.Given + " " + a.Family)
			if name != "" {
				p.Authors = append(p.Authors, name)
			}
		}
		if len(it.Issued.DateParts) > 0 && len(it.Issued.DateParts[0]) > 0 {
			p.Year = it.Issued.DateParts[0][0]
		}
		if p.Title == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func getJSON(ctx context.Context, client *http.Client, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
