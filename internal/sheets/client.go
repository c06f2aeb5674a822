/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sheets fetches campus schedule grids from the Google Sheets v4
// REST API.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/friendsincode/courseboard/internal/ingest"
)

const (
	defaultBaseURL = "https://sheets.googleapis.com"

	// gridRange covers the date row and the ten schedule rows for one week.
	gridRange = "A1:G13"

	// batchGet accepts a bounded number of ranges per call; chunk large
	// spreadsheets so a campus with many rooms still imports in one pass.
	rangesPerBatch = 30
)

// TokenSource supplies a bearer token for the Sheets API. Tokens are
// requested per call so a refreshing OAuth source plugs in directly.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource wrapping a fixed token.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) { return string(t), nil }

// Client reads spreadsheet grids over the Sheets v4 REST API. It implements
// ingest.GridSource.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient creates a Sheets API client. baseURL overrides the Google
// endpoint for tests; pass "" for the real service.
func NewClient(baseURL string, tokens TokenSource) (*Client, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}

	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch token: %w", err)
	}

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

func decodeResponse[T any](resp *http.Response) (T, error) {
	var result T
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return result, fmt.Errorf("sheets API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}

type sheetProperties struct {
	Title string `json:"title"`
	Index int    `json:"index"`
}

type spreadsheetMetadata struct {
	Sheets []struct {
		Properties sheetProperties `json:"properties"`
	} `json:"sheets"`
}

type valueRange struct {
	Range  string     `json:"range"`
	Values [][]string `json:"values"`
}

type batchGetResponse struct {
	ValueRanges []valueRange `json:"valueRanges"`
}

// Sheets fetches every tab's title and grid for the given spreadsheet,
// ordered by tab position. One metadata call lists the tabs, then the grids
// are fetched with values:batchGet in bounded chunks.
func (c *Client) Sheets(ctx context.Context, spreadsheetID string) ([]ingest.Sheet, error) {
	metaQuery := url.Values{}
	metaQuery.Set("fields", "sheets(properties(title,index))")
	resp, err := c.doRequest(ctx, "/v4/spreadsheets/"+url.PathEscape(spreadsheetID), metaQuery)
	if err != nil {
		return nil, fmt.Errorf("fetch spreadsheet metadata: %w", err)
	}
	meta, err := decodeResponse[spreadsheetMetadata](resp)
	if err != nil {
		return nil, fmt.Errorf("fetch spreadsheet metadata: %w", err)
	}
	if len(meta.Sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet %s has no sheets", spreadsheetID)
	}

	props := make([]sheetProperties, 0, len(meta.Sheets))
	for _, s := range meta.Sheets {
		props = append(props, s.Properties)
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Index < props[j].Index })

	grids := make(map[string][][]string, len(props))
	for start := 0; start < len(props); start += rangesPerBatch {
		end := start + rangesPerBatch
		if end > len(props) {
			end = len(props)
		}

		query := url.Values{}
		for _, p := range props[start:end] {
			query.Add("ranges", fmt.Sprintf("'%s'!%s", p.Title, gridRange))
		}
		query.Set("majorDimension", "ROWS")

		resp, err := c.doRequest(ctx, "/v4/spreadsheets/"+url.PathEscape(spreadsheetID)+"/values:batchGet", query)
		if err != nil {
			return nil, fmt.Errorf("fetch sheet values: %w", err)
		}
		batch, err := decodeResponse[batchGetResponse](resp)
		if err != nil {
			return nil, fmt.Errorf("fetch sheet values: %w", err)
		}
		if len(batch.ValueRanges) != end-start {
			return nil, fmt.Errorf("sheets API returned %d ranges, expected %d", len(batch.ValueRanges), end-start)
		}
		for i, vr := range batch.ValueRanges {
			grids[props[start+i].Title] = vr.Values
		}
	}

	out := make([]ingest.Sheet, 0, len(props))
	for _, p := range props {
		out = append(out, ingest.Sheet{
			Title: p.Title,
			Index: p.Index,
			Rows:  grids[p.Title],
		})
	}
	return out, nil
}
