package redditapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/redpull/internal/config"
	"github.com/onnwee/redpull/internal/httpx"
	"github.com/onnwee/redpull/internal/logger"
	"github.com/onnwee/redpull/internal/metrics"
	"github.com/onnwee/redpull/internal/target"
	"github.com/onnwee/redpull/internal/tracing"
)

const maxListingBytes = 16 << 20

// Fetcher fetches one page of a target's listing.
type Fetcher interface {
	FetchPage(ctx context.Context, t target.Target, cursor string) (*Page, error)
}

// Client reads listing pages. It never retries on its own and keeps no cache.
type Client struct {
	http      *httpx.Client
	base      string
	userAgent string
	limit     int
	tokens    TokenSource
}

// NewClient builds a Client. When cfg enables anonymous OAuth, requests go to
// the OAuth host with a bearer token.
func NewClient(cfg *config.Config, hc *httpx.Client) *Client {
	c := &Client{
		http:      hc,
		base:      cfg.ListingBase(),
		userAgent: cfg.UserAgent,
		limit:     cfg.ListingLimit,
	}
	if cfg.AnonymousOAuth() {
		c.tokens = NewAnonymousTokens(hc, cfg.RedditTokenURL, cfg.RedditClientID, cfg.RedditDeviceID, cfg.UserAgent)
	}
	return c
}

// PageURL returns the request URL for a page of t starting after cursor.
func (c *Client) PageURL(t target.Target, cursor string) string {
	var b strings.Builder
	b.WriteString(c.base)
	b.WriteString(t.Path())
	b.WriteString("?raw_json=1")
	if c.limit > 0 {
		b.WriteString("&limit=")
		b.WriteString(strconv.Itoa(c.limit))
	}
	if cursor != "" {
		b.WriteString("&after=")
		b.WriteString(url.QueryEscape(cursor))
	}
	return b.String()
}

// FetchPage requests one page. Errors are always *FetchError.
func (c *Client) FetchPage(ctx context.Context, t target.Target, cursor string) (page *Page, err error) {
	ctx, span := tracing.StartSpan(ctx, "redditapi.FetchPage")
	span.SetAttributes(
		attribute.String("target.kind", string(t.Kind)),
		attribute.Bool("cursor.present", cursor != ""),
	)
	start := time.Now()
	defer func() {
		outcome := "ok"
		if fe, ok := AsFetchError(err); ok {
			outcome = string(fe.Kind)
		}
		metrics.ListingFetchesTotal.WithLabelValues(string(t.Kind), outcome).Inc()
		metrics.ListingFetchDuration.WithLabelValues(string(t.Kind)).Observe(time.Since(start).Seconds())
		tracing.RecordError(span, err)
		span.End()
	}()

	pageURL := c.PageURL(t, cursor)
	log := logger.FromContext(ctx).With("component", "redditapi", "target", t.String())

	var token string
	if c.tokens != nil {
		tok, terr := c.tokens.Token(ctx)
		if terr != nil {
			return nil, &FetchError{Kind: NetworkFailure, Message: "could not obtain access token", Err: terr}
		}
		token = tok
	}

	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return req, nil
	})
	if err != nil {
		return nil, &FetchError{Kind: NetworkFailure, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fe := classifyResponse(resp)
		if fe.StatusCode == http.StatusUnauthorized && c.tokens != nil {
			c.tokens.Invalidate()
		}
		log.Warn("listing request rejected", "status", fe.StatusCode, "reason", fe.Reason)
		return nil, fe
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListingBytes))
	if err != nil {
		return nil, &FetchError{Kind: NetworkFailure, Message: "reading body", Err: err}
	}
	page, err = decodeListing(body)
	if err != nil {
		return nil, err
	}
	metrics.ListingPostsReceived.Add(float64(len(page.Posts)))
	span.SetAttributes(attribute.Int("listing.posts", len(page.Posts)))
	log.Debug("listing page fetched", "posts", len(page.Posts), "has_next", page.NextCursor != "")
	return page, nil
}

// decodeListing parses a listing envelope. Children that are not objects are
// skipped; a missing data block is malformed.
func decodeListing(body []byte) (*Page, error) {
	var l Listing
	if err := json.Unmarshal(body, &l); err != nil {
		var syn *json.SyntaxError
		msg := "response is not a listing"
		if errors.As(err, &syn) {
			msg = fmt.Sprintf("invalid JSON at offset %d", syn.Offset)
		}
		return nil, &FetchError{Kind: MalformedResponse, Message: msg, Err: err}
	}
	if l.Data == nil {
		return nil, &FetchError{Kind: MalformedResponse, Message: "listing has no data"}
	}
	page := &Page{Posts: make([]Post, 0, len(l.Data.Children))}
	for _, raw := range l.Data.Children {
		var th Thing
		if json.Unmarshal(raw, &th) != nil {
			continue
		}
		if th.Kind != "" && th.Kind != "t3" {
			continue
		}
		page.Posts = append(page.Posts, th.Data)
	}
	if l.Data.After != nil {
		page.NextCursor = *l.Data.After
	}
	return page, nil
}
