// Package ingest reads algorithm run-order definitions from the
// defining GitHub repository.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/sylva-labs/algorun/internal/ledger"
	"github.com/sylva-labs/algorun/internal/order"
)

const defaultBaseURL = "https://api.github.com"

// Reader fetches run-order YAML definitions from a repository tree.
type Reader struct {
	repository string
	token      string
	baseURL    string
	httpc      *http.Client
	logger     *slog.Logger
}

// NewReader creates a Reader for the given "owner/repo" repository.
func NewReader(repository, token string, logger *slog.Logger) *Reader {
	return &Reader{
		repository: repository,
		token:      token,
		baseURL:    defaultBaseURL,
		httpc:      &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type branchResponse struct {
	Commit struct {
		Commit struct {
			Tree struct {
				URL string `json:"url"`
			} `json:"tree"`
		} `json:"commit"`
	} `json:"commit"`
}

type treeResponse struct {
	Tree []treeEntry `json:"tree"`
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// FetchRunOrders walks the repository tree on the main branch and
// parses every .yaml blob into a run order. The blob's path in the
// repository becomes the order's SourceID; definitions that fail
// validation come back with status INVALID rather than being dropped.
func (r *Reader) FetchRunOrders(ctx context.Context) ([]*ledger.RunOrder, error) {
	var branch branchResponse
	url := fmt.Sprintf("%s/repos/%s/branches/main", r.baseURL, r.repository)
	if err := r.getJSON(ctx, url, &branch); err != nil {
		return nil, fmt.Errorf("failed to read branch of %s: %w", r.repository, err)
	}

	var orders []*ledger.RunOrder
	if err := r.walkTree(ctx, branch.Commit.Commit.Tree.URL, "", &orders); err != nil {
		return nil, err
	}
	r.logger.Info("fetched run orders", "repository", r.repository, "count", len(orders))
	return orders, nil
}

func (r *Reader) walkTree(ctx context.Context, treeURL, prefix string, orders *[]*ledger.RunOrder) error {
	var tree treeResponse
	if err := r.getJSON(ctx, treeURL, &tree); err != nil {
		return fmt.Errorf("failed to read tree %s: %w", treeURL, err)
	}

	for _, entry := range tree.Tree {
		entryPath := path.Join(prefix, entry.Path)
		switch {
		case entry.Type == "blob" && strings.HasSuffix(entry.Path, ".yaml"):
			source, err := r.getRaw(ctx, entry.URL)
			if err != nil {
				r.logger.Warn("skipping unreadable definition", "path", entryPath, "error", err)
				continue
			}
			*orders = append(*orders, order.Parse(entryPath, source))
		case entry.Type == "tree":
			if err := r.walkTree(ctx, entry.URL, entryPath, orders); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Reader) getJSON(ctx context.Context, url string, out any) error {
	body, err := r.get(ctx, url, "application/vnd.github+json")
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (r *Reader) getRaw(ctx context.Context, url string) (string, error) {
	body, err := r.get(ctx, url, "application/vnd.github.raw+json")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (r *Reader) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if r.token != "" {
		req.Header.Set("Authorization", "token "+r.token)
	}

	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
