package issue_tracker

import (
	"fmt"
	"net/http"
	"strings"

	"basegraph.app/triage/core/config"
	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v68/github"
)

// NewGitHubClient builds an authenticated go-github client. GitHub App
// installation auth is preferred over a static token when both are set.
func NewGitHubClient(cfg config.GitHubConfig) (*github.Client, error) {
	var client *github.Client

	switch {
	case cfg.AppAuth():
		itr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, cfg.AppID, cfg.InstallationID, cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("github app installation transport: %w", err)
		}
		if cfg.APIURL != "" {
			itr.BaseURL = strings.TrimSuffix(cfg.APIURL, "/")
		}
		client = github.NewClient(&http.Client{Transport: itr})
	case cfg.Token != "":
		client = github.NewClient(nil).WithAuthToken(cfg.Token)
	default:
		return nil, ErrNotConfigured
	}

	if cfg.APIURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.APIURL, cfg.APIURL)
		if err != nil {
			return nil, fmt.Errorf("github enterprise url: %w", err)
		}
	}
	return client, nil
}
