package github

import (
	"net/http"

	"github.com/rs/zerolog"
)

// GitHubConfig configures the host-API collaborator.
type GitHubConfig struct {
	Token      string
	Repository string // owner/repo
	APIURL     string // empty for api.github.com
	HTTPClient *http.Client
}

// New builds a GitHubProvider for one repository.
func New(config GitHubConfig, logger zerolog.Logger) (*GitHubProvider, error) {
	owner, repo, err := ParseRepository(config.Repository)
	if err != nil {
		return nil, err
	}
	client, err := newClient(config.Token, config.APIURL, config.HTTPClient)
	if err != nil {
		return nil, err
	}
	return &GitHubProvider{
		client: client,
		owner:  owner,
		repo:   repo,
		logger: logger.With().Str("component", "github").Str("repository", config.Repository).Logger(),
	}, nil
}
