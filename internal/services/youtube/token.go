package youtube

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"stagehand/internal/config"
	"stagehand/internal/services"
)

// oauthHTTPClient loads the OAuth application credentials plus the stored user
// token and returns an auto-refreshing HTTP client. Token acquisition itself
// (the interactive consent flow) happens out of band; the daemon only consumes
// a token that already exists on disk.
func oauthHTTPClient(ctx context.Context, cfg *config.Config) (*http.Client, error) {
	credBytes, err := os.ReadFile(cfg.YouTube.CredentialsPath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "youtube", "credentials", "read "+cfg.YouTube.CredentialsPath, err)
	}
	oauthCfg, err := google.ConfigFromJSON(credBytes, yt.YoutubeScope)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "youtube", "credentials", "parse client credentials", err)
	}

	token, err := loadToken(cfg.YouTube.TokenPath)
	if err != nil {
		return nil, err
	}
	return oauthCfg.Client(ctx, token), nil
}

func loadToken(path string) (*oauth2.Token, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "youtube", "token", "open "+path, err)
	}
	defer file.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(file).Decode(token); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "youtube", "token", "decode "+path, err)
	}
	return token, nil
}

func newAPIService(ctx context.Context, httpClient *http.Client) (*yt.Service, error) {
	return yt.NewService(ctx, option.WithHTTPClient(httpClient))
}
