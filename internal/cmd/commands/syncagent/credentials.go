package syncagent

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/hashicorp-forge/recipebox/internal/config"
	"github.com/hashicorp-forge/recipebox/pkg/changefeed/drive"
)

// fileTokenSource reads an OAuth2 token from disk on every call.
type fileTokenSource struct {
	path string
}

func (s fileTokenSource) Token() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token file %s: %w", s.path, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token file %s has no access_token", s.path)
	}
	return &tok, nil
}

// cachedTokenSource serves the token last read from src while it is valid.
// Reset drops it so the next call reads src again; a token file rewritten by
// another tool is picked up after reauthentication.
type cachedTokenSource struct {
	src oauth2.TokenSource

	mu  sync.Mutex
	tok *oauth2.Token
}

func (s *cachedTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tok.Valid() {
		return s.tok, nil
	}
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.tok = tok
	return tok, nil
}

func (s *cachedTokenSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = nil
}

// clientOptions returns the Drive client options for an account. The token
// source is returned for token file accounts so reauthentication can reset
// it; it is nil for service accounts.
func clientOptions(account config.Account) ([]option.ClientOption, *cachedTokenSource, error) {
	switch {
	case account.TokenFile != "":
		src := &cachedTokenSource{src: fileTokenSource{path: account.TokenFile}}
		// Fail early on an unreadable token rather than on the first pass.
		if _, err := src.Token(); err != nil {
			return nil, nil, err
		}
		return []option.ClientOption{option.WithTokenSource(src)}, src, nil

	case account.CredentialsFile != "":
		return []option.ClientOption{
			option.WithCredentialsFile(account.CredentialsFile),
			option.WithScopes(drive.Scope),
		}, nil, nil

	default:
		return nil, nil, fmt.Errorf("account %q needs token_file or credentials_file", account.ID)
	}
}
