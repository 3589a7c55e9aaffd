package devops

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// devopsScope is the Entra ID resource scope of Azure DevOps.
const devopsScope = "499b84ac-1321-427f-aa17-267ca6975798/.default"

type authorizer interface {
	authorize(ctx context.Context, req *http.Request) error
}

type patAuth struct {
	header string
}

func newPATAuth(pat string) *patAuth {
	token := base64.StdEncoding.EncodeToString([]byte(":" + pat))
	return &patAuth{header: "Basic " + token}
}

func (a *patAuth) authorize(_ context.Context, req *http.Request) error {
	req.Header.Set("Authorization", a.header)
	return nil
}

type tokenAuth struct {
	cred azcore.TokenCredential
}

func newTokenAuth() (*tokenAuth, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}
	return &tokenAuth{cred: cred}, nil
}

func (a *tokenAuth) authorize(ctx context.Context, req *http.Request) error {
	token, err := a.cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{devopsScope},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuth, err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)
	return nil
}
