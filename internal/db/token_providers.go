package db

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"

	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// TokenProvider supplies a short-lived password for cloud-hosted PostgreSQL.
type TokenProvider interface {
	// GetToken returns the token and when it stops being accepted.
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String describes the provider for logs. It never includes secrets.
	String() string
}

// AzurePostgreSQLScope is the Entra ID scope of Azure Database for PostgreSQL.
const AzurePostgreSQLScope = "https://ossrdbms-aad.database.windows.net/.default"

// rdsTokenLifetime is fixed by RDS.
const rdsTokenLifetime = 15 * time.Minute

// credentialsSource resolves AWS credentials for a region.
type credentialsSource func(ctx context.Context, region string) (aws.CredentialsProvider, error)

func defaultAWSCredentials(ctx context.Context, region string) (aws.CredentialsProvider, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg.Credentials, nil
}

// RDSTokenProvider presigns RDS IAM auth tokens with the default AWS
// credential chain (environment, shared config, instance role).
type RDSTokenProvider struct {
	endpoint string // host:port
	region   string
	username string

	credentials credentialsSource
	now         func() time.Time
}

// NewRDSTokenProvider validates its arguments; credentials are resolved on
// every GetToken so rotated role credentials are picked up between retries.
func NewRDSTokenProvider(endpoint, region, username string) (*RDSTokenProvider, error) {
	switch {
	case endpoint == "":
		return nil, fmt.Errorf("AWS IAM auth requires endpoint (host:port): %w", sparketl.ErrInvalidConfig)
	case region == "":
		return nil, fmt.Errorf("AWS IAM auth requires region (use --aws-region or $AWS_REGION): %w", sparketl.ErrInvalidConfig)
	case username == "":
		return nil, fmt.Errorf("AWS IAM auth requires database username (-U): %w", sparketl.ErrInvalidConfig)
	}

	return &RDSTokenProvider{
		endpoint:    endpoint,
		region:      region,
		username:    username,
		credentials: defaultAWSCredentials,
		now:         time.Now,
	}, nil
}

func (p *RDSTokenProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	creds, err := p.credentials(ctx, p.region)
	if err != nil {
		return "", time.Time{}, err
	}

	issuedAt := p.now()
	token, err := auth.BuildAuthToken(ctx, p.endpoint, p.region, p.username, creds)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build RDS auth token: %w", err)
	}
	return token, issuedAt.Add(rdsTokenLifetime), nil
}

func (p *RDSTokenProvider) String() string {
	return fmt.Sprintf("RDS IAM (endpoint=%s, region=%s, user=%s)", p.endpoint, p.region, p.username)
}

// EntraTokenProvider requests Entra ID tokens for Azure Database for PostgreSQL.
type EntraTokenProvider struct {
	credential  azcore.TokenCredential
	description string
}

// NewEntraServicePrincipalProvider authenticates as an app registration.
// This is the usual choice for scheduled loads outside Azure.
func NewEntraServicePrincipalProvider(tenantID, clientID, clientSecret string) (*EntraTokenProvider, error) {
	if tenantID == "" || clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("azure service principal requires tenant id, client id and $AZURE_CLIENT_SECRET: %w", sparketl.ErrInvalidConfig)
	}

	cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	return &EntraTokenProvider{
		credential:  cred,
		description: fmt.Sprintf("Entra ID service principal (tenant=%s, client=%s)", tenantID, clientID),
	}, nil
}

// NewEntraDefaultProvider uses the DefaultAzureCredential chain: environment,
// workload identity, managed identity, then the Azure CLI. A non-empty
// tenantID pins the tenant.
func NewEntraDefaultProvider(tenantID string) (*EntraTokenProvider, error) {
	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		TenantID: tenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure default credential: %w", err)
	}

	description := "Entra ID default credential"
	if tenantID != "" {
		description += fmt.Sprintf(" (tenant=%s)", tenantID)
	}
	return &EntraTokenProvider{credential: cred, description: description}, nil
}

func (p *EntraTokenProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	token, err := p.credential.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{AzurePostgreSQLScope},
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("azure token acquisition failed: %w", err)
	}
	return token.Token, token.ExpiresOn, nil
}

func (p *EntraTokenProvider) String() string {
	return p.description
}
