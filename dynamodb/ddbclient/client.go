// Package ddbclient builds the AWS SDK v2 DynamoDB client from a
// config.Config.
//
// Credentials resolve in this order:
//   - web identity federation (config.Config.WebIdentity): the OIDC token is
//     exchanged for short-lived role credentials through STS
//     AssumeRoleWithWebIdentity and cached until they expire
//   - static placeholder credentials when an endpoint override is set, since
//     DynamoDB Local requires signed requests but ignores the keys
//   - the default AWS credential chain otherwise
package ddbclient

import (
	"context"
	"fmt"

	"github.com/acksell/moviesdemo/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const roleSessionName = "moviesdemo"

// LoadAWSConfig resolves region and credentials for cfg.
func LoadAWSConfig(ctx context.Context, cfg config.Config) (aws.Config, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Endpoint != "" && !cfg.WebIdentity() {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}

	if cfg.WebIdentity() {
		awsCfg.Credentials = aws.NewCredentialsCache(webIdentityProvider(awsCfg, cfg))
	}
	return awsCfg, nil
}

func webIdentityProvider(awsCfg aws.Config, cfg config.Config) *stscreds.WebIdentityRoleProvider {
	var token stscreds.IdentityTokenRetriever = stscreds.IdentityTokenFile(cfg.WebIdentityTokenFile)
	if cfg.OIDCToken != "" {
		token = inlineToken(cfg.OIDCToken)
	}
	return stscreds.NewWebIdentityRoleProvider(sts.NewFromConfig(awsCfg), cfg.RoleARN, token,
		func(o *stscreds.WebIdentityRoleOptions) {
			o.RoleSessionName = roleSessionName
		})
}

// inlineToken serves an OIDC token handed over through the environment.
type inlineToken string

func (t inlineToken) GetIdentityToken() ([]byte, error) {
	return []byte(t), nil
}

// New returns a DynamoDB client for cfg. Every request is attempted once;
// callers decide what a failure means.
func New(ctx context.Context, cfg config.Config) (*dynamodb.Client, error) {
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(awsCfg, cfg.Endpoint), nil
}

// NewFromConfig builds the client from an already resolved aws.Config.
func NewFromConfig(awsCfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.RetryMaxAttempts = 1
	})
}
