package secrets

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
)

type AWSConfig struct {
	Endpoint        string `yaml:"endpoint" config:"endpoint"`
	Region          string `yaml:"region" config:"region"`
	AccessKeyID     string `yaml:"accessKeyID" config:"access-key-id"`
	SecretAccessKey string `yaml:"secretAccessKey" config:"secret-access-key"`
}

func awsSession(cfg AWSConfig) (*session.Session, *aws.Config, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, nil, fmt.Errorf("creating aws session: %w", err)
	}

	awscfg := aws.NewConfig().
		WithEndpoint(cfg.Endpoint).
		WithRegion(cfg.Region)

	// fall back to the default credential chain when no static keys are set
	if cfg.AccessKeyID != "" {
		awscfg = awscfg.WithCredentials(credentials.NewCredentials(&credentials.StaticProvider{
			Value: credentials.Value{
				AccessKeyID:     cfg.AccessKeyID,
				SecretAccessKey: cfg.SecretAccessKey,
			},
		}))
	}

	return sess, awscfg, nil
}
