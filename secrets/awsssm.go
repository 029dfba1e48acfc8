package secrets

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/ssm"
)

var _ SecretStorage = &AWSSSM{}

// AWSSSM is the AWS Systems Manager Parameter Store (aka SSM PS)
type AWSSSM struct {
	AWSSSMConfig

	client *ssm.SSM
}

type AWSSSMConfig struct {
	AWSConfig
	KeyID string `yaml:"keyId" config:"key-id"` // KMS key to use for decryption
}

func NewAWSSSMFromConfig(cfg AWSSSMConfig) (*AWSSSM, error) {
	sess, awscfg, err := awsSession(cfg.AWSConfig)
	if err != nil {
		return nil, err
	}

	return &AWSSSM{
		AWSSSMConfig: cfg,
		client:       ssm.New(sess, awscfg),
	}, nil
}

func NewAWSSSM(client *ssm.SSM) *AWSSSM {
	return &AWSSSM{
		client: client,
	}
}

var invalidSecretNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-/]`)

// SetSecret stores the value as a SecureString parameter, encrypted with
// KeyID when set, otherwise with the account default key.
func (s *AWSSSM) SetSecret(name string, secret []byte) error {
	name = invalidSecretNameChars.ReplaceAllString(name, "_")
	secretStr := string(secret)

	var keyID *string
	if len(s.KeyID) > 0 {
		keyID = &s.KeyID
	}

	_, err := s.client.PutParameterWithContext(context.TODO(), &ssm.PutParameterInput{
		KeyId:     keyID,
		Name:      &name,
		Overwrite: aws.Bool(true),
		Type:      aws.String("SecureString"),
		Value:     &secretStr,
	})
	if err != nil {
		return fmt.Errorf("ssm: creating secret: %w", err)
	}

	return nil
}

// GetSecret
// must have permission ssm:GetParameter
// kms:Decrypt - required only if you use a customer-managed Amazon Web Services KMS key to encrypt the secret
func (s *AWSSSM) GetSecret(name string) (secret []byte, err error) {
	name = invalidSecretNameChars.ReplaceAllString(name, "_")

	p, err := s.client.GetParameterWithContext(context.TODO(), &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) {
			if aerr.Code() == ssm.ErrCodeParameterNotFound {
				return nil, ErrNotFound
			}
		}

		return nil, fmt.Errorf("ssm: get secret: %w", err)
	}

	return []byte(*p.Parameter.Value), nil
}
