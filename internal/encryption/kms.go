// Package encryption protects PHI (journal text, mood notes, tags) with AWS KMS.
package encryption

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// KMSAPI is the subset of the KMS client used here.
type KMSAPI interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
	DescribeKey(ctx context.Context, params *kms.DescribeKeyInput, optFns ...func(*kms.Options)) (*kms.DescribeKeyOutput, error)
}

type KMSClient struct {
	client KMSAPI
	keyID  string
}

// encryptionContext is bound into every ciphertext; decrypting with a
// different context fails.
var encryptionContext = map[string]string{
	"Purpose": "PHI-Encryption",
	"Service": "Therma-Backend",
}

func NewKMSClient(ctx context.Context, keyID string) (*KMSClient, error) {
	if keyID == "" {
		return nil, fmt.Errorf("KMS_KEY_ID environment variable is required")
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithAPI(kms.NewFromConfig(cfg), keyID), nil
}

// NewWithAPI builds a client over any KMSAPI implementation.
func NewWithAPI(api KMSAPI, keyID string) *KMSClient {
	return &KMSClient{client: api, keyID: keyID}
}

// EncryptPHI encrypts PHI data and returns base64 ciphertext. Empty input
// stays empty.
func (k *KMSClient) EncryptPHI(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	result, err := k.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:             aws.String(k.keyID),
		Plaintext:         []byte(plaintext),
		EncryptionContext: encryptionContext,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encrypt PHI: %w", err)
	}

	return base64.StdEncoding.EncodeToString(result.CiphertextBlob), nil
}

// DecryptPHI reverses EncryptPHI.
func (k *KMSClient) DecryptPHI(ctx context.Context, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	result, err := k.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob:    blob,
		EncryptionContext: encryptionContext,
	})
	if err != nil {
		return "", fmt.Errorf("failed to decrypt PHI: %w", err)
	}

	return string(result.Plaintext), nil
}

// EncryptPHIArray encrypts each element of plaintexts.
func (k *KMSClient) EncryptPHIArray(ctx context.Context, plaintexts []string) ([]string, error) {
	encrypted := make([]string, len(plaintexts))
	for i, plaintext := range plaintexts {
		enc, err := k.EncryptPHI(ctx, plaintext)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt array element %d: %w", i, err)
		}
		encrypted[i] = enc
	}
	return encrypted, nil
}

// DecryptPHIArray decrypts each element of ciphertexts.
func (k *KMSClient) DecryptPHIArray(ctx context.Context, ciphertexts []string) ([]string, error) {
	decrypted := make([]string, len(ciphertexts))
	for i, ciphertext := range ciphertexts {
		dec, err := k.DecryptPHI(ctx, ciphertext)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt array element %d: %w", i, err)
		}
		decrypted[i] = dec
	}
	return decrypted, nil
}

// ValidateKMSKey checks that the key exists and is accessible.
func (k *KMSClient) ValidateKMSKey(ctx context.Context) error {
	_, err := k.client.DescribeKey(ctx, &kms.DescribeKeyInput{KeyId: aws.String(k.keyID)})
	if err != nil {
		return fmt.Errorf("failed to validate KMS key %s: %w", k.keyID, err)
	}
	return nil
}
