package encryption

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKMS "encrypts" by reversing bytes and checks the encryption context.
type fakeKMS struct {
	encryptCalls int
	failEncrypt  bool
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}

func (f *fakeKMS) Encrypt(_ context.Context, in *kms.EncryptInput, _ ...func(*kms.Options)) (*kms.EncryptOutput, error) {
	f.encryptCalls++
	if f.failEncrypt {
		return nil, errors.New("throttled")
	}
	if in.EncryptionContext["Purpose"] != "PHI-Encryption" {
		return nil, errors.New("missing encryption context")
	}
	return &kms.EncryptOutput{CiphertextBlob: reverse(in.Plaintext)}, nil
}

func (f *fakeKMS) Decrypt(_ context.Context, in *kms.DecryptInput, _ ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	if in.EncryptionContext["Service"] != "Therma-Backend" {
		return nil, errors.New("context mismatch")
	}
	return &kms.DecryptOutput{Plaintext: reverse(in.CiphertextBlob)}, nil
}

func (f *fakeKMS) DescribeKey(_ context.Context, in *kms.DescribeKeyInput, _ ...func(*kms.Options)) (*kms.DescribeKeyOutput, error) {
	if *in.KeyId != "alias/therma" {
		return nil, errors.New("not found")
	}
	return &kms.DescribeKeyOutput{}, nil
}

func TestEncryptDecryptPHI(t *testing.T) {
	ctx := context.Background()
	client := NewWithAPI(&fakeKMS{}, "alias/therma")

	enc, err := client.EncryptPHI(ctx, "felt anxious before the meeting")
	require.NoError(t, err)
	assert.NotEqual(t, "felt anxious before the meeting", enc)

	dec, err := client.DecryptPHI(ctx, enc)
	require.NoError(t, err)
	assert.Equal(t, "felt anxious before the meeting", dec)
}

func TestEncryptPHI_EmptySkipsKMS(t *testing.T) {
	api := &fakeKMS{}
	client := NewWithAPI(api, "alias/therma")

	enc, err := client.EncryptPHI(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, enc)
	assert.Zero(t, api.encryptCalls)
}

func TestPHIArrays(t *testing.T) {
	ctx := context.Background()
	client := NewWithAPI(&fakeKMS{}, "alias/therma")

	enc, err := client.EncryptPHIArray(ctx, []string{"work", "sleep"})
	require.NoError(t, err)
	require.Len(t, enc, 2)

	dec, err := client.DecryptPHIArray(ctx, enc)
	require.NoError(t, err)
	assert.Equal(t, []string{"work", "sleep"}, dec)

	empty, err := client.EncryptPHIArray(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEncryptPHI_Error(t *testing.T) {
	client := NewWithAPI(&fakeKMS{failEncrypt: true}, "alias/therma")

	_, err := client.EncryptPHIArray(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array element 0")
}

func TestDecryptPHI_BadBase64(t *testing.T) {
	client := NewWithAPI(&fakeKMS{}, "alias/therma")
	_, err := client.DecryptPHI(context.Background(), "%%%")
	assert.Error(t, err)
}

func TestValidateKMSKey(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, NewWithAPI(&fakeKMS{}, "alias/therma").ValidateKMSKey(ctx))
	assert.Error(t, NewWithAPI(&fakeKMS{}, "alias/other").ValidateKMSKey(ctx))
}

func TestNewKMSClient_RequiresKey(t *testing.T) {
	_, err := NewKMSClient(context.Background(), "")
	assert.Error(t, err)
}
