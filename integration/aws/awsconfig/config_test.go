package awsconfig_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/acmekit/integration/aws/awsconfig"
)

func TestLoadStaticCredentials(t *testing.T) {
	// keep the loader away from the host's shared AWS files
	t.Setenv("AWS_CONFIG_FILE", t.TempDir()+"/config")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", t.TempDir()+"/credentials")
	ctx := context.Background()

	cfg, err := awsconfig.Load(ctx, awsconfig.Config{
		Region:      "eu-west-1",
		AccessKeyID: "AKIDEXAMPLE",
		SecretKey:   "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}
