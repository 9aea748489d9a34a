package utils_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tabmigrate/internal/utils"
)

const (
	testContextConfigurationPathConstant = "/etc/tabmigrate/config.yaml"
	testContextRunIdentifierConstant     = "7d0b7c4e-5f0c-4b8e-9a51-0d5d1f3f2c11"
)

func TestCommandContextAccessorRoundTrip(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	executionContext := accessor.WithConfigurationFilePath(context.Background(), testContextConfigurationPathConstant)
	executionContext = accessor.WithRunIdentifier(executionContext, testContextRunIdentifierConstant)

	configurationPath, configurationPathAvailable := accessor.ConfigurationFilePath(executionContext)
	require.True(testInstance, configurationPathAvailable)
	require.Equal(testInstance, testContextConfigurationPathConstant, configurationPath)

	runIdentifier, runIdentifierAvailable := accessor.RunIdentifier(executionContext)
	require.True(testInstance, runIdentifierAvailable)
	require.Equal(testInstance, testContextRunIdentifierConstant, runIdentifier)
}

func TestCommandContextAccessorMissingValues(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	_, configurationPathAvailable := accessor.ConfigurationFilePath(context.Background())
	require.False(testInstance, configurationPathAvailable)

	//nolint:staticcheck
	_, runIdentifierAvailable := accessor.RunIdentifier(nil)
	require.False(testInstance, runIdentifierAvailable)

	//nolint:staticcheck
	derived := accessor.WithRunIdentifier(nil, testContextRunIdentifierConstant)
	runIdentifier, available := accessor.RunIdentifier(derived)
	require.True(testInstance, available)
	require.Equal(testInstance, testContextRunIdentifierConstant, runIdentifier)
}
