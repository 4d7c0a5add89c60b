package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDemoScenarios runs every scenario shipped in testdata. They double as
// reference examples of the scenario format.
func TestDemoScenarios(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.Len(t, paths, 4)

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err, "failed to load scenario from %s", path)
			assert.NotEmpty(t, scenario.Description, "scenario should have description")

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario %s failed:\n%v", scenario.Name, result.Errors)
		})
	}
}
