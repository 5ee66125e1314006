package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildcard/caro/internal/model"
)

func TestRmRfRootIsAlwaysCritical(t *testing.T) {
	v := New(DefaultRules(), nil)
	result, err := v.Validate("sudo rm -rf /", model.ShellBash, model.SafetyPermissive)
	require.NoError(t, err)
	assert.Equal(t, model.RiskCritical, result.Risk)
	assert.True(t, result.Blocked)
}

func TestCriticalPatternIgnoresContext(t *testing.T) {
	v := New(DefaultRules(), nil)
	// Even under the most permissive floor, critical never drops.
	strict, err := v.Validate("rm -rf /etc", model.ShellBash, model.SafetyStrict)
	require.NoError(t, err)
	permissive, err := v.Validate("rm -rf /etc", model.ShellBash, model.SafetyPermissive)
	require.NoError(t, err)
	assert.Equal(t, model.RiskCritical, strict.Risk)
	assert.Equal(t, model.RiskCritical, permissive.Risk)
}

func TestMatchInsideSingleQuotesIsIgnored(t *testing.T) {
	v := New(DefaultRules(), nil)
	result, err := v.Validate(`echo 'rm -rf /'`, model.ShellBash, model.SafetyModerate)
	require.NoError(t, err)
	assert.Equal(t, model.RiskSafe, result.Risk)
	assert.Empty(t, result.Matched)
}

func TestMatchInsideDoubleQuotesIsNotIgnored(t *testing.T) {
	v := New(DefaultRules(), nil)
	result, err := v.Validate(`bash -c "rm -rf /"`, model.ShellBash, model.SafetyModerate)
	require.NoError(t, err)
	assert.Equal(t, model.RiskCritical, result.Risk)
}

func TestRecursiveDeleteWithoutRootIsHighNotCritical(t *testing.T) {
	v := New(DefaultRules(), nil)
	result, err := v.Validate("rm -rf ./build", model.ShellBash, model.SafetyModerate)
	require.NoError(t, err)
	assert.Equal(t, model.RiskHigh, result.Risk)
	assert.False(t, result.Blocked)
	require.NotEmpty(t, result.Alternatives)
}

func TestSafeCommandPasses(t *testing.T) {
	v := New(DefaultRules(), nil)
	result, err := v.Validate("ls -la", model.ShellBash, model.SafetyModerate)
	require.NoError(t, err)
	assert.Equal(t, model.RiskSafe, result.Risk)
	assert.False(t, result.Blocked)
}

func TestValidateIsIdempotent(t *testing.T) {
	v := New(DefaultRules(), nil)
	a, errA := v.Validate("find / -name '*.log' -delete", model.ShellBash, model.SafetyModerate)
	require.NoError(t, errA)
	b, errB := v.Validate("find / -name '*.log' -delete", model.ShellBash, model.SafetyModerate)
	require.NoError(t, errB)
	assert.Equal(t, a.Risk, b.Risk)
	assert.Equal(t, a.Matched, b.Matched)
	assert.Equal(t, a.Warnings, b.Warnings)
}

func TestMalformedQuotingIsHighRiskWarning(t *testing.T) {
	v := New(DefaultRules(), nil)
	result, err := v.Validate(`echo "unterminated`, model.ShellBash, model.SafetyModerate)
	require.ErrorIs(t, err, ErrMalformedCommand)
	assert.Equal(t, model.RiskHigh, result.Risk)
	assert.True(t, result.Blocked)
	require.NotEmpty(t, result.Warnings)
}

func TestDecideMapsRiskAndFloorToConfirmationPosture(t *testing.T) {
	assert.Equal(t, DecisionBlock, Decide(model.RiskCritical, model.SafetyPermissive))
	assert.Equal(t, DecisionBlock, Decide(model.RiskHigh, model.SafetyStrict))
	assert.Equal(t, DecisionConfirmTwice, Decide(model.RiskHigh, model.SafetyModerate))
	assert.Equal(t, DecisionConfirmOnce, Decide(model.RiskHigh, model.SafetyPermissive))
	assert.Equal(t, DecisionConfirmOnce, Decide(model.RiskModerate, model.SafetyModerate))
	assert.Equal(t, DecisionPass, Decide(model.RiskModerate, model.SafetyPermissive))
	assert.Equal(t, DecisionPass, Decide(model.RiskSafe, model.SafetyStrict))
}

type fakeLookup struct {
	tools map[string]model.ToolInfo
}

func (f fakeLookup) Lookup(tool string) (model.ToolInfo, bool) {
	info, ok := f.tools[tool]
	return info, ok
}

func TestStructuralChecksFlagUnknownFlagOnDestructiveTool(t *testing.T) {
	lookup := fakeLookup{tools: map[string]model.ToolInfo{
		"rm": {Name: "rm", SupportedFlags: map[string]struct{}{"-i": {}, "-f": {}}},
	}}
	v := New(DefaultRules(), lookup)
	result, err := v.Validate("rm --nonexistent-flag file.txt", model.ShellBash, model.SafetyModerate)
	require.NoError(t, err)
	require.NotEmpty(t, result.Warnings)
}

func TestTokenizeHonorsPipelinesAndRedirects(t *testing.T) {
	segments, err := Tokenize("grep foo file.txt | sort > out.txt")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, []string{"grep", "foo", "file.txt"}, segments[0].Argv)
	assert.Equal(t, []string{"sort"}, segments[1].Argv)
	assert.Contains(t, segments[1].Redirects, "> out.txt")
}
