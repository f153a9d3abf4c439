package osc

import (
	"testing"

	"github.com/scintillator/scsynth/engine/comp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFirst(t *testing.T) {
	head, rest := splitFirst("/s_new  sine 1 tail 0")
	assert.Equal(t, "/s_new", head)
	assert.Equal(t, "sine 1 tail 0", rest)
}

func TestSplitFirstNoArgs(t *testing.T) {
	head, rest := splitFirst("/sync")
	assert.Equal(t, "/sync", head)
	assert.Equal(t, "", rest)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, splitList("1,2,3"))
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList("   "))
}

func TestParseIDList(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 3}, parseIDList("1,2,3"))
}

func TestParseIDListSkipsMalformedTokens(t *testing.T) {
	assert.Equal(t, []int64{1, 3}, parseIDList("1,nope,3"))
}

func TestParseBoolPairs(t *testing.T) {
	pairs, err := parseBoolPairs("1=1 2=0 3=true 4=false")
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{1: true, 2: false, 3: true, 4: false}, pairs)
}

func TestParseBoolPairsRejectsMalformed(t *testing.T) {
	_, err := parseBoolPairs("1")
	assert.Error(t, err)
}

func TestParseKeyValue(t *testing.T) {
	name, v, err := parseKeyValue("freq=440.5")
	require.NoError(t, err)
	assert.Equal(t, "freq", name)
	assert.InDelta(t, 440.5, v, 1e-6)
}

func TestParseKeyValueRejectsMissingEquals(t *testing.T) {
	_, _, err := parseKeyValue("freq")
	assert.Error(t, err)
}

func TestParseAddAction(t *testing.T) {
	cases := map[string]comp.AddAction{
		"head":    comp.AddToGroupHead,
		"tail":    comp.AddToGroupTail,
		"before":  comp.AddBeforeNode,
		"after":   comp.AddAfterNode,
		"replace": comp.AddReplace,
	}
	for s, want := range cases {
		got, err := parseAddAction(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseAddActionRejectsUnknown(t *testing.T) {
	_, err := parseAddAction("sideways")
	assert.Error(t, err)
}
