package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind_AcceptsSingularAndPlural(t *testing.T) {
	k, err := ParseKind("decision")
	assert.NoError(t, err)
	assert.Equal(t, KindDecision, k)

	k, err = ParseKind("Decisions")
	assert.NoError(t, err)
	assert.Equal(t, KindDecision, k)
}

func TestParseKind_RejectsUnknown(t *testing.T) {
	_, err := ParseKind("nonsense")
	assert.Error(t, err)
}

func TestKindFromID_DerivesFromPrefix(t *testing.T) {
	cases := map[string]Kind{
		"dec-7":   KindDecision,
		"iss-12":  KindIssue,
		"bd-3":    KindIssue,
		"idea-1":  KindIdea,
		"rpt-9":   KindReport,
		"src-4":   KindSource,
		"cite-2":  KindCitation,
		"agt-1":   KindAgent,
		"ses-1":   KindSession,
	}
	for id, want := range cases {
		got, ok := KindFromID(id)
		assert.True(t, ok, "id %q", id)
		assert.Equal(t, want, got, "id %q", id)
	}
}

func TestKindFromID_RejectsNoHyphen(t *testing.T) {
	_, ok := KindFromID("noprefix")
	assert.False(t, ok)
}

func TestKind_IDPrefixAndDirNameRoundTripThroughParseKind(t *testing.T) {
	for _, k := range allKinds {
		parsed, err := ParseKind(k.DirName())
		assert.NoError(t, err)
		assert.Equal(t, k, parsed)
		assert.NotEmpty(t, k.IDPrefix())
	}
}
