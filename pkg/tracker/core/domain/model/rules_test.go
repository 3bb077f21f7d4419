package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
)

func TestReplacesDate(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(24 * time.Hour)

	cases := []struct {
		name     string
		dateType DateType
		d        time.Time
		prev     *time.Time
		want     bool
	}{
		{"low with no previous", DateLow, late, nil, true},
		{"earlier low wins", DateLow, early, &late, true},
		{"later low loses", DateLow, late, &early, false},
		{"high with no previous", DateHigh, early, nil, true},
		{"later high wins", DateHigh, late, &early, true},
		{"earlier high loses", DateHigh, early, &late, false},
		{"equal high keeps previous", DateHigh, late, &late, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ReplacesDate(tc.dateType, tc.d, tc.prev)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReplacesDate_InvalidType(t *testing.T) {
	_, err := ReplacesDate("middle", time.Now(), nil)
	assert.True(t, errors.Is(err, exception.ErrInvalidDateType))
}

func TestMergeDate_LowIsMinimumOfInputs(t *testing.T) {
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	inputs := []time.Time{base, base.Add(-2 * time.Hour), base.Add(5 * time.Hour), base.Add(-time.Hour)}

	var low *time.Time
	for _, d := range inputs {
		d := d
		var err error
		low, err = MergeDate(DateLow, &d, low)
		require.NoError(t, err)
	}
	require.NotNil(t, low)
	assert.True(t, low.Equal(base.Add(-2*time.Hour)))

	kept, err := MergeDate(DateLow, nil, low)
	require.NoError(t, err)
	assert.Same(t, low, kept)
}

func TestParseDependencyKind(t *testing.T) {
	k, err := ParseDependencyKind("Parent")
	require.NoError(t, err)
	assert.Equal(t, DependencyParent, k)

	_, err = ParseDependencyKind("sibling")
	assert.True(t, errors.Is(err, exception.ErrInvalidDependencyKind))
}

func TestParseAuditType(t *testing.T) {
	a, err := ParseAuditType("load")
	require.NoError(t, err)
	assert.Equal(t, AuditLoad, a)

	_, err = ParseAuditType("read")
	assert.True(t, errors.Is(err, exception.ErrInvalidAuditType))
}

func TestSourceRef(t *testing.T) {
	assert.Equal(t, "crm", SourceNamed("crm").String())
	assert.Equal(t, "crm.accounts", SourceObjectNamed("crm", "accounts").String())
	refs := SourceNames("a", "b")
	require.Len(t, refs, 2)
	assert.Equal(t, SourceRefSource, refs[1].Kind)
}
