package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocationStateOf(t *testing.T) {
	now := time.Now()

	assert.Equal(t, AllocationStateInitial, AllocationStateOf(nil, nil))
	assert.Equal(t, AllocationStateLocked, AllocationStateOf(&now, nil))
	assert.Equal(t, AllocationStateFinalized, AllocationStateOf(&now, &now))
	// Метка финализации главнее, даже если блокировка потеряна.
	assert.Equal(t, AllocationStateFinalized, AllocationStateOf(nil, &now))
}

func TestWinnerList_Value(t *testing.T) {
	var empty WinnerList
	v, err := empty.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)

	list := WinnerList{{Division: "DAN", ExternalPlayerID: "P1", Place: 1}}
	v, err = list.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"division":"DAN","external_player_id":"P1","place":1}]`, string(v.([]byte)))
}

func TestWinnerList_Scan(t *testing.T) {
	var list WinnerList
	require.NoError(t, list.Scan([]byte(`[{"division":"SDK","external_player_id":"P2","place":3}]`)))
	require.Len(t, list, 1)
	assert.Equal(t, Winner{Division: "SDK", ExternalPlayerID: "P2", Place: 3}, list[0])

	var fromString WinnerList
	require.NoError(t, fromString.Scan(`[]`))
	assert.Empty(t, fromString)

	var fromNil WinnerList
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)

	var bad WinnerList
	assert.Error(t, bad.Scan(42))
}

func TestResultAwardList_Scan(t *testing.T) {
	payload := `[{"player_id":101,"player_name":"Alice","award_id":10,"award_value":25,"allocation_kind":"PREFERENCE","award_preference_order":1}]`

	var list ResultAwardList
	require.NoError(t, list.Scan([]byte(payload)))
	require.Len(t, list, 1)
	assert.Equal(t, 101, list[0].PlayerID)
	assert.Equal(t, AllocationKindPreference, list[0].Kind)
	require.NotNil(t, list[0].AwardPreferenceOrder)
	assert.Equal(t, 1, *list[0].AwardPreferenceOrder)
	assert.Nil(t, list[0].AwardRedeemCode)
}
