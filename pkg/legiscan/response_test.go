package legiscan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_RoundTrip(t *testing.T) {
	in := `{"status":"OK","masterlist":{"session":{"session_id":123},"0":{"bill_id":1132030,"number":"AB1"}}}`

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(in), &resp))
	assert.True(t, resp.OK())
	assert.Nil(t, resp.Alert)
	require.Contains(t, resp.Fields, "masterlist")
	assert.NotContains(t, resp.Fields, "status")

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestResponse_Error(t *testing.T) {
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(`{"status":"ERROR","alert":{"message":"Unknown bill id"}}`), &resp))

	assert.False(t, resp.OK())
	require.NotNil(t, resp.Alert)
	assert.Equal(t, "Unknown bill id", resp.Alert.Message)
	assert.Empty(t, resp.Fields)
}

func TestResponse_Decode(t *testing.T) {
	resp := NewResponse("datasetlist", json.RawMessage(`[{"session_id":2041,"dataset_hash":"abc","access_key":"k","special":1}]`))

	var list []DatasetSummary
	require.NoError(t, resp.Decode("datasetlist", &list))
	require.Len(t, list, 1)
	assert.Equal(t, 2041, list[0].SessionID)
	assert.Equal(t, "abc", list[0].DatasetHash)
	assert.True(t, list[0].IsSpecial())

	assert.Error(t, resp.Decode("bill", &list))
}

func TestDataset_Archive(t *testing.T) {
	ds := Dataset{Zip: "UEsDBA=="}
	data, err := ds.Archive()
	require.NoError(t, err)
	assert.Equal(t, []byte("PK\x03\x04"), data)

	_, err = Dataset{Zip: "%%%"}.Archive()
	assert.Error(t, err)
}

func TestValidState(t *testing.T) {
	assert.True(t, ValidState("CA"))
	assert.True(t, ValidState("us"))
	assert.False(t, ValidState("XX"))
}

func TestParseMasterList(t *testing.T) {
	raw := json.RawMessage(`{
		"session": {"session_id": 2041, "session_name": "2023-2024 Regular Session"},
		"1": {"bill_id": 22, "number": "AB2", "change_hash": "b"},
		"0": {"bill_id": 11, "number": "AB1", "change_hash": "a"},
		"10": {"bill_id": 33, "number": "AB3", "change_hash": "c"}
	}`)

	bills, err := ParseMasterList(raw)
	require.NoError(t, err)
	require.Len(t, bills, 3)
	assert.Equal(t, 11, bills[0].BillID)
	assert.Equal(t, 22, bills[1].BillID)
	assert.Equal(t, 33, bills[2].BillID)
	assert.Equal(t, "c", bills[2].ChangeHash)
}

func TestParseMasterList_Invalid(t *testing.T) {
	_, err := ParseMasterList(json.RawMessage(`[]`))
	assert.Error(t, err)

	_, err = ParseMasterList(json.RawMessage(`{"0": "nope"}`))
	assert.Error(t, err)
}
