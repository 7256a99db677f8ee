package mongodb

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestToDocument(t *testing.T) {
	now := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	payload := json.RawMessage(`{"id":"a1","tagNumber":"T1","weightRecords":[{"date":"2024-05-01","weightKg":412.5}],"salePrice":"1500"}`)

	doc, coll, err := toDocument("users/u1/animals/a1", payload, now)
	require.NoError(t, err)
	assert.Equal(t, "animals", coll)
	assert.Equal(t, "users/u1/animals/a1", doc.Path)
	assert.Equal(t, "u1", doc.UserID)
	assert.Equal(t, "a1", doc.DocID)
	assert.Equal(t, now, doc.UpdatedAt)

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var stored struct {
		Data bson.Raw `bson:"data"`
	}
	require.NoError(t, bson.Unmarshal(raw, &stored))

	back, err := fromDocument(stored.Data)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(back))
}

func TestToDocumentRejectsBadInput(t *testing.T) {
	_, _, err := toDocument("users/u1/animals", json.RawMessage(`{}`), time.Now())
	assert.Error(t, err, "collection paths are not documents")

	_, _, err = toDocument("users/u1/animals/a1", json.RawMessage(`[1,2]`), time.Now())
	assert.Error(t, err)
}
